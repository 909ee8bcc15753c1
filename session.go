package schemaforge

import (
	"context"
	"fmt"
	"time"

	"github.com/tordrt/schemaforge/internal/db"
	"github.com/tordrt/schemaforge/internal/diag"
	"github.com/tordrt/schemaforge/internal/registry"
	"github.com/tordrt/schemaforge/internal/schema"
)

// Handle identifies a pooled database connection. Handles are opaque and
// become stale once the connection is closed or evicted; a stale handle is
// an error, never a silent reconnect.
type Handle = registry.Handle

// ErrStaleHandle is returned when a handle no longer maps to a live
// connection, either because it was closed or because the idle sweep
// evicted it.
var ErrStaleHandle = registry.ErrStaleHandle

// Pool keeps live database connections across repeated extractions, so a
// caller serving many conversion requests against the same databases does
// not reconnect per request.
//
// Each extraction acquires its connection exclusively for the duration of
// the call. Connections idle past the configured bound are closed by a
// background sweep; their handles go stale.
type Pool struct {
	reg *registry.Registry
}

// poolConn pairs a closeable client with its extraction function, so the
// pool stays agnostic of which database family sits behind a handle.
type poolConn struct {
	closeFn   func() error
	extractFn func(ctx context.Context, tables []string, diags *diag.Set) (*schema.Schema, error)
}

func (c *poolConn) Close() error { return c.closeFn() }

// NewPool creates a connection pool whose idle connections are evicted
// after idleBound.
func NewPool(idleBound time.Duration) *Pool {
	return &Pool{reg: registry.New(idleBound)}
}

// Open connects to the given database URL and registers the connection,
// returning a handle for later extractions. opts.SchemaName is resolved at
// open time, the same way ExtractSchema resolves it.
func (p *Pool) Open(ctx context.Context, databaseURL string, opts *Options) (Handle, error) {
	if opts == nil {
		opts = &Options{}
	}

	dbType, connStr, err := parseDatabaseURL(databaseURL)
	if err != nil {
		return Handle{}, err
	}

	var conn *poolConn
	switch dbType {
	case "postgres":
		client, err := db.NewPostgresClient(ctx, connStr)
		if err != nil {
			return Handle{}, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		schemaName := opts.SchemaName
		if schemaName == "" {
			schemaName = "public"
		}
		extractor := db.NewPostgresExtractor(client, schemaName)
		conn = &poolConn{closeFn: client.Close, extractFn: extractor.ExtractSchema}
	case "mysql":
		client, err := db.NewMySQLClient(ctx, connStr)
		if err != nil {
			return Handle{}, fmt.Errorf("failed to connect to MySQL: %w", err)
		}
		schemaName := opts.SchemaName
		if schemaName == "" {
			schemaName, err = db.ParseDatabaseName(connStr)
			if err != nil {
				_ = client.Close()
				return Handle{}, fmt.Errorf("failed to determine database name: %w", err)
			}
		}
		extractor := db.NewMySQLExtractor(client, schemaName)
		conn = &poolConn{closeFn: client.Close, extractFn: extractor.ExtractSchema}
	case "sqlite":
		client, err := db.NewSQLiteClient(ctx, connStr)
		if err != nil {
			return Handle{}, fmt.Errorf("failed to connect to SQLite: %w", err)
		}
		extractor := db.NewSQLiteExtractor(client)
		conn = &poolConn{closeFn: client.Close, extractFn: extractor.ExtractSchema}
	default:
		return Handle{}, fmt.Errorf("unsupported database type: %s", dbType)
	}

	return p.reg.Register(conn), nil
}

// Extract runs a schema extraction over the pooled connection. The
// connection is held exclusively until the extraction returns; a concurrent
// Extract on the same handle fails rather than blocks.
func (p *Pool) Extract(ctx context.Context, h Handle, opts *Options) (*schema.Schema, []diag.Diagnostic, error) {
	if opts == nil {
		opts = &Options{}
	}

	conn, err := p.reg.Acquire(h)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = p.reg.Release(h) }()

	pc, ok := conn.(*poolConn)
	if !ok {
		return nil, nil, fmt.Errorf("handle does not refer to a database connection")
	}

	diags := &diag.Set{}
	s, err := pc.extractFn(ctx, opts.Tables, diags)
	if err != nil {
		return nil, nil, err
	}

	if len(opts.ExcludeTables) > 0 {
		filterExcludedTables(s, opts.ExcludeTables)
	}

	return s, diags.All(), nil
}

// CloseConn closes one pooled connection and invalidates its handle.
func (p *Pool) CloseConn(h Handle) error {
	return p.reg.Remove(h)
}

// Close shuts the pool down, closing every remaining connection.
func (p *Pool) Close() error {
	return p.reg.Close()
}
