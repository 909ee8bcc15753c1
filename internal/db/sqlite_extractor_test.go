//go:build integration
// +build integration

package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/tordrt/schemaforge/internal/diag"
	"github.com/tordrt/schemaforge/internal/schema"
)

const sqliteFixture = `
CREATE TABLE users (
	id INTEGER PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	status TEXT NOT NULL DEFAULT 'active'
);

CREATE TABLE posts (
	id INTEGER PRIMARY KEY,
	user_id INTEGER NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	title VARCHAR(200) NOT NULL
);

CREATE INDEX idx_posts_user ON posts (user_id);
`

func openSQLiteFixture(t *testing.T) *SQLiteClient {
	t.Helper()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "test.db")
	client, err := NewSQLiteClient(ctx, path)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	if _, err := client.DB().ExecContext(ctx, sqliteFixture); err != nil {
		t.Fatalf("failed to seed fixture: %v", err)
	}
	return client
}

func TestSQLiteExtraction(t *testing.T) {
	client := openSQLiteFixture(t)
	extractor := NewSQLiteExtractor(client)

	diags := &diag.Set{}
	s, err := extractor.ExtractSchema(context.Background(), nil, diags)
	if err != nil {
		t.Fatalf("ExtractSchema returned error: %v", err)
	}

	if len(s.Tables) != 2 {
		t.Fatalf("got %d tables, want 2", len(s.Tables))
	}

	users := s.TableByName("users")
	if users == nil {
		t.Fatal("users table not found")
	}

	id := users.FieldByName("id")
	if id == nil || !id.PrimaryKey || !id.AutoIncrement {
		t.Errorf("id field = %+v, want rowid-alias primary key", id)
	}
	if id.Type.Kind != schema.KindSerial {
		t.Errorf("id kind = %v, want serial", id.Type.Kind)
	}

	email := users.FieldByName("email")
	if email == nil || !email.Unique || email.Nullable {
		t.Errorf("email field = %+v, want unique not null", email)
	}

	status := users.FieldByName("status")
	if status == nil || status.Default == nil || *status.Default != "active" {
		t.Errorf("status field = %+v, want default 'active'", status)
	}

	if len(s.References) != 1 {
		t.Fatalf("got %d references, want 1", len(s.References))
	}
	ref := s.References[0]
	if ref.OnDelete != schema.ActionCascade {
		t.Errorf("OnDelete = %v, want cascade", ref.OnDelete)
	}
	if s.Table(ref.TargetTableID).Name != "users" {
		t.Error("reference does not target users")
	}

	posts := s.TableByName("posts")
	if posts == nil {
		t.Fatal("posts table not found")
	}
	if len(posts.Indexes) != 1 || posts.Indexes[0].Name != "idx_posts_user" {
		t.Errorf("posts indexes = %+v, want idx_posts_user only", posts.Indexes)
	}
}

func TestSQLiteSpecificTables(t *testing.T) {
	client := openSQLiteFixture(t)
	extractor := NewSQLiteExtractor(client)

	diags := &diag.Set{}
	s, err := extractor.ExtractSchema(context.Background(), []string{"users"}, diags)
	if err != nil {
		t.Fatalf("ExtractSchema returned error: %v", err)
	}

	if len(s.Tables) != 1 || s.Tables[0].Name != "users" {
		t.Fatalf("got tables %+v, want users only", s.Tables)
	}
	// Foreign keys are read per extracted table, so skipping posts drops
	// its outgoing reference entirely.
	if len(s.References) != 0 {
		t.Errorf("got %d references, want 0", len(s.References))
	}
}
