package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tordrt/schemaforge/internal/diag"
	"github.com/tordrt/schemaforge/internal/schema"
	"github.com/tordrt/schemaforge/internal/typemap"
)

// SQLiteExtractor maps SQLite pragma output into the canonical schema model.
type SQLiteExtractor struct {
	client *SQLiteClient
}

// NewSQLiteExtractor creates a new SQLite schema extractor
func NewSQLiteExtractor(client *SQLiteClient) *SQLiteExtractor {
	return &SQLiteExtractor{
		client: client,
	}
}

// ExtractSchema extracts the canonical schema for the specified tables.
// If tables is empty, extracts all tables in the database.
func (e *SQLiteExtractor) ExtractSchema(ctx context.Context, tables []string, diags *diag.Set) (*schema.Schema, error) {
	s := &schema.Schema{SourceDialect: schema.DialectSQLite}

	tableNames, err := e.getTableNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get table names: %w", err)
	}
	tableNames = filterTables(tableNames, tables)

	var fks []fkRow
	for _, tableName := range tableNames {
		table, tableFKs, err := e.extractTable(ctx, tableName, diags)
		if err != nil {
			return nil, fmt.Errorf("failed to extract table %s: %w", tableName, err)
		}
		s.Tables = append(s.Tables, *table)
		fks = append(fks, tableFKs...)
	}

	buildReferences(s, fks, diags)
	return s, nil
}

// getTableNames returns the list of tables to extract
func (e *SQLiteExtractor) getTableNames(ctx context.Context) ([]string, error) {
	query := `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`

	rows, err := e.client.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tableList []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, err
		}
		tableList = append(tableList, tableName)
	}

	return tableList, rows.Err()
}

// extractTable extracts all information for a single table
func (e *SQLiteExtractor) extractTable(ctx context.Context, tableName string, diags *diag.Set) (*schema.Table, []fkRow, error) {
	table := &schema.Table{ID: schema.NewID(), Name: tableName}

	fields, err := e.extractFields(ctx, tableName, diags)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	table.Fields = fields

	indexes, err := e.extractIndexes(ctx, tableName, table)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to extract indexes: %w", err)
	}
	table.Indexes = indexes

	fks, err := e.extractForeignKeys(ctx, tableName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to extract foreign keys: %w", err)
	}

	return table, fks, nil
}

// extractFields extracts column information for a table. A lone INTEGER
// primary key is a rowid alias, which auto-increments without any keyword.
func (e *SQLiteExtractor) extractFields(ctx context.Context, tableName string, diags *diag.Set) ([]schema.Field, error) {
	query := fmt.Sprintf("PRAGMA table_info(%s)", tableName)

	rows, err := e.client.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type rawField struct {
		name       string
		colType    string
		notNull    bool
		defaultVal *string
		pkOrder    int
	}

	var raw []rawField
	pkCount := 0
	for rows.Next() {
		var cid int
		var r rawField
		var notNull, pk int
		var defaultValue sql.NullString

		if err := rows.Scan(&cid, &r.name, &r.colType, &notNull, &defaultValue, &pk); err != nil {
			return nil, err
		}
		r.notNull = notNull == 1
		r.pkOrder = pk
		if defaultValue.Valid {
			v := defaultValue.String
			r.defaultVal = &v
		}
		if pk > 0 {
			pkCount++
		}
		raw = append(raw, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var fields []schema.Field
	for _, r := range raw {
		isPK := r.pkOrder > 0
		autoInc := isPK && pkCount == 1 && strings.EqualFold(r.colType, "integer")

		f := schema.Field{
			ID:            schema.NewID(),
			Name:          r.name,
			Nullable:      !r.notNull && !isPK,
			PrimaryKey:    isPK,
			AutoIncrement: autoInc,
		}
		if !autoInc && r.defaultVal != nil {
			v := strings.Trim(*r.defaultVal, "'")
			f.Default = &v
		}

		f.Type = typemap.Normalize(r.colType, schema.DialectSQLite, typemap.Modifiers{
			AutoIncrement: autoInc,
			PrimaryKey:    isPK,
		}, diags)
		if f.Type.Kind == schema.KindSerial {
			f.Nullable = false
		}

		fields = append(fields, f)
	}

	// Single-column unique indexes surface as a Unique flag on the field.
	unique, err := e.uniqueColumns(ctx, tableName)
	if err != nil {
		return nil, err
	}
	for i := range fields {
		if unique[fields[i].Name] && !fields[i].PrimaryKey {
			fields[i].Unique = true
		}
	}

	return fields, nil
}

// uniqueColumns returns columns covered by a single-column unique index.
func (e *SQLiteExtractor) uniqueColumns(ctx context.Context, tableName string) (map[string]bool, error) {
	query := fmt.Sprintf("PRAGMA index_list(%s)", tableName)
	rows, err := e.client.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type indexEntry struct {
		name   string
		unique bool
	}
	var entries []indexEntry
	for rows.Next() {
		var seq int
		var name, origin string
		var unique, partial int

		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			return nil, err
		}
		if unique == 1 {
			entries = append(entries, indexEntry{name: name, unique: true})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make(map[string]bool)
	for _, entry := range entries {
		columns, err := e.indexColumns(ctx, entry.name)
		if err != nil {
			return nil, err
		}
		if len(columns) == 1 {
			out[columns[0]] = true
		}
	}
	return out, nil
}

// indexColumns returns the ordered column names of an index.
func (e *SQLiteExtractor) indexColumns(ctx context.Context, indexName string) ([]string, error) {
	query := fmt.Sprintf("PRAGMA index_info(%s)", indexName)
	rows, err := e.client.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var seqno, cid int
		var colName sql.NullString

		if err := rows.Scan(&seqno, &cid, &colName); err != nil {
			return nil, err
		}
		if colName.Valid {
			columns = append(columns, colName.String)
		}
	}

	return columns, rows.Err()
}

// extractForeignKeys extracts foreign key facts. The pragma already reports
// the on_update and on_delete rules per row.
func (e *SQLiteExtractor) extractForeignKeys(ctx context.Context, tableName string) ([]fkRow, error) {
	query := fmt.Sprintf("PRAGMA foreign_key_list(%s)", tableName)

	rows, err := e.client.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []fkRow
	for rows.Next() {
		var id, seq int
		var targetTable, fromCol string
		var toCol sql.NullString
		var onUpdate, onDelete, match string

		if err := rows.Scan(&id, &seq, &targetTable, &fromCol, &toCol, &onUpdate, &onDelete, &match); err != nil {
			return nil, err
		}

		row := fkRow{
			SourceTable:  tableName,
			SourceColumn: fromCol,
			TargetTable:  targetTable,
			TargetColumn: toCol.String,
			UpdateRule:   onUpdate,
			DeleteRule:   onDelete,
		}
		// A NULL "to" column means the key references the target's rowid pk.
		if !toCol.Valid {
			row.TargetColumn = "id"
		}
		fks = append(fks, row)
	}

	return fks, rows.Err()
}

// extractIndexes extracts index information
func (e *SQLiteExtractor) extractIndexes(ctx context.Context, tableName string, table *schema.Table) ([]schema.Index, error) {
	query := fmt.Sprintf("PRAGMA index_list(%s)", tableName)

	rows, err := e.client.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type indexEntry struct {
		name   string
		unique bool
	}
	var entries []indexEntry
	for rows.Next() {
		var seq int
		var name, origin string
		var unique, partial int

		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			return nil, err
		}

		// Skip auto-generated primary key and unique constraint indexes.
		if strings.HasPrefix(name, "sqlite_autoindex") {
			continue
		}
		entries = append(entries, indexEntry{name: name, unique: unique == 1})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var indexes []schema.Index
	for _, entry := range entries {
		columns, err := e.indexColumns(ctx, entry.name)
		if err != nil {
			return nil, err
		}
		if len(columns) == 0 {
			continue
		}
		// Single-column unique indexes are already modeled as field flags.
		if entry.unique && len(columns) == 1 {
			if f := table.FieldByName(columns[0]); f != nil && f.Unique {
				continue
			}
		}
		indexes = append(indexes, schema.Index{
			Name:   entry.name,
			Unique: entry.unique,
			Fields: columns,
		})
	}

	return indexes, nil
}
