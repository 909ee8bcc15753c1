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

// MySQLExtractor maps MySQL introspection rows into the canonical schema
// model.
type MySQLExtractor struct {
	client     *MySQLClient
	schemaName string
}

// NewMySQLExtractor creates a new MySQL schema extractor
func NewMySQLExtractor(client *MySQLClient, schemaName string) *MySQLExtractor {
	return &MySQLExtractor{
		client:     client,
		schemaName: schemaName,
	}
}

// ExtractSchema extracts the canonical schema for the specified tables.
// If tables is empty, extracts all tables in the schema.
func (e *MySQLExtractor) ExtractSchema(ctx context.Context, tables []string, diags *diag.Set) (*schema.Schema, error) {
	s := &schema.Schema{SourceDialect: schema.DialectMySQL}

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
func (e *MySQLExtractor) getTableNames(ctx context.Context) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ? AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`

	rows, err := e.client.DB().QueryContext(ctx, query, e.schemaName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, err
		}
		tables = append(tables, tableName)
	}

	return tables, rows.Err()
}

// extractTable extracts all information for a single table
func (e *MySQLExtractor) extractTable(ctx context.Context, tableName string, diags *diag.Set) (*schema.Table, []fkRow, error) {
	table := &schema.Table{ID: schema.NewID(), Name: tableName}

	pk, err := e.extractPrimaryKey(ctx, tableName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to extract primary key: %w", err)
	}

	fields, err := e.extractFields(ctx, tableName, pk, diags)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	table.Fields = fields

	indexes, err := e.extractIndexes(ctx, tableName)
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

// extractFields extracts column information for a table. column_type carries
// the full parseable token, e.g. "varchar(255)", "decimal(10,2)",
// "enum('a','b')", so it feeds the normalizer directly.
func (e *MySQLExtractor) extractFields(ctx context.Context, tableName string, pk map[string]bool, diags *diag.Set) ([]schema.Field, error) {
	query := `
		SELECT
			c.column_name,
			c.column_type,
			c.is_nullable,
			c.column_default,
			c.extra,
			c.column_comment,
			CASE WHEN EXISTS (
				SELECT 1 FROM information_schema.table_constraints tc
				JOIN information_schema.key_column_usage kcu
					ON tc.constraint_name = kcu.constraint_name
					AND tc.table_schema = kcu.table_schema
					AND tc.table_name = kcu.table_name
				WHERE tc.table_schema = ?
					AND tc.table_name = ?
					AND tc.constraint_type = 'UNIQUE'
					AND kcu.column_name = c.column_name
			) THEN true ELSE false END as is_unique
		FROM information_schema.columns c
		WHERE c.table_schema = ? AND c.table_name = ?
		ORDER BY c.ordinal_position
	`

	rows, err := e.client.DB().QueryContext(ctx, query, e.schemaName, tableName, e.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fields []schema.Field
	for rows.Next() {
		var name, columnType, nullable, extra, comment string
		var defaultVal sql.NullString
		var isUnique bool

		if err := rows.Scan(&name, &columnType, &nullable, &defaultVal, &extra, &comment, &isUnique); err != nil {
			return nil, err
		}

		f := schema.Field{
			ID:         schema.NewID(),
			Name:       name,
			Nullable:   nullable == "YES",
			Unique:     isUnique,
			PrimaryKey: pk[name],
			Comment:    comment,
		}

		autoInc := strings.Contains(strings.ToLower(extra), "auto_increment")
		f.AutoIncrement = autoInc
		if !autoInc && defaultVal.Valid {
			v := defaultVal.String
			f.Default = &v
		}

		f.Type = typemap.Normalize(columnType, schema.DialectMySQL, typemap.Modifiers{
			AutoIncrement: autoInc,
			PrimaryKey:    f.PrimaryKey,
		}, diags)
		if f.Type.Kind == schema.KindSerial {
			f.Nullable = false
		}

		fields = append(fields, f)
	}

	return fields, rows.Err()
}

// extractPrimaryKey extracts primary key columns
func (e *MySQLExtractor) extractPrimaryKey(ctx context.Context, tableName string) (map[string]bool, error) {
	query := `
		SELECT column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = ?
			AND table_name = ?
			AND constraint_name = 'PRIMARY'
		ORDER BY ordinal_position
	`

	rows, err := e.client.DB().QueryContext(ctx, query, e.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pk := make(map[string]bool)
	for rows.Next() {
		var colName string
		if err := rows.Scan(&colName); err != nil {
			return nil, err
		}
		pk[colName] = true
	}

	return pk, rows.Err()
}

// extractForeignKeys extracts foreign key facts including referential rules
func (e *MySQLExtractor) extractForeignKeys(ctx context.Context, tableName string) ([]fkRow, error) {
	query := `
		SELECT
			kcu.column_name,
			kcu.referenced_table_name,
			kcu.referenced_column_name,
			rc.update_rule,
			rc.delete_rule
		FROM information_schema.key_column_usage kcu
		JOIN information_schema.referential_constraints rc
			ON rc.constraint_name = kcu.constraint_name
			AND rc.constraint_schema = kcu.table_schema
		WHERE kcu.table_schema = ?
			AND kcu.table_name = ?
			AND kcu.referenced_table_name IS NOT NULL
		ORDER BY kcu.ordinal_position
	`

	rows, err := e.client.DB().QueryContext(ctx, query, e.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []fkRow
	for rows.Next() {
		row := fkRow{SourceTable: tableName}
		if err := rows.Scan(&row.SourceColumn, &row.TargetTable, &row.TargetColumn, &row.UpdateRule, &row.DeleteRule); err != nil {
			return nil, err
		}
		fks = append(fks, row)
	}

	return fks, rows.Err()
}

// extractIndexes extracts index information
func (e *MySQLExtractor) extractIndexes(ctx context.Context, tableName string) ([]schema.Index, error) {
	query := `
		SELECT
			s.index_name,
			s.non_unique = 0 AS is_unique,
			GROUP_CONCAT(s.column_name ORDER BY s.seq_in_index) AS column_names
		FROM information_schema.statistics s
		WHERE s.table_schema = ?
			AND s.table_name = ?
			AND s.index_name != 'PRIMARY'
		GROUP BY s.index_name, s.non_unique
		ORDER BY s.index_name
	`

	rows, err := e.client.DB().QueryContext(ctx, query, e.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []schema.Index
	for rows.Next() {
		var idx schema.Index
		var isUnique int
		var columnNames string

		if err := rows.Scan(&idx.Name, &isUnique, &columnNames); err != nil {
			return nil, err
		}

		idx.Unique = isUnique == 1
		idx.Fields = strings.Split(columnNames, ",")

		indexes = append(indexes, idx)
	}

	return indexes, rows.Err()
}
