package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/tordrt/schemaforge/internal/diag"
	"github.com/tordrt/schemaforge/internal/schema"
	"github.com/tordrt/schemaforge/internal/typemap"
)

// PostgresExtractor maps PostgreSQL introspection rows into the canonical
// schema model.
type PostgresExtractor struct {
	client     *PostgresClient
	schemaName string
}

// NewPostgresExtractor creates a new schema extractor
func NewPostgresExtractor(client *PostgresClient, schemaName string) *PostgresExtractor {
	return &PostgresExtractor{
		client:     client,
		schemaName: schemaName,
	}
}

// ExtractSchema extracts the canonical schema for the specified tables.
// If tables is empty, extracts all tables in the schema.
func (e *PostgresExtractor) ExtractSchema(ctx context.Context, tables []string, diags *diag.Set) (*schema.Schema, error) {
	s := &schema.Schema{SourceDialect: schema.DialectPostgres}

	tableNames, err := e.getTableNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get table names: %w", err)
	}
	tableNames = filterTables(tableNames, tables)

	enums, err := e.extractEnums(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to extract enums: %w", err)
	}
	s.Enums = enums

	var fks []fkRow
	for _, tableName := range tableNames {
		table, tableFKs, err := e.extractTable(ctx, tableName, enumsByName(enums), diags)
		if err != nil {
			return nil, fmt.Errorf("failed to extract table %s: %w", tableName, err)
		}
		s.Tables = append(s.Tables, *table)
		fks = append(fks, tableFKs...)
	}

	buildReferences(s, fks, diags)
	return s, nil
}

func enumsByName(enums []schema.Enum) map[string][]string {
	out := make(map[string][]string, len(enums))
	for _, e := range enums {
		out[e.Name] = e.Values
	}
	return out
}

func (e *PostgresExtractor) getTableNames(ctx context.Context) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`

	rows, err := e.client.Conn().Query(ctx, query, e.schemaName)
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
func (e *PostgresExtractor) extractTable(ctx context.Context, tableName string, enums map[string][]string, diags *diag.Set) (*schema.Table, []fkRow, error) {
	table := &schema.Table{ID: schema.NewID(), Name: tableName}

	pk, err := e.extractPrimaryKey(ctx, tableName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to extract primary key: %w", err)
	}

	fields, err := e.extractFields(ctx, tableName, pk, enums, diags)
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

// extractFields extracts column information for a table
func (e *PostgresExtractor) extractFields(ctx context.Context, tableName string, pk map[string]bool, enums map[string][]string, diags *diag.Set) ([]schema.Field, error) {
	query := `
		SELECT
			c.column_name,
			c.data_type,
			c.udt_name,
			c.character_maximum_length,
			c.numeric_precision,
			c.numeric_scale,
			c.is_nullable,
			c.column_default,
			c.is_identity,
			CASE WHEN EXISTS (
				SELECT 1 FROM information_schema.table_constraints tc
				JOIN information_schema.constraint_column_usage ccu
					ON tc.constraint_name = ccu.constraint_name
					AND tc.table_schema = ccu.table_schema
				WHERE tc.table_schema = $1
					AND tc.table_name = $2
					AND tc.constraint_type = 'UNIQUE'
					AND ccu.column_name = c.column_name
			) THEN true ELSE false END as is_unique
		FROM information_schema.columns c
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`

	rows, err := e.client.Conn().Query(ctx, query, e.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fields []schema.Field
	for rows.Next() {
		var name, dataType, udtName, nullable, identity string
		var charMaxLength, precision, scale *int
		var defaultVal *string
		var isUnique bool

		if err := rows.Scan(&name, &dataType, &udtName, &charMaxLength, &precision, &scale, &nullable, &defaultVal, &identity, &isUnique); err != nil {
			return nil, err
		}

		f := schema.Field{
			ID:         schema.NewID(),
			Name:       name,
			Nullable:   nullable == "YES",
			Unique:     isUnique,
			PrimaryKey: pk[name],
		}

		autoInc := identity == "YES" ||
			(defaultVal != nil && strings.HasPrefix(*defaultVal, "nextval("))
		f.AutoIncrement = autoInc
		if !autoInc && defaultVal != nil {
			v := stripCast(*defaultVal)
			f.Default = &v
		}

		if values, ok := enums[udtName]; ok && dataType == "USER-DEFINED" {
			f.Type = schema.Type{Kind: schema.KindEnum, EnumName: udtName, EnumValues: values}
		} else {
			raw := rawPostgresType(dataType, udtName, charMaxLength, precision, scale)
			f.Type = typemap.Normalize(raw, schema.DialectPostgres, typemap.Modifiers{
				AutoIncrement: autoInc,
				PrimaryKey:    f.PrimaryKey,
			}, diags)
		}
		if f.Type.Kind == schema.KindSerial {
			f.Nullable = false
		}

		fields = append(fields, f)
	}

	return fields, rows.Err()
}

// rawPostgresType reassembles a parseable type token from the
// information_schema columns, e.g. "varchar(255)" or "numeric(10,2)".
func rawPostgresType(dataType, udtName string, charMaxLength, precision, scale *int) string {
	switch dataType {
	case "character varying":
		if charMaxLength != nil {
			return fmt.Sprintf("varchar(%d)", *charMaxLength)
		}
		return "varchar"
	case "character":
		if charMaxLength != nil {
			return fmt.Sprintf("char(%d)", *charMaxLength)
		}
		return "char"
	case "numeric":
		if precision != nil && *precision > 0 {
			s := 0
			if scale != nil {
				s = *scale
			}
			return fmt.Sprintf("numeric(%d,%d)", *precision, s)
		}
		return "numeric"
	case "USER-DEFINED":
		return udtName
	default:
		return dataType
	}
}

// stripCast removes a trailing ::type cast and surrounding quotes from a
// column default, e.g. "'active'::text" -> "active".
func stripCast(v string) string {
	if i := strings.Index(v, "::"); i != -1 {
		v = v[:i]
	}
	return strings.Trim(v, "'")
}

// extractPrimaryKey extracts primary key columns
func (e *PostgresExtractor) extractPrimaryKey(ctx context.Context, tableName string) (map[string]bool, error) {
	query := `
		SELECT column_name
		FROM information_schema.key_column_usage
		WHERE table_schema = $1
			AND table_name = $2
			AND constraint_name IN (
				SELECT constraint_name
				FROM information_schema.table_constraints
				WHERE table_schema = $1
					AND table_name = $2
					AND constraint_type = 'PRIMARY KEY'
			)
		ORDER BY ordinal_position
	`

	rows, err := e.client.Conn().Query(ctx, query, e.schemaName, tableName)
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
func (e *PostgresExtractor) extractForeignKeys(ctx context.Context, tableName string) ([]fkRow, error) {
	query := `
		SELECT
			kcu.column_name,
			ccu.table_name AS foreign_table_name,
			ccu.column_name AS foreign_column_name,
			rc.update_rule,
			rc.delete_rule
		FROM information_schema.table_constraints AS tc
		JOIN information_schema.key_column_usage AS kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage AS ccu
			ON ccu.constraint_name = tc.constraint_name
			AND ccu.table_schema = tc.table_schema
		JOIN information_schema.referential_constraints AS rc
			ON rc.constraint_name = tc.constraint_name
			AND rc.constraint_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
			AND tc.table_schema = $1
			AND tc.table_name = $2
		ORDER BY kcu.ordinal_position
	`

	rows, err := e.client.Conn().Query(ctx, query, e.schemaName, tableName)
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
func (e *PostgresExtractor) extractIndexes(ctx context.Context, tableName string) ([]schema.Index, error) {
	query := `
		SELECT
			i.relname AS index_name,
			ix.indisunique AS is_unique,
			array_agg(a.attname ORDER BY array_position(ix.indkey, a.attnum)) AS column_names
		FROM pg_class t
		JOIN pg_index ix ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
		JOIN pg_namespace n ON n.oid = t.relnamespace
		WHERE t.relkind = 'r'
			AND n.nspname = $1
			AND t.relname = $2
			AND NOT ix.indisprimary
		GROUP BY i.relname, ix.indisunique
		ORDER BY i.relname
	`

	rows, err := e.client.Conn().Query(ctx, query, e.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []schema.Index
	for rows.Next() {
		var idx schema.Index
		if err := rows.Scan(&idx.Name, &idx.Unique, &idx.Fields); err != nil {
			return nil, err
		}
		indexes = append(indexes, idx)
	}

	return indexes, rows.Err()
}

// extractEnums loads every enum type in the schema with its ordered labels.
func (e *PostgresExtractor) extractEnums(ctx context.Context) ([]schema.Enum, error) {
	query := `
		SELECT t.typname, e.enumlabel
		FROM pg_type t
		JOIN pg_enum e ON t.oid = e.enumtypid
		JOIN pg_namespace n ON t.typnamespace = n.oid
		WHERE n.nspname = $1
		ORDER BY t.typname, e.enumsortorder
	`

	rows, err := e.client.Conn().Query(ctx, query, e.schemaName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var enums []schema.Enum
	for rows.Next() {
		var typName, label string
		if err := rows.Scan(&typName, &label); err != nil {
			return nil, err
		}
		if len(enums) == 0 || enums[len(enums)-1].Name != typName {
			enums = append(enums, schema.Enum{Name: typName})
		}
		enums[len(enums)-1].Values = append(enums[len(enums)-1].Values, label)
	}

	return enums, rows.Err()
}
