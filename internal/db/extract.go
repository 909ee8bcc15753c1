// Package db introspects live PostgreSQL, MySQL, and SQLite databases and
// maps the introspection rows into the canonical schema model. It is the only
// engine-adjacent package that performs network I/O; everything downstream of
// the returned schema is a pure transform.
package db

import (
	"strings"

	"github.com/tordrt/schemaforge/internal/diag"
	"github.com/tordrt/schemaforge/internal/schema"
)

// fkRow is one flat foreign-key fact as reported by the database, resolved
// into id-addressed references once every table is loaded.
type fkRow struct {
	SourceTable  string
	SourceColumn string
	TargetTable  string
	TargetColumn string
	UpdateRule   string
	DeleteRule   string
}

// buildReferences resolves name-addressed foreign-key rows against the
// loaded tables. Rows pointing at tables outside the extracted set are
// dropped with a warning rather than failing the extraction, since callers
// may deliberately extract a subset.
func buildReferences(s *schema.Schema, rows []fkRow, diags *diag.Set) {
	for _, row := range rows {
		src := s.TableByName(row.SourceTable)
		dst := s.TableByName(row.TargetTable)
		if src == nil || dst == nil {
			if diags != nil {
				diags.Warnf(diag.CodeUnresolvedReference, row.SourceTable+"."+row.SourceColumn,
					"foreign key to %s.%s points outside the extracted tables, skipped",
					row.TargetTable, row.TargetColumn)
			}
			continue
		}
		srcField := src.FieldByName(row.SourceColumn)
		dstField := dst.FieldByName(row.TargetColumn)
		if srcField == nil || dstField == nil {
			if diags != nil {
				diags.Warnf(diag.CodeUnresolvedReference, row.SourceTable+"."+row.SourceColumn,
					"foreign key endpoint column missing, skipped")
			}
			continue
		}

		s.References = append(s.References, schema.Reference{
			ID:            schema.NewID(),
			SourceTableID: src.ID,
			SourceFieldID: srcField.ID,
			TargetTableID: dst.ID,
			TargetFieldID: dstField.ID,
			OnUpdate:      ruleAction(row.UpdateRule),
			OnDelete:      ruleAction(row.DeleteRule),
			Cardinality:   classifyCardinality(srcField),
		})
	}
}

// ruleAction maps an information_schema referential rule to a canonical
// action.
func ruleAction(rule string) schema.Action {
	switch strings.ToUpper(strings.TrimSpace(rule)) {
	case "CASCADE":
		return schema.ActionCascade
	case "SET NULL":
		return schema.ActionSetNull
	case "SET DEFAULT":
		return schema.ActionSetDefault
	case "NO ACTION":
		return schema.ActionNoAction
	default:
		return schema.ActionRestrict
	}
}

// classifyCardinality infers the reference cardinality from the referencing
// field: a unique referencing field admits at most one row per target.
func classifyCardinality(srcField *schema.Field) schema.Cardinality {
	if srcField.Unique || srcField.PrimaryKey {
		return schema.OneToOne
	}
	return schema.ManyToOne
}

// filterTables keeps only the requested table names, preserving input order.
func filterTables(all, requested []string) []string {
	if len(requested) == 0 {
		return all
	}
	want := make(map[string]bool, len(requested))
	for _, name := range requested {
		want[name] = true
	}
	var out []string
	for _, name := range all {
		if want[name] {
			out = append(out, name)
		}
	}
	return out
}
