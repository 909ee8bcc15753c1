// Package gen renders an ordered migration plan into target-dialect source
// artifacts. The generator never performs I/O: it returns in-memory
// filename/content pairs for the caller to persist, and identical input
// always produces byte-identical output.
package gen

import (
	"fmt"

	"github.com/tordrt/schemaforge/internal/diag"
	"github.com/tordrt/schemaforge/internal/migrate"
	"github.com/tordrt/schemaforge/internal/refgraph"
	"github.com/tordrt/schemaforge/internal/schema"
)

// Artifact is one generated output file.
type Artifact struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// Options toggles the optional convenience blocks appended to every created
// table.
type Options struct {
	// Timestamps adds a created_at/updated_at column pair.
	Timestamps bool
	// SoftDeletes adds a nullable deleted_at marker column.
	SoftDeletes bool
}

// Render turns a plan into artifacts for the target dialect. SQL targets
// produce an .up.sql/.down.sql pair per step, with the down artifacts
// appended in reverse sequence order; the laravel target produces one class
// file per step carrying both directions.
func Render(plan *migrate.Plan, target schema.Dialect, opts Options, diags *diag.Set) ([]Artifact, error) {
	switch target {
	case schema.DialectPostgres, schema.DialectMySQL, schema.DialectSQLite:
		return renderSQL(plan, target, opts, diags)
	case schema.DialectLaravel:
		return renderLaravelPlan(plan, opts, diags)
	}
	return nil, fmt.Errorf("unsupported target dialect: %s", target)
}

// filename derives the deterministic artifact filename
// <sequenceId>_<verb>_<table>.<ext>.
func filename(step migrate.Step, ext string) string {
	return fmt.Sprintf("%s_%s_%s.%s", step.SequenceID, step.Kind, step.Table.Name, ext)
}

// edgesBySource groups a plan's attachment edges by owning table id, used by
// dialects that must inline constraints at creation time.
func edgesBySource(plan *migrate.Plan) map[string][]refgraph.Edge {
	out := make(map[string][]refgraph.Edge)
	for _, step := range plan.Steps {
		if step.Kind == migrate.AttachForeignKeys {
			out[step.Table.ID] = step.Edges
		}
	}
	return out
}

// terseConstraintName is the short derived name used by the conventional
// constraint form.
func terseConstraintName(e refgraph.Edge) string {
	return fmt.Sprintf("%s_%s_fkey", e.SourceTable.Name, e.SourceField.Name)
}

// explicitConstraintName names the source column, target table, and target
// column, used when the referencing field deviates from convention.
func explicitConstraintName(e refgraph.Edge) string {
	return fmt.Sprintf("fk_%s_%s_%s_%s",
		e.SourceTable.Name, e.SourceField.Name, e.TargetTable.Name, e.TargetField.Name)
}

func constraintName(e refgraph.Edge) string {
	if e.Conventional {
		return terseConstraintName(e)
	}
	return explicitConstraintName(e)
}

// enumTypeName returns the named type for an enum field on the postgres
// target, synthesizing a deterministic name for anonymous enums.
func enumTypeName(t *schema.Table, f *schema.Field) string {
	if f.Type.EnumName != "" {
		return f.Type.EnumName
	}
	return fmt.Sprintf("%s_%s_enum", t.Name, f.Name)
}
