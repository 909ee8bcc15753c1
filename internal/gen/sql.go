package gen

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/tordrt/schemaforge/internal/diag"
	"github.com/tordrt/schemaforge/internal/migrate"
	"github.com/tordrt/schemaforge/internal/refgraph"
	"github.com/tordrt/schemaforge/internal/schema"
	"github.com/tordrt/schemaforge/internal/typemap"
)

// sqlFileTmpl is the skeleton for every SQL artifact: a header comment naming
// the step, then one statement per stanza.
var sqlFileTmpl = template.Must(template.New("sqlfile").Parse(
	"-- {{.Header}}\n{{range .Statements}}\n{{.}}\n{{end}}"))

type sqlFile struct {
	Header     string
	Statements []string
}

func renderSQLFile(header string, statements []string) (string, error) {
	var b strings.Builder
	if err := sqlFileTmpl.Execute(&b, sqlFile{Header: header, Statements: statements}); err != nil {
		return "", fmt.Errorf("failed to render sql artifact: %w", err)
	}
	return b.String(), nil
}

// renderSQL renders the whole plan for a SQL target. Up artifacts come first
// in sequence order, then the down artifacts in reverse sequence order.
// SQLite cannot attach constraints after creation, so its references are
// inlined into CREATE TABLE and attach steps produce no artifacts.
func renderSQL(plan *migrate.Plan, target schema.Dialect, opts Options, diags *diag.Set) ([]Artifact, error) {
	inline := target == schema.DialectSQLite
	inlineEdges := map[string][]refgraph.Edge{}
	if inline {
		inlineEdges = edgesBySource(plan)
	}

	// Postgres enum types are created by the first table that uses them.
	createdEnums := make(map[string]bool)

	var ups, downs []Artifact
	for _, step := range plan.Steps {
		var upStmts, downStmts []string
		var err error

		switch step.Kind {
		case migrate.CreateTable:
			upStmts, downStmts, err = createTableSQL(step, target, opts, inlineEdges[step.Table.ID], createdEnums, diags)
		case migrate.AttachForeignKeys:
			if inline {
				continue
			}
			upStmts, downStmts = attachSQL(step, target)
		}
		if err != nil {
			return nil, err
		}

		header := fmt.Sprintf("%s_%s_%s", step.SequenceID, step.Kind, step.Table.Name)
		up, err := renderSQLFile(header, upStmts)
		if err != nil {
			return nil, err
		}
		down, err := renderSQLFile(header+" (rollback)", downStmts)
		if err != nil {
			return nil, err
		}

		ups = append(ups, Artifact{Filename: filename(step, "up.sql"), Content: up})
		downs = append(downs, Artifact{Filename: filename(step, "down.sql"), Content: down})
	}

	artifacts := ups
	for i := len(downs) - 1; i >= 0; i-- {
		artifacts = append(artifacts, downs[i])
	}
	return artifacts, nil
}

func createTableSQL(step migrate.Step, target schema.Dialect, opts Options, inlined []refgraph.Edge, createdEnums map[string]bool, diags *diag.Set) (ups, downs []string, err error) {
	t := step.Table

	var newEnums []string
	if target == schema.DialectPostgres {
		for fi := range t.Fields {
			f := &t.Fields[fi]
			if f.Type.Kind != schema.KindEnum {
				continue
			}
			name := enumTypeName(t, f)
			if createdEnums[name] {
				continue
			}
			createdEnums[name] = true
			newEnums = append(newEnums, name)
			ups = append(ups, fmt.Sprintf("CREATE TYPE %s AS ENUM (%s);",
				name, strings.Join(quoteAll(f.Type.EnumValues), ", ")))
		}
	}

	var lines []string
	pkFields := primaryKeyFields(t)
	for fi := range t.Fields {
		f := &t.Fields[fi]
		def, err := columnDef(t, f, target, len(pkFields) == 1, diags)
		if err != nil {
			return nil, nil, err
		}
		for _, e := range inlined {
			if e.SourceField.ID == f.ID {
				def += " " + inlineReference(e)
			}
		}
		lines = append(lines, def)
	}

	lines = append(lines, convenienceColumns(target, opts)...)

	if len(pkFields) > 1 {
		lines = append(lines, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pkFields, ", ")))
	}

	ups = append(ups, fmt.Sprintf("CREATE TABLE %s (\n    %s\n);", t.Name, strings.Join(lines, ",\n    ")))

	for i, idx := range t.Indexes {
		unique := ""
		if idx.Unique {
			unique = "UNIQUE "
		}
		ups = append(ups, fmt.Sprintf("CREATE %sINDEX %s ON %s (%s);",
			unique, idx.DefaultedName(t.Name, i), t.Name, strings.Join(idx.Fields, ", ")))
	}

	downs = append(downs, fmt.Sprintf("DROP TABLE IF EXISTS %s;", t.Name))
	for i := len(newEnums) - 1; i >= 0; i-- {
		downs = append(downs, fmt.Sprintf("DROP TYPE IF EXISTS %s;", newEnums[i]))
	}
	return ups, downs, nil
}

func primaryKeyFields(t *schema.Table) []string {
	var pk []string
	for _, f := range t.Fields {
		if f.PrimaryKey {
			pk = append(pk, f.Name)
		}
	}
	return pk
}

func columnDef(t *schema.Table, f *schema.Field, target schema.Dialect, inlinePK bool, diags *diag.Set) (string, error) {
	typ := f.Type
	if target == schema.DialectPostgres && typ.Kind == schema.KindEnum {
		typ.EnumName = enumTypeName(t, f)
	}

	syntax, err := typemap.Render(typ, target, t.Name+"."+f.Name, diags)
	if err != nil {
		return "", err
	}

	parts := []string{f.Name, typeExpr(syntax)}
	parts = append(parts, syntax.Modifiers...)

	// SQLite rowid alias: PRIMARY KEY AUTOINCREMENT must follow the type.
	if target == schema.DialectSQLite && f.PrimaryKey && inlinePK {
		parts = append(parts, "PRIMARY KEY")
		if f.AutoIncrement {
			parts = append(parts, "AUTOINCREMENT")
		}
	} else if f.PrimaryKey && inlinePK {
		parts = append(parts, "PRIMARY KEY")
	}

	if !f.PrimaryKey {
		if !f.Nullable {
			parts = append(parts, "NOT NULL")
		}
		if f.Unique {
			parts = append(parts, "UNIQUE")
		}
	}

	if f.Default != nil {
		parts = append(parts, "DEFAULT "+defaultExpr(*f.Default, f.Type.Kind))
	}

	if target == schema.DialectSQLite && f.Type.Kind == schema.KindEnum && len(f.Type.EnumValues) > 0 {
		parts = append(parts, fmt.Sprintf("CHECK (%s IN (%s))",
			f.Name, strings.Join(quoteAll(f.Type.EnumValues), ", ")))
	}

	return strings.Join(parts, " "), nil
}

func typeExpr(s typemap.ColumnSyntax) string {
	if len(s.Params) == 0 {
		return s.Method
	}
	return fmt.Sprintf("%s(%s)", s.Method, strings.Join(s.Params, ", "))
}

// defaultExpr quotes literal defaults for textual and temporal kinds, leaving
// function-call expressions and already-quoted literals alone.
func defaultExpr(v string, k schema.Kind) string {
	if strings.HasSuffix(v, ")") || strings.HasPrefix(v, "'") {
		return v
	}
	if strings.EqualFold(v, "null") || strings.EqualFold(v, "current_timestamp") {
		return strings.ToUpper(v)
	}
	switch typemap.FamilyOf(k) {
	case typemap.FamilyString, typemap.FamilyTemporal:
		return "'" + v + "'"
	}
	return v
}

func quoteAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, "'"+v+"'")
	}
	return out
}

func convenienceColumns(target schema.Dialect, opts Options) []string {
	tsType := "TIMESTAMP"
	nowExpr := "CURRENT_TIMESTAMP"
	switch target {
	case schema.DialectPostgres:
		tsType = "TIMESTAMPTZ"
		nowExpr = "now()"
	case schema.DialectMySQL:
		tsType = "DATETIME"
	case schema.DialectSQLite:
		tsType = "TEXT"
	}

	var cols []string
	if opts.Timestamps {
		cols = append(cols,
			fmt.Sprintf("created_at %s NOT NULL DEFAULT %s", tsType, nowExpr),
			fmt.Sprintf("updated_at %s NOT NULL DEFAULT %s", tsType, nowExpr),
		)
	}
	if opts.SoftDeletes {
		cols = append(cols, fmt.Sprintf("deleted_at %s", tsType))
	}
	return cols
}

// inlineReference renders the column-level REFERENCES clause used when the
// target dialect cannot attach constraints after creation.
func inlineReference(e refgraph.Edge) string {
	clause := fmt.Sprintf("REFERENCES %s (%s)", e.TargetTable.Name, e.TargetField.Name)
	clause += actionClauses(e.Ref)
	return clause
}

// actionClauses renders ON UPDATE/ON DELETE, omitting an action equal to the
// dialect default (restrict).
func actionClauses(ref schema.Reference) string {
	out := ""
	if a := sqlAction(ref.OnUpdate); a != "" {
		out += " ON UPDATE " + a
	}
	if a := sqlAction(ref.OnDelete); a != "" {
		out += " ON DELETE " + a
	}
	return out
}

func sqlAction(a schema.Action) string {
	switch a {
	case schema.ActionCascade:
		return "CASCADE"
	case schema.ActionSetNull:
		return "SET NULL"
	case schema.ActionNoAction:
		return "NO ACTION"
	case schema.ActionSetDefault:
		return "SET DEFAULT"
	}
	// restrict (or unset) is the dialect default and stays implicit.
	return ""
}

// attachSQL renders one ALTER TABLE statement per grouped reference. The
// terse single-line form is used when the referencing field follows the
// naming convention; otherwise the explicit multi-clause form spells out
// every part under a descriptive constraint name.
func attachSQL(step migrate.Step, target schema.Dialect) (ups, downs []string) {
	for _, e := range step.Edges {
		name := constraintName(e)

		if e.Conventional {
			ups = append(ups, fmt.Sprintf(
				"ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)%s;",
				e.SourceTable.Name, name, e.SourceField.Name,
				e.TargetTable.Name, e.TargetField.Name, actionClauses(e.Ref)))
		} else {
			ups = append(ups, fmt.Sprintf(
				"ALTER TABLE %s\n    ADD CONSTRAINT %s\n    FOREIGN KEY (%s)\n    REFERENCES %s (%s)%s;",
				e.SourceTable.Name, name, e.SourceField.Name,
				e.TargetTable.Name, e.TargetField.Name, actionClauses(e.Ref)))
		}

		if target == schema.DialectMySQL {
			downs = append(downs, fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY %s;", e.SourceTable.Name, name))
		} else {
			downs = append(downs, fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s;", e.SourceTable.Name, name))
		}
	}
	return ups, downs
}
