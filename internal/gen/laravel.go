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

// laravelTmpl is the anonymous-class migration skeleton used by every
// laravel artifact; Up and Down are pre-rendered statement lists.
var laravelTmpl = template.Must(template.New("laravel").Parse(`<?php

use Illuminate\Database\Migrations\Migration;
use Illuminate\Database\Schema\Blueprint;
use Illuminate\Support\Facades\Schema;

return new class extends Migration
{
    public function up(): void
    {
        Schema::{{.UpVerb}}('{{.Table}}', function (Blueprint $table) {
{{- range .Up}}
            {{.}}
{{- end}}
        });
    }

    public function down(): void
    {
{{- if .DropDown}}
        Schema::dropIfExists('{{.Table}}');
{{- else}}
        Schema::table('{{.Table}}', function (Blueprint $table) {
{{- range .Down}}
            {{.}}
{{- end}}
        });
{{- end}}
    }
};
`))

type laravelClass struct {
	Table    string
	UpVerb   string
	Up       []string
	Down     []string
	DropDown bool
}

func renderLaravelPlan(plan *migrate.Plan, opts Options, diags *diag.Set) ([]Artifact, error) {
	var artifacts []Artifact

	for _, step := range plan.Steps {
		var cls laravelClass
		var err error

		switch step.Kind {
		case migrate.CreateTable:
			cls, err = laravelCreate(step, opts, diags)
		case migrate.AttachForeignKeys:
			cls = laravelAttach(step)
		}
		if err != nil {
			return nil, err
		}

		var b strings.Builder
		if err := laravelTmpl.Execute(&b, cls); err != nil {
			return nil, fmt.Errorf("failed to render laravel artifact: %w", err)
		}
		artifacts = append(artifacts, Artifact{Filename: filename(step, "php"), Content: b.String()})
	}

	return artifacts, nil
}

func laravelCreate(step migrate.Step, opts Options, diags *diag.Set) (laravelClass, error) {
	t := step.Table
	cls := laravelClass{Table: t.Name, UpVerb: "create", DropDown: true}

	pkFields := primaryKeyFields(t)
	for fi := range t.Fields {
		f := &t.Fields[fi]
		line, err := laravelColumn(t, f, len(pkFields) == 1, diags)
		if err != nil {
			return laravelClass{}, err
		}
		cls.Up = append(cls.Up, line)
	}

	// Composite keys and single non-auto keys need an explicit primary call;
	// increments() already declares its own.
	if len(pkFields) > 1 {
		cls.Up = append(cls.Up, fmt.Sprintf("$table->primary([%s]);", phpList(pkFields)))
	} else if len(pkFields) == 1 {
		if f := t.FieldByName(pkFields[0]); f != nil && f.Type.Kind != schema.KindSerial {
			cls.Up = append(cls.Up, fmt.Sprintf("$table->primary('%s');", pkFields[0]))
		}
	}

	for i, idx := range t.Indexes {
		method := "index"
		if idx.Unique {
			method = "unique"
		}
		cls.Up = append(cls.Up, fmt.Sprintf("$table->%s([%s], '%s');",
			method, phpList(idx.Fields), idx.DefaultedName(t.Name, i)))
	}

	if opts.Timestamps {
		cls.Up = append(cls.Up, "$table->timestamps();")
	}
	if opts.SoftDeletes {
		cls.Up = append(cls.Up, "$table->softDeletes();")
	}

	return cls, nil
}

func laravelColumn(t *schema.Table, f *schema.Field, inlinePK bool, diags *diag.Set) (string, error) {
	syntax, err := typemap.Render(f.Type, schema.DialectLaravel, t.Name+"."+f.Name, diags)
	if err != nil {
		return "", err
	}

	args := []string{"'" + f.Name + "'"}
	args = append(args, syntax.Params...)
	line := fmt.Sprintf("$table->%s(%s)", syntax.Method, strings.Join(args, ", "))

	if f.Nullable && !f.PrimaryKey {
		line += "->nullable()"
	}
	if f.Unique && !f.PrimaryKey {
		line += "->unique()"
	}
	if f.Default != nil {
		line += fmt.Sprintf("->default(%s)", phpLiteral(*f.Default, f.Type.Kind))
	}
	if f.Comment != "" {
		line += fmt.Sprintf("->comment('%s')", f.Comment)
	}
	return line + ";", nil
}

// laravelAttach renders a Schema::table migration attaching the grouped
// references: the terse builder chain when the referencing field follows
// convention, the explicitly named form otherwise.
func laravelAttach(step migrate.Step) laravelClass {
	cls := laravelClass{Table: step.Table.Name, UpVerb: "table"}

	for _, e := range step.Edges {
		cls.Up = append(cls.Up, laravelForeign(e))
		if e.Conventional {
			// Laravel derives <table>_<column>_foreign; drop by column.
			cls.Down = append(cls.Down, fmt.Sprintf("$table->dropForeign(['%s']);", e.SourceField.Name))
		} else {
			cls.Down = append(cls.Down, fmt.Sprintf("$table->dropForeign('%s');", explicitConstraintName(e)))
		}
	}

	return cls
}

func laravelForeign(e refgraph.Edge) string {
	var line string
	if e.Conventional {
		line = fmt.Sprintf("$table->foreign('%s')->references('%s')->on('%s')",
			e.SourceField.Name, e.TargetField.Name, e.TargetTable.Name)
	} else {
		line = fmt.Sprintf("$table->foreign('%s', '%s')->references('%s')->on('%s')",
			e.SourceField.Name, explicitConstraintName(e), e.TargetField.Name, e.TargetTable.Name)
	}

	if a := laravelAction(e.Ref.OnUpdate); a != "" {
		line += fmt.Sprintf("->onUpdate('%s')", a)
	}
	if a := laravelAction(e.Ref.OnDelete); a != "" {
		line += fmt.Sprintf("->onDelete('%s')", a)
	}
	return line + ";"
}

func laravelAction(a schema.Action) string {
	switch a {
	case schema.ActionCascade:
		return "cascade"
	case schema.ActionSetNull:
		return "set null"
	case schema.ActionNoAction:
		return "no action"
	case schema.ActionSetDefault:
		return "set default"
	}
	// restrict is the default and stays implicit.
	return ""
}

func phpList(items []string) string {
	quoted := make([]string, 0, len(items))
	for _, it := range items {
		quoted = append(quoted, "'"+it+"'")
	}
	return strings.Join(quoted, ", ")
}

func phpLiteral(v string, k schema.Kind) string {
	switch typemap.FamilyOf(k) {
	case typemap.FamilyString, typemap.FamilyTemporal, typemap.FamilyOpaque:
		return "'" + v + "'"
	}
	if k == schema.KindBoolean {
		return strings.ToLower(v)
	}
	return v
}
