package typemap

import (
	"fmt"

	"github.com/tordrt/schemaforge/internal/diag"
	"github.com/tordrt/schemaforge/internal/schema"
)

// ColumnSyntax is the target-dialect rendering of one canonical type: for SQL
// targets Method is the type keyword and Params its arguments; for the
// laravel target Method is the schema-builder method name. Modifiers carry
// trailing column modifiers the generator appends verbatim.
type ColumnSyntax struct {
	Method    string
	Params    []string
	Modifiers []string
}

// decimalLimits holds a target dialect's documented precision/scale maxima.
// A zero max means the dialect imposes no documented limit.
type decimalLimits struct {
	maxPrecision int
	maxScale     int
}

func limitsFor(target schema.Dialect) decimalLimits {
	switch target {
	case schema.DialectPostgres:
		return decimalLimits{maxPrecision: 1000, maxScale: 1000}
	case schema.DialectMySQL, schema.DialectLaravel:
		return decimalLimits{maxPrecision: 65, maxScale: 30}
	case schema.DialectSQLite:
		// SQLite stores NUMERIC by affinity and documents no maxima.
		return decimalLimits{}
	}
	return decimalLimits{}
}

// clampDecimal clamps precision and scale to the target's documented maxima,
// recording a warning per clamped bound.
func clampDecimal(t schema.Type, target schema.Dialect, subject string, diags *diag.Set) schema.Type {
	lim := limitsFor(target)
	if lim.maxPrecision > 0 && t.Precision > lim.maxPrecision {
		if diags != nil {
			diags.Warnf(diag.CodePrecisionClamped, subject,
				"precision %d exceeds %s maximum %d, clamped", t.Precision, target, lim.maxPrecision)
		}
		t.Precision = lim.maxPrecision
	}
	if lim.maxScale > 0 && t.Scale > lim.maxScale {
		if diags != nil {
			diags.Warnf(diag.CodePrecisionClamped, subject,
				"scale %d exceeds %s maximum %d, clamped", t.Scale, target, lim.maxScale)
		}
		t.Scale = lim.maxScale
	}
	return t
}

// Render maps a canonical type to the target dialect's column syntax.
// Numeric bounds are clamped to the target's maxima and kinds with no target
// equivalent fall back to the nearest string type, each with a warning.
// Subject names the column for diagnostics.
func Render(t schema.Type, target schema.Dialect, subject string, diags *diag.Set) (ColumnSyntax, error) {
	if t.Kind == schema.KindDecimal {
		t = clampDecimal(t, target, subject, diags)
	}

	switch target {
	case schema.DialectPostgres:
		return renderPostgres(t, subject, diags), nil
	case schema.DialectMySQL:
		return renderMySQL(t), nil
	case schema.DialectSQLite:
		return renderSQLite(t), nil
	case schema.DialectLaravel:
		return renderLaravel(t), nil
	}
	return ColumnSyntax{}, fmt.Errorf("unsupported target dialect: %s", target)
}

func decimalParams(t schema.Type) []string {
	if t.Precision == 0 {
		return nil
	}
	return []string{fmt.Sprint(t.Precision), fmt.Sprint(t.Scale)}
}

func quoteList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, "'"+v+"'")
	}
	return out
}
