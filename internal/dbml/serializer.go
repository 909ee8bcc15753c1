package dbml

import (
	"fmt"
	"strings"

	"github.com/tordrt/schemaforge/internal/schema"
)

// Serialize renders a canonical schema as interchange text, the syntactic
// inverse of Parse: one block per enum and table, then one Ref line per
// reference. Output is deterministic for identical input.
func Serialize(s *schema.Schema) (string, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "Project schema {\n")
	fmt.Fprintf(&b, "  database_type: '%s'\n", projectDialect(s.SourceDialect))
	fmt.Fprintf(&b, "}\n")

	for _, e := range s.Enums {
		fmt.Fprintf(&b, "\nEnum %s {\n", e.Name)
		for _, v := range e.Values {
			fmt.Fprintf(&b, "  %s\n", v)
		}
		fmt.Fprintf(&b, "}\n")
	}

	for ti := range s.Tables {
		if err := writeTable(&b, &s.Tables[ti]); err != nil {
			return "", err
		}
	}

	if len(s.References) > 0 {
		b.WriteString("\n")
	}
	for _, ref := range s.References {
		if err := writeRef(&b, s, ref); err != nil {
			return "", err
		}
	}

	return b.String(), nil
}

func projectDialect(d schema.Dialect) string {
	if d == "" {
		return string(schema.DialectPostgres)
	}
	return string(d)
}

func writeTable(b *strings.Builder, t *schema.Table) error {
	fmt.Fprintf(b, "\nTable %s {\n", t.Name)

	for _, f := range t.Fields {
		fmt.Fprintf(b, "  %s %s", f.Name, notationType(f.Type))
		if attrs := fieldAttrs(f); len(attrs) > 0 {
			fmt.Fprintf(b, " [%s]", strings.Join(attrs, ", "))
		}
		b.WriteString("\n")
	}

	if t.Comment != "" {
		fmt.Fprintf(b, "  Note: '%s'\n", t.Comment)
	}

	if len(t.Indexes) > 0 {
		fmt.Fprintf(b, "  Indexes {\n")
		for _, idx := range t.Indexes {
			fmt.Fprintf(b, "    (%s)", strings.Join(idx.Fields, ", "))
			var attrs []string
			if idx.Unique {
				attrs = append(attrs, "unique")
			}
			if idx.Name != "" {
				attrs = append(attrs, fmt.Sprintf("name: '%s'", idx.Name))
			}
			if len(attrs) > 0 {
				fmt.Fprintf(b, " [%s]", strings.Join(attrs, ", "))
			}
			b.WriteString("\n")
		}
		fmt.Fprintf(b, "  }\n")
	}

	fmt.Fprintf(b, "}\n")
	return nil
}

// notationType renders a canonical type in the notation's vocabulary.
func notationType(t schema.Type) string {
	switch t.Kind {
	case schema.KindVarchar, schema.KindChar:
		if t.Size > 0 {
			return fmt.Sprintf("%s(%d)", t.Kind, t.Size)
		}
		return t.Kind.String()
	case schema.KindDecimal:
		if t.Precision > 0 {
			return fmt.Sprintf("decimal(%d,%d)", t.Precision, t.Scale)
		}
		return "decimal"
	case schema.KindEnum:
		if t.EnumName != "" {
			return t.EnumName
		}
		// The notation cannot express an anonymous enum; degrade to text.
		return "text"
	default:
		return t.Kind.String()
	}
}

func fieldAttrs(f schema.Field) []string {
	var attrs []string
	if f.PrimaryKey {
		attrs = append(attrs, "pk")
	}
	if f.AutoIncrement && f.Type.Kind != schema.KindSerial {
		attrs = append(attrs, "increment")
	}
	if f.Unique {
		attrs = append(attrs, "unique")
	}
	if !f.Nullable && !f.PrimaryKey && f.Type.Kind != schema.KindSerial {
		attrs = append(attrs, "not null")
	}
	if f.Default != nil {
		attrs = append(attrs, fmt.Sprintf("default: '%s'", *f.Default))
	}
	if f.Comment != "" {
		attrs = append(attrs, fmt.Sprintf("note: '%s'", f.Comment))
	}
	return attrs
}

func writeRef(b *strings.Builder, s *schema.Schema, ref schema.Reference) error {
	src := s.Table(ref.SourceTableID)
	dst := s.Table(ref.TargetTableID)
	if src == nil || dst == nil {
		return fmt.Errorf("reference %s has an unresolved table endpoint", ref.ID)
	}
	srcField := src.Field(ref.SourceFieldID)
	dstField := dst.Field(ref.TargetFieldID)
	if srcField == nil || dstField == nil {
		return fmt.Errorf("reference %s has an unresolved field endpoint", ref.ID)
	}

	marker := ">"
	switch ref.Cardinality {
	case schema.OneToMany:
		marker = "<"
	case schema.OneToOne:
		marker = "-"
	}

	fmt.Fprintf(b, "Ref: %s.%s %s %s.%s", src.Name, srcField.Name, marker, dst.Name, dstField.Name)

	var attrs []string
	if ref.OnUpdate != "" && ref.OnUpdate != schema.ActionRestrict {
		attrs = append(attrs, "update: "+actionNotation(ref.OnUpdate))
	}
	if ref.OnDelete != "" && ref.OnDelete != schema.ActionRestrict {
		attrs = append(attrs, "delete: "+actionNotation(ref.OnDelete))
	}
	if len(attrs) > 0 {
		fmt.Fprintf(b, " [%s]", strings.Join(attrs, ", "))
	}
	b.WriteString("\n")
	return nil
}

func actionNotation(a schema.Action) string {
	switch a {
	case schema.ActionCascade:
		return "cascade"
	case schema.ActionRestrict:
		return "restrict"
	case schema.ActionSetNull:
		return "set null"
	case schema.ActionNoAction:
		return "no action"
	case schema.ActionSetDefault:
		return "set default"
	}
	return string(a)
}
