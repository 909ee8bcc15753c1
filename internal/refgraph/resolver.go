// Package refgraph resolves foreign key references against the canonical
// model, validates endpoint and type compatibility, and rejects cyclic
// table dependencies so a safe creation order always exists.
package refgraph

import (
	"github.com/jinzhu/inflection"

	"github.com/tordrt/schemaforge/internal/diag"
	"github.com/tordrt/schemaforge/internal/schema"
	"github.com/tordrt/schemaforge/internal/typemap"
)

// Edge is a fully resolved reference: both endpoints exist and are
// type-compatible. Conventional reports whether the referencing field follows
// the <singular target table>_<target field> naming pattern, which lets the
// generator pick the terse constraint form.
type Edge struct {
	Ref          schema.Reference
	SourceTable  *schema.Table
	SourceField  *schema.Field
	TargetTable  *schema.Table
	TargetField  *schema.Field
	Conventional bool
}

// ConventionalName returns the conventional referencing-field name for a
// reference to target.field.
func ConventionalName(targetTable, targetField string) string {
	return inflection.Singular(targetTable) + "_" + targetField
}

// Resolve validates every reference in the schema and returns the dependency
// edges. Unresolved endpoints, cross-family type mismatches, and dependency
// cycles abort with a *diag.StructuralError; everything else accumulates in
// diags and resolution proceeds.
func Resolve(s *schema.Schema, diags *diag.Set) ([]Edge, error) {
	edges := make([]Edge, 0, len(s.References))

	for _, ref := range s.References {
		edge, err := resolveOne(s, ref, diags)
		if err != nil {
			return nil, err
		}
		edges = append(edges, edge)
	}

	if err := detectCycles(s, edges); err != nil {
		return nil, err
	}

	return edges, nil
}

func resolveOne(s *schema.Schema, ref schema.Reference, diags *diag.Set) (Edge, error) {
	src := s.Table(ref.SourceTableID)
	if src == nil {
		return Edge{}, diag.Structuralf(diag.CodeUnresolvedReference, ref.ID,
			"source table %q does not exist", ref.SourceTableID)
	}
	dst := s.Table(ref.TargetTableID)
	if dst == nil {
		return Edge{}, diag.Structuralf(diag.CodeUnresolvedReference, ref.ID,
			"target table %q does not exist", ref.TargetTableID)
	}
	srcField := src.Field(ref.SourceFieldID)
	if srcField == nil {
		return Edge{}, diag.Structuralf(diag.CodeUnresolvedReference, ref.ID,
			"source field %q does not exist in table %s", ref.SourceFieldID, src.Name)
	}
	dstField := dst.Field(ref.TargetFieldID)
	if dstField == nil {
		return Edge{}, diag.Structuralf(diag.CodeUnresolvedReference, ref.ID,
			"target field %q does not exist in table %s", ref.TargetFieldID, dst.Name)
	}

	subject := src.Name + "." + srcField.Name

	srcFam := typemap.FamilyOf(srcField.Type.Kind)
	dstFam := typemap.FamilyOf(dstField.Type.Kind)
	if srcFam != dstFam {
		return Edge{}, diag.Structuralf(diag.CodeTypeMismatch, subject,
			"cannot join %s field to %s field %s.%s", srcFam, dstFam, dst.Name, dstField.Name)
	}
	if srcField.Type.Kind != dstField.Type.Kind ||
		srcField.Type.Precision != dstField.Type.Precision ||
		srcField.Type.Scale != dstField.Type.Scale {
		// Serial targets are plain integers on the referencing side.
		serialPair := dstField.Type.Kind == schema.KindSerial && srcField.Type.Kind.IsInteger()
		if !serialPair {
			diags.Warnf(diag.CodePrecisionMismatch, subject,
				"type %s does not exactly match referenced %s.%s (%s)",
				srcField.Type.Kind, dst.Name, dstField.Name, dstField.Type.Kind)
		}
	}

	if !dstField.PrimaryKey && !dstField.Unique {
		diags.Warnf(diag.CodeNonUniqueTarget, subject,
			"referenced field %s.%s is neither primary nor unique", dst.Name, dstField.Name)
	}

	conventional := srcField.Name == ConventionalName(dst.Name, dstField.Name)
	if !conventional {
		diags.Suggestf(diag.CodeNamingConvention, subject,
			"rename to %q to follow the referencing convention", ConventionalName(dst.Name, dstField.Name))
	}

	if !hasSupportingIndex(src, srcField.Name) {
		diags.Suggestf(diag.CodeMissingIndex, subject,
			"add an index on %s to support the foreign key", srcField.Name)
	}

	return Edge{
		Ref:          ref,
		SourceTable:  src,
		SourceField:  srcField,
		TargetTable:  dst,
		TargetField:  dstField,
		Conventional: conventional,
	}, nil
}

// hasSupportingIndex reports whether fieldName is a primary key or the
// leading column of some index on the table.
func hasSupportingIndex(t *schema.Table, fieldName string) bool {
	if f := t.FieldByName(fieldName); f != nil && (f.PrimaryKey || f.Unique) {
		return true
	}
	for _, idx := range t.Indexes {
		if len(idx.Fields) > 0 && idx.Fields[0] == fieldName {
			return true
		}
	}
	return false
}
