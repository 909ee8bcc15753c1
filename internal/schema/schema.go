// Package schema defines the canonical, dialect-neutral representation of a
// relational schema. Every other engine package reads or writes these types:
// the interchange parser and the live extractors produce a Schema, the
// resolver and orderer consume it, and the generator renders it.
//
// A Schema is built fresh per conversion, treated as immutable by consumers,
// and discarded after code emission.
package schema

import (
	"fmt"

	"github.com/google/uuid"
)

// Dialect identifies a source or target schema-definition syntax.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
	DialectSQLite   Dialect = "sqlite"
	// DialectLaravel is a target-only dialect producing framework migration
	// classes instead of raw DDL.
	DialectLaravel Dialect = "laravel"
)

// TargetDialects lists every dialect the generator can render.
var TargetDialects = []Dialect{DialectPostgres, DialectMySQL, DialectSQLite, DialectLaravel}

// Kind is the closed enumeration of canonical column kinds. Dialect mapping
// tables switch exhaustively over Kind so a new kind fails to compile until
// every dialect handles it.
type Kind int

const (
	KindSmallInt Kind = iota
	KindInt
	KindBigInt
	KindSerial // auto-incrementing integer primary key
	KindBoolean
	KindVarchar
	KindChar
	KindText
	KindDecimal
	KindFloat
	KindDouble
	KindDate
	KindTime
	KindTimestamp
	KindTimestampTZ
	KindUUID
	KindJSON
	KindBlob
	KindEnum
)

// String returns the canonical lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindSmallInt:
		return "smallint"
	case KindInt:
		return "int"
	case KindBigInt:
		return "bigint"
	case KindSerial:
		return "serial"
	case KindBoolean:
		return "boolean"
	case KindVarchar:
		return "varchar"
	case KindChar:
		return "char"
	case KindText:
		return "text"
	case KindDecimal:
		return "decimal"
	case KindFloat:
		return "float"
	case KindDouble:
		return "double"
	case KindDate:
		return "date"
	case KindTime:
		return "time"
	case KindTimestamp:
		return "timestamp"
	case KindTimestampTZ:
		return "timestamptz"
	case KindUUID:
		return "uuid"
	case KindJSON:
		return "json"
	case KindBlob:
		return "blob"
	case KindEnum:
		return "enum"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// IsInteger reports whether the kind is integer-valued. AutoIncrement is only
// legal on integer kinds.
func (k Kind) IsInteger() bool {
	switch k {
	case KindSmallInt, KindInt, KindBigInt, KindSerial:
		return true
	}
	return false
}

// Type is the canonical type descriptor for a field.
type Type struct {
	Kind       Kind     `json:"kind"`
	Size       int      `json:"size,omitempty"`      // varchar/char length, 0 = dialect default
	Precision  int      `json:"precision,omitempty"` // decimal precision
	Scale      int      `json:"scale,omitempty"`     // decimal scale
	EnumName   string   `json:"enumName,omitempty"`  // declared enum type name, if any
	EnumValues []string `json:"enumValues,omitempty"`
}

// Field is a single column in the canonical model.
type Field struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Type          Type    `json:"type"`
	PrimaryKey    bool    `json:"primaryKey,omitempty"`
	Unique        bool    `json:"unique,omitempty"`
	Nullable      bool    `json:"nullable,omitempty"`
	AutoIncrement bool    `json:"autoIncrement,omitempty"`
	Default       *string `json:"default,omitempty"`
	Comment       string  `json:"comment,omitempty"`
}

// Index is an ordered multi-column index. Name may be empty; DefaultedName
// fills it deterministically.
type Index struct {
	Name   string   `json:"name,omitempty"`
	Fields []string `json:"fields"`
	Unique bool     `json:"unique,omitempty"`
}

// DefaultedName returns the index name, or a deterministic default derived
// from the owning table, first field, and ordinal when none was given.
func (i Index) DefaultedName(table string, ordinal int) string {
	if i.Name != "" {
		return i.Name
	}
	first := ""
	if len(i.Fields) > 0 {
		first = i.Fields[0]
	}
	return fmt.Sprintf("%s_%s_idx_%d", table, first, ordinal)
}

// DisplayMeta carries canvas placement for the surrounding diagram UI. It has
// no semantic meaning and never influences generated code.
type DisplayMeta struct {
	X     float64 `json:"x,omitempty"`
	Y     float64 `json:"y,omitempty"`
	Color string  `json:"color,omitempty"`
}

// Table is a single table in the canonical model.
type Table struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Fields  []Field     `json:"fields"`
	Indexes []Index     `json:"indexes,omitempty"`
	Comment string      `json:"comment,omitempty"`
	Display DisplayMeta `json:"display,omitempty"`
}

// Field returns the field with the given id, or nil.
func (t *Table) Field(id string) *Field {
	for i := range t.Fields {
		if t.Fields[i].ID == id {
			return &t.Fields[i]
		}
	}
	return nil
}

// FieldByName returns the field with the given name, or nil.
func (t *Table) FieldByName(name string) *Field {
	for i := range t.Fields {
		if t.Fields[i].Name == name {
			return &t.Fields[i]
		}
	}
	return nil
}

// Action is a referential action applied on update or delete.
type Action string

const (
	ActionCascade    Action = "cascade"
	ActionRestrict   Action = "restrict"
	ActionSetNull    Action = "setNull"
	ActionNoAction   Action = "noAction"
	ActionSetDefault Action = "setDefault"
)

// Cardinality classifies a reference between two tables.
type Cardinality string

const (
	OneToOne  Cardinality = "one-to-one"
	OneToMany Cardinality = "one-to-many"
	ManyToOne Cardinality = "many-to-one"
)

// Reference is a foreign key between two fields, endpoint-addressed by ids.
type Reference struct {
	ID            string      `json:"id"`
	SourceTableID string      `json:"sourceTableId"`
	SourceFieldID string      `json:"sourceFieldId"`
	TargetTableID string      `json:"targetTableId"`
	TargetFieldID string      `json:"targetFieldId"`
	OnUpdate      Action      `json:"onUpdate,omitempty"`
	OnDelete      Action      `json:"onDelete,omitempty"`
	Cardinality   Cardinality `json:"cardinality,omitempty"`
}

// Enum is a named, ordered list of string labels.
type Enum struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Schema is the aggregate root handed between engine components.
type Schema struct {
	Tables        []Table     `json:"tables"`
	References    []Reference `json:"references"`
	Enums         []Enum      `json:"enums"`
	SourceDialect Dialect     `json:"sourceDialect,omitempty"`
}

// Table returns the table with the given id, or nil.
func (s *Schema) Table(id string) *Table {
	for i := range s.Tables {
		if s.Tables[i].ID == id {
			return &s.Tables[i]
		}
	}
	return nil
}

// TableByName returns the table with the given name, or nil.
func (s *Schema) TableByName(name string) *Table {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}
	return nil
}

// Enum returns the enum with the given name, or nil.
func (s *Schema) Enum(name string) *Enum {
	for i := range s.Enums {
		if s.Enums[i].Name == name {
			return &s.Enums[i]
		}
	}
	return nil
}

// NewID mints a fresh opaque identifier for tables, fields, and references.
func NewID() string {
	return uuid.NewString()
}

// Validate checks the structural invariants of the model: unique table ids,
// unique field ids within a table, auto-increment only on integer kinds, and
// size/precision only on kinds that declare them.
func (s *Schema) Validate() error {
	tableIDs := make(map[string]bool, len(s.Tables))
	for ti := range s.Tables {
		t := &s.Tables[ti]
		if tableIDs[t.ID] {
			return fmt.Errorf("duplicate table id %q (table %s)", t.ID, t.Name)
		}
		tableIDs[t.ID] = true

		fieldIDs := make(map[string]bool, len(t.Fields))
		for fi := range t.Fields {
			f := &t.Fields[fi]
			if fieldIDs[f.ID] {
				return fmt.Errorf("duplicate field id %q in table %s", f.ID, t.Name)
			}
			fieldIDs[f.ID] = true

			if f.AutoIncrement && !f.Type.Kind.IsInteger() {
				return fmt.Errorf("field %s.%s: auto increment requires an integer kind, got %s", t.Name, f.Name, f.Type.Kind)
			}
			if f.Type.Size != 0 && f.Type.Kind != KindVarchar && f.Type.Kind != KindChar {
				return fmt.Errorf("field %s.%s: size is not valid for kind %s", t.Name, f.Name, f.Type.Kind)
			}
			if (f.Type.Precision != 0 || f.Type.Scale != 0) && f.Type.Kind != KindDecimal {
				return fmt.Errorf("field %s.%s: precision/scale is not valid for kind %s", t.Name, f.Name, f.Type.Kind)
			}
		}
	}
	return nil
}
