// Package typemap maps source-dialect column types to the canonical type
// model and renders canonical types back into each target dialect's column
// syntax. Both directions are finite lookups; rendering switches exhaustively
// over schema.Kind per target so an unmapped kind fails to compile.
package typemap

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tordrt/schemaforge/internal/diag"
	"github.com/tordrt/schemaforge/internal/schema"
)

// Family groups canonical kinds for foreign key compatibility checks.
// Endpoints in different families cannot be joined.
type Family int

const (
	FamilyInteger Family = iota
	FamilyString
	FamilyFixedPoint
	FamilyTemporal
	FamilyOpaque
)

func (f Family) String() string {
	switch f {
	case FamilyInteger:
		return "integer-like"
	case FamilyString:
		return "string-like"
	case FamilyFixedPoint:
		return "fixed-point-like"
	case FamilyTemporal:
		return "temporal-like"
	case FamilyOpaque:
		return "opaque"
	}
	return fmt.Sprintf("family(%d)", int(f))
}

// FamilyOf classifies a canonical kind.
func FamilyOf(k schema.Kind) Family {
	switch k {
	case schema.KindSmallInt, schema.KindInt, schema.KindBigInt, schema.KindSerial, schema.KindBoolean:
		return FamilyInteger
	case schema.KindVarchar, schema.KindChar, schema.KindText, schema.KindEnum:
		return FamilyString
	case schema.KindDecimal, schema.KindFloat, schema.KindDouble:
		return FamilyFixedPoint
	case schema.KindDate, schema.KindTime, schema.KindTimestamp, schema.KindTimestampTZ:
		return FamilyTemporal
	case schema.KindUUID, schema.KindJSON, schema.KindBlob:
		return FamilyOpaque
	}
	return FamilyOpaque
}

// Modifiers carries the column-level facts that influence normalization
// beyond the raw type string.
type Modifiers struct {
	AutoIncrement bool
	PrimaryKey    bool
}

// Normalize maps a raw source-dialect type to a canonical descriptor.
// Unrecognized types fall back to text and record a fidelity warning.
func Normalize(rawType string, source schema.Dialect, mods Modifiers, diags *diag.Set) schema.Type {
	base, args := splitRawType(rawType)

	var t schema.Type
	var known bool
	switch source {
	case schema.DialectPostgres:
		t, known = normalizePostgres(base, args)
	case schema.DialectMySQL:
		t, known = normalizeMySQL(base, args)
	case schema.DialectSQLite:
		t, known = normalizeSQLite(base, args)
	default:
		known = false
	}

	if !known {
		if diags != nil {
			diags.Warnf(diag.CodeFidelityLoss, rawType,
				"no canonical mapping for %s type %q, treating as text", source, rawType)
		}
		t = schema.Type{Kind: schema.KindText}
	}

	// An auto-incrementing integer primary key is canonically serial.
	if mods.AutoIncrement && mods.PrimaryKey && t.Kind.IsInteger() {
		t = schema.Type{Kind: schema.KindSerial}
	}

	return t
}

// splitRawType splits "varchar(255)" into base "varchar" and args [255].
// Enum literal lists like "enum('a','b')" return the quoted parts unparsed.
func splitRawType(raw string) (base string, args []string) {
	raw = strings.TrimSpace(raw)
	open := strings.Index(raw, "(")
	if open == -1 {
		return strings.ToLower(raw), nil
	}
	close := strings.LastIndex(raw, ")")
	if close < open {
		return strings.ToLower(raw), nil
	}
	base = strings.ToLower(strings.TrimSpace(raw[:open]))
	for _, part := range strings.Split(raw[open+1:close], ",") {
		args = append(args, strings.TrimSpace(part))
	}
	return base, args
}

func intArg(args []string, i int) int {
	if i >= len(args) {
		return 0
	}
	n, err := strconv.Atoi(args[i])
	if err != nil {
		return 0
	}
	return n
}

// unquoteList strips single quotes from enum literal arguments.
func unquoteList(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		out = append(out, strings.Trim(a, "'"))
	}
	return out
}

func normalizePostgres(base string, args []string) (schema.Type, bool) {
	switch base {
	case "smallint", "int2":
		return schema.Type{Kind: schema.KindSmallInt}, true
	case "integer", "int", "int4":
		return schema.Type{Kind: schema.KindInt}, true
	case "bigint", "int8":
		return schema.Type{Kind: schema.KindBigInt}, true
	case "serial", "bigserial", "smallserial":
		return schema.Type{Kind: schema.KindSerial}, true
	case "boolean", "bool":
		return schema.Type{Kind: schema.KindBoolean}, true
	case "character varying", "varchar":
		return schema.Type{Kind: schema.KindVarchar, Size: intArg(args, 0)}, true
	case "character", "char", "bpchar":
		return schema.Type{Kind: schema.KindChar, Size: intArg(args, 0)}, true
	case "text":
		return schema.Type{Kind: schema.KindText}, true
	case "numeric", "decimal":
		return schema.Type{Kind: schema.KindDecimal, Precision: intArg(args, 0), Scale: intArg(args, 1)}, true
	case "real", "float4", "float":
		return schema.Type{Kind: schema.KindFloat}, true
	case "double precision", "float8", "double":
		return schema.Type{Kind: schema.KindDouble}, true
	case "date":
		return schema.Type{Kind: schema.KindDate}, true
	case "time", "time without time zone", "timetz", "time with time zone":
		return schema.Type{Kind: schema.KindTime}, true
	case "timestamp", "timestamp without time zone":
		return schema.Type{Kind: schema.KindTimestamp}, true
	case "timestamptz", "timestamp with time zone":
		return schema.Type{Kind: schema.KindTimestampTZ}, true
	case "uuid":
		return schema.Type{Kind: schema.KindUUID}, true
	case "json", "jsonb":
		return schema.Type{Kind: schema.KindJSON}, true
	case "bytea", "blob":
		return schema.Type{Kind: schema.KindBlob}, true
	}
	return schema.Type{}, false
}

func normalizeMySQL(base string, args []string) (schema.Type, bool) {
	switch base {
	case "tinyint":
		// tinyint(1) is the conventional MySQL boolean.
		if intArg(args, 0) == 1 {
			return schema.Type{Kind: schema.KindBoolean}, true
		}
		return schema.Type{Kind: schema.KindSmallInt}, true
	case "smallint", "mediumint":
		return schema.Type{Kind: schema.KindSmallInt}, true
	case "int", "integer":
		return schema.Type{Kind: schema.KindInt}, true
	case "bigint":
		return schema.Type{Kind: schema.KindBigInt}, true
	case "boolean", "bool":
		return schema.Type{Kind: schema.KindBoolean}, true
	case "varchar":
		return schema.Type{Kind: schema.KindVarchar, Size: intArg(args, 0)}, true
	case "char":
		return schema.Type{Kind: schema.KindChar, Size: intArg(args, 0)}, true
	case "text", "tinytext", "mediumtext", "longtext":
		return schema.Type{Kind: schema.KindText}, true
	case "decimal", "numeric":
		return schema.Type{Kind: schema.KindDecimal, Precision: intArg(args, 0), Scale: intArg(args, 1)}, true
	case "float":
		return schema.Type{Kind: schema.KindFloat}, true
	case "double", "double precision", "real":
		return schema.Type{Kind: schema.KindDouble}, true
	case "date":
		return schema.Type{Kind: schema.KindDate}, true
	case "time":
		return schema.Type{Kind: schema.KindTime}, true
	case "datetime", "timestamp":
		return schema.Type{Kind: schema.KindTimestamp}, true
	case "json":
		return schema.Type{Kind: schema.KindJSON}, true
	case "blob", "tinyblob", "mediumblob", "longblob", "binary", "varbinary":
		return schema.Type{Kind: schema.KindBlob}, true
	case "enum":
		return schema.Type{Kind: schema.KindEnum, EnumValues: unquoteList(args)}, true
	}
	return schema.Type{}, false
}

func normalizeSQLite(base string, args []string) (schema.Type, bool) {
	switch base {
	case "integer", "int":
		return schema.Type{Kind: schema.KindInt}, true
	case "smallint":
		return schema.Type{Kind: schema.KindSmallInt}, true
	case "bigint":
		return schema.Type{Kind: schema.KindBigInt}, true
	case "boolean", "bool":
		return schema.Type{Kind: schema.KindBoolean}, true
	case "varchar", "nvarchar", "character varying":
		return schema.Type{Kind: schema.KindVarchar, Size: intArg(args, 0)}, true
	case "char", "character":
		return schema.Type{Kind: schema.KindChar, Size: intArg(args, 0)}, true
	case "text", "clob":
		return schema.Type{Kind: schema.KindText}, true
	case "decimal", "numeric":
		return schema.Type{Kind: schema.KindDecimal, Precision: intArg(args, 0), Scale: intArg(args, 1)}, true
	case "float":
		return schema.Type{Kind: schema.KindFloat}, true
	case "double", "real":
		return schema.Type{Kind: schema.KindDouble}, true
	case "date":
		return schema.Type{Kind: schema.KindDate}, true
	case "time":
		return schema.Type{Kind: schema.KindTime}, true
	case "datetime", "timestamp":
		return schema.Type{Kind: schema.KindTimestamp}, true
	case "blob":
		return schema.Type{Kind: schema.KindBlob}, true
	}
	return schema.Type{}, false
}
