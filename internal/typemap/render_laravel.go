package typemap

import (
	"fmt"

	"github.com/tordrt/schemaforge/internal/schema"
)

// renderLaravel maps a canonical type to a Laravel schema-builder column
// call. Method is the builder method; Params are the arguments that follow
// the column name. The string method omits its length argument at the
// builder default of 255.
func renderLaravel(t schema.Type) ColumnSyntax {
	switch t.Kind {
	case schema.KindSmallInt:
		return ColumnSyntax{Method: "smallInteger"}
	case schema.KindInt:
		return ColumnSyntax{Method: "integer"}
	case schema.KindBigInt:
		return ColumnSyntax{Method: "bigInteger"}
	case schema.KindSerial:
		return ColumnSyntax{Method: "increments"}
	case schema.KindBoolean:
		return ColumnSyntax{Method: "boolean"}
	case schema.KindVarchar:
		if t.Size > 0 && t.Size != 255 {
			return ColumnSyntax{Method: "string", Params: []string{fmt.Sprint(t.Size)}}
		}
		return ColumnSyntax{Method: "string"}
	case schema.KindChar:
		if t.Size > 0 {
			return ColumnSyntax{Method: "char", Params: []string{fmt.Sprint(t.Size)}}
		}
		return ColumnSyntax{Method: "char"}
	case schema.KindText:
		return ColumnSyntax{Method: "text"}
	case schema.KindDecimal:
		return ColumnSyntax{Method: "decimal", Params: decimalParams(t)}
	case schema.KindFloat:
		return ColumnSyntax{Method: "float"}
	case schema.KindDouble:
		return ColumnSyntax{Method: "double"}
	case schema.KindDate:
		return ColumnSyntax{Method: "date"}
	case schema.KindTime:
		return ColumnSyntax{Method: "time"}
	case schema.KindTimestamp:
		return ColumnSyntax{Method: "dateTime"}
	case schema.KindTimestampTZ:
		return ColumnSyntax{Method: "timestampTz"}
	case schema.KindUUID:
		return ColumnSyntax{Method: "uuid"}
	case schema.KindJSON:
		return ColumnSyntax{Method: "json"}
	case schema.KindBlob:
		return ColumnSyntax{Method: "binary"}
	case schema.KindEnum:
		return ColumnSyntax{Method: "enum", Params: []string{"[" + joinList(quoteList(t.EnumValues)) + "]"}}
	}
	return ColumnSyntax{Method: "text"}
}

func joinList(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}
