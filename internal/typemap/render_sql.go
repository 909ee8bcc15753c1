package typemap

import (
	"fmt"

	"github.com/tordrt/schemaforge/internal/diag"
	"github.com/tordrt/schemaforge/internal/schema"
)

// Exhaustive switches over schema.Kind per SQL target. A new kind must be
// handled in every function here before the package compiles.

func renderPostgres(t schema.Type, subject string, diags *diag.Set) ColumnSyntax {
	switch t.Kind {
	case schema.KindSmallInt:
		return ColumnSyntax{Method: "SMALLINT"}
	case schema.KindInt:
		return ColumnSyntax{Method: "INTEGER"}
	case schema.KindBigInt:
		return ColumnSyntax{Method: "BIGINT"}
	case schema.KindSerial:
		return ColumnSyntax{Method: "SERIAL"}
	case schema.KindBoolean:
		return ColumnSyntax{Method: "BOOLEAN"}
	case schema.KindVarchar:
		if t.Size > 0 {
			return ColumnSyntax{Method: "VARCHAR", Params: []string{fmt.Sprint(t.Size)}}
		}
		return ColumnSyntax{Method: "VARCHAR"}
	case schema.KindChar:
		if t.Size > 0 {
			return ColumnSyntax{Method: "CHAR", Params: []string{fmt.Sprint(t.Size)}}
		}
		return ColumnSyntax{Method: "CHAR"}
	case schema.KindText:
		return ColumnSyntax{Method: "TEXT"}
	case schema.KindDecimal:
		return ColumnSyntax{Method: "NUMERIC", Params: decimalParams(t)}
	case schema.KindFloat:
		return ColumnSyntax{Method: "REAL"}
	case schema.KindDouble:
		return ColumnSyntax{Method: "DOUBLE PRECISION"}
	case schema.KindDate:
		return ColumnSyntax{Method: "DATE"}
	case schema.KindTime:
		return ColumnSyntax{Method: "TIME"}
	case schema.KindTimestamp:
		return ColumnSyntax{Method: "TIMESTAMP"}
	case schema.KindTimestampTZ:
		return ColumnSyntax{Method: "TIMESTAMPTZ"}
	case schema.KindUUID:
		return ColumnSyntax{Method: "UUID"}
	case schema.KindJSON:
		return ColumnSyntax{Method: "JSONB"}
	case schema.KindBlob:
		return ColumnSyntax{Method: "BYTEA"}
	case schema.KindEnum:
		// Named enum types are declared by the generator; an anonymous enum
		// degrades to TEXT.
		if t.EnumName != "" {
			return ColumnSyntax{Method: t.EnumName}
		}
		if diags != nil {
			diags.Warnf(diag.CodeFidelityLoss, subject,
				"anonymous enum has no postgres equivalent, rendered as TEXT")
		}
		return ColumnSyntax{Method: "TEXT"}
	}
	return ColumnSyntax{Method: "TEXT"}
}

func renderMySQL(t schema.Type) ColumnSyntax {
	switch t.Kind {
	case schema.KindSmallInt:
		return ColumnSyntax{Method: "SMALLINT"}
	case schema.KindInt:
		return ColumnSyntax{Method: "INT"}
	case schema.KindBigInt:
		return ColumnSyntax{Method: "BIGINT"}
	case schema.KindSerial:
		return ColumnSyntax{Method: "INT", Modifiers: []string{"AUTO_INCREMENT"}}
	case schema.KindBoolean:
		return ColumnSyntax{Method: "TINYINT", Params: []string{"1"}}
	case schema.KindVarchar:
		size := t.Size
		if size == 0 {
			size = 255
		}
		return ColumnSyntax{Method: "VARCHAR", Params: []string{fmt.Sprint(size)}}
	case schema.KindChar:
		size := t.Size
		if size == 0 {
			size = 1
		}
		return ColumnSyntax{Method: "CHAR", Params: []string{fmt.Sprint(size)}}
	case schema.KindText:
		return ColumnSyntax{Method: "TEXT"}
	case schema.KindDecimal:
		return ColumnSyntax{Method: "DECIMAL", Params: decimalParams(t)}
	case schema.KindFloat:
		return ColumnSyntax{Method: "FLOAT"}
	case schema.KindDouble:
		return ColumnSyntax{Method: "DOUBLE"}
	case schema.KindDate:
		return ColumnSyntax{Method: "DATE"}
	case schema.KindTime:
		return ColumnSyntax{Method: "TIME"}
	case schema.KindTimestamp:
		return ColumnSyntax{Method: "DATETIME"}
	case schema.KindTimestampTZ:
		return ColumnSyntax{Method: "TIMESTAMP"}
	case schema.KindUUID:
		return ColumnSyntax{Method: "CHAR", Params: []string{"36"}}
	case schema.KindJSON:
		return ColumnSyntax{Method: "JSON"}
	case schema.KindBlob:
		return ColumnSyntax{Method: "BLOB"}
	case schema.KindEnum:
		return ColumnSyntax{Method: "ENUM", Params: quoteList(t.EnumValues)}
	}
	return ColumnSyntax{Method: "TEXT"}
}

func renderSQLite(t schema.Type) ColumnSyntax {
	switch t.Kind {
	case schema.KindSmallInt, schema.KindInt, schema.KindBigInt, schema.KindSerial, schema.KindBoolean:
		return ColumnSyntax{Method: "INTEGER"}
	case schema.KindVarchar, schema.KindChar, schema.KindText, schema.KindUUID, schema.KindEnum:
		// SQLite has text affinity only; the generator adds a CHECK for enums.
		return ColumnSyntax{Method: "TEXT"}
	case schema.KindDecimal:
		return ColumnSyntax{Method: "NUMERIC", Params: decimalParams(t)}
	case schema.KindFloat, schema.KindDouble:
		return ColumnSyntax{Method: "REAL"}
	case schema.KindDate, schema.KindTime, schema.KindTimestamp, schema.KindTimestampTZ:
		return ColumnSyntax{Method: "TEXT"}
	case schema.KindJSON:
		return ColumnSyntax{Method: "TEXT"}
	case schema.KindBlob:
		return ColumnSyntax{Method: "BLOB"}
	}
	return ColumnSyntax{Method: "TEXT"}
}
