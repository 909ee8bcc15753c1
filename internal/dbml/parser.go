// Package dbml is the bidirectional bridge between the canonical schema
// model and the block-structured interchange notation:
//
//	Project blog { database_type: 'postgres' }
//	Enum status { active  archived }
//	Table users {
//	  id serial [pk]
//	  email varchar(255) [unique, not null]
//	  Indexes { (email) [unique, name: 'users_email'] }
//	}
//	Ref: posts.user_id > users.id [delete: cascade]
//
// The notation has no stable id concept, so parsing mints fresh ids and a
// round trip is structure-equivalent, not id-equivalent.
package dbml

import (
	"bufio"
	"strings"

	"github.com/tordrt/schemaforge/internal/diag"
	"github.com/tordrt/schemaforge/internal/schema"
	"github.com/tordrt/schemaforge/internal/typemap"
)

// line pairs a trimmed source line with its 1-based number for diagnostics.
type line struct {
	text string
	num  int
}

// rawBlock is one top-level block or Ref statement, split out before
// interpretation so enums can be processed ahead of the tables that use them.
type rawBlock struct {
	kind  string // "project", "enum", "table", "ref"
	name  string
	lines []line
	ref   line
}

// Parse builds a canonical schema from interchange text. Unparseable text and
// references naming unknown tables or fields are structural errors; an
// unrecognized cardinality marker defaults to many-to-one with a warning.
func Parse(text string, diags *diag.Set) (*schema.Schema, error) {
	blocks, err := split(text)
	if err != nil {
		return nil, err
	}

	s := &schema.Schema{SourceDialect: schema.DialectPostgres}

	for _, b := range blocks {
		if b.kind == "project" {
			parseProject(b, s)
		}
	}
	for _, b := range blocks {
		if b.kind == "enum" {
			s.Enums = append(s.Enums, parseEnum(b))
		}
	}
	for _, b := range blocks {
		if b.kind == "table" {
			t, err := parseTable(b, s, diags)
			if err != nil {
				return nil, err
			}
			s.Tables = append(s.Tables, *t)
		}
	}
	for _, b := range blocks {
		if b.kind == "ref" {
			ref, err := parseRef(b.ref, s, diags)
			if err != nil {
				return nil, err
			}
			s.References = append(s.References, ref)
		}
	}

	return s, nil
}

// split scans the text into top-level blocks, validating brace balance.
func split(text string) ([]rawBlock, error) {
	var blocks []rawBlock
	var current *rawBlock
	depth := 0

	scanner := bufio.NewScanner(strings.NewReader(text))
	num := 0
	for scanner.Scan() {
		num++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "//") {
			continue
		}

		if depth == 0 {
			switch {
			case strings.HasPrefix(raw, "Ref:") || strings.HasPrefix(raw, "Ref "):
				blocks = append(blocks, rawBlock{kind: "ref", ref: line{text: raw, num: num}})
				continue
			case strings.HasSuffix(raw, "{"):
				header := strings.TrimSpace(strings.TrimSuffix(raw, "{"))
				kind, name, err := parseHeader(header, num)
				if err != nil {
					return nil, err
				}
				blocks = append(blocks, rawBlock{kind: kind, name: name})
				current = &blocks[len(blocks)-1]
				depth = 1
				continue
			default:
				return nil, diag.Structuralf(diag.CodeParseFailure, "",
					"line %d: expected a block header or Ref statement, got %q", num, raw)
			}
		}

		// Inside a block. Nested braces (the Indexes sub-block) stay with
		// their parent; the parent consumer re-scans them.
		depth += strings.Count(raw, "{") - strings.Count(raw, "}")
		if depth < 0 {
			return nil, diag.Structuralf(diag.CodeParseFailure, "", "line %d: unbalanced closing brace", num)
		}
		if depth == 0 {
			if raw != "}" {
				return nil, diag.Structuralf(diag.CodeParseFailure, "",
					"line %d: unexpected content on closing line: %q", num, raw)
			}
			current = nil
			continue
		}
		current.lines = append(current.lines, line{text: raw, num: num})
	}

	if depth != 0 {
		return nil, diag.Structuralf(diag.CodeParseFailure, "", "unexpected end of input inside a block")
	}
	return blocks, nil
}

func parseHeader(header string, num int) (kind, name string, err error) {
	parts := strings.Fields(header)
	if len(parts) == 0 {
		return "", "", diag.Structuralf(diag.CodeParseFailure, "", "line %d: empty block header", num)
	}
	switch strings.ToLower(parts[0]) {
	case "project":
		kind = "project"
	case "enum":
		kind = "enum"
	case "table":
		kind = "table"
	default:
		return "", "", diag.Structuralf(diag.CodeParseFailure, "",
			"line %d: unknown block kind %q", num, parts[0])
	}
	if len(parts) > 1 {
		name = strings.Trim(parts[1], `"`)
	}
	if name == "" {
		return "", "", diag.Structuralf(diag.CodeParseFailure, "", "line %d: %s block requires a name", num, kind)
	}
	return kind, name, nil
}

func parseProject(b rawBlock, s *schema.Schema) {
	for _, l := range b.lines {
		key, value, ok := strings.Cut(l.text, ":")
		if !ok {
			continue
		}
		if strings.TrimSpace(key) == "database_type" {
			v := strings.ToLower(strings.Trim(strings.TrimSpace(value), `'"`))
			switch v {
			case "postgres", "postgresql":
				s.SourceDialect = schema.DialectPostgres
			case "mysql", "mariadb":
				s.SourceDialect = schema.DialectMySQL
			case "sqlite":
				s.SourceDialect = schema.DialectSQLite
			}
		}
	}
}

func parseEnum(b rawBlock) schema.Enum {
	e := schema.Enum{Name: b.name}
	for _, l := range b.lines {
		e.Values = append(e.Values, strings.Trim(l.text, `'"`))
	}
	return e
}

func parseTable(b rawBlock, s *schema.Schema, diags *diag.Set) (*schema.Table, error) {
	t := &schema.Table{ID: schema.NewID(), Name: b.name}

	inIndexes := false
	for _, l := range b.lines {
		switch {
		case strings.HasPrefix(l.text, "Indexes"):
			if !strings.HasSuffix(l.text, "{") {
				return nil, diag.Structuralf(diag.CodeParseFailure, t.Name,
					"line %d: Indexes requires a block", l.num)
			}
			inIndexes = true
		case inIndexes && l.text == "}":
			inIndexes = false
		case inIndexes:
			idx, err := parseIndex(l, t.Name)
			if err != nil {
				return nil, err
			}
			t.Indexes = append(t.Indexes, idx)
		case strings.HasPrefix(l.text, "Note:"):
			t.Comment = strings.Trim(strings.TrimSpace(strings.TrimPrefix(l.text, "Note:")), `'"`)
		default:
			f, err := parseField(l, t.Name, s, diags)
			if err != nil {
				return nil, err
			}
			t.Fields = append(t.Fields, *f)
		}
	}
	if inIndexes {
		return nil, diag.Structuralf(diag.CodeParseFailure, t.Name, "unterminated Indexes block")
	}
	return t, nil
}

// parseField interprets one `name type [attrs]` line.
func parseField(l line, tableName string, s *schema.Schema, diags *diag.Set) (*schema.Field, error) {
	body, attrs, err := splitAttrs(l)
	if err != nil {
		return nil, err
	}

	name, rawType, ok := strings.Cut(body, " ")
	rawType = strings.TrimSpace(rawType)
	if !ok || rawType == "" {
		return nil, diag.Structuralf(diag.CodeParseFailure, tableName,
			"line %d: field requires a name and a type: %q", l.num, l.text)
	}
	name = strings.Trim(name, `"`)

	f := &schema.Field{ID: schema.NewID(), Name: name, Nullable: true}

	for _, attr := range attrs {
		key, value, _ := strings.Cut(attr, ":")
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		switch key {
		case "pk", "primary key":
			f.PrimaryKey = true
			f.Nullable = false
		case "unique":
			f.Unique = true
		case "not null":
			f.Nullable = false
		case "null":
			f.Nullable = true
		case "increment":
			f.AutoIncrement = true
		case "default":
			v := strings.Trim(value, `'"`)
			f.Default = &v
		case "note":
			f.Comment = strings.Trim(value, `'"`)
		default:
			return nil, diag.Structuralf(diag.CodeParseFailure, tableName,
				"line %d: unknown field attribute %q", l.num, attr)
		}
	}

	// A declared enum name used as a type binds the field to that enum.
	if e := s.Enum(rawType); e != nil {
		f.Type = schema.Type{Kind: schema.KindEnum, EnumName: e.Name, EnumValues: e.Values}
	} else {
		// Notation types are dialect-neutral; the postgres table covers the
		// notation's vocabulary. An unrecognized type falls back to text with
		// a fidelity warning.
		f.Type = typemap.Normalize(rawType, schema.DialectPostgres, typemap.Modifiers{
			AutoIncrement: f.AutoIncrement,
			PrimaryKey:    f.PrimaryKey,
		}, diags)
	}
	if f.Type.Kind == schema.KindSerial {
		f.AutoIncrement = true
		f.Nullable = false
	}

	return f, nil
}

// parseIndex interprets one `(col, col) [unique, name: 'x']` line.
func parseIndex(l line, tableName string) (schema.Index, error) {
	body, attrs, err := splitAttrs(l)
	if err != nil {
		return schema.Index{}, err
	}

	body = strings.TrimSpace(body)
	if strings.HasPrefix(body, "(") && strings.HasSuffix(body, ")") {
		body = body[1 : len(body)-1]
	}
	var idx schema.Index
	for _, col := range strings.Split(body, ",") {
		col = strings.TrimSpace(col)
		if col == "" {
			return schema.Index{}, diag.Structuralf(diag.CodeParseFailure, tableName,
				"line %d: empty index column list", l.num)
		}
		idx.Fields = append(idx.Fields, col)
	}

	for _, attr := range attrs {
		key, value, _ := strings.Cut(attr, ":")
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "unique":
			idx.Unique = true
		case "name":
			idx.Name = strings.Trim(strings.TrimSpace(value), `'"`)
		default:
			return schema.Index{}, diag.Structuralf(diag.CodeParseFailure, tableName,
				"line %d: unknown index attribute %q", l.num, attr)
		}
	}
	return idx, nil
}

// parseRef interprets `Ref: a.x > b.y [delete: cascade, update: restrict]`.
// Endpoints resolve by name; an unknown name is a hard parse error.
func parseRef(l line, s *schema.Schema, diags *diag.Set) (schema.Reference, error) {
	body, attrs, err := splitAttrs(l)
	if err != nil {
		return schema.Reference{}, err
	}

	_, body, ok := strings.Cut(body, ":")
	if !ok {
		return schema.Reference{}, diag.Structuralf(diag.CodeParseFailure, "",
			"line %d: malformed Ref statement: %q", l.num, l.text)
	}

	parts := strings.Fields(body)
	if len(parts) != 3 {
		return schema.Reference{}, diag.Structuralf(diag.CodeParseFailure, "",
			"line %d: Ref requires two endpoints and a marker: %q", l.num, l.text)
	}

	srcTable, srcField, err := resolveEndpoint(parts[0], s, l.num)
	if err != nil {
		return schema.Reference{}, err
	}
	dstTable, dstField, err := resolveEndpoint(parts[2], s, l.num)
	if err != nil {
		return schema.Reference{}, err
	}

	ref := schema.Reference{
		ID:            schema.NewID(),
		SourceTableID: srcTable.ID,
		SourceFieldID: srcField.ID,
		TargetTableID: dstTable.ID,
		TargetFieldID: dstField.ID,
		OnUpdate:      schema.ActionRestrict,
		OnDelete:      schema.ActionRestrict,
	}

	switch parts[1] {
	case ">":
		ref.Cardinality = schema.ManyToOne
	case "<":
		ref.Cardinality = schema.OneToMany
	case "-":
		ref.Cardinality = schema.OneToOne
	default:
		ref.Cardinality = schema.ManyToOne
		diags.Warnf(diag.CodeAmbiguousCardinality, parts[0],
			"unrecognized cardinality marker %q, assuming many-to-one", parts[1])
	}

	for _, attr := range attrs {
		key, value, _ := strings.Cut(attr, ":")
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "update":
			action, err := parseAction(strings.TrimSpace(value), l.num)
			if err != nil {
				return schema.Reference{}, err
			}
			ref.OnUpdate = action
		case "delete":
			action, err := parseAction(strings.TrimSpace(value), l.num)
			if err != nil {
				return schema.Reference{}, err
			}
			ref.OnDelete = action
		default:
			return schema.Reference{}, diag.Structuralf(diag.CodeParseFailure, "",
				"line %d: unknown reference attribute %q", l.num, attr)
		}
	}

	return ref, nil
}

func resolveEndpoint(spec string, s *schema.Schema, num int) (*schema.Table, *schema.Field, error) {
	tableName, fieldName, ok := strings.Cut(spec, ".")
	if !ok {
		return nil, nil, diag.Structuralf(diag.CodeParseFailure, spec,
			"line %d: reference endpoint must be table.field", num)
	}
	t := s.TableByName(tableName)
	if t == nil {
		return nil, nil, diag.Structuralf(diag.CodeUnresolvedReference, spec,
			"line %d: unknown table %q", num, tableName)
	}
	f := t.FieldByName(fieldName)
	if f == nil {
		return nil, nil, diag.Structuralf(diag.CodeUnresolvedReference, spec,
			"line %d: unknown field %q in table %s", num, fieldName, tableName)
	}
	return t, f, nil
}

func parseAction(value string, num int) (schema.Action, error) {
	switch strings.ToLower(value) {
	case "cascade":
		return schema.ActionCascade, nil
	case "restrict":
		return schema.ActionRestrict, nil
	case "set null":
		return schema.ActionSetNull, nil
	case "no action":
		return schema.ActionNoAction, nil
	case "set default":
		return schema.ActionSetDefault, nil
	}
	return "", diag.Structuralf(diag.CodeParseFailure, "",
		"line %d: unknown referential action %q", num, value)
}

// splitAttrs splits a line into its body and the comma-separated attribute
// list inside trailing square brackets, if any.
func splitAttrs(l line) (body string, attrs []string, err error) {
	text := l.text
	open := strings.Index(text, "[")
	if open == -1 {
		return strings.TrimSpace(text), nil, nil
	}
	if !strings.HasSuffix(text, "]") {
		return "", nil, diag.Structuralf(diag.CodeParseFailure, "",
			"line %d: unterminated attribute list: %q", l.num, text)
	}
	body = strings.TrimSpace(text[:open])
	inner := text[open+1 : len(text)-1]

	// Split on commas outside quotes so default: 'a,b' survives.
	var cur strings.Builder
	inQuote := false
	flush := func() {
		if a := strings.TrimSpace(cur.String()); a != "" {
			attrs = append(attrs, a)
		}
		cur.Reset()
	}
	for _, r := range inner {
		switch {
		case r == '\'':
			inQuote = !inQuote
			cur.WriteRune(r)
		case r == ',' && !inQuote:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	if inQuote {
		return "", nil, diag.Structuralf(diag.CodeParseFailure, "",
			"line %d: unterminated quote in attribute list", l.num)
	}
	return body, attrs, nil
}
