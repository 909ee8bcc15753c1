package dbml

import (
	"errors"
	"strings"
	"testing"

	"github.com/tordrt/schemaforge/internal/diag"
	"github.com/tordrt/schemaforge/internal/schema"
)

const blogNotation = `
Project blog {
  database_type: 'postgres'
}

Enum status {
  active
  archived
}

Table users {
  id serial [pk]
  email varchar(255) [unique, not null]
  state status [default: 'active']
  Note: 'registered accounts'
  Indexes {
    (email) [unique, name: 'users_email']
  }
}

Table posts {
  id serial [pk]
  user_id int [not null]
  title varchar(200) [not null]
  body text
}

Ref: posts.user_id > users.id [delete: cascade]
`

func TestParseBlog(t *testing.T) {
	diags := &diag.Set{}
	s, err := Parse(blogNotation, diags)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	if s.SourceDialect != schema.DialectPostgres {
		t.Errorf("SourceDialect = %s, want postgres", s.SourceDialect)
	}
	if len(s.Tables) != 2 {
		t.Fatalf("parsed %d tables, want 2", len(s.Tables))
	}
	if len(s.Enums) != 1 || s.Enums[0].Name != "status" {
		t.Fatalf("enums = %v, want one named status", s.Enums)
	}

	users := s.TableByName("users")
	if users == nil {
		t.Fatal("users table missing")
	}
	if users.Comment != "registered accounts" {
		t.Errorf("users comment = %q", users.Comment)
	}

	id := users.FieldByName("id")
	if id == nil || id.Type.Kind != schema.KindSerial || !id.PrimaryKey || !id.AutoIncrement {
		t.Errorf("users.id = %+v, want serial pk auto-increment", id)
	}

	email := users.FieldByName("email")
	if email == nil || email.Type.Kind != schema.KindVarchar || email.Type.Size != 255 {
		t.Errorf("users.email type = %+v, want varchar(255)", email)
	}
	if !email.Unique || email.Nullable {
		t.Errorf("users.email flags = unique %v nullable %v, want unique not-null", email.Unique, email.Nullable)
	}

	state := users.FieldByName("state")
	if state == nil || state.Type.Kind != schema.KindEnum || state.Type.EnumName != "status" {
		t.Errorf("users.state = %+v, want enum status", state)
	}
	if state.Default == nil || *state.Default != "active" {
		t.Errorf("users.state default = %v, want active", state.Default)
	}

	if len(users.Indexes) != 1 || users.Indexes[0].Name != "users_email" || !users.Indexes[0].Unique {
		t.Errorf("users indexes = %+v", users.Indexes)
	}

	if len(s.References) != 1 {
		t.Fatalf("parsed %d references, want 1", len(s.References))
	}
	ref := s.References[0]
	if ref.Cardinality != schema.ManyToOne {
		t.Errorf("cardinality = %s, want many-to-one", ref.Cardinality)
	}
	if ref.OnDelete != schema.ActionCascade {
		t.Errorf("on delete = %s, want cascade", ref.OnDelete)
	}
	if ref.OnUpdate != schema.ActionRestrict {
		t.Errorf("on update = %s, want restrict default", ref.OnUpdate)
	}

	if len(diags.All()) != 0 {
		t.Errorf("unexpected diagnostics: %v", diags.All())
	}
}

func TestParseUnresolvedRef(t *testing.T) {
	text := `
Table users {
  id serial [pk]
}

Ref: comments.user_id > users.id
`
	_, err := Parse(text, &diag.Set{})
	if err == nil {
		t.Fatal("Parse succeeded, want unresolved reference error")
	}

	var structural *diag.StructuralError
	if !errors.As(err, &structural) {
		t.Fatalf("error is %T, want *diag.StructuralError", err)
	}
	if structural.Code != diag.CodeUnresolvedReference {
		t.Errorf("code = %s, want unresolved-reference", structural.Code)
	}
}

func TestParseUnknownMarkerWarns(t *testing.T) {
	text := `
Table users {
  id serial [pk]
}

Table posts {
  id serial [pk]
  user_id int
}

Ref: posts.user_id <> users.id
`
	diags := &diag.Set{}
	s, err := Parse(text, diags)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	if s.References[0].Cardinality != schema.ManyToOne {
		t.Errorf("cardinality = %s, want many-to-one fallback", s.References[0].Cardinality)
	}

	warnings := diags.Warnings()
	if len(warnings) != 1 || warnings[0].Code != diag.CodeAmbiguousCardinality {
		t.Errorf("warnings = %v, want one ambiguous-cardinality warning", warnings)
	}
}

func TestParseUnknownTypeWarns(t *testing.T) {
	text := `
Table widgets {
  id serial [pk]
  payload frobnicate
}
`
	diags := &diag.Set{}
	s, err := Parse(text, diags)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	payload := s.TableByName("widgets").FieldByName("payload")
	if payload == nil || payload.Type.Kind != schema.KindText {
		t.Errorf("payload = %+v, want text fallback", payload)
	}

	warnings := diags.Warnings()
	if len(warnings) != 1 || warnings[0].Code != diag.CodeFidelityLoss {
		t.Fatalf("warnings = %v, want one fidelity-loss warning", warnings)
	}
	if !strings.Contains(warnings[0].Message, "frobnicate") {
		t.Errorf("warning does not name the source type: %s", warnings[0].Message)
	}
}

func TestParseErrors(t *testing.T) {
	refPreamble := "Table a {\n  id serial [pk]\n}\nTable b {\n  id serial [pk]\n  a_id int\n}\n"

	tests := []struct {
		name    string
		text    string
		wantErr string
	}{
		{"stray content", "garbage line\n", "expected a block header"},
		{"unterminated block", "Table users {\n  id serial [pk]\n", "end of input"},
		{"unknown block kind", "Widget users {\n}\n", "unknown block kind"},
		{"unknown field attribute", "Table users {\n  id serial [pk, sparkly]\n}\n", "unknown field attribute"},
		{"field without type", "Table users {\n  id\n}\n", "field requires a name and a type"},
		{"unknown referential action", refPreamble + "Ref: b.a_id > a.id [delete: explode]\n", "unknown referential action"},
		{"unknown reference attribute", refPreamble + "Ref: b.a_id > a.id [foo: bar]\n", "unknown reference attribute"},
		{"reference attribute without action", refPreamble + "Ref: b.a_id > a.id [cascade]\n", "unknown reference attribute"},
		{"mistyped ref keyword", refPreamble + "Refs: b.a_id > a.id\n", "expected a block header"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text, &diag.Set{})
			if err == nil {
				t.Fatalf("Parse succeeded, want parse error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	diags := &diag.Set{}
	original, err := Parse(blogNotation, diags)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	text, err := Serialize(original)
	if err != nil {
		t.Fatalf("Serialize returned error: %v", err)
	}

	reparsed, err := Parse(text, &diag.Set{})
	if err != nil {
		t.Fatalf("reparse returned error: %v\ntext:\n%s", err, text)
	}

	if len(reparsed.Tables) != len(original.Tables) {
		t.Fatalf("reparsed %d tables, want %d", len(reparsed.Tables), len(original.Tables))
	}
	for _, ot := range original.Tables {
		rt := reparsed.TableByName(ot.Name)
		if rt == nil {
			t.Fatalf("table %s lost in round trip", ot.Name)
		}
		if len(rt.Fields) != len(ot.Fields) {
			t.Errorf("table %s has %d fields after round trip, want %d", ot.Name, len(rt.Fields), len(ot.Fields))
			continue
		}
		for i, of := range ot.Fields {
			rf := rt.Fields[i]
			if rf.Name != of.Name || rf.Type.Kind != of.Type.Kind || rf.Type.Size != of.Type.Size {
				t.Errorf("field %s.%s = %s %v, want %s %v", ot.Name, rf.Name, rf.Type.Kind, rf.Type.Size, of.Name, of.Type.Size)
			}
			if rf.PrimaryKey != of.PrimaryKey || rf.Unique != of.Unique || rf.Nullable != of.Nullable {
				t.Errorf("field %s.%s flags changed in round trip", ot.Name, of.Name)
			}
		}
		if len(rt.Indexes) != len(ot.Indexes) {
			t.Errorf("table %s indexes changed in round trip", ot.Name)
		}
	}

	if len(reparsed.References) != len(original.References) {
		t.Fatalf("reparsed %d references, want %d", len(reparsed.References), len(original.References))
	}
	if reparsed.References[0].OnDelete != schema.ActionCascade {
		t.Errorf("reference action lost in round trip")
	}

	// Ids are freshly minted on each parse.
	if reparsed.Tables[0].ID == original.Tables[0].ID {
		t.Errorf("round trip preserved ids, want fresh ones")
	}
}

func TestSerializeRefAttrs(t *testing.T) {
	s, err := Parse(blogNotation, &diag.Set{})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	text, err := Serialize(s)
	if err != nil {
		t.Fatalf("Serialize returned error: %v", err)
	}

	if !strings.Contains(text, "Ref: posts.user_id > users.id [delete: cascade]") {
		t.Errorf("serialized output missing expected Ref line:\n%s", text)
	}
	if strings.Contains(text, "update: restrict") {
		t.Errorf("serialized output spells out the restrict default:\n%s", text)
	}
}
