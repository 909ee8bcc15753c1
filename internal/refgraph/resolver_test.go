package refgraph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/schemaforge/internal/diag"
	"github.com/tordrt/schemaforge/internal/schema"
)

// twoTables builds the canonical users/posts pair with one posts.user_id ->
// users.id reference.
func twoTables(srcFieldName string) *schema.Schema {
	users := schema.Table{
		ID:   "t-users",
		Name: "users",
		Fields: []schema.Field{
			{ID: "f-users-id", Name: "id", Type: schema.Type{Kind: schema.KindSerial}, PrimaryKey: true},
			{ID: "f-users-email", Name: "email", Type: schema.Type{Kind: schema.KindVarchar, Size: 255}, Unique: true},
		},
	}
	posts := schema.Table{
		ID:   "t-posts",
		Name: "posts",
		Fields: []schema.Field{
			{ID: "f-posts-id", Name: "id", Type: schema.Type{Kind: schema.KindSerial}, PrimaryKey: true},
			{ID: "f-posts-fk", Name: srcFieldName, Type: schema.Type{Kind: schema.KindInt}},
		},
		Indexes: []schema.Index{{Fields: []string{srcFieldName}}},
	}
	return &schema.Schema{
		Tables: []schema.Table{users, posts},
		References: []schema.Reference{{
			ID:            "r-1",
			SourceTableID: "t-posts",
			SourceFieldID: "f-posts-fk",
			TargetTableID: "t-users",
			TargetFieldID: "f-users-id",
			OnDelete:      schema.ActionCascade,
			Cardinality:   schema.ManyToOne,
		}},
	}
}

func TestResolveConventional(t *testing.T) {
	s := twoTables("user_id")
	diags := &diag.Set{}

	edges, err := Resolve(s, diags)
	require.NoError(t, err)
	require.Len(t, edges, 1)

	assert.True(t, edges[0].Conventional)
	assert.Equal(t, "posts", edges[0].SourceTable.Name)
	assert.Equal(t, "users", edges[0].TargetTable.Name)
	assert.Empty(t, diags.Suggestions())
}

func TestResolveNamingSuggestion(t *testing.T) {
	s := twoTables("author")
	diags := &diag.Set{}

	edges, err := Resolve(s, diags)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.False(t, edges[0].Conventional)

	suggestions := diags.Suggestions()
	require.NotEmpty(t, suggestions)
	assert.Equal(t, diag.CodeNamingConvention, suggestions[0].Code)
	assert.Contains(t, suggestions[0].Message, "user_id")
}

func TestResolveMissingIndexSuggestion(t *testing.T) {
	s := twoTables("user_id")
	s.Tables[1].Indexes = nil
	diags := &diag.Set{}

	_, err := Resolve(s, diags)
	require.NoError(t, err)

	var found bool
	for _, d := range diags.Suggestions() {
		if d.Code == diag.CodeMissingIndex {
			found = true
		}
	}
	assert.True(t, found, "expected a missing-index suggestion")
}

func TestResolveUnresolvedEndpoint(t *testing.T) {
	s := twoTables("user_id")
	s.References[0].TargetFieldID = "f-nonexistent"

	_, err := Resolve(s, &diag.Set{})
	require.Error(t, err)

	var structural *diag.StructuralError
	require.True(t, errors.As(err, &structural))
	assert.Equal(t, diag.CodeUnresolvedReference, structural.Code)
}

func TestResolveFamilyMismatch(t *testing.T) {
	s := twoTables("user_id")
	s.Tables[1].Fields[1].Type = schema.Type{Kind: schema.KindVarchar, Size: 36}

	_, err := Resolve(s, &diag.Set{})
	require.Error(t, err)

	var structural *diag.StructuralError
	require.True(t, errors.As(err, &structural))
	assert.Equal(t, diag.CodeTypeMismatch, structural.Code)
}

func TestResolveSerialTargetNoWarning(t *testing.T) {
	// posts.user_id is a plain int, users.id is serial: an exempt pair.
	s := twoTables("user_id")
	diags := &diag.Set{}

	_, err := Resolve(s, diags)
	require.NoError(t, err)
	assert.Empty(t, diags.Warnings())
}

func TestResolvePrecisionMismatchWarning(t *testing.T) {
	s := twoTables("user_id")
	s.Tables[0].Fields[0] = schema.Field{
		ID: "f-users-id", Name: "id",
		Type:       schema.Type{Kind: schema.KindDecimal, Precision: 10, Scale: 2},
		PrimaryKey: true,
	}
	s.Tables[1].Fields[1].Type = schema.Type{Kind: schema.KindDecimal, Precision: 8, Scale: 2}
	diags := &diag.Set{}

	_, err := Resolve(s, diags)
	require.NoError(t, err)

	warnings := diags.Warnings()
	require.NotEmpty(t, warnings)
	assert.Equal(t, diag.CodePrecisionMismatch, warnings[0].Code)
}

func TestResolveNonUniqueTargetWarning(t *testing.T) {
	s := twoTables("user_id")
	s.Tables[0].Fields[0].PrimaryKey = false
	s.Tables[0].Fields[0].Type = schema.Type{Kind: schema.KindInt}
	diags := &diag.Set{}

	_, err := Resolve(s, diags)
	require.NoError(t, err)

	var found bool
	for _, d := range diags.Warnings() {
		if d.Code == diag.CodeNonUniqueTarget {
			found = true
		}
	}
	assert.True(t, found, "expected a non-unique-target warning")
}

func TestConventionalName(t *testing.T) {
	tests := []struct {
		table, field, want string
	}{
		{"users", "id", "user_id"},
		{"categories", "id", "category_id"},
		{"people", "uuid", "person_uuid"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ConventionalName(tt.table, tt.field))
	}
}
