package schema

import (
	"encoding/json"
	"fmt"
)

// Document serializes the schema as the JSON contract consumed by the
// surrounding diagram UI: {"tables": [...], "references": [...], "enums": [...]}.
// Output is deterministic for identical input.
func (s *Schema) Document() ([]byte, error) {
	// Marshal a shallow copy with nil slices normalized so the document
	// always carries all three arrays.
	doc := *s
	if doc.Tables == nil {
		doc.Tables = []Table{}
	}
	if doc.References == nil {
		doc.References = []Reference{}
	}
	if doc.Enums == nil {
		doc.Enums = []Enum{}
	}

	out, err := json.MarshalIndent(&doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema document: %w", err)
	}
	return out, nil
}

// FromDocument parses a schema document produced by Document.
func FromDocument(data []byte) (*Schema, error) {
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse schema document: %w", err)
	}
	return &s, nil
}
