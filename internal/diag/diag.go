// Package diag implements the shared diagnostics accumulator threaded through
// the conversion pipeline. Components append warnings and suggestions and keep
// going; structural problems are returned as *StructuralError and abort the
// whole conversion with no partial output.
package diag

import (
	"fmt"
	"strings"
)

// Severity ranks a diagnostic. Errors abort, warnings accompany output,
// suggestions are purely advisory.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeveritySuggestion
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeveritySuggestion:
		return "suggestion"
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// Code identifies a diagnostic category.
type Code string

const (
	CodeUnresolvedReference  Code = "unresolved-reference"
	CodeDependencyCycle      Code = "dependency-cycle"
	CodeParseFailure         Code = "parse-failure"
	CodeTypeMismatch         Code = "type-mismatch"
	CodePrecisionMismatch    Code = "precision-mismatch"
	CodePrecisionClamped     Code = "precision-clamped"
	CodeFidelityLoss         Code = "fidelity-loss"
	CodeNonUniqueTarget      Code = "non-unique-target"
	CodeNamingConvention     Code = "naming-convention"
	CodeMissingIndex         Code = "missing-index"
	CodeAmbiguousCardinality Code = "ambiguous-cardinality"
)

// Diagnostic is a single structured finding. Subject names the table, field,
// or reference it concerns.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Code     Code     `json:"code"`
	Subject  string   `json:"subject,omitempty"`
	Message  string   `json:"message"`
}

func (d Diagnostic) String() string {
	if d.Subject != "" {
		return fmt.Sprintf("%s [%s] %s: %s", d.Severity, d.Code, d.Subject, d.Message)
	}
	return fmt.Sprintf("%s [%s] %s", d.Severity, d.Code, d.Message)
}

// Set accumulates diagnostics across pipeline stages. The zero value is ready
// to use. A Set is not safe for concurrent use; each conversion owns its own.
type Set struct {
	items []Diagnostic
}

// Warnf appends a warning.
func (s *Set) Warnf(code Code, subject, format string, args ...any) {
	s.items = append(s.items, Diagnostic{
		Severity: SeverityWarning,
		Code:     code,
		Subject:  subject,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Suggestf appends a suggestion.
func (s *Set) Suggestf(code Code, subject, format string, args ...any) {
	s.items = append(s.items, Diagnostic{
		Severity: SeveritySuggestion,
		Code:     code,
		Subject:  subject,
		Message:  fmt.Sprintf(format, args...),
	})
}

// All returns every accumulated diagnostic in append order.
func (s *Set) All() []Diagnostic {
	return s.items
}

// Warnings returns only the warning-severity diagnostics.
func (s *Set) Warnings() []Diagnostic {
	return s.filter(SeverityWarning)
}

// Suggestions returns only the suggestion-severity diagnostics.
func (s *Set) Suggestions() []Diagnostic {
	return s.filter(SeveritySuggestion)
}

func (s *Set) filter(sev Severity) []Diagnostic {
	var out []Diagnostic
	for _, d := range s.items {
		if d.Severity == sev {
			out = append(out, d)
		}
	}
	return out
}

// StructuralError reports a malformed schema: an unresolved endpoint, a
// dependency cycle, a cross-family type mismatch, or unparseable interchange
// text. Callers must not attempt partial recovery.
type StructuralError struct {
	Code    Code
	Subject string
	Message string
	// Cycle holds the table names forming a dependency cycle, in traversal
	// order, when Code is CodeDependencyCycle.
	Cycle []string
}

func (e *StructuralError) Error() string {
	if len(e.Cycle) > 0 {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, strings.Join(e.Cycle, " -> "))
	}
	if e.Subject != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Subject, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Structuralf builds a StructuralError with a formatted message.
func Structuralf(code Code, subject, format string, args ...any) *StructuralError {
	return &StructuralError{
		Code:    code,
		Subject: subject,
		Message: fmt.Sprintf(format, args...),
	}
}
