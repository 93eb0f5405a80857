package statparse

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoMatch is returned when input lines remain that no field could claim.
// It means the text could not be interpreted with the schema at all, which is
// distinct from a field being missing or malformed.
var ErrNoMatch = errors.New("statparse: input does not match schema")

// MissingField names a field that did not reach its minimum occurrences.
type MissingField struct {
	Name     string // Field name
	Path     string // Path of the enclosing record, e.g. "monsters[0]"
	Required int    // Occurrences still required
}

// String returns "path.name (n more required)".
func (m MissingField) String() string {
	name := m.Name
	if m.Path != "" {
		name = m.Path + "." + m.Name
	}
	return fmt.Sprintf("%s (%d more required)", name, m.Required)
}

// MissingContentError reports every field that never reached its minimum
// occurrences. A single parse produces at most one MissingContentError
// listing all gaps.
type MissingContentError struct {
	Missing []MissingField
}

// Error implements the error interface.
func (e *MissingContentError) Error() string {
	parts := make([]string, len(e.Missing))
	for i, m := range e.Missing {
		parts[i] = m.String()
	}
	return fmt.Sprintf("missing content: %s", strings.Join(parts, ", "))
}

// Fields returns the names of the missing fields in report order.
func (e *MissingContentError) Fields() []string {
	names := make([]string, len(e.Missing))
	for i, m := range e.Missing {
		names[i] = m.Name
	}
	return names
}

// BadValueError reports a field whose text was located but did not have the
// declared shape.
type BadValueError struct {
	Field   string // Field name
	Path    string // Output path of the value
	Value   string // Raw text collected for the field
	Pattern string // Expected pattern, or a description for typed conversions
}

// Error implements the error interface.
func (e *BadValueError) Error() string {
	return fmt.Sprintf("bad value for %s: %q does not match %s", e.where(), e.Value, e.Pattern)
}

func (e *BadValueError) where() string {
	if e.Path != "" {
		return e.Path
	}
	return e.Field
}
