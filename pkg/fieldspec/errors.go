package fieldspec

import (
	"fmt"
	"strings"
)

// ErrorType categorizes schema problems.
type ErrorType string

const (
	ErrorTypeSyntax     ErrorType = "syntax"     // YAML syntax error
	ErrorTypeStructural ErrorType = "structural" // Invalid field declaration
	ErrorTypeIO         ErrorType = "io"         // File I/O error
)

// Error describes one problem found while loading or checking a schema.
type Error struct {
	Type       ErrorType // Category of error
	Message    string    // Error message
	Field      string    // Dotted path of the offending field, if known
	Location   Location  // Source location
	Suggestion string    // Suggested fix (optional)
}

// Error returns the message with location and suggestion.
func (e *Error) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("[%s] %s\n", e.Type, e.Message))

	if e.Location.IsValid() {
		sb.WriteString(fmt.Sprintf("  --> %s\n", e.Location.String()))
	}

	if e.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  = suggestion: %s\n", e.Suggestion))
	}

	return sb.String()
}

// ErrorList collects schema errors so that every problem is reported at once.
type ErrorList struct {
	Errors []*Error
}

// NewErrorList creates a new empty error list.
func NewErrorList() *ErrorList {
	return &ErrorList{
		Errors: make([]*Error, 0),
	}
}

// Add appends an error to the list.
func (el *ErrorList) Add(err *Error) {
	el.Errors = append(el.Errors, err)
}

// AddError creates and adds a new error.
func (el *ErrorList) AddError(errType ErrorType, field, message string, location Location) {
	el.Add(&Error{
		Type:     errType,
		Message:  message,
		Field:    field,
		Location: location,
	})
}

// AddErrorWithSuggestion creates and adds a new error with a suggestion.
func (el *ErrorList) AddErrorWithSuggestion(errType ErrorType, field, message string, location Location, suggestion string) {
	el.Add(&Error{
		Type:       errType,
		Message:    message,
		Field:      field,
		Location:   location,
		Suggestion: suggestion,
	})
}

// HasErrors returns true if the list contains any errors.
func (el *ErrorList) HasErrors() bool {
	return len(el.Errors) > 0
}

// Count returns the number of errors in the list.
func (el *ErrorList) Count() int {
	return len(el.Errors)
}

// Error returns all errors formatted as a single string.
func (el *ErrorList) Error() string {
	if !el.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d schema error(s):\n\n", el.Count()))

	for i, err := range el.Errors {
		sb.WriteString(fmt.Sprintf("Error %d:\n", i+1))
		sb.WriteString(err.Error())
		sb.WriteString("\n")
	}

	return sb.String()
}

// ToError returns nil if the list is empty, otherwise the list itself.
func (el *ErrorList) ToError() error {
	if !el.HasErrors() {
		return nil
	}
	return el
}

// ByType returns all errors of the given type.
func (el *ErrorList) ByType(errType ErrorType) []*Error {
	var result []*Error
	for _, err := range el.Errors {
		if err.Type == errType {
			result = append(result, err)
		}
	}
	return result
}

// ByField returns all errors reported against the given field path.
func (el *ErrorList) ByField(field string) []*Error {
	var result []*Error
	for _, err := range el.Errors {
		if err.Field == field {
			result = append(result, err)
		}
	}
	return result
}

// suggestKind proposes the closest known kind for a misspelled type.
func suggestKind(unknown string) string {
	valid := make([]string, len(Kinds))
	for i, k := range Kinds {
		valid[i] = string(k)
	}

	minDistance := 1000
	var bestMatch string
	for _, candidate := range valid {
		dist := levenshteinDistance(strings.ToLower(unknown), strings.ToLower(candidate))
		if dist < minDistance {
			minDistance = dist
			bestMatch = candidate
		}
	}

	if minDistance < 5 {
		return fmt.Sprintf("Did you mean '%s'?", bestMatch)
	}
	return fmt.Sprintf("Valid types: %s", strings.Join(valid, ", "))
}

// levenshteinDistance calculates the edit distance between two strings.
func levenshteinDistance(s1, s2 string) int {
	if s1 == "" {
		return len(s2)
	}
	if s2 == "" {
		return len(s1)
	}

	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(s2)]
}
