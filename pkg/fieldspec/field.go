package fieldspec

import (
	"fmt"
	"strings"
)

// Kind identifies how a field is matched and converted.
type Kind string

const (
	KindOrderedContent   Kind = "orderedContent"   // Children matched strictly left to right
	KindUnorderedContent Kind = "unorderedContent" // Children matched in any order
	KindString           Kind = "string"           // Raw text value
	KindEnum             Kind = "enumType"         // One of a fixed set of literals
	KindNumber           Kind = "number"           // Integer or a/b fraction
	KindAbility          Kind = "ability"          // Ability score such as "18 (+4)"
	KindHeading          Kind = "heading"          // Label that is matched but never output
)

// Kinds lists every supported field kind in declaration order.
var Kinds = []Kind{
	KindOrderedContent,
	KindUnorderedContent,
	KindString,
	KindEnum,
	KindNumber,
	KindAbility,
	KindHeading,
}

// IsContent reports whether the kind is a content model.
func (k Kind) IsContent() bool {
	return k == KindOrderedContent || k == KindUnorderedContent
}

// IsValid reports whether the kind is one of the supported kinds.
func (k Kind) IsValid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Unbounded is the MaxOccurs value for fields that may repeat without limit.
const Unbounded = -1

// Field is one node of the schema tree.
type Field struct {
	// Name identifies the field and is the property name in the output tree.
	Name string

	// Type selects matching and conversion behaviour.
	Type Kind

	// ContentModel lists the children of a content node in schema order.
	ContentModel []*Field

	// Bare fields have no token; a match of Pattern at the head of the
	// remaining text decides their presence.
	Bare bool

	// ParseToken is the case-insensitive literal (or pattern) that starts a
	// non-bare field. Empty means Name.
	ParseToken string

	// Pattern decides a bare match or validates the completed value of a
	// non-bare field.
	Pattern string

	// MatchGroup is the capture group of Pattern holding the value
	// (0 = whole match).
	MatchGroup int

	// ForPreviousMatchGroup is a capture group whose text belongs to the
	// preceding field (0 = none).
	ForPreviousMatchGroup int

	// ForNextMatchGroup is a capture group whose text is handed back to the
	// input for the following field (0 = none).
	ForNextMatchGroup int

	// CaseSensitive makes Pattern matching case-sensitive. Token matching is
	// always case-insensitive.
	CaseSensitive bool

	// EnumValues are the candidate literals of an enumType field.
	EnumValues []string

	// MinOccurs and MaxOccurs bound the occurrences of the field within its
	// parent content model. MaxOccurs may be Unbounded.
	MinOccurs int
	MaxOccurs int

	// Flatten makes the children of a content node write into the parent
	// object instead of a nested one.
	Flatten bool

	// SkipOutput suppresses writing the value. Always set for headings.
	SkipOutput bool

	// Location is where the field was declared.
	Location Location
}

// Token returns the parse token of a non-bare field.
func (f *Field) Token() string {
	if f.ParseToken != "" {
		return f.ParseToken
	}
	return f.Name
}

// Repeating reports whether more than one occurrence is allowed, in which
// case the field's values are collected into an array.
func (f *Field) Repeating() bool {
	return f.MaxOccurs == Unbounded || f.MaxOccurs > 1
}

// IsContent reports whether the field is a content model.
func (f *Field) IsContent() bool {
	return f.Type.IsContent()
}

// Child returns the direct child with the given name, or nil.
func (f *Field) Child(name string) *Field {
	for _, c := range f.ContentModel {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Walk visits f and all of its descendants depth-first. The path passed to
// fn holds the names from the root to the visited field.
func (f *Field) Walk(fn func(path []string, field *Field)) {
	f.walk(nil, fn)
}

func (f *Field) walk(prefix []string, fn func([]string, *Field)) {
	path := append(append([]string(nil), prefix...), f.Name)
	fn(path, f)
	for _, c := range f.ContentModel {
		c.walk(path, fn)
	}
}

// String returns a short description used in logs and error messages.
func (f *Field) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s(%s", f.Name, f.Type))
	if f.Bare {
		sb.WriteString(", bare")
	}
	upper := "unbounded"
	if f.MaxOccurs != Unbounded {
		upper = fmt.Sprintf("%d", f.MaxOccurs)
	}
	sb.WriteString(fmt.Sprintf(", %d..%s)", f.MinOccurs, upper))
	return sb.String()
}

// Schema is a loaded field schema.
type Schema struct {
	// FormatVersion is attached as "version" to every parse result.
	FormatVersion string

	// Root is the top-level record field.
	Root *Field

	// SourceFile is the file the schema was read from, if any.
	SourceFile string
}

// FieldCount returns the number of fields in the schema tree.
func (s *Schema) FieldCount() int {
	n := 0
	if s.Root != nil {
		s.Root.Walk(func([]string, *Field) { n++ })
	}
	return n
}
