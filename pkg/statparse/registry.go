package statparse

import (
	"fmt"
	"math"
	"regexp"

	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/fieldspec"
)

// node is the compiled, read-only form of one schema field. It is built once
// per Parser and shared by every parse.
type node struct {
	field    *fieldspec.Field
	children []*node

	// token finds the parse token in a line (non-bare leaves only).
	// Group 1 is the text before the token, group 2 the token itself.
	token *regexp.Regexp

	// value is the anchored bare pattern: ^(<pattern>)(?:[\s.]+|$).
	value *regexp.Regexp

	// final validates completed text: ^(?:<pattern>)$.
	final *regexp.Regexp

	// enums holds one search expression per enumValues literal.
	enums []*regexp.Regexp

	// match runs the value phase after the token (if any) was found.
	match valueMatcher

	// convert turns the finished text into the output value.
	convert converter
}

// valueMatch is the outcome of a successful value phase.
type valueMatch struct {
	value       string // Extracted value, when extracted is set
	extracted   bool   // The value was taken immediately by a bare pattern
	forPrevious string // Text belonging to the previously accumulating field
	forNext     string // Text handed back to the input for the next field
}

// valueMatcher runs the value phase of a leaf against the remaining input.
// It must leave the buffer untouched when it reports no match.
type valueMatcher func(n *node, buf *lineBuffer) (valueMatch, bool)

// converter turns finished text into a typed value. The second result is
// false when the text cannot be converted.
type converter func(n *node, text string) (any, bool)

// constructor compiles one field of a given kind.
type constructor func(f *fieldspec.Field) (*node, error)

// registry maps each field kind to its constructor. It is never modified
// after package initialisation.
var registry = map[fieldspec.Kind]constructor{
	fieldspec.KindOrderedContent:   newContentNode,
	fieldspec.KindUnorderedContent: newContentNode,
	fieldspec.KindString:           newStringNode,
	fieldspec.KindEnum:             newEnumNode,
	fieldspec.KindNumber:           newNumberNode,
	fieldspec.KindAbility:          newAbilityNode,
	fieldspec.KindHeading:          newHeadingNode,
}

// compile builds the node tree for a field and all of its descendants.
func compile(f *fieldspec.Field) (*node, error) {
	build, ok := registry[f.Type]
	if !ok {
		return nil, fmt.Errorf("field %q: no parser for type %q", f.Name, f.Type)
	}

	n, err := build(f)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", f.Name, err)
	}

	for _, child := range f.ContentModel {
		c, err := compile(child)
		if err != nil {
			return nil, err
		}
		n.children = append(n.children, c)
	}

	return n, nil
}

func (n *node) isContent() bool {
	return n.field.IsContent()
}

func (n *node) ordered() bool {
	return n.field.Type == fieldspec.KindOrderedContent
}

func newContentNode(f *fieldspec.Field) (*node, error) {
	return &node{field: f}, nil
}

// newLeafNode compiles the expressions shared by every leaf kind.
func newLeafNode(f *fieldspec.Field) (*node, error) {
	n := &node{field: f, match: matchDeferred, convert: convertString}

	if !f.Bare {
		re, err := regexp.Compile(`(?i)^(|.*?[^\pL\pN])(` + f.Token() + `)(?:[\s.:]+|$)`)
		if err != nil {
			return nil, fmt.Errorf("invalid parse token: %w", err)
		}
		n.token = re
	}

	if f.Pattern != "" {
		flags := "(?i)"
		if f.CaseSensitive {
			flags = ""
		}

		value, err := regexp.Compile(flags + `^(` + f.Pattern + `)(?:[\s.]+|$)`)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern: %w", err)
		}
		final, err := regexp.Compile(flags + `^(?:` + f.Pattern + `)$`)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern: %w", err)
		}
		n.value, n.final = value, final

		if f.Bare {
			n.match = matchBarePattern
		}
	}

	return n, nil
}

func newStringNode(f *fieldspec.Field) (*node, error) {
	return newLeafNode(f)
}

func newNumberNode(f *fieldspec.Field) (*node, error) {
	n, err := newLeafNode(f)
	if err != nil {
		return nil, err
	}
	n.convert = convertNumber
	return n, nil
}

func newEnumNode(f *fieldspec.Field) (*node, error) {
	n, err := newLeafNode(f)
	if err != nil {
		return nil, err
	}
	n.convert = convertEnum

	for _, literal := range f.EnumValues {
		re, err := regexp.Compile(`(?i)^(|.*?[^\pL\pN])(` + regexp.QuoteMeta(literal) + `)(?:[\s.]+|$)`)
		if err != nil {
			return nil, fmt.Errorf("invalid enum value %q: %w", literal, err)
		}
		n.enums = append(n.enums, re)
	}

	if f.Bare {
		n.match = matchBareEnum
	}
	return n, nil
}

func newAbilityNode(f *fieldspec.Field) (*node, error) {
	n, err := newLeafNode(f)
	if err != nil {
		return nil, err
	}
	n.match = matchAbility
	n.convert = convertInteger
	return n, nil
}

// newHeadingNode compiles a heading. Headings are always bare; without an
// explicit pattern the parse token is matched literally.
func newHeadingNode(f *fieldspec.Field) (*node, error) {
	heading := *f
	heading.Bare = true
	heading.SkipOutput = true
	if heading.Pattern == "" {
		heading.Pattern = regexp.QuoteMeta(f.Token())
	}

	return newLeafNode(&heading)
}

// instance is the runtime counterpart of a node within one content-model
// occurrence. Counters are fresh for every occurrence of the parent.
type instance struct {
	node     *node
	required int // Matches still needed to satisfy MinOccurs
	allowed  int // Matches still permitted by MaxOccurs
	matched  int // Matches so far; the next occurrence index
}

func newInstance(n *node) *instance {
	allowed := n.field.MaxOccurs
	if allowed == fieldspec.Unbounded {
		allowed = math.MaxInt
	}
	return &instance{
		node:     n,
		required: n.field.MinOccurs,
		allowed:  allowed,
	}
}

// count records one successful match.
func (inst *instance) count() {
	if inst.required > 0 {
		inst.required--
	}
	inst.allowed--
	inst.matched++
}

// newInstances builds fresh instances for every child of a content node.
func newInstances(n *node) []*instance {
	out := make([]*instance, len(n.children))
	for i, c := range n.children {
		out[i] = newInstance(c)
	}
	return out
}
