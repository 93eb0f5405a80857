package statparse

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// parseState is the working state of one field occurrence. States that
// cannot finish on the current line wait on the incomplete stack.
type parseState struct {
	inst       *instance
	parent     *parseState // Enclosing content occurrence, nil at the root
	occurrence int         // Index among the field's occurrences in parent

	// Leaf fields
	text      string
	extracted bool // Value taken by a bare match; skip final validation

	// Content fields
	resume     *instance   // Child to continue first when resumed
	children   []*instance // Every child instance of this occurrence
	subParsers []*instance // Children that may still match
	obj        map[string]any

	skip bool // Output suppressed here or by an ancestor
}

// appendText adds text collected after the field started. A value taken by
// a bare match is validated again once anything is added to it.
func (s *parseState) appendText(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	s.text = joinText(s.text, text)
	s.extracted = false
}

// started reports whether any child of a content occurrence has matched.
func (s *parseState) started() bool {
	for _, child := range s.children {
		if child.matched > 0 {
			return true
		}
	}
	return false
}

// path returns the output location of the state, e.g. "monsters[0].traits[2]".
// Flattened content contributes no segment.
func (s *parseState) path() string {
	if s == nil {
		return ""
	}

	parent := s.parent.path()
	f := s.inst.node.field
	if f.Flatten {
		return parent
	}

	seg := f.Name
	if f.Repeating() {
		seg = fmt.Sprintf("%s[%d]", f.Name, s.occurrence)
	}
	if parent == "" {
		return seg
	}
	return parent + "." + seg
}

// parseContext owns everything mutable in a single parse run: the input,
// the output tree, the incomplete stack, the chain of content states being
// matched and the collected errors. Nothing is shared between runs.
type parseContext struct {
	ctx    context.Context
	logger *slog.Logger
	lines  *lineBuffer
	output map[string]any

	// stack holds incomplete states, innermost first.
	stack []*parseState

	// active is the chain of content states currently being matched; its
	// last element is the parent of any state created now.
	active []*parseState

	missing   []MissingField
	badValues []*BadValueError
}

func newParseContext(ctx context.Context, logger *slog.Logger, lines []string) *parseContext {
	return &parseContext{
		ctx:    ctx,
		logger: logger,
		lines:  newLineBuffer(lines),
		output: make(map[string]any),
	}
}

// current returns the content state new states are created under.
func (c *parseContext) current() *parseState {
	if len(c.active) == 0 {
		return nil
	}
	return c.active[len(c.active)-1]
}

// newState creates the state for the next occurrence of inst.
func (c *parseContext) newState(inst *instance) *parseState {
	parent := c.current()
	s := &parseState{
		inst:       inst,
		parent:     parent,
		occurrence: inst.matched,
		skip:       inst.node.field.SkipOutput,
	}
	if parent != nil && parent.skip {
		s.skip = true
	}
	return s
}

func (c *parseContext) push(s *parseState) {
	c.stack = append(c.stack, s)
}

func (c *parseContext) top() *parseState {
	if len(c.stack) == 0 {
		return nil
	}
	return c.stack[len(c.stack)-1]
}

// popIf removes and returns the top state if it belongs to inst.
func (c *parseContext) popIf(inst *instance) *parseState {
	top := c.top()
	if top == nil || top.inst != inst {
		return nil
	}
	c.stack = c.stack[:len(c.stack)-1]
	return top
}

// enterContent starts or resumes a content occurrence. Resuming continues
// the state on top of the stack when it belongs to inst; otherwise a new
// occurrence with fresh child counters is created.
func (c *parseContext) enterContent(inst *instance, resume bool) *parseState {
	if resume {
		if s := c.popIf(inst); s != nil {
			c.active = append(c.active, s)
			return s
		}
	}

	s := c.newState(inst)
	s.children = newInstances(inst.node)
	s.subParsers = append([]*instance(nil), s.children...)
	c.active = append(c.active, s)
	return s
}

// leaveContent ends the current attempt on a content occurrence. A state
// that matched anything waits on the stack, remembering the most recent
// incomplete child as the one to resume.
func (c *parseContext) leaveContent(s *parseState, matched bool) {
	c.active = c.active[:len(c.active)-1]
	if !matched {
		return
	}
	if top := c.top(); top != nil {
		s.resume = top.inst
	}
	c.push(s)
}

// completeStack finishes every incomplete state, innermost first. Text
// found before the field that triggered completion is added to the first
// leaf on the stack; callers only pass text when hasOpenLeaf holds.
func (c *parseContext) completeStack(previous string) {
	for len(c.stack) > 0 {
		s := c.stack[0]
		c.stack = c.stack[1:]

		if previous != "" && !s.inst.node.isContent() {
			s.appendText(previous)
			previous = ""
		}
		c.finish(s)
	}
}

// hasOpenLeaf reports whether a leaf on the stack can take handed-back text.
func (c *parseContext) hasOpenLeaf() bool {
	for _, s := range c.stack {
		if !s.inst.node.isContent() {
			return true
		}
	}
	return false
}

// finish validates and writes a completed state.
func (c *parseContext) finish(s *parseState) {
	n := s.inst.node

	if n.isContent() {
		for _, child := range s.children {
			if child.required > 0 {
				c.missing = append(c.missing, MissingField{
					Name:     child.node.field.Name,
					Path:     s.path(),
					Required: child.required,
				})
			}
		}
		return
	}

	value, bad := n.finish(s.text, s.extracted)
	if bad != nil {
		bad.Path = s.path()
		c.badValues = append(c.badValues, bad)
		c.logger.Debug("bad value", "field", bad.Path, "value", bad.Value)
		return
	}
	if value == nil || s.skip {
		return
	}

	obj := c.object(s.parent)
	f := n.field
	if f.Repeating() {
		list, _ := obj[f.Name].([]any)
		obj[f.Name] = append(list, value)
		return
	}
	obj[f.Name] = value
}

// object returns the output mapping of a content state, creating it and
// linking it into its parent on first use.
func (c *parseContext) object(s *parseState) map[string]any {
	if s == nil {
		return c.output
	}
	if s.obj != nil {
		return s.obj
	}

	container := c.object(s.parent)
	f := s.inst.node.field
	switch {
	case f.Flatten:
		s.obj = container
	case f.Repeating():
		s.obj = make(map[string]any)
		list, _ := container[f.Name].([]any)
		container[f.Name] = append(list, s.obj)
	default:
		s.obj = make(map[string]any)
		container[f.Name] = s.obj
	}
	return s.obj
}
