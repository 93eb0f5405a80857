package statparse

import (
	"regexp"
	"strings"
)

var (
	// abilityInline matches a score with an optional modifier at the head of
	// the current line, e.g. "18 (+4)".
	abilityInline = regexp.MustCompile(`^(\d+)(?:\s*\(\s*[-+−–]?\s*\d+\s*\))?(?:[\s.]+|$)`)

	// abilityNextLine matches a score at the start of the following line,
	// for layouts with the ability names above their scores.
	abilityNextLine = regexp.MustCompile(`^(\d+)(?:\s*\([^)]*\))?`)
)

// parseLeaf attempts to start a new occurrence of a leaf field at the head
// of the input. On success the state is pushed onto the incomplete stack,
// where it collects further text until a later field completes it.
func (c *parseContext) parseLeaf(inst *instance) bool {
	if c.lines.empty() {
		return false
	}

	n := inst.node
	saved := c.lines.snapshot()

	// Step 1: Token phase
	var forPrevious string
	if n.token != nil {
		head := c.lines.head()
		m := n.token.FindStringSubmatchIndex(head)
		if m == nil {
			return false
		}
		forPrevious = head[m[2]:m[3]]
		c.lines.setHead(head[m[1]:])
	}

	// Step 2: Value phase
	vm, ok := n.match(n, c.lines)
	if !ok {
		c.lines.restore(saved)
		return false
	}

	c.logger.Debug("field matched",
		"field", n.field.Name,
		"extracted", vm.extracted,
		"value", vm.value)

	// Step 3: Text before this field finishes whatever was still open. With
	// no open field to take it, the field does not start here.
	previous := joinText(forPrevious, vm.forPrevious)
	if previous != "" && !c.hasOpenLeaf() {
		c.logger.Debug("no open field for leading text",
			"field", n.field.Name,
			"text", previous)
		c.lines.restore(saved)
		return false
	}
	c.completeStack(previous)

	state := c.newState(inst)
	state.text = vm.value
	state.extracted = vm.extracted
	c.push(state)

	c.lines.prepend(vm.forNext)
	return true
}

// resumeLeaf continues a paused leaf with the next whole input line.
func (c *parseContext) resumeLeaf(inst *instance) bool {
	if c.lines.empty() {
		return false
	}

	state := c.popIf(inst)
	if state == nil {
		return false
	}

	line := c.lines.shift()
	state.appendText(line)
	c.push(state)

	c.logger.Debug("field continued", "field", inst.node.field.Name, "line", line)
	return true
}

// matchDeferred is the value phase of token fields: nothing is consumed
// now; the text after the token is collected until the field completes.
func matchDeferred(*node, *lineBuffer) (valueMatch, bool) {
	return valueMatch{}, true
}

// matchBarePattern evaluates a bare field's pattern at the head of the input
// and extracts the value and handoff groups immediately.
func matchBarePattern(n *node, buf *lineBuffer) (valueMatch, bool) {
	if buf.empty() {
		return valueMatch{}, false
	}

	head := buf.head()
	m := n.value.FindStringSubmatchIndex(head)
	if m == nil {
		return valueMatch{}, false
	}

	// Group g of the field's pattern is group g+1 of the anchored expression.
	group := func(g int) string {
		i := 2 * (g + 1)
		if i+1 >= len(m) || m[i] < 0 {
			return ""
		}
		return head[m[i]:m[i+1]]
	}

	vm := valueMatch{
		value:     strings.TrimSpace(group(n.field.MatchGroup)),
		extracted: true,
	}
	if g := n.field.ForPreviousMatchGroup; g > 0 {
		vm.forPrevious = group(g)
	}
	if g := n.field.ForNextMatchGroup; g > 0 {
		vm.forNext = group(g)
	}

	buf.setHead(head[m[1]:])
	return vm, true
}

// matchBareEnum searches the whole head line for every enum literal and
// keeps the match with the shortest preceding text. Ties go to the literal
// declared first. The preceding text belongs to the previous field.
func matchBareEnum(n *node, buf *lineBuffer) (valueMatch, bool) {
	if buf.empty() {
		return valueMatch{}, false
	}

	head := buf.head()
	best, bestIdx := -1, []int(nil)
	for i, re := range n.enums {
		m := re.FindStringSubmatchIndex(head)
		if m == nil {
			continue
		}
		if bestIdx == nil || m[3]-m[2] < bestIdx[3]-bestIdx[2] {
			best, bestIdx = i, m
		}
	}
	if best < 0 {
		return valueMatch{}, false
	}

	vm := valueMatch{
		value:       n.field.EnumValues[best],
		extracted:   true,
		forPrevious: head[bestIdx[2]:bestIdx[3]],
	}
	buf.setHead(head[bestIdx[1]:])
	return vm, true
}

// matchAbility takes an ability score either inline on the current line or,
// failing that, from the start of the following line.
func matchAbility(_ *node, buf *lineBuffer) (valueMatch, bool) {
	if buf.empty() {
		return valueMatch{}, false
	}

	// Pass 1: "18 (+4)" at the head of the current line
	head := buf.head()
	if m := abilityInline.FindStringSubmatchIndex(head); m != nil {
		buf.setHead(head[m[1]:])
		return valueMatch{value: head[m[2]:m[3]], extracted: true}, true
	}

	// Pass 2: a bare score starting the next line
	next, ok := buf.at(1)
	if !ok {
		return valueMatch{}, false
	}
	if m := abilityNextLine.FindStringSubmatchIndex(next); m != nil {
		buf.set(1, next[m[1]:])
		return valueMatch{value: next[m[2]:m[3]], extracted: true}, true
	}

	return valueMatch{}, false
}

func joinText(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
