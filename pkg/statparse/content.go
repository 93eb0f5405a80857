package statparse

import (
	"cmp"
	"math"
	"slices"
)

// parseInstance attempts a new occurrence of any field.
func (c *parseContext) parseInstance(inst *instance) bool {
	if inst.node.isContent() {
		return c.parseContent(inst, false)
	}
	return c.parseLeaf(inst)
}

// resumeInstance continues a paused occurrence with the next input.
func (c *parseContext) resumeInstance(inst *instance) bool {
	if inst.node.isContent() {
		return c.parseContent(inst, true)
	}
	return c.resumeLeaf(inst)
}

// parseContent is the matching loop of a content model. It reports whether
// any child advanced during this call.
//
// A resumed occurrence first continues its paused child; if that child
// cannot take more input the call stops without consuming anything. Then
// the active children are scanned, one match per pass, until a pass matches
// nothing, the input is used up, no child may match again or the run is
// cancelled.
func (c *parseContext) parseContent(inst *instance, resume bool) bool {
	s := c.enterContent(inst, resume)
	someMatch := false

	// Step 1: Continue the paused child
	if resume && s.resume != nil {
		if !c.resumeInstance(s.resume) {
			c.active = c.active[:len(c.active)-1]
			c.push(s)
			return false
		}
		someMatch = true
	}

	// Step 2: Drain as much input as the content model permits
	for c.ctx.Err() == nil {
		matched := c.scan(s)
		someMatch = someMatch || matched
		s.subParsers = activeOnly(s.subParsers)

		if !matched || len(s.subParsers) == 0 || c.lines.empty() {
			break
		}
	}

	c.leaveContent(s, someMatch)
	return someMatch
}

// scan makes one pass over the active children and stops at the first
// match.
//
// Ordered children are tried in schema order and a match closes every
// earlier sibling for good. A required child that fails is skipped once
// the occurrence has started, so a later sibling can still match and the
// gap is reported as missing content; an occurrence cannot start by
// skipping a required child.
//
// Unordered children are tried by where they would start on the head
// line, earliest first, so fields sharing a line are taken in the order
// they appear.
func (c *parseContext) scan(s *parseState) bool {
	if !s.inst.node.ordered() {
		for _, sub := range byStartOffset(s.subParsers, c.lines.head()) {
			if c.parseInstance(sub) {
				sub.count()
				return true
			}
		}
		return false
	}

	started := s.started()
	for i, sub := range s.subParsers {
		if !c.parseInstance(sub) {
			if sub.required > 0 && !started {
				return false
			}
			continue
		}

		sub.count()
		for _, earlier := range s.subParsers[:i] {
			earlier.allowed = 0
		}
		return true
	}

	return false
}

// byStartOffset orders candidates by the position at which each could
// begin on line. Ties and candidates that cannot begin there keep schema
// order, the latter after all others.
func byStartOffset(subs []*instance, line string) []*instance {
	type candidate struct {
		inst   *instance
		offset int
	}

	cands := make([]candidate, len(subs))
	for i, sub := range subs {
		off := sub.node.startOffset(line)
		if off < 0 {
			off = math.MaxInt
		}
		cands[i] = candidate{inst: sub, offset: off}
	}
	slices.SortStableFunc(cands, func(a, b candidate) int {
		return cmp.Compare(a.offset, b.offset)
	})

	out := make([]*instance, len(cands))
	for i, cand := range cands {
		out[i] = cand.inst
	}
	return out
}

// startOffset reports where on line a new occurrence of n could begin, or
// -1 when it cannot begin there. It only inspects the line.
func (n *node) startOffset(line string) int {
	if n.isContent() {
		best := -1
		for _, child := range n.children {
			if off := child.startOffset(line); off >= 0 && (best < 0 || off < best) {
				best = off
			}
			// Later children of an ordered model need this one first.
			if n.ordered() && child.field.MinOccurs > 0 {
				break
			}
		}
		return best
	}

	if n.token != nil {
		m := n.token.FindStringSubmatchIndex(line)
		if m == nil {
			return -1
		}
		return m[4]
	}

	switch {
	case len(n.enums) > 0:
		best := -1
		for _, re := range n.enums {
			if m := re.FindStringSubmatchIndex(line); m != nil && (best < 0 || m[4] < best) {
				best = m[4]
			}
		}
		return best
	case n.value != nil:
		if n.value.MatchString(line) {
			return 0
		}
		return -1
	}
	return 0
}

// activeOnly drops children that may not match again.
func activeOnly(subs []*instance) []*instance {
	out := subs[:0]
	for _, sub := range subs {
		if sub.allowed > 0 {
			out = append(out, sub)
		}
	}
	return out
}
