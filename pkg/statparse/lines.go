package statparse

import "strings"

// lineBuffer is the shrinking list of input lines shared by every parser
// instance during one run. The head line is consumed from the front as
// fields claim text.
type lineBuffer struct {
	lines []string
}

// SplitLines splits text into trimmed, non-empty lines.
func SplitLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func newLineBuffer(lines []string) *lineBuffer {
	buf := &lineBuffer{lines: make([]string, 0, len(lines))}
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			buf.lines = append(buf.lines, l)
		}
	}
	return buf
}

func (b *lineBuffer) empty() bool {
	return len(b.lines) == 0
}

func (b *lineBuffer) len() int {
	return len(b.lines)
}

// head returns the first remaining line, or "" if none remain.
func (b *lineBuffer) head() string {
	if b.empty() {
		return ""
	}
	return b.lines[0]
}

// at returns the i-th remaining line.
func (b *lineBuffer) at(i int) (string, bool) {
	if i < 0 || i >= len(b.lines) {
		return "", false
	}
	return b.lines[i], true
}

// set replaces the i-th line, dropping it when nothing but whitespace is left.
func (b *lineBuffer) set(i int, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		b.lines = append(b.lines[:i], b.lines[i+1:]...)
		return
	}
	b.lines[i] = text
}

// setHead replaces the head line; see set.
func (b *lineBuffer) setHead(text string) {
	b.set(0, text)
}

// shift removes and returns the head line.
func (b *lineBuffer) shift() string {
	if b.empty() {
		return ""
	}
	head := b.lines[0]
	b.lines = b.lines[1:]
	return head
}

// prepend splices text in front of the head line.
func (b *lineBuffer) prepend(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if b.empty() {
		b.lines = []string{text}
		return
	}
	b.lines[0] = text + " " + b.lines[0]
}

// snapshot copies the buffer so a failed attempt can be rolled back.
func (b *lineBuffer) snapshot() []string {
	return append([]string(nil), b.lines...)
}

func (b *lineBuffer) restore(lines []string) {
	b.lines = lines
}

// remaining returns a copy of the unconsumed lines.
func (b *lineBuffer) remaining() []string {
	return b.snapshot()
}
