// Package normalize cleans up pasted statblock text before it is parsed.
//
// The parser expects one logical entry per line with ordinary ASCII
// punctuation. Text copied out of PDFs and web pages often carries ligatures,
// typographic dashes and quotes, stray control characters and doubled spaces.
// A Normalizer removes those without changing the words themselves: it never
// joins or splits words, so text that already lost its word boundaries stays
// broken.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalizer rewrites raw statblock text into the form the parser expects.
type Normalizer interface {
	Normalize(text string) string
}

// Func adapts an ordinary function to the Normalizer interface.
type Func func(string) string

// Normalize calls f(text).
func (f Func) Normalize(text string) string {
	return f(text)
}

// Identity returns text unchanged. It is used when normalization is
// disabled in configuration.
var Identity Normalizer = Func(func(text string) string { return text })

// punctuation maps typographic characters to their ASCII equivalents.
// The right single quote is left alone: schema patterns accept it in names
// such as "Dragon’s Breath".
var punctuation = strings.NewReplacer(
	"‐", "-", // hyphen
	"‑", "-", // non-breaking hyphen
	"‒", "-", // figure dash
	"–", "-", // en dash
	"—", "-", // em dash
	"−", "-", // minus sign
	"‘", "'",
	"“", `"`,
	"”", `"`,
	"\u00ad", "", // soft hyphen
)

type defaultNormalizer struct{}

// Default returns the standard cleanup chain:
//
//  1. NFKC composition (ligatures such as "ﬁ" become "fi")
//  2. typographic dashes and quotes to ASCII
//  3. CRLF and lone CR to LF
//  4. control characters other than newline and tab removed
//  5. runs of spaces and tabs collapsed to one space, lines trimmed
func Default() Normalizer {
	return defaultNormalizer{}
}

// Normalize implements Normalizer.
func (defaultNormalizer) Normalize(text string) string {
	text = norm.NFKC.String(text)
	text = punctuation.Replace(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = cleanLine(line)
	}
	return strings.Join(lines, "\n")
}

// cleanLine drops control characters and collapses blank runs on one line.
func cleanLine(line string) string {
	var sb strings.Builder
	sb.Grow(len(line))

	blank := false
	for _, r := range line {
		switch {
		case r == '\t' || unicode.IsSpace(r):
			blank = true
			continue
		case unicode.IsControl(r):
			continue
		}
		if blank && sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		blank = false
		sb.WriteRune(r)
	}
	return sb.String()
}

// Chain applies normalizers in order.
func Chain(normalizers ...Normalizer) Normalizer {
	return Func(func(text string) string {
		for _, n := range normalizers {
			text = n.Normalize(text)
		}
		return text
	})
}
