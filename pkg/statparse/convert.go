package statparse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/fieldspec"
)

var fractionPattern = regexp.MustCompile(`^([-+]?\d+)\s*/\s*(\d+)$`)

// finish converts the collected text of a leaf into its output value.
// A nil value with a nil error means there is nothing to write.
func (n *node) finish(text string, extracted bool) (any, *BadValueError) {
	text = strings.TrimSpace(text)

	// Token fields are checked against their pattern only now that all of
	// their text has been collected.
	if n.final != nil && !extracted {
		m := n.final.FindStringSubmatch(text)
		if m == nil {
			return nil, &BadValueError{Field: n.field.Name, Value: text, Pattern: n.field.Pattern}
		}
		text = strings.TrimSpace(m[n.field.MatchGroup])
	}

	if text == "" {
		return nil, nil
	}

	value, ok := n.convert(n, text)
	if !ok {
		return nil, &BadValueError{Field: n.field.Name, Value: text, Pattern: describeKind(n)}
	}
	return value, nil
}

func convertString(_ *node, text string) (any, bool) {
	return text, true
}

// convertInteger accepts a plain integer.
func convertInteger(_ *node, text string) (any, bool) {
	v, err := strconv.Atoi(text)
	if err != nil {
		return nil, false
	}
	return v, true
}

// convertNumber accepts an integer or an a/b fraction. Fractions convert to
// their float64 ratio; a zero denominator is rejected.
func convertNumber(n *node, text string) (any, bool) {
	if v, ok := convertInteger(n, text); ok {
		return v, true
	}

	m := fractionPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	num, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, false
	}
	den, err := strconv.Atoi(m[2])
	if err != nil || den == 0 {
		return nil, false
	}
	return float64(num) / float64(den), true
}

// convertEnum normalises the text to the declared literal it equals,
// ignoring case. Anything else, including a bare match that later had text
// added to it, is rejected.
func convertEnum(n *node, text string) (any, bool) {
	for _, literal := range n.field.EnumValues {
		if strings.EqualFold(literal, text) {
			return literal, true
		}
	}
	return nil, false
}

// describeKind names the expected shape for conversion failures.
func describeKind(n *node) string {
	switch n.field.Type {
	case fieldspec.KindNumber:
		return "an integer or fraction"
	case fieldspec.KindAbility:
		return "an ability score"
	case fieldspec.KindEnum:
		return "one of [" + strings.Join(n.field.EnumValues, ", ") + "]"
	}
	if n.field.Pattern != "" {
		return n.field.Pattern
	}
	return string(n.field.Type)
}
