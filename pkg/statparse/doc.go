// Package statparse turns free-form statblock text into a structured record
// tree, driven entirely by a fieldspec schema.
//
// # Parsing Model
//
// Input is split into trimmed, non-empty lines. The root content model tries
// its children against the head of the remaining lines:
//
//   - Token fields announce themselves with a parse token found anywhere in
//     the line. Text before the token belongs to the field that was still
//     collecting text; text after it is collected, line by line, until the
//     next field starts. Only then is it checked against the field's pattern.
//     A field whose leading text has no open field to go to does not start.
//   - Bare fields have no token. Their pattern must match at the head of the
//     line and the value is taken immediately. Capture groups may hand text
//     back to the previous field or forward to the next one. A bare value
//     that later collects more lines is validated again as a whole.
//   - Ordered content matches children strictly left to right; once a child
//     matches, earlier siblings are closed. After the first match a required
//     child that cannot match is passed over and reported as missing.
//     Unordered content matches children in any order up to their
//     maxOccurs, taking whichever child starts earliest on the line.
//
// A field that cannot finish on the current line waits on an incomplete
// stack. When no field can claim the next line, the most recent waiting
// field takes it whole. When a later field starts, or input runs out, the
// waiting fields are finished innermost first: their text is validated,
// converted and written to the output tree.
//
// # Usage
//
//	schema, err := fieldspec.Default()
//	if err != nil {
//	    return err
//	}
//	parser, err := statparse.New(schema, statparse.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	result, err := parser.Parse(ctx, text)
//
// # Errors
//
// Problems are collected for the whole run rather than returned at the
// first failure. The returned error may wrap several *BadValueError values,
// one *MissingContentError listing every field short of its minOccurs, and
// ErrNoMatch when input was left that nothing could interpret.
package statparse
