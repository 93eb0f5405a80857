package fieldspec

// builder turns intermediate YAML fields into Field values, applying
// defaults and preserving source locations.
type builder struct {
	sourcePath string
}

// newBuilder creates a builder for the given source file.
func newBuilder(sourcePath string) *builder {
	return &builder{sourcePath: sourcePath}
}

// buildSchema transforms the parsed document into a Schema.
func (b *builder) buildSchema(header *yamlSchema, root *yamlField) *Schema {
	return &Schema{
		FormatVersion: header.FormatVersion,
		Root:          b.buildField(root),
		SourceFile:    b.sourcePath,
	}
}

// buildField transforms one yamlField and its children.
func (b *builder) buildField(yf *yamlField) *Field {
	field := &Field{
		Name:                  yf.Name,
		Type:                  Kind(yf.Type),
		Bare:                  yf.Bare,
		ParseToken:            yf.ParseToken,
		Pattern:               yf.Pattern,
		MatchGroup:            yf.MatchGroup,
		ForPreviousMatchGroup: yf.ForPreviousMatchGroup,
		ForNextMatchGroup:     yf.ForNextMatchGroup,
		CaseSensitive:         yf.CaseSensitive,
		EnumValues:            yf.EnumValues,
		MinOccurs:             1,
		MaxOccurs:             1,
		Flatten:               yf.Flatten,
		SkipOutput:            yf.SkipOutput,
		Location: Location{
			File:   b.sourcePath,
			Line:   yf.line,
			Column: yf.column,
		},
	}

	if yf.MinOccurs.set {
		field.MinOccurs = yf.MinOccurs.value
	}
	if yf.MaxOccurs.set {
		field.MaxOccurs = yf.MaxOccurs.value
	}

	// Headings are label text only
	if field.Type == KindHeading {
		field.Bare = true
		field.SkipOutput = true
	}

	if len(yf.ContentModel) > 0 {
		field.ContentModel = make([]*Field, 0, len(yf.ContentModel))
		for _, child := range yf.ContentModel {
			if child == nil {
				continue
			}
			field.ContentModel = append(field.ContentModel, b.buildField(child))
		}
	}

	return field
}
