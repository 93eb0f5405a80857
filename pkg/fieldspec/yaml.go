package fieldspec

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// yamlSchema holds the document-level keys that are not part of the root field.
type yamlSchema struct {
	FormatVersion string `yaml:"formatVersion"`
}

// yamlField is the intermediate structure for one field declaration.
// It matches the document shape before transformation to Field.
type yamlField struct {
	Name                  string       `yaml:"name"`
	Type                  string       `yaml:"type"`
	ContentModel          []*yamlField `yaml:"contentModel"`
	Bare                  bool         `yaml:"bare"`
	ParseToken            string       `yaml:"parseToken"`
	Pattern               string       `yaml:"pattern"`
	MatchGroup            int          `yaml:"matchGroup"`
	ForPreviousMatchGroup int          `yaml:"forPreviousMatchGroup"`
	ForNextMatchGroup     int          `yaml:"forNextMatchGroup"`
	CaseSensitive         bool         `yaml:"caseSensitive"`
	EnumValues            []string     `yaml:"enumValues"`
	MinOccurs             occurs       `yaml:"minOccurs"`
	MaxOccurs             occurs       `yaml:"maxOccurs"`
	Flatten               bool         `yaml:"flatten"`
	SkipOutput            bool         `yaml:"skipOutput"`

	// Internal tracking
	line, column int
}

// UnmarshalYAML decodes the field and records its position for error reporting.
func (f *yamlField) UnmarshalYAML(node *yaml.Node) error {
	type plain yamlField
	if err := node.Decode((*plain)(f)); err != nil {
		return err
	}
	f.line, f.column = node.Line, node.Column
	return nil
}

// occurs is an occurrence bound that may be written as an integer or as
// "unbounded" / "*".
type occurs struct {
	set   bool
	value int
}

// UnmarshalYAML accepts integers and the unbounded spellings.
func (o *occurs) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: occurrence bound must be a scalar", node.Line)
	}

	switch strings.ToLower(strings.TrimSpace(node.Value)) {
	case "unbounded", "*", "infinity":
		o.set, o.value = true, Unbounded
		return nil
	}

	n, err := strconv.Atoi(strings.TrimSpace(node.Value))
	if err != nil {
		return fmt.Errorf("line %d: invalid occurrence bound %q", node.Line, node.Value)
	}
	o.set, o.value = true, n
	return nil
}

// parseYAMLFile reads and parses a schema file into the intermediate structure.
func parseYAMLFile(path string) (*yamlSchema, *yamlField, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	return parseYAMLBytes(data)
}

// parseYAMLBytes parses schema bytes into the intermediate structure.
func parseYAMLBytes(data []byte) (*yamlSchema, *yamlField, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, nil, err
	}

	if node.Kind == 0 || (node.Kind == yaml.DocumentNode && len(node.Content) == 0) {
		return nil, nil, fmt.Errorf("empty schema document")
	}

	var header yamlSchema
	if err := node.Decode(&header); err != nil {
		return nil, nil, err
	}

	var root yamlField
	if err := node.Decode(&root); err != nil {
		return nil, nil, err
	}

	return &header, &root, nil
}
