package fieldspec

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sync"
)

//go:embed schemas/*.yaml
var builtinSchemas embed.FS

// DefaultSchemaPath is the name of the built-in monster schema.
const DefaultSchemaPath = "schemas/monster.yaml"

var (
	defaultOnce   sync.Once
	defaultSchema *Schema
	defaultErr    error
)

// Load reads, builds and validates a schema file.
func Load(path string) (*Schema, error) {
	header, root, err := parseYAMLFile(path)
	if err != nil {
		return nil, wrapParseError(err, path)
	}
	return build(header, root, path)
}

// LoadBytes builds and validates a schema from YAML or JSON bytes.
// sourcePath is only used for error locations.
func LoadBytes(data []byte, sourcePath string) (*Schema, error) {
	header, root, err := parseYAMLBytes(data)
	if err != nil {
		return nil, wrapParseError(err, sourcePath)
	}
	return build(header, root, sourcePath)
}

// Default returns the built-in 5e monster schema. The schema is loaded once
// and shared; callers must not modify it.
func Default() (*Schema, error) {
	defaultOnce.Do(func() {
		data, err := builtinSchemas.ReadFile(DefaultSchemaPath)
		if err != nil {
			defaultErr = fmt.Errorf("failed to read built-in schema: %w", err)
			return
		}
		defaultSchema, defaultErr = LoadBytes(data, DefaultSchemaPath)
	})
	return defaultSchema, defaultErr
}

// MustDefault is like Default but panics on error.
func MustDefault() *Schema {
	s, err := Default()
	if err != nil {
		panic(fmt.Sprintf("fieldspec: built-in schema is invalid: %v", err))
	}
	return s
}

func build(header *yamlSchema, root *yamlField, sourcePath string) (*Schema, error) {
	schema := newBuilder(sourcePath).buildSchema(header, root)
	if err := Validate(schema); err != nil {
		return nil, err
	}
	return schema, nil
}

// wrapParseError converts YAML and I/O failures into an ErrorList.
func wrapParseError(err error, path string) error {
	errType := ErrorTypeSyntax
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		errType = ErrorTypeIO
	}

	list := NewErrorList()
	list.Add(&Error{
		Type:     errType,
		Message:  err.Error(),
		Location: Location{File: path},
	})
	return list
}
