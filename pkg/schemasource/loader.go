package schemasource

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/fieldspec"
)

// Loader produces a schema and a revision string identifying its content.
type Loader interface {
	Load(ctx context.Context) (*fieldspec.Schema, string, error)
	Name() string
}

// BuiltinLoader loads the embedded monster schema.
type BuiltinLoader struct{}

// Name returns "builtin".
func (BuiltinLoader) Name() string { return SourceBuiltin }

// Load returns the embedded schema. Its revision is "builtin".
func (BuiltinLoader) Load(ctx context.Context) (*fieldspec.Schema, string, error) {
	schema, err := fieldspec.Default()
	if err != nil {
		return nil, "", err
	}
	return schema, SourceBuiltin, nil
}

// FileLoader loads a schema file from disk.
type FileLoader struct {
	Path string
}

// Name returns "file".
func (l *FileLoader) Name() string { return SourceFile }

// Load reads and validates the file. The revision is the first twelve hex
// digits of the file's SHA-256.
func (l *FileLoader) Load(ctx context.Context) (*fieldspec.Schema, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read schema file: %w", err)
	}

	schema, err := fieldspec.LoadBytes(data, l.Path)
	if err != nil {
		return nil, "", err
	}
	schema.SourceFile = l.Path

	return schema, contentRevision(data), nil
}

func contentRevision(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:12]
}
