package fieldspec

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleSchema = `
formatVersion: "2.1"
name: creature
type: orderedContent
contentModel:
  - name: name
    type: string
    bare: true
    pattern: ".+"
  - name: hp
    type: number
    parseToken: hit points
    pattern: '(\d+)'
    matchGroup: 1
  - name: attacks
    type: unorderedContent
    minOccurs: 0
    maxOccurs: unbounded
    contentModel:
      - name: label
        type: heading
        parseToken: attack
`

func TestLoadBytes_Sample(t *testing.T) {
	schema, err := LoadBytes([]byte(sampleSchema), "sample.yaml")
	if err != nil {
		t.Fatalf("LoadBytes() failed: %v", err)
	}

	if schema.FormatVersion != "2.1" {
		t.Errorf("FormatVersion = %q, want %q", schema.FormatVersion, "2.1")
	}
	if schema.Root.Name != "creature" {
		t.Errorf("Root.Name = %q, want %q", schema.Root.Name, "creature")
	}
	if schema.Root.Type != KindOrderedContent {
		t.Errorf("Root.Type = %q, want %q", schema.Root.Type, KindOrderedContent)
	}
	if schema.FieldCount() != 5 {
		t.Errorf("FieldCount() = %d, want 5", schema.FieldCount())
	}

	// Defaults
	name := schema.Root.Child("name")
	if name == nil {
		t.Fatal("Child(name) = nil")
	}
	if name.MinOccurs != 1 || name.MaxOccurs != 1 {
		t.Errorf("name occurs = %d..%d, want 1..1", name.MinOccurs, name.MaxOccurs)
	}
	if name.Token() != "name" {
		t.Errorf("name.Token() = %q, want %q", name.Token(), "name")
	}

	hp := schema.Root.Child("hp")
	if hp.Token() != "hit points" {
		t.Errorf("hp.Token() = %q, want %q", hp.Token(), "hit points")
	}
	if hp.MatchGroup != 1 {
		t.Errorf("hp.MatchGroup = %d, want 1", hp.MatchGroup)
	}

	attacks := schema.Root.Child("attacks")
	if attacks.MaxOccurs != Unbounded {
		t.Errorf("attacks.MaxOccurs = %d, want Unbounded", attacks.MaxOccurs)
	}
	if !attacks.Repeating() {
		t.Error("attacks.Repeating() = false, want true")
	}
	if attacks.MinOccurs != 0 {
		t.Errorf("attacks.MinOccurs = %d, want 0", attacks.MinOccurs)
	}

	// Headings are always bare and never output
	label := attacks.Child("label")
	if !label.Bare || !label.SkipOutput {
		t.Errorf("heading Bare=%v SkipOutput=%v, want true/true", label.Bare, label.SkipOutput)
	}
}

func TestLoadBytes_Locations(t *testing.T) {
	schema, err := LoadBytes([]byte(sampleSchema), "sample.yaml")
	if err != nil {
		t.Fatalf("LoadBytes() failed: %v", err)
	}

	hp := schema.Root.Child("hp")
	if hp.Location.File != "sample.yaml" {
		t.Errorf("Location.File = %q, want %q", hp.Location.File, "sample.yaml")
	}
	// The sample starts with a blank line, so the hp mapping begins on line 10.
	if hp.Location.Line != 10 {
		t.Errorf("Location.Line = %d, want 10", hp.Location.Line)
	}
	if hp.Location.Column != 5 {
		t.Errorf("Location.Column = %d, want 5", hp.Location.Column)
	}
}

func TestLoadBytes_JSON(t *testing.T) {
	doc := `{
  "formatVersion": "1.0",
  "name": "root",
  "type": "unorderedContent",
  "contentModel": [
    {"name": "speed", "type": "string", "maxOccurs": "*"}
  ]
}`
	schema, err := LoadBytes([]byte(doc), "schema.json")
	if err != nil {
		t.Fatalf("LoadBytes() failed: %v", err)
	}
	if got := schema.Root.Child("speed").MaxOccurs; got != Unbounded {
		t.Errorf("MaxOccurs = %d, want Unbounded", got)
	}
}

func TestLoadBytes_SyntaxError(t *testing.T) {
	_, err := LoadBytes([]byte("name: [unclosed"), "broken.yaml")
	if err == nil {
		t.Fatal("LoadBytes() succeeded, want error")
	}

	var list *ErrorList
	if !errors.As(err, &list) {
		t.Fatalf("error type = %T, want *ErrorList", err)
	}
	if len(list.ByType(ErrorTypeSyntax)) != 1 {
		t.Errorf("syntax errors = %d, want 1", len(list.ByType(ErrorTypeSyntax)))
	}
}

func TestLoadBytes_InvalidOccurs(t *testing.T) {
	doc := `
formatVersion: "1.0"
name: root
type: orderedContent
contentModel:
  - name: a
    type: string
    maxOccurs: lots
`
	_, err := LoadBytes([]byte(doc), "occurs.yaml")
	if err == nil {
		t.Fatal("LoadBytes() succeeded, want error")
	}
	if !strings.Contains(err.Error(), "invalid occurrence bound") {
		t.Errorf("error = %v, want invalid occurrence bound", err)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creature.yaml")
	if err := os.WriteFile(path, []byte(sampleSchema), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	schema, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if schema.SourceFile != path {
		t.Errorf("SourceFile = %q, want %q", schema.SourceFile, path)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("Load() succeeded, want error")
	}

	var list *ErrorList
	if !errors.As(err, &list) {
		t.Fatalf("error type = %T, want *ErrorList", err)
	}
	if len(list.ByType(ErrorTypeIO)) != 1 {
		t.Errorf("io errors = %d, want 1", len(list.ByType(ErrorTypeIO)))
	}
}

func TestDefault(t *testing.T) {
	schema, err := Default()
	if err != nil {
		t.Fatalf("Default() failed: %v", err)
	}

	if schema.FormatVersion != "1.0" {
		t.Errorf("FormatVersion = %q, want %q", schema.FormatVersion, "1.0")
	}
	if schema.Root.Name != "monsters" {
		t.Errorf("Root.Name = %q, want %q", schema.Root.Name, "monsters")
	}

	abilities := schema.Root.Child("abilities")
	if abilities == nil || !abilities.Flatten {
		t.Fatal("abilities missing or not flattened")
	}
	if len(abilities.ContentModel) != 6 {
		t.Errorf("len(abilities) = %d, want 6", len(abilities.ContentModel))
	}

	// Aliased entry models are shared by every action list.
	for _, name := range []string{"traits", "actions", "reactions", "legendaryActions"} {
		f := schema.Root.Child(name)
		if f == nil {
			t.Errorf("Child(%q) = nil", name)
			continue
		}
		if f.Child("name") == nil || f.Child("text") == nil {
			t.Errorf("%s entries lack name/text", name)
		}
	}

	// Default is memoised.
	again, _ := Default()
	if again != schema {
		t.Error("Default() returned a different schema on the second call")
	}
}
