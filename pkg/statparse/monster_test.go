package statparse

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/fieldspec"
)

const goblin = `Goblin
Small humanoid (goblinoid), neutral evil
Armor Class 15 (leather armor, shield)
Hit Points 7 (2d6)
Speed 30 ft.
STR DEX CON INT WIS CHA
8 (-1) 14 (+2) 10 (+0) 10 (+0) 8 (-1) 8 (-1)
Skills Stealth +6
Senses darkvision 60 ft., passive Perception 9
Languages Common, Goblin
Challenge 1/4 (50 XP)
Nimble Escape. The goblin can take the Disengage or Hide action as a bonus
action on each of its turns.
Actions
Scimitar. Melee Weapon Attack: +4 to hit, reach 5 ft., one target. Hit: 5 (1d6 + 2) slashing damage.
Shortbow. Ranged Weapon Attack: +4 to hit, range 80/320 ft., one target. Hit: 5 (1d6 + 2) piercing damage.
`

func defaultParser(t *testing.T) *Parser {
	t.Helper()

	schema, err := fieldspec.Default()
	if err != nil {
		t.Fatalf("Default() failed: %v", err)
	}
	p, err := New(schema)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return p
}

func TestParse_DefaultSchemaGoblin(t *testing.T) {
	p := defaultParser(t)

	result, err := p.Parse(context.Background(), goblin)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	records := Records(result, "monsters")
	if len(records) != 1 {
		t.Fatalf("len(monsters) = %d, want 1", len(records))
	}
	m := records[0]

	texts := map[string]string{
		"name":      "Goblin",
		"size":      "Small",
		"type":      "humanoid (goblinoid)",
		"alignment": "neutral evil",
		"ac":        "15 (leather armor, shield)",
		"hp":        "7 (2d6)",
		"speed":     "30 ft.",
		"skills":    "Stealth +6",
		"senses":    "darkvision 60 ft., passive Perception 9",
		"languages": "Common, Goblin",
	}
	for field, want := range texts {
		if m[field] != want {
			t.Errorf("%s = %#v, want %q", field, m[field], want)
		}
	}

	// Abilities are flattened into the monster.
	abilities := map[string]int{
		"strength": 8, "dexterity": 14, "constitution": 10,
		"intelligence": 10, "wisdom": 8, "charisma": 8,
	}
	for field, want := range abilities {
		if m[field] != want {
			t.Errorf("%s = %#v, want %d", field, m[field], want)
		}
	}
	if _, ok := m["abilities"]; ok {
		t.Error("flattened abilities written as a nested object")
	}

	if m["challenge"] != 0.25 {
		t.Errorf("challenge = %#v, want 0.25", m["challenge"])
	}

	wantTraits := []any{
		map[string]any{
			"name": "Nimble Escape",
			"text": "The goblin can take the Disengage or Hide action as a bonus action on each of its turns.",
		},
	}
	if !reflect.DeepEqual(m["traits"], wantTraits) {
		t.Errorf("traits = %#v, want %#v", m["traits"], wantTraits)
	}

	actions, ok := m["actions"].([]any)
	if !ok || len(actions) != 2 {
		t.Fatalf("actions = %#v, want 2 entries", m["actions"])
	}
	if name := actions[1].(map[string]any)["name"]; name != "Shortbow" {
		t.Errorf("actions[1].name = %q, want %q", name, "Shortbow")
	}
	if _, ok := m["actionsHeading"]; ok {
		t.Error("heading written to the output")
	}
}

func TestParse_Idempotent(t *testing.T) {
	p := defaultParser(t)

	first, err := p.Parse(context.Background(), goblin)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	second, err := p.Parse(context.Background(), goblin)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("second parse differs:\n first = %#v\nsecond = %#v", first, second)
	}
}

func TestParse_DefaultSchemaMissingHP(t *testing.T) {
	p := defaultParser(t)

	input := strings.Replace(goblin, "Hit Points 7 (2d6)\n", "", 1)
	_, err := p.Parse(context.Background(), input)

	var missing *MissingContentError
	if !errors.As(err, &missing) {
		t.Fatalf("Parse() error = %v, want *MissingContentError", err)
	}
	want := []MissingField{{Name: "hp", Path: "monsters[0]", Required: 1}}
	if !reflect.DeepEqual(missing.Missing, want) {
		t.Errorf("Missing = %+v, want %+v", missing.Missing, want)
	}

	var bad *BadValueError
	if errors.As(err, &bad) {
		t.Errorf("unexpected BadValueError: %v", bad)
	}
	if errors.Is(err, ErrNoMatch) {
		t.Errorf("unexpected ErrNoMatch: %v", err)
	}
}

func TestParse_DefaultSchemaAbilityOrder(t *testing.T) {
	p := defaultParser(t)

	input := strings.Replace(goblin,
		"STR DEX CON INT WIS CHA\n8 (-1) 14 (+2)",
		"DEX STR CON INT WIS CHA\n14 (+2) 8 (-1)", 1)
	result, err := p.Parse(context.Background(), input)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	m := Records(result, "monsters")[0]
	if m["strength"] != 8 || m["dexterity"] != 14 {
		t.Errorf("strength, dexterity = %#v, %#v, want 8, 14", m["strength"], m["dexterity"])
	}
}
