package normalize

import (
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain text untouched",
			input: "Goblin\nSmall humanoid (goblinoid), neutral evil",
			want:  "Goblin\nSmall humanoid (goblinoid), neutral evil",
		},
		{
			name:  "ligatures decomposed",
			input: "ﬁghting style",
			want:  "fighting style",
		},
		{
			name:  "typographic dashes",
			input: "Hit: 5 (1d6 − 1) — or – more",
			want:  "Hit: 5 (1d6 - 1) - or - more",
		},
		{
			name:  "curly double quotes",
			input: "“quoted”",
			want:  `"quoted"`,
		},
		{
			name:  "right single quote kept",
			input: "Dragon’s Breath",
			want:  "Dragon’s Breath",
		},
		{
			name:  "crlf and lone cr",
			input: "a\r\nb\rc",
			want:  "a\nb\nc",
		},
		{
			name:  "control characters stripped",
			input: "Armor\x00 Class\x07 15",
			want:  "Armor Class 15",
		},
		{
			name:  "runs of blanks collapsed and trimmed",
			input: "  Hit   Points\t\t7  ",
			want:  "Hit Points 7",
		},
		{
			name:  "non-breaking space",
			input: "Speed\u00a030 ft.",
			want:  "Speed 30 ft.",
		},
		{
			name:  "soft hyphen removed",
			input: "Multi\u00adattack",
			want:  "Multiattack",
		},
		{
			name:  "broken word boundaries stay broken",
			input: "HitPoints 7",
			want:  "HitPoints 7",
		},
	}

	n := Default()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := n.Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDefault_Idempotent(t *testing.T) {
	input := "ﬁ— Armor\u00a0Class   15\r\n“x”"
	n := Default()
	once := n.Normalize(input)
	if twice := n.Normalize(once); twice != once {
		t.Errorf("Normalize not idempotent: %q then %q", once, twice)
	}
}

func TestChain(t *testing.T) {
	upper := Func(strings.ToUpper)
	suffix := Func(func(s string) string { return s + "!" })

	got := Chain(Default(), upper, suffix).Normalize("  a — b ")
	if got != "A - B!" {
		t.Errorf("Chain() = %q, want %q", got, "A - B!")
	}
}

func TestIdentity(t *testing.T) {
	input := "  keep—me  "
	if got := Identity.Normalize(input); got != input {
		t.Errorf("Identity.Normalize() = %q, want %q", got, input)
	}
}
