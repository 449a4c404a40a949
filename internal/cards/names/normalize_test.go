package names

import (
	"testing"
	"unicode/utf8"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", "Brainstorm", "Brainstorm"},
		{"parenthetical", "Brainstorm (Foil)", "Brainstorm"},
		{"multiple parentheticals", "Lightning Bolt (Showcase) (Extended Art)", "Lightning Bolt"},
		{"nested parentheticals", "Opt ((Retro))", "Opt"},
		{"split card", "Fire // Ice", "Fire"},
		{"transform card", "Delver of Secrets//Insectile Aberration", "Delver of Secrets"},
		{"dash suffix", "Sol Ring - Commander Collection", "Sol Ring"},
		{"token prefix", "Token - Soldier", "Soldier"},
		{"token card prefix", "Token Card - Goblin", "Goblin"},
		{"checklist prefix", "Checklist Card - Innistrad", "Innistrad"},
		{"emblem prefix", "Emblem: Chandra", "Chandra"},
		{"plane prefix case insensitive", "PLANE - Tazeem", "Tazeem"},
		{"repeated colon prefix", "Token:Token: Zombie", "Zombie"},
		{"prefix exposed by dash cut", "Token - Emblem: Chandra", "Chandra"},
		{"stacked prefixes", "Emblem: Plane: Tazeem", "Tazeem"},
		{"planeswalker is not a prefix", "Planeswalker's Mirth", "Planeswalker's Mirth"},
		{"accents", "Lim-Dûl's Vault", "Lim-Dul's Vault"},
		{"decomposed accents", "Séance", "Seance"},
		{"quotes", `"Ach! Hans, Run!"`, "Ach! Hans, Run!"},
		{"typographic quotes", "“Lifetime” Pass Holder", "Lifetime Pass Holder"},
		{"whitespace", "   Counterspell  ", "Counterspell"},
		{"case preserved", "lightning BOLT", "lightning BOLT"},
		{"empty", "", ""},
		{"only annotation", "(Foil)", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.raw); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

var idempotenceInputs = []string{
	"Brainstorm (Foil)",
	"Fire // Ice",
	"Token Card - Goblin",
	"Token -Token - Soldier",
	"A \"- B",
	"Emblem: - Chandra",
	"Jötun Grunt (Coldsnap Theme Deck)",
	"(x)Token - Bird // Other",
	"   ",
	"Æther Vial",
	"Ponder - Ponder - Ponder",
	"Déjà Vu // Cliché",
	"Token:Token: Zombie",
	"Token - Emblem: Chandra",
	"Emblem: Plane: Tazeem",
}

func TestNormalize_Idempotent(t *testing.T) {
	for _, in := range idempotenceInputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func FuzzNormalize(f *testing.F) {
	for _, in := range idempotenceInputs {
		f.Add(in)
	}

	f.Fuzz(func(t *testing.T, in string) {
		if !utf8.ValidString(in) {
			t.Skip()
		}
		once := Normalize(in)
		if twice := Normalize(once); once != twice {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	})
}

func TestNormalize_Equivalence(t *testing.T) {
	pairs := [][2]string{
		{"Brainstorm (Foil)", "Brainstorm"},
		{"Fire // Ice", "Fire"},
		{"Lim-Dûl's Vault", "Lim-Dul's Vault"},
	}

	for _, p := range pairs {
		if Normalize(p[0]) != Normalize(p[1]) {
			t.Errorf("Normalize(%q) != Normalize(%q)", p[0], p[1])
		}
	}
}

func TestKeyAndEqual(t *testing.T) {
	if Key("Lightning Bolt (Foil)") != "lightning bolt" {
		t.Errorf("Key() = %q", Key("Lightning Bolt (Foil)"))
	}

	if !Equal("JÖTUN GRUNT", "jotun grunt") {
		t.Error("Equal should ignore case and accents")
	}

	if Equal("Shock", "Shocker") {
		t.Error("Equal should not match different names")
	}
}

func TestIsNonPlayable(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"Checklist Card - Foo", true},
		{"Soldier Token", true},
		{"TOKEN - Goblin", true},
		{"Art Card: Sheoldred", true},
		{"Lightning Bolt", false},
		{"Island", false},
	}

	for _, tt := range tests {
		if got := IsNonPlayable(tt.raw); got != tt.want {
			t.Errorf("IsNonPlayable(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}
