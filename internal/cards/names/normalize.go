// Package names canonicalizes raw card names into stable identity keys.
package names

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// parenGroup matches an innermost parenthesized annotation such as "(Showcase)".
	parenGroup = regexp.MustCompile(`\([^()]*\)`)

	// nonPlayablePrefix matches retailer prefixes for tokens, emblems and the like.
	// "Token Card" must be tried before "Token".
	nonPlayablePrefix = regexp.MustCompile(`(?i)^\s*(?:checklist card|token card|token|emblem|plane)\s*[-–—:]\s*`)

	quoteStripper = strings.NewReplacer(
		`"`, "",
		"“", "",
		"”", "",
	)

	nonPlayableMarkers = []string{"token", "checklist", "art card"}
)

// Normalize returns the identity key of a raw card name.
//
// Accents, double quotes, parenthesized annotations, token/emblem prefixes,
// " - " suffixes and the right face of split cards are removed. Case is
// preserved. The result is idempotent: Normalize(Normalize(s)) == Normalize(s).
// An empty result means the name cannot be resolved.
func Normalize(raw string) string {
	s := raw
	for {
		next := normalizeOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

// normalizeOnce applies each cleanup step a single time. Steps can expose
// work for earlier ones ("Token - Emblem: X"), so Normalize repeats it.
// Every step only removes text, which bounds the loop.
func normalizeOnce(raw string) string {
	s := stripMarks(raw)
	s = quoteStripper.Replace(s)

	for {
		stripped := parenGroup.ReplaceAllString(s, "")
		if stripped == s {
			break
		}
		s = stripped
	}

	s = nonPlayablePrefix.ReplaceAllString(s, "")

	if i := strings.Index(s, " - "); i >= 0 {
		s = s[:i]
	}

	if i := strings.Index(s, "//"); i >= 0 {
		s = s[:i]
	}

	return norm.NFC.String(strings.TrimSpace(s))
}

// Key returns the lowercase form of Normalize, used wherever names are compared.
func Key(raw string) string {
	return strings.ToLower(Normalize(raw))
}

// Equal reports whether two raw names refer to the same card.
func Equal(a, b string) bool {
	return Key(a) == Key(b)
}

// IsNonPlayable reports whether a raw retailer name describes a token,
// checklist or art card rather than a playable card.
func IsNonPlayable(raw string) bool {
	lower := strings.ToLower(raw)
	for _, marker := range nonPlayableMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// stripMarks decomposes s (NFD) and drops the combining marks.
func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
