// Package cardref resolves card names to reference attributes using the
// bulk index first and the Scryfall oracle as a fallback.
package cardref

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/ramonehamilton/MTG-Collection/internal/cards/names"
	"github.com/ramonehamilton/MTG-Collection/internal/cards/scryfall"
	"github.com/ramonehamilton/MTG-Collection/internal/storage/models"
)

// Record is a resolved reference card. Records are never mutated after
// they are built.
type Record struct {
	models.CardAttributes
	ExternalID string `json:"externalId,omitempty"`
}

// colorOrder is the display order for mana colors.
var colorOrder = []string{"W", "U", "B", "R", "G"}

var manaSymbol = regexp.MustCompile(`\{([^{}]*)\}`)

var basicLands = map[string]bool{
	"plains":                true,
	"island":                true,
	"swamp":                 true,
	"mountain":              true,
	"forest":                true,
	"wastes":                true,
	"snow-covered plains":   true,
	"snow-covered island":   true,
	"snow-covered swamp":    true,
	"snow-covered mountain": true,
	"snow-covered forest":   true,
	"snow-covered wastes":   true,
}

// FromScryfall maps an oracle or bulk card onto a Record.
func FromScryfall(card *scryfall.Card) *Record {
	if card == nil {
		return nil
	}

	manaCost := card.ManaCost
	typeLine := card.TypeLine
	image := ""
	if card.ImageURIs != nil {
		image = card.ImageURIs.Normal
	}

	if len(card.CardFaces) > 0 {
		front := card.CardFaces[0]
		if manaCost == "" {
			manaCost = front.ManaCost
		}
		if typeLine == "" {
			typeLine = front.TypeLine
		}
		if image == "" && front.ImageURIs != nil {
			image = front.ImageURIs.Normal
		}
	}

	rec := &Record{
		CardAttributes: models.CardAttributes{
			Name:     card.Name,
			Colors:   ParseManaColors(manaCost),
			Type:     ClassifyType(card.Name, typeLine),
			Price:    ParsePrice(card.Prices.USD),
			ImageURL: image,
			SetCode:  strings.ToLower(card.SetCode),
			SetName:  card.SetName,
		},
	}
	if card.TCGPlayerID != nil {
		rec.ExternalID = strconv.Itoa(*card.TCGPlayerID)
	}

	return rec
}

// ParseManaColors extracts the distinct single-letter colors from a mana
// cost such as "{2}{U}{U}", in WUBRG order. Hybrid and generic symbols are
// ignored.
func ParseManaColors(cost string) []string {
	seen := make(map[string]bool)
	for _, m := range manaSymbol.FindAllStringSubmatch(cost, -1) {
		seen[strings.ToUpper(m[1])] = true
	}

	colors := make([]string, 0, len(seen))
	for _, c := range colorOrder {
		if seen[c] {
			colors = append(colors, c)
		}
	}
	return colors
}

// SortColors returns colors deduplicated in WUBRG order, dropping anything
// that is not a color letter.
func SortColors(colors []string) []string {
	seen := make(map[string]bool, len(colors))
	for _, c := range colors {
		seen[strings.ToUpper(c)] = true
	}

	out := make([]string, 0, len(seen))
	for _, c := range colorOrder {
		if seen[c] {
			out = append(out, c)
		}
	}
	return out
}

// ClassifyType reduces a type line to one primary type. Precedence:
//
//  1. basic land names are Land;
//  2. the first word of the front face's type line, before the em-dash;
//  3. Legendary becomes Creature, Instant becomes Sorcery, Basic becomes Land;
//  4. Artifact, Creature, Enchantment, Sorcery, Land and Planeswalker map to themselves;
//  5. anything else is Unknown.
func ClassifyType(name, typeLine string) string {
	if basicLands[names.Key(name)] {
		return models.TypeLand
	}

	front := typeLine
	if i := strings.Index(front, "//"); i >= 0 {
		front = front[:i]
	}
	if i := strings.Index(front, "—"); i >= 0 {
		front = front[:i]
	}

	fields := strings.Fields(front)
	if len(fields) == 0 {
		return models.TypeUnknown
	}

	switch strings.ToLower(fields[0]) {
	case "legendary", "creature":
		return models.TypeCreature
	case "instant", "sorcery":
		return models.TypeSorcery
	case "basic", "land":
		return models.TypeLand
	case "artifact":
		return models.TypeArtifact
	case "enchantment":
		return models.TypeEnchantment
	case "planeswalker":
		return models.TypePlaneswalker
	default:
		return models.TypeUnknown
	}
}

// ParsePrice parses a decimal price string. Missing or non-numeric prices
// are untracked (nil), never zero.
func ParsePrice(s *string) *float64 {
	if s == nil {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(*s), 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// cacheKey keys a record by identity and optional set.
func cacheKey(identity, set string) string {
	return strings.ToLower(identity) + "|" + strings.ToLower(set)
}
