package models

import (
	"fmt"
	"strings"
	"time"
)

// AnySet marks a card that matches any printing.
const AnySet = "Any"

// UnnamedDeck is used when a deck name is too short to keep.
const UnnamedDeck = "Unnamed Deck"

// minDeckNameLength is the shortest accepted deck name, after trimming.
const minDeckNameLength = 3

// Card types produced by classification.
const (
	TypeArtifact     = "Artifact"
	TypeCreature     = "Creature"
	TypeEnchantment  = "Enchantment"
	TypeInstant      = "Instant"
	TypeLand         = "Land"
	TypePlaneswalker = "Planeswalker"
	TypeSorcery      = "Sorcery"
	TypeUnknown      = "Unknown"
)

// CardAttributes are the reference attributes copied onto owned and deck cards.
type CardAttributes struct {
	Name     string   `json:"name"`
	Colors   []string `json:"colors"`
	Type     string   `json:"type"`
	Price    *float64 `json:"price"` // nil = untracked, never zero
	ImageURL string   `json:"imageUrl,omitempty"`
	SetCode  string   `json:"setCode,omitempty"`
	SetName  string   `json:"setName,omitempty"`
}

// PriceLabel renders the price for display, "n/a" when untracked.
func (a CardAttributes) PriceLabel() string {
	if a.Price == nil {
		return "n/a"
	}
	return fmt.Sprintf("$%.2f", *a.Price)
}

// CollectionCard is a user-owned entry.
type CollectionCard struct {
	Identity string `json:"identity"`
	CardAttributes
	Set             string `json:"set"` // resolved set code or AnySet
	QuantityOwned   int    `json:"quantityOwned"`
	Rarity          string `json:"rarity,omitempty"`
	CollectorNumber string `json:"collectorNumber,omitempty"`
	Foil            bool   `json:"foil,omitempty"`
	ExternalID      string `json:"externalId,omitempty"`
}

// Key identifies the card within a user's collection: identity plus set,
// case-insensitive.
func (c *CollectionCard) Key() string {
	return CardKey(c.Identity, c.Set)
}

// CardKey builds the storage key for an identity and set.
func CardKey(identity, set string) string {
	if set == "" {
		set = AnySet
	}
	return strings.ToLower(identity) + "|" + strings.ToLower(set)
}

// DeckCard is a card wanted by a deck.
type DeckCard struct {
	Identity string `json:"identity"`
	CardAttributes
	Set            string `json:"set"`
	QuantityNeeded int    `json:"quantityNeeded"`
	QuantityOwned  int    `json:"quantityOwned"` // derived, stale until the next save
}

// Format is a deck format.
type Format string

const (
	FormatCommander Format = "Commander"
	FormatStandard  Format = "Standard"
	FormatDraft     Format = "Draft"
)

// Formats lists every supported format.
var Formats = []Format{FormatCommander, FormatStandard, FormatDraft}

// RequiredSize returns the exact card count the format demands.
func (f Format) RequiredSize() int {
	switch f {
	case FormatCommander:
		return 100
	case FormatStandard:
		return 60
	case FormatDraft:
		return 40
	default:
		return 0
	}
}

// Valid reports whether f is a known format.
func (f Format) Valid() bool {
	return f.RequiredSize() > 0
}

// ParseFormat parses a format name case-insensitively.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if strings.EqualFold(strings.TrimSpace(s), string(f)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown deck format %q", s)
}

// Deck is a named card list. ID is empty until the first save.
type Deck struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Format        Format      `json:"format"`
	Description   string      `json:"description,omitempty"`
	ColorIdentity []string    `json:"colorIdentity"`
	TotalCost     float64     `json:"totalCost"`
	Cards         []*DeckCard `json:"cards"`
	CreatedAt     time.Time   `json:"createdAt"`
	ModifiedAt    time.Time   `json:"modifiedAt"`
}

// IsDraft reports whether the deck has never been saved.
func (d *Deck) IsDraft() bool {
	return d.ID == ""
}

// DeckName returns name trimmed, or UnnamedDeck when it is too short.
func DeckName(name string) string {
	trimmed := strings.TrimSpace(name)
	if len([]rune(trimmed)) < minDeckNameLength {
		return UnnamedDeck
	}
	return trimmed
}
