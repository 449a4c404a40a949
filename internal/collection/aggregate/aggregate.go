// Package aggregate derives owned quantities and summaries from collection
// and deck card lists. Every function is pure.
package aggregate

import (
	"strings"

	"github.com/montanaflynn/stats"

	"github.com/ramonehamilton/MTG-Collection/internal/cards/cardref"
	"github.com/ramonehamilton/MTG-Collection/internal/cards/names"
	"github.com/ramonehamilton/MTG-Collection/internal/storage/models"
)

// SummaryTypes is the fixed display order of the deck type summary.
var SummaryTypes = []string{
	models.TypeArtifact,
	models.TypeCreature,
	models.TypeEnchantment,
	models.TypeInstant,
	models.TypeLand,
	models.TypeSorcery,
}

// CollectionSummary totals a collection.
type CollectionSummary struct {
	Size        int     `json:"size"`
	Value       float64 `json:"value"`
	Unpriced    int     `json:"unpriced"`
	MedianPrice float64 `json:"medianPrice"`
}

// TypeCount is one row of a deck type summary.
type TypeCount struct {
	Type           string `json:"type"`
	QuantityNeeded int    `json:"quantityNeeded"`
	QuantityOwned  int    `json:"quantityOwned"`
}

// ownedIndex groups owned cards by lowercased identity.
type ownedIndex map[string][]*models.CollectionCard

func indexOwned(owned []*models.CollectionCard) ownedIndex {
	idx := make(ownedIndex, len(owned))
	for _, c := range owned {
		if c == nil {
			continue
		}
		key := names.Key(c.Identity)
		idx[key] = append(idx[key], c)
	}
	return idx
}

// count sums the owned copies of identity. With matchBySet, a set-specific
// card only counts copies of that set.
func (idx ownedIndex) count(identity, set string, matchBySet bool) int {
	specific := matchBySet && !isAnySet(set)

	total := 0
	for _, c := range idx[names.Key(identity)] {
		if specific && !strings.EqualFold(c.Set, set) {
			continue
		}
		total += c.QuantityOwned
	}
	return total
}

func isAnySet(set string) bool {
	set = strings.TrimSpace(set)
	return set == "" || strings.EqualFold(set, models.AnySet)
}

// MergeOwnedQuantities returns copies of cards with QuantityOwned set from
// owned. Cards match by normalized name and, when matchBySet is true and the
// card names a specific set, by set as well.
func MergeOwnedQuantities(cards []*models.DeckCard, owned []*models.CollectionCard, matchBySet bool) []*models.DeckCard {
	idx := indexOwned(owned)

	out := make([]*models.DeckCard, 0, len(cards))
	for _, c := range cards {
		if c == nil {
			continue
		}
		merged := *c
		merged.QuantityOwned = idx.count(c.Identity, c.Set, matchBySet)
		out = append(out, &merged)
	}
	return out
}

// MergeCollection applies an import to a stored collection. Imported cards
// replace stored cards with the same key; other stored cards are kept in
// place and new cards are appended in import order.
func MergeCollection(stored, imported []*models.CollectionCard) []*models.CollectionCard {
	incoming := make(map[string]*models.CollectionCard, len(imported))
	order := make([]string, 0, len(imported))
	for _, c := range imported {
		if c == nil {
			continue
		}
		key := c.Key()
		if existing, ok := incoming[key]; ok {
			existing.QuantityOwned += c.QuantityOwned
			continue
		}
		copied := *c
		incoming[key] = &copied
		order = append(order, key)
	}

	out := make([]*models.CollectionCard, 0, len(stored)+len(order))
	for _, c := range stored {
		if c == nil {
			continue
		}
		if replacement, ok := incoming[c.Key()]; ok {
			out = append(out, replacement)
			delete(incoming, c.Key())
			continue
		}
		out = append(out, c)
	}
	for _, key := range order {
		if c, ok := incoming[key]; ok {
			out = append(out, c)
		}
	}
	return out
}

// ComputeCollectionSummary totals owned copies and their value. Unpriced
// cards add to Size but not to Value, and are counted in Unpriced. The
// median is taken over the unit prices of priced cards.
func ComputeCollectionSummary(cards []*models.CollectionCard) CollectionSummary {
	var summary CollectionSummary
	var prices stats.Float64Data

	for _, c := range cards {
		if c == nil {
			continue
		}
		summary.Size += c.QuantityOwned
		if c.Price == nil {
			summary.Unpriced++
			continue
		}
		summary.Value += float64(c.QuantityOwned) * *c.Price
		prices = append(prices, *c.Price)
	}

	summary.Value = roundCents(summary.Value)
	if len(prices) > 0 {
		if median, err := stats.Median(prices); err == nil {
			summary.MedianPrice = roundCents(median)
		}
	}

	return summary
}

// ComputeDeckTypeSummary returns one row per SummaryTypes entry, in order,
// even when empty. A card's owned copies count at most up to its needed
// quantity. Cards of other types are left out.
func ComputeDeckTypeSummary(deckCards []*models.DeckCard, owned []*models.CollectionCard) []TypeCount {
	idx := indexOwned(owned)

	rows := make([]TypeCount, len(SummaryTypes))
	pos := make(map[string]int, len(SummaryTypes))
	for i, t := range SummaryTypes {
		rows[i] = TypeCount{Type: t}
		pos[t] = i
	}

	for _, c := range deckCards {
		if c == nil {
			continue
		}
		i, ok := pos[c.Type]
		if !ok {
			continue
		}
		have := idx.count(c.Identity, c.Set, false)
		if have > c.QuantityNeeded {
			have = c.QuantityNeeded
		}
		rows[i].QuantityNeeded += c.QuantityNeeded
		rows[i].QuantityOwned += have
	}

	return rows
}

// TotalNeeded sums the needed quantity of every card.
func TotalNeeded(cards []*models.DeckCard) int {
	total := 0
	for _, c := range cards {
		if c != nil {
			total += c.QuantityNeeded
		}
	}
	return total
}

// IsDeckReady reports whether the deck holds exactly its format's size.
// Both short and oversized decks are not ready.
func IsDeckReady(deck *models.Deck) bool {
	if deck == nil || !deck.Format.Valid() {
		return false
	}
	return TotalNeeded(deck.Cards) == deck.Format.RequiredSize()
}

// ColorIdentity is the union of the cards' colors in WUBRG order.
func ColorIdentity(cards []*models.DeckCard) []string {
	var all []string
	for _, c := range cards {
		if c != nil {
			all = append(all, c.Colors...)
		}
	}
	return cardref.SortColors(all)
}

// TotalCost is the price of every needed copy. Unpriced cards cost nothing.
func TotalCost(cards []*models.DeckCard) float64 {
	total := 0.0
	for _, c := range cards {
		if c == nil || c.Price == nil {
			continue
		}
		total += float64(c.QuantityNeeded) * *c.Price
	}
	return roundCents(total)
}

func roundCents(v float64) float64 {
	rounded, err := stats.Round(v, 2)
	if err != nil {
		return v
	}
	return rounded
}
