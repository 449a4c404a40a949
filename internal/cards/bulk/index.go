// Package bulk loads a slimmed Scryfall bulk file and indexes it for
// offline card lookups.
package bulk

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/scizorman/go-ndjson"

	"github.com/ramonehamilton/MTG-Collection/internal/cards/names"
	"github.com/ramonehamilton/MTG-Collection/internal/cards/scryfall"
)

// Index is a read-only lookup table over bulk card records.
// Name lookups use names.Key; when several printings share a name the first
// one in the file wins.
type Index struct {
	byName       map[string]*scryfall.Card
	byNameSet    map[string]*scryfall.Card
	byExternalID map[int]*scryfall.Card
	size         int
}

// NewIndex builds an index over cards.
func NewIndex(cards []scryfall.Card) *Index {
	idx := &Index{
		byName:       make(map[string]*scryfall.Card, len(cards)),
		byNameSet:    make(map[string]*scryfall.Card, len(cards)),
		byExternalID: make(map[int]*scryfall.Card),
	}

	for i := range cards {
		card := &cards[i]
		key := names.Key(card.Name)
		if key == "" {
			continue
		}
		idx.size++

		if _, ok := idx.byName[key]; !ok {
			idx.byName[key] = card
		}

		if card.SetCode != "" {
			setKey := nameSetKey(key, card.SetCode)
			if _, ok := idx.byNameSet[setKey]; !ok {
				idx.byNameSet[setKey] = card
			}
		}

		if card.TCGPlayerID != nil {
			idx.byExternalID[*card.TCGPlayerID] = card
		}
	}

	return idx
}

// Lookup finds the printing of name in set.
func (i *Index) Lookup(name, set string) (*scryfall.Card, bool) {
	if i == nil || set == "" {
		return nil, false
	}
	card, ok := i.byNameSet[nameSetKey(names.Key(name), set)]
	return card, ok
}

// LookupByName finds the first printing of name.
func (i *Index) LookupByName(name string) (*scryfall.Card, bool) {
	if i == nil {
		return nil, false
	}
	card, ok := i.byName[names.Key(name)]
	return card, ok
}

// LookupByExternalID finds a card by TCGplayer product id.
func (i *Index) LookupByExternalID(id int) (*scryfall.Card, bool) {
	if i == nil || id <= 0 {
		return nil, false
	}
	card, ok := i.byExternalID[id]
	return card, ok
}

// Len returns the number of indexed records.
func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	return i.size
}

func nameSetKey(nameKey, set string) string {
	return nameKey + "|" + strings.ToLower(set)
}

// Parse reads a bulk file. Gzip input is detected by its magic bytes; the
// payload is either a JSON array or newline-delimited JSON.
func Parse(r io.Reader) ([]scryfall.Card, error) {
	br := bufio.NewReader(r)

	magic, err := br.Peek(2)
	if err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("open gzip stream: %w", err)
		}
		defer func() { _ = gz.Close() }()
		return Parse(gz)
	}

	data, err := io.ReadAll(br)
	if err != nil {
		return nil, fmt.Errorf("read bulk data: %w", err)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var cards []scryfall.Card
	if data[0] == '[' {
		if err := json.Unmarshal(data, &cards); err != nil {
			return nil, fmt.Errorf("parse bulk JSON: %w", err)
		}
		return cards, nil
	}

	if err := ndjson.Unmarshal(data, &cards); err != nil {
		return nil, fmt.Errorf("parse bulk NDJSON: %w", err)
	}
	return cards, nil
}
