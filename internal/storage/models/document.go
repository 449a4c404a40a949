package models

import (
	"encoding/json"
	"time"
)

// Document collections.
const (
	CollectionCards = "collection"
	CollectionDecks = "decks"
)

// Document is one stored JSON document in a user's collection.
type Document struct {
	ID        string
	Data      json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Decode unmarshals the document body into v.
func (d *Document) Decode(v interface{}) error {
	return json.Unmarshal(d.Data, v)
}

// ImportRecord summarizes one completed import.
type ImportRecord struct {
	ID         int64     `json:"id"`
	UserID     string    `json:"-"`
	Source     string    `json:"source"`
	TotalRows  int       `json:"totalRows"`
	Imported   int       `json:"imported"`
	Skipped    int       `json:"skipped"`
	Unresolved int       `json:"unresolved"`
	CreatedAt  time.Time `json:"createdAt"`
}
