package events

// Event types.
const (
	TypeImportProgress    = "import:progress"
	TypeImportComplete    = "import:complete"
	TypeCollectionUpdated = "collection:updated"
	TypeDeckSaved         = "deck:saved"
	TypeDeckDeleted       = "deck:deleted"
	TypeSetsRefreshed     = "sets:refreshed"
)

// ImportProgressEvent is the payload for import:progress events.
type ImportProgressEvent struct {
	ImportID  string `json:"importId"`
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
}

// ImportCompleteEvent is the payload for import:complete events.
type ImportCompleteEvent struct {
	ImportID   string `json:"importId"`
	Source     string `json:"source"`
	Total      int    `json:"total"`
	Imported   int    `json:"imported"`
	Skipped    int    `json:"skipped"`
	Unresolved int    `json:"unresolved"`
}

// CollectionUpdatedEvent is the payload for collection:updated events.
type CollectionUpdatedEvent struct {
	UniqueCards int `json:"uniqueCards"`
	TotalCards  int `json:"totalCards"`
}

// DeckSavedEvent is the payload for deck:saved events.
type DeckSavedEvent struct {
	DeckID string `json:"deckId"`
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
}

// DeckDeletedEvent is the payload for deck:deleted events.
type DeckDeletedEvent struct {
	DeckID string `json:"deckId"`
}

// SetsRefreshedEvent is the payload for sets:refreshed events.
type SetsRefreshedEvent struct {
	Sets int `json:"sets"`
}
