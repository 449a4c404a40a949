// Package collection manages a user's owned cards: imports, edits and
// summaries.
package collection

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/ramonehamilton/MTG-Collection/internal/auth"
	"github.com/ramonehamilton/MTG-Collection/internal/collection/aggregate"
	"github.com/ramonehamilton/MTG-Collection/internal/collection/importer"
	"github.com/ramonehamilton/MTG-Collection/internal/decklist"
	"github.com/ramonehamilton/MTG-Collection/internal/events"
	"github.com/ramonehamilton/MTG-Collection/internal/storage"
	"github.com/ramonehamilton/MTG-Collection/internal/storage/models"
)

// ErrInvalidQuantity is returned for negative quantities.
var ErrInvalidQuantity = errors.New("quantity cannot be negative")

// ErrInvalidImport is returned when an upload cannot be read as the
// requested format.
var ErrInvalidImport = errors.New("invalid import")

// Format is the layout of an import file.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatText Format = "text"
)

// FormatForFile picks an import format from a file name.
func FormatForFile(name string) Format {
	if strings.HasSuffix(strings.ToLower(name), ".txt") {
		return FormatText
	}
	return FormatCSV
}

// ImportOptions describes one import.
type ImportOptions struct {
	Source string // file name or other label for history
	Format Format
}

// ImportResult is an import outcome plus the id used in progress events.
type ImportResult struct {
	ImportID string `json:"importId"`
	*importer.Result
}

// Service manages collections.
type Service struct {
	store    *storage.Gateway
	users    auth.UserResolver
	pipeline *importer.Pipeline
	events   events.Publisher
}

// NewService creates a collection service. publisher may be nil.
func NewService(store *storage.Gateway, users auth.UserResolver, pipeline *importer.Pipeline, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.Discard
	}
	return &Service{
		store:    store,
		users:    users,
		pipeline: pipeline,
		events:   publisher,
	}
}

// Import reads r, resolves its cards and merges them into the stored
// collection. Cards already stored under the same name and set take the
// imported quantity; other stored cards are kept.
func (s *Service) Import(ctx context.Context, r io.Reader, opts ImportOptions) (*ImportResult, error) {
	userID, err := s.users.CurrentUserID(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := readRows(r, opts.Format)
	if err != nil {
		return nil, err
	}

	importID := uuid.NewString()
	log.Printf("[Collection] Import %s started: %d rows from %q", importID, len(rows), opts.Source)

	result, err := s.pipeline.Import(ctx, rows, func(processed, total int) {
		s.events.Dispatch(events.NewEvent(events.TypeImportProgress, userID, events.ImportProgressEvent{
			ImportID:  importID,
			Processed: processed,
			Total:     total,
		}))
	})
	if err != nil {
		return nil, fmt.Errorf("import cancelled: %w", err)
	}

	stored, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	merged := aggregate.MergeCollection(stored, result.Cards)
	if err := s.replace(ctx, merged); err != nil {
		return nil, err
	}

	rec := &models.ImportRecord{
		Source:     opts.Source,
		TotalRows:  result.Total,
		Imported:   len(result.Cards),
		Skipped:    result.Skipped,
		Unresolved: result.Unresolved,
	}
	if err := s.store.RecordImport(ctx, rec); err != nil {
		log.Printf("[Collection] Failed to record import history: %v", err)
	}

	s.events.Dispatch(events.NewEvent(events.TypeImportComplete, userID, events.ImportCompleteEvent{
		ImportID:   importID,
		Source:     opts.Source,
		Total:      result.Total,
		Imported:   len(result.Cards),
		Skipped:    result.Skipped,
		Unresolved: result.Unresolved,
	}))
	s.publishUpdated(userID, merged)

	return &ImportResult{ImportID: importID, Result: result}, nil
}

func readRows(r io.Reader, format Format) ([]importer.Row, error) {
	switch format {
	case FormatText:
		_, entries, err := decklist.Read(r)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read card list: %w", ErrInvalidImport, err)
		}
		return importer.EntryRows(entries), nil
	case FormatCSV, "":
		rows, err := importer.ReadCSV(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidImport, err)
		}
		return rows, nil
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrInvalidImport, format)
	}
}

// List returns the stored collection in insertion order.
func (s *Service) List(ctx context.Context) ([]*models.CollectionCard, error) {
	docs, err := s.store.GetAll(ctx, models.CollectionCards)
	if err != nil {
		return nil, err
	}

	cards := make([]*models.CollectionCard, 0, len(docs))
	for _, doc := range docs {
		card := &models.CollectionCard{}
		if err := doc.Decode(card); err != nil {
			log.Printf("[Collection] Skipping unreadable card %s: %v", doc.ID, err)
			continue
		}
		cards = append(cards, card)
	}
	return cards, nil
}

// Summary totals the stored collection.
func (s *Service) Summary(ctx context.Context) (aggregate.CollectionSummary, error) {
	cards, err := s.List(ctx)
	if err != nil {
		return aggregate.CollectionSummary{}, err
	}
	return aggregate.ComputeCollectionSummary(cards), nil
}

// Replace swaps the whole collection for cards. Cards sharing a key are
// summed.
func (s *Service) Replace(ctx context.Context, cards []*models.CollectionCard) ([]*models.CollectionCard, error) {
	userID, err := s.users.CurrentUserID(ctx)
	if err != nil {
		return nil, err
	}

	for _, c := range cards {
		if c != nil && c.QuantityOwned < 0 {
			return nil, fmt.Errorf("%w: %s", ErrInvalidQuantity, c.Identity)
		}
	}

	folded := aggregate.MergeCollection(nil, cards)
	if err := s.replace(ctx, folded); err != nil {
		return nil, err
	}

	s.publishUpdated(userID, folded)
	return folded, nil
}

// SetQuantity edits the owned quantity of one stored card. A quantity of
// zero keeps the card.
func (s *Service) SetQuantity(ctx context.Context, identity, set string, quantity int) (*models.CollectionCard, error) {
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}

	key := models.CardKey(identity, set)
	doc, err := s.store.Get(ctx, models.CollectionCards, key)
	if err != nil {
		return nil, err
	}

	card := &models.CollectionCard{}
	if err := doc.Decode(card); err != nil {
		return nil, fmt.Errorf("failed to decode card %s: %w", key, err)
	}

	patch := map[string]int{"quantityOwned": quantity}
	if err := s.store.Set(ctx, models.CollectionCards, key, patch, true); err != nil {
		return nil, err
	}

	card.QuantityOwned = quantity
	return card, nil
}

// History returns the latest imports.
func (s *Service) History(ctx context.Context, limit int) ([]*models.ImportRecord, error) {
	return s.store.ImportHistory(ctx, limit)
}

func (s *Service) replace(ctx context.Context, cards []*models.CollectionCard) error {
	entries := make([]storage.Entry, 0, len(cards))
	for _, c := range cards {
		if c.Set == "" {
			c.Set = models.AnySet
		}
		entries = append(entries, storage.Entry{ID: c.Key(), Value: c})
	}

	if err := s.store.ReplaceAll(ctx, models.CollectionCards, entries); err != nil {
		return fmt.Errorf("failed to save collection: %w", err)
	}
	return nil
}

func (s *Service) publishUpdated(userID string, cards []*models.CollectionCard) {
	total := 0
	for _, c := range cards {
		total += c.QuantityOwned
	}
	s.events.Dispatch(events.NewEvent(events.TypeCollectionUpdated, userID, events.CollectionUpdatedEvent{
		UniqueCards: len(cards),
		TotalCards:  total,
	}))
}
