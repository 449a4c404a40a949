// Package deck manages a user's decks: saving, loading and the derived
// views (type summary, readiness, opening hands, text export).
package deck

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ramonehamilton/MTG-Collection/internal/auth"
	"github.com/ramonehamilton/MTG-Collection/internal/collection/aggregate"
	"github.com/ramonehamilton/MTG-Collection/internal/collection/importer"
	"github.com/ramonehamilton/MTG-Collection/internal/decklist"
	"github.com/ramonehamilton/MTG-Collection/internal/events"
	"github.com/ramonehamilton/MTG-Collection/internal/storage"
	"github.com/ramonehamilton/MTG-Collection/internal/storage/models"
)

// ErrInvalidDeck is returned when a deck cannot be saved as given.
var ErrInvalidDeck = errors.New("invalid deck")

// OwnedCards lists the current user's collection.
type OwnedCards interface {
	List(ctx context.Context) ([]*models.CollectionCard, error)
}

// Service manages decks.
type Service struct {
	store    *storage.Gateway
	users    auth.UserResolver
	owned    OwnedCards
	pipeline *importer.Pipeline
	events   events.Publisher
	now      func() time.Time
}

// NewService creates a deck service. publisher may be nil.
func NewService(store *storage.Gateway, users auth.UserResolver, owned OwnedCards, pipeline *importer.Pipeline, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.Discard
	}
	return &Service{
		store:    store,
		users:    users,
		owned:    owned,
		pipeline: pipeline,
		events:   publisher,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Save stores deck and returns the saved copy. A draft deck gets its id
// here. Rows with a zero quantity are dropped, rows for the same card and
// set are summed, and owned quantities, colour identity and total cost are
// recomputed. deck itself is not modified.
func (s *Service) Save(ctx context.Context, deck *models.Deck) (*models.Deck, error) {
	userID, err := s.users.CurrentUserID(ctx)
	if err != nil {
		return nil, err
	}
	if deck == nil {
		return nil, fmt.Errorf("%w: no deck", ErrInvalidDeck)
	}
	if !deck.Format.Valid() {
		return nil, fmt.Errorf("%w: unknown format %q", ErrInvalidDeck, deck.Format)
	}

	cards, err := cleanCards(deck.Cards)
	if err != nil {
		return nil, err
	}

	saved := *deck
	saved.Name = models.DeckName(deck.Name)
	now := s.now()

	if saved.IsDraft() {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("failed to generate deck id: %w", err)
		}
		saved.ID = id.String()
		saved.CreatedAt = now
	} else {
		existing, err := s.load(ctx, saved.ID)
		if err != nil {
			return nil, err
		}
		saved.CreatedAt = existing.CreatedAt
	}
	saved.ModifiedAt = now

	if err := s.derive(ctx, &saved, cards); err != nil {
		return nil, err
	}

	if err := s.store.Set(ctx, models.CollectionDecks, saved.ID, &saved, false); err != nil {
		return nil, fmt.Errorf("failed to save deck: %w", err)
	}

	ready := aggregate.IsDeckReady(&saved)
	log.Printf("[Deck] Saved %s (%q, %d cards, ready=%v)", saved.ID, saved.Name, aggregate.TotalNeeded(saved.Cards), ready)
	s.events.Dispatch(events.NewEvent(events.TypeDeckSaved, userID, events.DeckSavedEvent{
		DeckID: saved.ID,
		Name:   saved.Name,
		Ready:  ready,
	}))

	return &saved, nil
}

// cleanCards validates and folds a card list into fresh copies.
func cleanCards(cards []*models.DeckCard) ([]*models.DeckCard, error) {
	out := make([]*models.DeckCard, 0, len(cards))
	byKey := make(map[string]*models.DeckCard, len(cards))

	for _, c := range cards {
		if c == nil {
			continue
		}
		identity := strings.TrimSpace(c.Identity)
		if identity == "" {
			return nil, fmt.Errorf("%w: card without a name", ErrInvalidDeck)
		}
		if c.QuantityNeeded < 0 {
			return nil, fmt.Errorf("%w: negative quantity for %s", ErrInvalidDeck, identity)
		}

		set := strings.TrimSpace(c.Set)
		if set == "" {
			set = models.AnySet
		}
		key := models.CardKey(identity, set)
		if existing, ok := byKey[key]; ok {
			existing.QuantityNeeded += c.QuantityNeeded
			continue
		}

		copied := *c
		copied.Identity = identity
		copied.Set = set
		copied.Colors = append([]string(nil), c.Colors...)
		byKey[key] = &copied
		out = append(out, &copied)
	}

	kept := out[:0]
	for _, c := range out {
		if c.QuantityNeeded > 0 {
			kept = append(kept, c)
		}
	}
	return kept, nil
}

// derive fills in the owned quantities and derived fields of deck.
func (s *Service) derive(ctx context.Context, deck *models.Deck, cards []*models.DeckCard) error {
	owned, err := s.owned.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	deck.Cards = aggregate.MergeOwnedQuantities(cards, owned, true)
	deck.ColorIdentity = aggregate.ColorIdentity(deck.Cards)
	deck.TotalCost = aggregate.TotalCost(deck.Cards)
	return nil
}

func (s *Service) load(ctx context.Context, id string) (*models.Deck, error) {
	doc, err := s.store.Get(ctx, models.CollectionDecks, id)
	if err != nil {
		return nil, err
	}
	deck := &models.Deck{}
	if err := doc.Decode(deck); err != nil {
		return nil, fmt.Errorf("failed to decode deck %s: %w", id, err)
	}
	return deck, nil
}

// Get loads a deck for editing. Owned quantities are recomputed from the
// current collection.
func (s *Service) Get(ctx context.Context, id string) (*models.Deck, error) {
	deck, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.derive(ctx, deck, deck.Cards); err != nil {
		return nil, err
	}
	return deck, nil
}

// List returns every saved deck as stored. Owned quantities are those of
// each deck's last save.
func (s *Service) List(ctx context.Context) ([]*models.Deck, error) {
	docs, err := s.store.GetAll(ctx, models.CollectionDecks)
	if err != nil {
		return nil, err
	}

	decks := make([]*models.Deck, 0, len(docs))
	for _, doc := range docs {
		deck := &models.Deck{}
		if err := doc.Decode(deck); err != nil {
			log.Printf("[Deck] Skipping unreadable deck %s: %v", doc.ID, err)
			continue
		}
		decks = append(decks, deck)
	}
	return decks, nil
}

// Delete removes a deck for good.
func (s *Service) Delete(ctx context.Context, id string) error {
	userID, err := s.users.CurrentUserID(ctx)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, models.CollectionDecks, id); err != nil {
		return err
	}

	log.Printf("[Deck] Deleted %s", id)
	s.events.Dispatch(events.NewEvent(events.TypeDeckDeleted, userID, events.DeckDeletedEvent{DeckID: id}))
	return nil
}

// TypeSummary returns needed and owned counts per card type.
func (s *Service) TypeSummary(ctx context.Context, id string) ([]aggregate.TypeCount, error) {
	deck, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	owned, err := s.owned.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load collection: %w", err)
	}
	return aggregate.ComputeDeckTypeSummary(deck.Cards, owned), nil
}

// Ready reports whether the deck has exactly its format's card count.
func (s *Service) Ready(ctx context.Context, id string) (bool, error) {
	deck, err := s.load(ctx, id)
	if err != nil {
		return false, err
	}
	return aggregate.IsDeckReady(deck), nil
}

// OpeningHand draws a random opening hand from the deck.
func (s *Service) OpeningHand(ctx context.Context, id string) ([]*models.DeckCard, error) {
	deck, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return aggregate.DrawOpeningHand(deck, nil), nil
}

// Export renders the deck in the plain-text list format, with the missing
// cards computed against the current collection.
func (s *Service) Export(ctx context.Context, id string) (filename, text string, err error) {
	deck, err := s.Get(ctx, id)
	if err != nil {
		return "", "", err
	}
	return decklist.Filename(deck), decklist.Export(deck), nil
}

// ImportOptions override the header of an imported list.
type ImportOptions struct {
	Name   string
	Format models.Format
}

// ImportDecklist reads a plain-text list into an unsaved deck. Name and
// format come from opts, then from the list header; the format falls back
// to Standard.
func (s *Service) ImportDecklist(ctx context.Context, r io.Reader, opts ImportOptions) (*models.Deck, *importer.Result, error) {
	if _, err := s.users.CurrentUserID(ctx); err != nil {
		return nil, nil, err
	}

	header, entries, err := decklist.Read(r)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to read deck list: %w", ErrInvalidDeck, err)
	}

	name, format := opts.Name, opts.Format
	if header != nil {
		if name == "" {
			name = header.Name
		}
		if format == "" {
			format = header.Format
		}
	}
	if format == "" {
		format = models.FormatStandard
	}

	result, err := s.pipeline.Import(ctx, importer.EntryRows(entries), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("import cancelled: %w", err)
	}

	cards := make([]*models.DeckCard, 0, len(result.Cards))
	for _, c := range result.Cards {
		cards = append(cards, &models.DeckCard{
			Identity:       c.Identity,
			CardAttributes: c.CardAttributes,
			Set:            c.Set,
			QuantityNeeded: c.QuantityOwned,
		})
	}

	deck := &models.Deck{Name: models.DeckName(name), Format: format}
	if err := s.derive(ctx, deck, cards); err != nil {
		return nil, nil, err
	}

	log.Printf("[Deck] Imported list %q: %d cards, %d unresolved", deck.Name, len(deck.Cards), result.Unresolved)
	return deck, result, nil
}
