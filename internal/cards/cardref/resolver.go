package cardref

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"

	"github.com/ramonehamilton/MTG-Collection/internal/cards/bulk"
	"github.com/ramonehamilton/MTG-Collection/internal/cards/names"
	"github.com/ramonehamilton/MTG-Collection/internal/cards/scryfall"
)

// ErrNotFound is returned when neither the bulk index nor the oracle knows a card.
var ErrNotFound = errors.New("card not found")

// Oracle is the subset of the Scryfall client the resolver uses.
type Oracle interface {
	GetCardByTCGPlayerID(ctx context.Context, productID int) (*scryfall.Card, error)
	GetCardByExactName(ctx context.Context, name, set string) (*scryfall.Card, error)
	GetCardByName(ctx context.Context, name string) (*scryfall.Card, error)
}

// Query describes a card to resolve. Name may be raw; it is normalized
// before lookup. Set is a canonical set code or empty. ExternalID is a
// retailer product id.
type Query struct {
	Name       string
	Set        string
	ExternalID string
}

// Resolver looks cards up in the cache, then the bulk index, then the oracle.
type Resolver struct {
	cache  Cache
	bulk   *bulk.Cache
	oracle Oracle
}

// NewResolver creates a resolver. bulkCache and oracle may be nil; the
// corresponding steps are then skipped.
func NewResolver(cache Cache, bulkCache *bulk.Cache, oracle Oracle) *Resolver {
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Resolver{cache: cache, bulk: bulkCache, oracle: oracle}
}

// Resolve returns the reference record for q.
//
// Lookup failures of every kind collapse into ErrNotFound. The only other
// error is the context's own, once it is done.
func (r *Resolver) Resolve(ctx context.Context, q Query) (*Record, error) {
	identity := names.Normalize(q.Name)
	if identity == "" {
		return nil, ErrNotFound
	}
	set := strings.ToLower(strings.TrimSpace(q.Set))

	if rec, ok := r.cache.Get(ctx, cacheKey(identity, set)); ok {
		return rec, nil
	}

	card := r.lookupBulk(ctx, identity, set, q.ExternalID)
	if card == nil {
		card = r.lookupOracle(ctx, identity, set, q.ExternalID)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if card == nil {
		return nil, ErrNotFound
	}

	rec := FromScryfall(card)
	r.cache.Put(ctx, cacheKey(identity, ""), rec)
	if set != "" {
		r.cache.Put(ctx, cacheKey(identity, set), rec)
	}

	return rec, nil
}

func (r *Resolver) lookupBulk(ctx context.Context, identity, set, externalID string) *scryfall.Card {
	if r.bulk == nil {
		return nil
	}

	idx, err := r.bulk.Get(ctx)
	if err != nil {
		log.Printf("[Resolver] Bulk index unavailable: %v", err)
		return nil
	}

	if card, ok := idx.Lookup(identity, set); ok {
		return card
	}
	if card, ok := idx.LookupByName(identity); ok {
		return card
	}
	if id, ok := productID(externalID); ok {
		if card, ok := idx.LookupByExternalID(id); ok {
			return card
		}
	}

	return nil
}

func (r *Resolver) lookupOracle(ctx context.Context, identity, set, externalID string) *scryfall.Card {
	if r.oracle == nil {
		return nil
	}

	if id, ok := productID(externalID); ok {
		card, err := r.oracle.GetCardByTCGPlayerID(ctx, id)
		if err == nil {
			return card
		}
		logOracleMiss(identity, err)
	}

	if set != "" {
		card, err := r.oracle.GetCardByExactName(ctx, identity, set)
		if err == nil {
			return card
		}
		logOracleMiss(identity, err)
	}

	if ctx.Err() != nil {
		return nil
	}

	card, err := r.oracle.GetCardByName(ctx, identity)
	if err != nil {
		logOracleMiss(identity, err)
		return nil
	}
	return card
}

func logOracleMiss(identity string, err error) {
	if scryfall.IsNotFound(err) || errors.Is(err, context.Canceled) {
		return
	}
	log.Printf("[Resolver] Oracle lookup for %q failed: %v", identity, err)
}

func productID(externalID string) (int, bool) {
	id, err := strconv.Atoi(strings.TrimSpace(externalID))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
