// Package importer turns retailer CSV exports into resolved collection cards.
package importer

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ramonehamilton/MTG-Collection/internal/cards/cardref"
	"github.com/ramonehamilton/MTG-Collection/internal/cards/names"
	"github.com/ramonehamilton/MTG-Collection/internal/storage/models"
)

// DefaultConcurrency is the number of rows resolved at once.
const DefaultConcurrency = 8

// Resolver looks up reference attributes for a card.
type Resolver interface {
	Resolve(ctx context.Context, q cardref.Query) (*cardref.Record, error)
}

// SetResolver maps retailer set columns to a canonical set code.
type SetResolver interface {
	ResolveSetCode(ctx context.Context, rawCode, rawName string) (string, bool)
}

// ProgressFunc receives the number of rows accounted for so far. Calls are
// serialized, never decrease, and the last call has processed == total.
type ProgressFunc func(processed, total int)

// Result is the outcome of one import.
type Result struct {
	Cards           []*models.CollectionCard `json:"cards"`
	Total           int                      `json:"total"`
	Skipped         int                      `json:"skipped"`
	Unresolved      int                      `json:"unresolved"`
	UnresolvedNames []string                 `json:"unresolvedNames,omitempty"`
}

// Pipeline resolves rows concurrently and folds duplicates.
type Pipeline struct {
	resolver    Resolver
	sets        SetResolver
	concurrency int
}

// NewPipeline creates a pipeline. sets may be nil, in which case every card
// matches any printing.
func NewPipeline(resolver Resolver, sets SetResolver, concurrency int) *Pipeline {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Pipeline{resolver: resolver, sets: sets, concurrency: concurrency}
}

type rowOutcome int

const (
	outcomeSkipped rowOutcome = iota
	outcomeUnresolved
	outcomeResolved
)

type rowResult struct {
	outcome  rowOutcome
	card     *models.CollectionCard
	groupKey string
	name     string
}

// Import resolves every row. Unplayable, nameless and unresolvable rows are
// counted and skipped; the only error is the context's.
func (p *Pipeline) Import(ctx context.Context, rows []Row, onProgress ProgressFunc) (*Result, error) {
	total := len(rows)
	results := make([]rowResult, total)

	var (
		mu        sync.Mutex
		processed int
	)
	report := func() {
		mu.Lock()
		defer mu.Unlock()
		processed++
		if onProgress != nil {
			onProgress(processed, total)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i, row := range rows {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res, err := p.importRow(gctx, row)
			if err != nil {
				return err
			}
			results[i] = res
			report()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := fold(results)
	result.Total = total
	log.Printf("[Importer] Imported %d rows: %d cards, %d skipped, %d unresolved",
		total, len(result.Cards), result.Skipped, result.Unresolved)

	return result, nil
}

func (p *Pipeline) importRow(ctx context.Context, row Row) (rowResult, error) {
	raw := row.Name()
	if raw == "" || names.IsNonPlayable(raw) {
		return rowResult{outcome: outcomeSkipped}, nil
	}

	identity := names.Normalize(raw)
	if identity == "" {
		return rowResult{outcome: outcomeSkipped}, nil
	}

	setCode := ""
	if p.sets != nil {
		if code, ok := p.sets.ResolveSetCode(ctx, row.SetCode(), row.SetName()); ok {
			setCode = code
		}
	}

	rec, err := p.resolver.Resolve(ctx, cardref.Query{
		Name:       identity,
		Set:        setCode,
		ExternalID: row.ProductID(),
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return rowResult{}, ctxErr
		}
		if !errors.Is(err, cardref.ErrNotFound) {
			log.Printf("[Importer] Lookup for %q failed: %v", identity, err)
		} else {
			log.Printf("[Importer] Skipping unresolved card %q", raw)
		}
		return rowResult{outcome: outcomeUnresolved, name: identity}, nil
	}

	card := &models.CollectionCard{
		Identity:        identity,
		CardAttributes:  rec.CardAttributes,
		Set:             models.AnySet,
		QuantityOwned:   parseQuantity(row.Get(QuantityColumns...)),
		Rarity:          row.Get(RarityColumns...),
		CollectorNumber: row.Get(NumberColumns...),
		Foil:            parseFoil(row.Get(FoilColumns...)),
		ExternalID:      row.ProductID(),
	}
	card.Colors = append([]string(nil), rec.Colors...)
	if setCode != "" {
		card.Set = setCode
	}
	if card.ExternalID == "" {
		card.ExternalID = rec.ExternalID
	}

	setKey := setCode
	if setKey == "" {
		setKey = row.SetName()
	}
	if setKey == "" {
		setKey = models.AnySet
	}

	return rowResult{
		outcome:  outcomeResolved,
		card:     card,
		groupKey: strings.ToLower(identity) + "|" + strings.ToLower(setKey),
	}, nil
}

// fold groups resolved rows by identity and set, summing quantities. The
// first row of a group supplies its attributes and its output position.
func fold(results []rowResult) *Result {
	out := &Result{Cards: []*models.CollectionCard{}}
	groups := make(map[string]*models.CollectionCard)

	for _, res := range results {
		switch res.outcome {
		case outcomeSkipped:
			out.Skipped++
		case outcomeUnresolved:
			out.Unresolved++
			out.UnresolvedNames = append(out.UnresolvedNames, res.name)
		case outcomeResolved:
			if existing, ok := groups[res.groupKey]; ok {
				existing.QuantityOwned += res.card.QuantityOwned
				continue
			}
			groups[res.groupKey] = res.card
			out.Cards = append(out.Cards, res.card)
		}
	}

	return out
}

// parseQuantity reads a quantity cell. Missing, non-numeric and negative
// values count as one copy.
func parseQuantity(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 1
	}
	return n
}

func parseFoil(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "", "false", "no", "0", "normal", "non-foil", "nonfoil":
		return false
	case "true", "yes", "1":
		return true
	}
	return strings.Contains(v, "foil")
}
