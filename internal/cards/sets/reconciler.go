// Package sets reconciles retailer set names and codes with Scryfall set codes.
package sets

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ramonehamilton/MTG-Collection/internal/cards/scryfall"
)

// StorageKey is the settings key the maps are persisted under.
const StorageKey = "set_maps"

// Catalog lists every known set.
type Catalog interface {
	GetSets(ctx context.Context) (*scryfall.SetList, error)
}

// KV persists the maps between runs. Values are JSON-encoded by the store.
type KV interface {
	GetTyped(ctx context.Context, key string, target interface{}) error
	Set(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, key string) error
}

// Maps is the bidirectional set lookup table. Keys are lowercase; codes
// are stored lowercase too.
type Maps struct {
	CodeToName map[string]string `json:"codeToName"`
	NameToCode map[string]string `json:"nameToCode"`
}

// NewMaps builds the lookup table from a set list. When two sets share a
// name the first one listed wins.
func NewMaps(list []scryfall.Set) *Maps {
	m := &Maps{
		CodeToName: make(map[string]string, len(list)),
		NameToCode: make(map[string]string, len(list)),
	}
	for _, s := range list {
		code := strings.ToLower(strings.TrimSpace(s.Code))
		if code == "" {
			continue
		}
		m.CodeToName[code] = s.Name

		name := strings.ToLower(strings.TrimSpace(s.Name))
		if _, exists := m.NameToCode[name]; !exists && name != "" {
			m.NameToCode[name] = code
		}
	}
	return m
}

// retryAfter is how long a failed load is reported before the next lookup
// tries the catalog again.
const retryAfter = 30 * time.Second

// Reconciler loads the set maps once and answers lookups from memory.
type Reconciler struct {
	catalog Catalog
	kv      KV
	group   singleflight.Group
	now     func() time.Time

	mu       sync.RWMutex
	maps     *Maps
	lastErr  error
	failedAt time.Time
}

// NewReconciler creates a reconciler. kv may be nil to skip persistence.
func NewReconciler(catalog Catalog, kv KV) *Reconciler {
	return &Reconciler{catalog: catalog, kv: kv, now: time.Now}
}

// Maps returns the set maps, loading them from the store or the catalog on
// first use. Concurrent first callers share one load, which keeps running
// when the caller that started it gives up. A failed load is reported for
// retryAfter without refetching.
func (r *Reconciler) Maps(ctx context.Context) (*Maps, error) {
	r.mu.RLock()
	m, lastErr, failedAt := r.maps, r.lastErr, r.failedAt
	r.mu.RUnlock()
	if m != nil {
		return m, nil
	}
	if lastErr != nil && r.now().Sub(failedAt) < retryAfter {
		return nil, lastErr
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(StorageKey, func() (interface{}, error) {
		r.mu.RLock()
		existing := r.maps
		r.mu.RUnlock()
		if existing != nil {
			return existing, nil
		}

		loaded, err := r.load(loadCtx)

		r.mu.Lock()
		defer r.mu.Unlock()
		if err != nil {
			r.lastErr = err
			r.failedAt = r.now()
			return nil, err
		}
		r.maps = loaded
		r.lastErr = nil
		return loaded, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Maps), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Reconciler) load(ctx context.Context) (*Maps, error) {
	// A missing or unreadable copy just means a catalog fetch
	if r.kv != nil {
		var m Maps
		if err := r.kv.GetTyped(ctx, StorageKey, &m); err == nil && len(m.CodeToName) > 0 {
			return &m, nil
		}
	}

	if r.catalog == nil {
		return nil, fmt.Errorf("no set catalog configured")
	}

	list, err := r.catalog.GetSets(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch set catalog: %w", err)
	}

	m := NewMaps(list.Data)
	log.Printf("[Sets] Loaded %d sets from catalog", len(m.CodeToName))

	if r.kv != nil {
		if err := r.kv.Set(ctx, StorageKey, m); err != nil {
			log.Printf("[Sets] Failed to persist set maps: %v", err)
		}
	}

	return m, nil
}

// Clear drops the in-memory and persisted maps so the next lookup refetches
// the catalog. Used when new sets are released.
func (r *Reconciler) Clear(ctx context.Context) error {
	r.mu.Lock()
	r.maps = nil
	r.lastErr = nil
	r.mu.Unlock()

	if r.kv == nil {
		return nil
	}
	if err := r.kv.Delete(ctx, StorageKey); err != nil {
		return fmt.Errorf("clear set maps: %w", err)
	}
	return nil
}

// ResolveSetCode maps retailer set fields to a canonical code. The name is
// tried first, then the code itself, then the code field read as a name.
// It reports false when nothing matches or the maps are unavailable; the
// caller then treats the card as any printing.
func (r *Reconciler) ResolveSetCode(ctx context.Context, rawCode, rawName string) (string, bool) {
	if strings.TrimSpace(rawCode) == "" && strings.TrimSpace(rawName) == "" {
		return "", false
	}

	m, err := r.Maps(ctx)
	if err != nil {
		log.Printf("[Sets] Set maps unavailable: %v", err)
		return "", false
	}

	return m.Resolve(rawCode, rawName)
}

// Resolve applies the lookup order against m.
func (m *Maps) Resolve(rawCode, rawName string) (string, bool) {
	name := strings.ToLower(strings.TrimSpace(rawName))
	code := strings.ToLower(strings.TrimSpace(rawCode))

	if name != "" {
		if c, ok := m.NameToCode[name]; ok {
			return c, true
		}
	}

	if code != "" {
		if _, ok := m.CodeToName[code]; ok {
			return code, true
		}
		if c, ok := m.NameToCode[code]; ok {
			return c, true
		}
	}

	return "", false
}

// Name returns the display name for code.
func (m *Maps) Name(code string) (string, bool) {
	name, ok := m.CodeToName[strings.ToLower(strings.TrimSpace(code))]
	return name, ok
}
