package bulk

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ramonehamilton/MTG-Collection/internal/cards/scryfall"
)

// Loader produces a fresh Index.
type Loader func(ctx context.Context) (*Index, error)

// Downloader opens a remote bulk file.
type Downloader interface {
	Download(ctx context.Context, uri string) (io.ReadCloser, error)
}

// retryAfter is how long a failed load is reported before the next caller
// tries again.
const retryAfter = 30 * time.Second

// Cache holds the process-wide bulk index. The first caller triggers the
// load; concurrent callers wait for the same load. A failed load is
// reported to every caller for retryAfter, then the next call tries again.
type Cache struct {
	loader Loader
	group  singleflight.Group
	now    func() time.Time

	mu       sync.RWMutex
	index    *Index
	lastErr  error
	failedAt time.Time
}

// NewCache creates a cache around loader.
func NewCache(loader Loader) *Cache {
	return &Cache{loader: loader, now: time.Now}
}

// Get returns the index, loading it on first use. The load itself is not
// tied to ctx: a caller that gives up stops waiting, but the load carries on
// for the others.
func (c *Cache) Get(ctx context.Context) (*Index, error) {
	c.mu.RLock()
	idx, lastErr, failedAt := c.index, c.lastErr, c.failedAt
	c.mu.RUnlock()
	if idx != nil {
		return idx, nil
	}
	if lastErr != nil && c.now().Sub(failedAt) < retryAfter {
		return nil, lastErr
	}

	if c.loader == nil {
		return nil, fmt.Errorf("no bulk source configured")
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan("index", func() (interface{}, error) {
		c.mu.RLock()
		existing := c.index
		c.mu.RUnlock()
		if existing != nil {
			return existing, nil
		}

		loaded, err := c.loader(loadCtx)

		c.mu.Lock()
		defer c.mu.Unlock()
		if err != nil {
			c.lastErr = err
			c.failedAt = c.now()
			log.Printf("[Bulk] Load failed, retrying after %s: %v", retryAfter, err)
			return nil, err
		}
		c.index = loaded
		c.lastErr = nil

		log.Printf("[Bulk] Loaded %d card records", loaded.Len())
		return loaded, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Index), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Loaded reports whether the index is in memory.
func (c *Cache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index != nil
}

// FileLoader reads the bulk index from a local file.
func FileLoader(path string) Loader {
	return func(ctx context.Context) (*Index, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open bulk file: %w", err)
		}
		defer func() { _ = f.Close() }()

		cards, err := Parse(f)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		return NewIndex(cards), nil
	}
}

// URLLoader downloads the bulk index from uri.
func URLLoader(d Downloader, uri string) Loader {
	return func(ctx context.Context) (*Index, error) {
		body, err := d.Download(ctx, uri)
		if err != nil {
			return nil, err
		}
		defer func() { _ = body.Close() }()

		cards, err := Parse(body)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", uri, err)
		}
		return NewIndex(cards), nil
	}
}

// OracleLoader downloads the named bulk file ("oracle_cards", "default_cards")
// advertised by the Scryfall bulk-data endpoint.
func OracleLoader(client *scryfall.Client, bulkType string) Loader {
	return func(ctx context.Context) (*Index, error) {
		list, err := client.GetBulkData(ctx)
		if err != nil {
			return nil, err
		}

		for _, entry := range list.Data {
			if entry.Type == bulkType {
				return URLLoader(client, entry.DownloadURI)(ctx)
			}
		}

		return nil, fmt.Errorf("bulk data type %q not offered", bulkType)
	}
}
