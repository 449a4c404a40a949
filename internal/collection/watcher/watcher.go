// Package watcher imports collection exports dropped into a directory.
package watcher

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ramonehamilton/MTG-Collection/internal/collection"
)

// DefaultSettle is how long a file must go without writes before it is
// imported.
const DefaultSettle = 500 * time.Millisecond

// Importer imports one file's contents.
type Importer interface {
	Import(ctx context.Context, r io.Reader, opts collection.ImportOptions) (*collection.ImportResult, error)
}

// Watcher imports .csv and .txt files created or rewritten in a directory.
type Watcher struct {
	dir      string
	importer Importer
	settle   time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a watcher for dir.
func New(dir string, importer Importer) *Watcher {
	return &Watcher{
		dir:      dir,
		importer: importer,
		settle:   DefaultSettle,
		pending:  make(map[string]*time.Timer),
	}
}

// SetSettle changes the quiet period before a file is imported.
func (w *Watcher) SetSettle(d time.Duration) {
	w.settle = d
}

// Start begins watching. Files are imported one at a time on a background
// goroutine, with ctx passed to the importer, until ctx is done or Stop is
// called.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsw.Add(w.dir); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	log.Printf("[Watcher] Watching %s for collection exports", w.dir)

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})

	go func() {
		defer close(w.done)
		defer func() {
			w.stopTimers()
			if err := fsw.Close(); err != nil {
				log.Printf("[Watcher] Failed to close file watcher: %v", err)
			}
		}()
		w.loop(ctx, fsw)
	}()
	return nil
}

// Stop ends watching and waits for an in-flight import to return.
func (w *Watcher) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	ready := make(chan string, 16)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !importable(event.Name) {
				continue
			}
			w.schedule(ctx, event.Name, ready)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			log.Printf("[Watcher] File watcher error: %v", err)
		case path := <-ready:
			w.importFile(ctx, path)
		}
	}
}

func importable(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return true
	default:
		return false
	}
}

// schedule (re)starts the settle timer for path.
func (w *Watcher) schedule(ctx context.Context, path string, ready chan<- string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		select {
		case ready <- path:
		case <-ctx.Done():
		}
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) importFile(ctx context.Context, path string) {
	f, err := os.Open(path)
	if err != nil {
		log.Printf("[Watcher] Failed to open %s: %v", path, err)
		return
	}
	defer func() { _ = f.Close() }()

	name := filepath.Base(path)
	result, err := w.importer.Import(ctx, f, collection.ImportOptions{
		Source: name,
		Format: collection.FormatForFile(name),
	})
	if err != nil {
		log.Printf("[Watcher] Import of %s failed: %v", name, err)
		return
	}
	log.Printf("[Watcher] Imported %s: %d cards, %d unresolved", name, len(result.Cards), result.Unresolved)
}
