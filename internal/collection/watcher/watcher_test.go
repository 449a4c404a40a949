package watcher

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/MTG-Collection/internal/collection"
	"github.com/ramonehamilton/MTG-Collection/internal/collection/importer"
)

type importCall struct {
	opts    collection.ImportOptions
	content string
}

type recordingImporter struct {
	mu    sync.Mutex
	calls []importCall
}

func (r *recordingImporter) Import(_ context.Context, rd io.Reader, opts collection.ImportOptions) (*collection.ImportResult, error) {
	data, err := io.ReadAll(rd)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.calls = append(r.calls, importCall{opts: opts, content: string(data)})
	r.mu.Unlock()
	return &collection.ImportResult{ImportID: "test", Result: &importer.Result{}}, nil
}

func (r *recordingImporter) snapshot() []importCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]importCall(nil), r.calls...)
}

func TestWatcher_ImportsDroppedFiles(t *testing.T) {
	dir := t.TempDir()
	imp := &recordingImporter{}

	w := New(dir, imp)
	w.SetSettle(50 * time.Millisecond)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("# not a collection"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "export.csv"), []byte("Quantity,Name\n4,Island\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Burn.TXT"), []byte("4 Lightning Bolt\n"), 0o644))

	require.Eventually(t, func() bool {
		return len(imp.snapshot()) >= 2
	}, 5*time.Second, 20*time.Millisecond)

	byName := map[string]importCall{}
	for _, c := range imp.snapshot() {
		byName[c.opts.Source] = c
	}

	require.Contains(t, byName, "export.csv")
	assert.Equal(t, collection.FormatCSV, byName["export.csv"].opts.Format)
	assert.Equal(t, "Quantity,Name\n4,Island\n", byName["export.csv"].content)

	require.Contains(t, byName, "Burn.TXT")
	assert.Equal(t, collection.FormatText, byName["Burn.TXT"].opts.Format)
}

func TestWatcher_MissingDir(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "missing"), &recordingImporter{})
	assert.Error(t, w.Start(context.Background()))
	w.Stop()
}

func TestImportable(t *testing.T) {
	tests := map[string]bool{
		"a.csv":      true,
		"b.CSV":      true,
		"deck.txt":   true,
		"notes.md":   false,
		"export":     false,
		"a.csv.part": false,
	}
	for path, want := range tests {
		assert.Equal(t, want, importable(path), path)
	}
}
