package search

import (
	"context"
	"errors"
	"testing"
	"time"
)

// blockingSource answers "slow" only after its context ends.
type blockingSource struct {
	started chan string
}

func (b *blockingSource) Autocomplete(ctx context.Context, query string) ([]string, error) {
	if b.started != nil {
		b.started <- query
	}
	if query == "slow" {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return []string{query + " result"}, nil
}

func TestSuggest_ReturnsNames(t *testing.T) {
	s := NewSuggester(&blockingSource{})

	names, err := s.Suggest(context.Background(), " bolt ")
	if err != nil {
		t.Fatalf("Suggest() error = %v", err)
	}
	if len(names) != 1 || names[0] != "bolt result" {
		t.Errorf("Suggest() = %v", names)
	}
}

func TestSuggest_ShortTerm(t *testing.T) {
	src := &blockingSource{started: make(chan string, 1)}
	s := NewSuggester(src)

	names, err := s.Suggest(context.Background(), "b")
	if err != nil || len(names) != 0 {
		t.Errorf("Suggest(b) = %v, %v", names, err)
	}
	select {
	case q := <-src.started:
		t.Errorf("oracle queried for short term %q", q)
	default:
	}
}

func TestSuggest_NewQuerySupersedesOld(t *testing.T) {
	src := &blockingSource{started: make(chan string, 2)}
	s := NewSuggester(src)

	done := make(chan error, 1)
	go func() {
		_, err := s.Suggest(context.Background(), "slow")
		done <- err
	}()

	// Wait for the first query to reach the oracle
	<-src.started

	names, err := s.Suggest(context.Background(), "fast")
	if err != nil {
		t.Fatalf("Suggest(fast) error = %v", err)
	}
	if len(names) != 1 || names[0] != "fast result" {
		t.Errorf("Suggest(fast) = %v", names)
	}

	select {
	case err := <-done:
		if !errors.Is(err, ErrSuperseded) {
			t.Errorf("superseded call returned %v, want ErrSuperseded", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("superseded call was not cancelled")
	}
}

func TestSuggest_Cancel(t *testing.T) {
	src := &blockingSource{started: make(chan string, 1)}
	s := NewSuggester(src)

	done := make(chan error, 1)
	go func() {
		_, err := s.Suggest(context.Background(), "slow")
		done <- err
	}()
	<-src.started

	s.Cancel()

	select {
	case err := <-done:
		if !errors.Is(err, ErrSuperseded) {
			t.Errorf("cancelled call returned %v, want ErrSuperseded", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Cancel() did not abort the query")
	}
}
