// Package search provides card name typeahead against the oracle.
package search

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ErrSuperseded is returned to a Suggest call that a newer call replaced.
var ErrSuperseded = errors.New("suggestion superseded by a newer query")

// MinTermLength is the shortest term sent to the oracle.
const MinTermLength = 2

// Autocompleter returns names matching a partial term.
type Autocompleter interface {
	Autocomplete(ctx context.Context, query string) ([]string, error)
}

// Suggester runs one typeahead query at a time. Starting a new query
// cancels the one in flight.
type Suggester struct {
	source Autocompleter

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

// NewSuggester creates a Suggester over source.
func NewSuggester(source Autocompleter) *Suggester {
	return &Suggester{source: source}
}

// Suggest returns names for term. A call replaced by a newer one before it
// finishes returns ErrSuperseded, whatever the oracle answered.
func (s *Suggester) Suggest(ctx context.Context, term string) ([]string, error) {
	term = strings.TrimSpace(term)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.seq++
	seq := s.seq
	callCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	defer s.finish(seq, cancel)

	if len([]rune(term)) < MinTermLength {
		return []string{}, nil
	}

	names, err := s.source.Autocomplete(callCtx, term)

	if s.superseded(seq) {
		return nil, ErrSuperseded
	}
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// Cancel aborts the query in flight, if any.
func (s *Suggester) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.seq++
}

func (s *Suggester) superseded(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq != seq
}

func (s *Suggester) finish(seq uint64, cancel context.CancelFunc) {
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seq == seq {
		s.cancel = nil
	}
}
