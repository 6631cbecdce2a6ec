// Package memory is a fixed EntrySource for development and tests.
package memory

import (
	"context"
	"slices"
	"sync"

	"bilancio/internal/core"
)

type Source struct {
	mu      sync.Mutex
	income  []core.RawEntry
	expense []core.RawEntry
	err     error
	reads   int
}

func New(income, expense []core.RawEntry) *Source {
	return &Source{income: slices.Clone(income), expense: slices.Clone(expense)}
}

// SetError makes every following read fail with err.
func (s *Source) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// ReadEntries returns copies of the configured rows.
func (s *Source) ReadEntries(_ context.Context) ([]core.RawEntry, []core.RawEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.err != nil {
		return nil, nil, s.err
	}
	return slices.Clone(s.income), slices.Clone(s.expense), nil
}

// Reads is how many times ReadEntries was called.
func (s *Source) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}
