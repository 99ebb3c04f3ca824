//go:build integration || unit || test

// Package seriesdoubles provides test doubles for the collaborators of series.Series.
package seriesdoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"sync"

	"github.com/rios0rios0/patchseries/internal/domain/series"
)

// SpyObserver records transaction outcomes.
type SpyObserver struct {
	mu         sync.Mutex
	Applied    []int
	RolledBack []string
}

var _ series.Observer = (*SpyObserver)(nil)

func (s *SpyObserver) TransactionApplied(size int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Applied = append(s.Applied, size)
}

func (s *SpyObserver) TransactionRolledBack(kind string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RolledBack = append(s.RolledBack, kind)
}
