// Package memory provides an in-process document store for tests and ephemeral runs.
package memory

import (
	"context"
	"sync"

	"uksledger/pkg/domain"
)

var _ domain.DocumentStore = (*Store)(nil)

// Store keeps a deep copy of the last saved aggregate.
type Store struct {
	mu    sync.RWMutex
	doc   domain.Aggregate
	saved bool
}

// NewStore constructs an empty in-memory document store.
func NewStore() *Store {
	return &Store{}
}

// Driver identifies the backend.
func (s *Store) Driver() domain.StorageDriver { return domain.StorageMemory }

// Load returns a copy of the saved document.
func (s *Store) Load(ctx context.Context) (domain.Aggregate, error) {
	if err := ctx.Err(); err != nil {
		return domain.Aggregate{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.saved {
		return domain.Aggregate{}, domain.ErrNoDocument
	}
	return s.doc.Clone(), nil
}

// Save replaces the stored document.
func (s *Store) Save(ctx context.Context, agg domain.Aggregate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = agg.Clone()
	s.saved = true
	return nil
}
