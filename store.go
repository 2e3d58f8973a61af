package cache

import "sync"

// Store is the in-memory identifier to model mapping, the single source of
// cached truth within the process. Entries never expire; they are replaced by
// later fetches or removed explicitly. All methods are safe for concurrent
// use.
//
// Absence from the store means "not yet cached", not "does not exist
// remotely".
type Store[T Model[K], K comparable] struct {
	mu     sync.RWMutex
	models map[K]*T
}

func NewStore[T Model[K], K comparable]() *Store[T, K] {
	return &Store[T, K]{
		models: map[K]*T{},
	}
}

// Get returns the cached model for id, or nil on a miss.
func (s *Store[T, K]) Get(id K) *T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.models[id]
}

// Put inserts or replaces each model under its own identifier. Last write
// wins when the same identifier appears more than once in one call. Calling
// Put twice with the same models is idempotent.
func (s *Store[T, K]) Put(models []*T) {
	if len(models) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range models {
		s.models[(*m).ModelID()] = m
	}
}

// Remove deletes the entries for the given identifiers. Removing an absent
// identifier is a no-op.
func (s *Store[T, K]) Remove(ids []K) {
	if len(ids) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		delete(s.models, id)
	}
}

// Len returns the number of cached models.
func (s *Store[T, K]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.models)
}
