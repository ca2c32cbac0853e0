// Package memstore is the in-memory reference implementation of
// auth.TokenStore, used for tests and local development (§4.7
// domain-stack wiring). Production wiring replaces it with a client
// against the relational token/org store, an external collaborator out of
// core scope per §1.
package memstore

import (
	"context"
	"sync"

	"github.com/rawcontext/engram-sub001/internal/auth"
	"github.com/rawcontext/engram-sub001/internal/bitemporal"
)

// Store is a mutex-guarded map keyed by token hash.
type Store struct {
	mu      sync.RWMutex
	records map[string]*auth.TokenRecord
}

// New constructs an empty store.
func New() *Store {
	return &Store{records: make(map[string]*auth.TokenRecord)}
}

// Put registers a record under tokenHash, for seeding tests/local dev (and
// for cmd/tokenctl's issuance path).
func (s *Store) Put(tokenHash string, record *auth.TokenRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[tokenHash] = record
}

// Lookup implements auth.TokenStore.
func (s *Store) Lookup(ctx context.Context, tokenHash string) (*auth.TokenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[tokenHash]
	if !ok {
		return nil, auth.ErrTokenNotFound
	}
	return r, nil
}

// RecordLastUsed implements auth.TokenStore.
func (s *Store) RecordLastUsed(ctx context.Context, id string, at bitemporal.Instant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.ID == id {
			r.LastUsedAt = at
			return nil
		}
	}
	return auth.ErrTokenNotFound
}
