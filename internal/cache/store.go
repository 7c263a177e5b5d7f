// Package cache implements the Ingest & Lifecycle Cache (spec.md §4.1)
// and the Topology Oracle (spec.md §4.2): a single-writer, versioned,
// keyed store per account type, gated by a per-pool lifecycle state
// machine. It is exercised exclusively from the hot path and never
// itself performs I/O or logging — callers wrap Commit with their own
// instrumentation.
package cache

import (
	"sync"

	"github.com/solana-zh/arb-engine/internal/domain"
)

// Entry pairs a stored value with the version and source it was
// written at. Source lets a dependency lookup distinguish a
// bootstrap-sourced entry (exempt from the freeze-slot comparison,
// spec.md §4.2) from a canonical one (which must be at or past the
// pool's freeze slot to count toward activation).
type Entry[T any] struct {
	Value   T
	Version domain.Version
	Source  Source
}

// Store is a versioned, keyed map: a write applies iff its version is
// strictly newer than the one on file (spec.md §3 invariant 2). K is
// pubkey.Pubkey for account-keyed stores (pools, vaults, configs) and a
// small composite key for tick/bin arrays, which are addressed by
// (pool, start index) rather than by their own account pubkey alone.
type Store[K comparable, T any] struct {
	mu      sync.RWMutex
	entries map[K]Entry[T]
}

// NewStore constructs an empty Store.
func NewStore[K comparable, T any]() *Store[K, T] {
	return &Store[K, T]{entries: make(map[K]Entry[T])}
}

// Put applies value at key if version is strictly newer than the
// currently stored version. Returns false (without error) when the
// version is less than or equal to what's on file; the caller
// classifies that outcome as a stale write.
func (s *Store[K, T]) Put(key K, value T, version domain.Version, source Source) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[key]; ok && version.LessOrEqual(existing.Version) {
		return false
	}
	s.entries[key] = Entry[T]{Value: value, Version: version, Source: source}
	return true
}

// Get returns the current value for key, if any.
func (s *Store[K, T]) Get(key K) (T, domain.Version, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return e.Value, e.Version, ok
}

// GetEntry returns the full stored entry for key, including the
// source it was written with — used where a caller must distinguish
// bootstrap-sourced entries from canonical ones (cache.go's
// TryActivate).
func (s *Store[K, T]) GetEntry(key K) (Entry[T], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return e, ok
}

// Has reports whether key has any entry on file.
func (s *Store[K, T]) Has(key K) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[key]
	return ok
}

// Len returns the number of resident entries.
func (s *Store[K, T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Range calls f for every resident entry, stopping early if f returns
// false. f is called with the store's read lock held, so it must not
// call back into this Store. Used by background workers that need to
// enumerate pools (topology re-derivation, spread scanning) — never by
// the hot path's own per-key operations.
func (s *Store[K, T]) Range(f func(key K, value T, version domain.Version) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for k, e := range s.entries {
		if !f(k, e.Value, e.Version) {
			return
		}
	}
}
