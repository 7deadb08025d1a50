// Package cache provides the upload store behind the plotting API: parsed
// files keyed by sample name, guarded for concurrent request handling.
// Stores are plain injected values owned by the server, not package state.
package cache

import (
	"sort"
	"sync"
)

// Entry pairs a cached value with the content digest of the bytes it was
// parsed from.
type Entry[T any] struct {
	Value  T
	Digest string
}

// Store is a mutex-guarded map of parsed uploads. Uploading a file under an
// existing name replaces the previous entry; reads never re-parse.
type Store[T any] struct {
	mu sync.RWMutex
	m  map[string]Entry[T]
}

func NewStore[T any]() *Store[T] {
	return &Store[T]{m: make(map[string]Entry[T])}
}

func (s *Store[T]) Put(name string, value T, digest string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.m[name] = Entry[T]{Value: value, Digest: digest}
}

func (s *Store[T]) Get(name string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.m[name]
	return entry.Value, ok
}

// Names returns the cached sample names, sorted.
func (s *Store[T]) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.m))
	for name := range s.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns every cached value keyed by name.
func (s *Store[T]) Snapshot() map[string]T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]T, len(s.m))
	for name, entry := range s.m {
		out[name] = entry.Value
	}
	return out
}

// Digests returns the content digest of every cached entry keyed by name.
func (s *Store[T]) Digests() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.m))
	for name, entry := range s.m {
		out[name] = entry.Digest
	}
	return out
}

func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.m)
}

// Clear discards every entry.
func (s *Store[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.m = make(map[string]Entry[T])
}
