// Package dedup tracks match IDs that have already been reported.
package dedup

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Set is a set of processed match IDs.
//
// With a capacity of zero the set grows for the life of the process. With a positive
// capacity only the most recently used IDs are kept. Every id in the polled window is
// touched by Unseen each cycle, so a capacity of at least the window size never evicts
// an id that can still be returned.
type Set struct {
	bounded *lru.Cache[string, struct{}]
	seen    map[string]struct{}
	mu      sync.RWMutex
}

// New creates a set. capacity <= 0 means unbounded.
func New(capacity int) *Set {
	if capacity > 0 {
		// lru.New only fails for a non-positive size.
		cache, err := lru.New[string, struct{}](capacity)
		if err == nil {
			return &Set{bounded: cache}
		}
	}
	return &Set{seen: make(map[string]struct{})}
}

// Has reports whether id was added before. In a bounded set a hit also marks id
// as recently used, so ids still returned by the history window stay resident.
func (s *Set) Has(id string) bool {
	if s.bounded != nil {
		_, ok := s.bounded.Get(id)
		return ok
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.seen[id]
	return ok
}

// Add records id. Adding an existing id only refreshes its recency.
func (s *Set) Add(id string) {
	if s.bounded != nil {
		s.bounded.Add(id, struct{}{})
		return
	}
	s.mu.Lock()
	s.seen[id] = struct{}{}
	s.mu.Unlock()
}

// Len returns the number of tracked ids.
func (s *Set) Len() int {
	if s.bounded != nil {
		return s.bounded.Len()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}

// Unseen returns the ids not yet in the set, preserving order.
func (s *Set) Unseen(ids []string) []string {
	var out []string
	for _, id := range ids {
		if !s.Has(id) {
			out = append(out, id)
		}
	}
	return out
}
