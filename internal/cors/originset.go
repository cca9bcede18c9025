package cors

import (
	"slices"
	"sync"
)

// Wildcard is the origin entry that allows every origin.
const Wildcard = "*"

// AddResult reports the outcome of OriginSet.Add.
type AddResult int

const (
	// AddFailed means the origin was rejected (empty string).
	AddFailed AddResult = iota
	// Added means the origin was inserted.
	Added
	// AlreadyPresent means the origin was already a member.
	AlreadyPresent
)

func (r AddResult) String() string {
	switch r {
	case Added:
		return "added"
	case AlreadyPresent:
		return "already_present"
	default:
		return "failed"
	}
}

// RemoveResult reports the outcome of OriginSet.Remove.
type RemoveResult int

const (
	// NotFound means the origin was not a member (or was empty).
	NotFound RemoveResult = iota
	// Removed means the origin was deleted.
	Removed
)

func (r RemoveResult) String() string {
	if r == Removed {
		return "removed"
	}
	return "not_found"
}

// OriginSet is a concurrency-safe set of allowed origins.
// Matching is exact and case-sensitive; the literal "*" makes every origin match.
type OriginSet struct {
	mu       sync.RWMutex
	members  map[string]struct{}
	order    []string
	allowAll bool
}

// NewOriginSet creates an empty origin set
func NewOriginSet() *OriginSet {
	return &OriginSet{members: make(map[string]struct{})}
}

// Add inserts origin into the set.
func (s *OriginSet) Add(origin string) AddResult {
	if origin == "" {
		return AddFailed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[origin]; ok {
		return AlreadyPresent
	}
	s.members[origin] = struct{}{}
	s.order = append(s.order, origin)
	if origin == Wildcard {
		s.allowAll = true
	}
	return Added
}

// Remove deletes origin from the set.
func (s *OriginSet) Remove(origin string) RemoveResult {
	if origin == "" {
		return NotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[origin]; !ok {
		return NotFound
	}
	delete(s.members, origin)
	if i := slices.Index(s.order, origin); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
	if origin == Wildcard {
		s.allowAll = false
	}
	return Removed
}

// Contains reports whether origin is allowed. The wildcard dominates.
func (s *OriginSet) Contains(origin string) bool {
	allowAll, member := s.Match(origin)
	return allowAll || member
}

// Match reads the wildcard flag and the exact membership of origin under a
// single lock, so callers get a consistent view of both.
func (s *OriginSet) Match(origin string) (allowAll, member bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, member = s.members[origin]
	return s.allowAll, member
}

// Count returns the number of configured entries, including "*".
func (s *OriginSet) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.members)
}

// AllowsAll reports whether "*" is a member.
func (s *OriginSet) AllowsAll() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.allowAll
}

// Origins returns a snapshot of the entries in insertion order.
func (s *OriginSet) Origins() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.order)
}

// Clear removes every entry.
func (s *OriginSet) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.members)
	s.order = nil
	s.allowAll = false
}
