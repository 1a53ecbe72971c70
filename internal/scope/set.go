package scope

import "sort"

// Set is the result of a scope resolution: a deduplicated collection of
// entity IDs. Iteration order is not guaranteed — callers needing
// deterministic order use [Set.Sorted].
type Set map[string]struct{}

// NewSet builds a set from the given IDs.
func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add inserts one ID.
func (s Set) Add(id string) {
	s[id] = struct{}{}
}

// AddAll inserts every ID from the slice.
func (s Set) AddAll(ids []string) {
	for _, id := range ids {
		s[id] = struct{}{}
	}
}

// Merge inserts every ID from other.
func (s Set) Merge(other Set) {
	for id := range other {
		s[id] = struct{}{}
	}
}

// Contains reports whether id is in the set.
func (s Set) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of IDs.
func (s Set) Len() int {
	return len(s)
}

// Sorted returns the IDs in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
