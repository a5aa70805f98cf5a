package tle

import (
	"sync/atomic"
)

// storeState is an immutable snapshot published by Store.Set.
type storeState struct {
	set  *Set
	byID map[int]Element
}

// Store provides lock-free reads of the current element set.
type Store struct {
	state atomic.Pointer[storeState]
}

// NewStore creates a new empty Store.
func NewStore() *Store {
	return &Store{}
}

// Get returns the current set, or nil if none has been loaded.
func (s *Store) Get() *Set {
	st := s.state.Load()
	if st == nil {
		return nil
	}
	return st.set
}

// Set atomically replaces the current set. When a NORAD ID appears more than
// once the first element wins.
func (s *Store) Set(set *Set) {
	byID := make(map[int]Element, len(set.Elements))
	for _, e := range set.Elements {
		if _, ok := byID[e.NORADID]; !ok {
			byID[e.NORADID] = e
		}
	}
	s.state.Store(&storeState{set: set, byID: byID})
}

// Lookup returns the element set for a NORAD catalog number.
func (s *Store) Lookup(noradID int) (Element, bool) {
	st := s.state.Load()
	if st == nil {
		return Element{}, false
	}
	e, ok := st.byID[noradID]
	return e, ok
}
