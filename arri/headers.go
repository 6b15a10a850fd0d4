// Copyright 2025 The Arri Go SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package arri

import (
	"iter"
	"maps"
	"slices"
	"strings"
	"sync"
)

// A HeaderMap is a case-insensitive mapping of header keys to values.
// Keys are lowercased on insertion, and iteration visits keys in
// lexicographic order, so that encoded messages are byte-deterministic.
//
// The zero HeaderMap is ready to use.
type HeaderMap struct {
	m map[string]string
}

// NewHeaderMap returns a HeaderMap populated from pairs.
func NewHeaderMap(pairs map[string]string) HeaderMap {
	h := HeaderMap{}
	for k, v := range pairs {
		h.Set(k, v)
	}
	return h
}

// Set inserts or replaces the value for key. The key is lowercased.
func (h *HeaderMap) Set(key, value string) {
	if h.m == nil {
		h.m = make(map[string]string)
	}
	h.m[strings.ToLower(key)] = value
}

// Get returns the value for key, looked up case-insensitively.
func (h *HeaderMap) Get(key string) (string, bool) {
	v, ok := h.m[strings.ToLower(key)]
	return v, ok
}

// Contains reports whether key is present, case-insensitively.
func (h *HeaderMap) Contains(key string) bool {
	_, ok := h.m[strings.ToLower(key)]
	return ok
}

// Delete removes key, if present.
func (h *HeaderMap) Delete(key string) {
	delete(h.m, strings.ToLower(key))
}

// Len returns the number of entries.
func (h *HeaderMap) Len() int { return len(h.m) }

// All iterates over entries in lexicographic key order.
func (h *HeaderMap) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, k := range slices.Sorted(maps.Keys(h.m)) {
			if !yield(k, h.m[k]) {
				return
			}
		}
	}
}

// Clone returns an independent copy of h.
func (h *HeaderMap) Clone() HeaderMap {
	return HeaderMap{m: maps.Clone(h.m)}
}

// A SharedHeaderMap is a HeaderMap shared by all calls issued through one
// client. Writers replace or update entries; each call's encoding path
// takes a point-in-time snapshot, so an in-flight call never observes a
// partial update.
type SharedHeaderMap struct {
	mu sync.RWMutex
	h  HeaderMap
}

// NewSharedHeaderMap returns a SharedHeaderMap populated from pairs.
func NewSharedHeaderMap(pairs map[string]string) *SharedHeaderMap {
	return &SharedHeaderMap{h: NewHeaderMap(pairs)}
}

// Set inserts or replaces a single entry.
func (s *SharedHeaderMap) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.h.Set(key, value)
}

// Replace swaps the entire contents of the map for pairs.
func (s *SharedHeaderMap) Replace(pairs map[string]string) {
	next := NewHeaderMap(pairs)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.h = next
}

// Get returns the value for key, case-insensitively.
func (s *SharedHeaderMap) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.h.Get(key)
}

// Snapshot returns an independent copy of the current contents.
func (s *SharedHeaderMap) Snapshot() HeaderMap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.h.Clone()
}
