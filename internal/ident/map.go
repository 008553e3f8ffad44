package ident

import (
	"iter"
	"slices"
)

// Map is an insertion-ordered key -> identifier mapping. The zero value is
// not usable; a nil *Map behaves as an empty, read-only map.
type Map struct {
	keys   []string
	idents map[string]string
}

// NewMap returns an empty map.
func NewMap() *Map {
	return &Map{idents: make(map[string]string)}
}

// Set stores ident under key. A new key is appended to the order; an
// existing key keeps its position and takes the new value.
func (m *Map) Set(key, ident string) {
	if _, ok := m.idents[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.idents[key] = ident
}

// Delete removes key. The order of the remaining keys is kept.
func (m *Map) Delete(key string) {
	if m == nil {
		return
	}
	if _, ok := m.idents[key]; !ok {
		return
	}
	delete(m.idents, key)
	m.keys = slices.DeleteFunc(m.keys, func(k string) bool { return k == key })
}

// Get returns the identifier stored for key.
func (m *Map) Get(key string) (string, bool) {
	if m == nil {
		return "", false
	}
	id, ok := m.idents[key]
	return id, ok
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns a copy of the keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	return slices.Clone(m.keys)
}

// All iterates entries in insertion order.
func (m *Map) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		if m == nil {
			return
		}
		for _, k := range m.keys {
			if !yield(k, m.idents[k]) {
				return
			}
		}
	}
}

// Clone returns an independent copy.
func (m *Map) Clone() *Map {
	out := NewMap()
	for k, v := range m.All() {
		out.Set(k, v)
	}
	return out
}

// MaxIdent returns the greatest identifier value by allocation order, or ""
// for an empty map.
func (m *Map) MaxIdent() string {
	var top string
	for _, v := range m.All() {
		if Less(top, v) {
			top = v
		}
	}
	return top
}
