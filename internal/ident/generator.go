// Package ident allocates short CSS identifiers.
//
// A Generator hands out identifiers in the order a, b, ..., z, a0, ..., az,
// b0, ..., zz, a00, ... and remembers which key received which identifier, so
// asking twice for the same key returns the same answer. Exclusion rules keep
// chosen identifiers and whole prefixes out of the output. A map saved by a
// previous build can be imported to keep identifiers stable across builds.
//
// A Generator is not safe for concurrent use.
package ident

import (
	"strings"
)

// Generator is a deterministic key -> identifier allocator.
type Generator struct {
	opts    Resolved
	exclude map[string]struct{}
	cursor  Index
	idents  *Map
	owners  map[string]string // identifier -> key
}

// New validates opts and returns a Generator positioned after opts.StartIdent.
func New(opts Options) (*Generator, error) {
	res, err := Resolve(opts)
	if err != nil {
		return nil, err
	}
	g := &Generator{
		opts:    res,
		exclude: make(map[string]struct{}, len(res.Exclude)),
		idents:  NewMap(),
		owners:  make(map[string]string),
	}
	for _, e := range res.Exclude {
		g.exclude[e] = struct{}{}
	}
	g.cursor = cursorFloor(res.StartIdent)
	return g, nil
}

// Options returns a copy of the resolved options.
func (g *Generator) Options() Resolved { return g.opts.clone() }

// GenerateIdent returns the identifier of key, allocating the next free one
// when key is new. Once the identifier space is exhausted the key itself is
// returned and nothing is recorded.
func (g *Generator) GenerateIdent(key string) string {
	if id, ok := g.idents.Get(key); ok {
		return id
	}
	next := g.cursor + 1
	for {
		if next > MaxIndex {
			g.cursor = MaxIndex
			return key
		}
		candidate := next.String()
		if prefix, ok := g.excludedPrefix(candidate); ok {
			next = skipPrefix(candidate, prefix)
			continue
		}
		if g.rejected(candidate) {
			next++
			continue
		}
		g.cursor = next
		g.idents.Set(key, candidate)
		g.owners[candidate] = key
		return candidate
	}
}

// Lookup returns the identifier already allocated for key.
func (g *Generator) Lookup(key string) (string, bool) {
	return g.idents.Get(key)
}

// Len returns the number of allocated keys.
func (g *Generator) Len() int { return g.idents.Len() }

// Map returns a copy of the live identifier map.
func (g *Generator) Map() *Map { return g.idents.Clone() }

// Cursor returns the last identifier produced or imported.
func (g *Generator) Cursor() string { return g.cursor.String() }

// CursorIndex returns the allocation position.
func (g *Generator) CursorIndex() Index { return g.cursor }

// ImportMap merges m into the live map. Entries of m replace existing entries
// with the same key, and a live key holding an identifier that m assigns to
// another key loses it; such a key is allocated afresh on its next request.
// The cursor moves to the greatest identifier of m when that lies ahead of
// it; it never moves back.
func (g *Generator) ImportMap(m *Map) {
	for key, id := range m.All() {
		if prev, ok := g.idents.Get(key); ok && g.owners[prev] == key {
			delete(g.owners, prev)
		}
		if owner, ok := g.owners[id]; ok && owner != key {
			g.idents.Delete(owner)
		}
		g.idents.Set(key, id)
		g.owners[id] = key
		if floor := cursorFloor(id); floor > g.cursor {
			g.cursor = floor
		}
	}
}

func (g *Generator) rejected(candidate string) bool {
	if _, ok := g.exclude[candidate]; ok {
		return true
	}
	_, taken := g.owners[candidate]
	return taken
}

func (g *Generator) excludedPrefix(candidate string) (string, bool) {
	for _, p := range g.opts.ExcludePrefix {
		if strings.HasPrefix(candidate, p) {
			return p, true
		}
	}
	return "", false
}

// skipPrefix returns the first index past every identifier of the same
// length as candidate that starts with prefix. prefix is a prefix of a
// generated identifier, hence itself a valid identifier.
func skipPrefix(candidate, prefix string) Index {
	p, _ := Parse(prefix)
	succ := (p + 1).String()
	if len(succ) != len(prefix) {
		return FirstOfLength(len(candidate) + 1)
	}
	next, ok := Parse(succ + strings.Repeat("0", len(candidate)-len(prefix)))
	if !ok {
		return MaxIndex + 1
	}
	return next
}

// cursorFloor is the cursor position implied by an identifier already in
// use. Identifiers the generator could never produce (uppercase letters) do
// not move the cursor; lowercase ones longer than MaxLength exhaust it.
func cursorFloor(id string) Index {
	if idx, ok := Parse(id); ok {
		return idx
	}
	if len(id) > MaxLength && IsLower(id) {
		return MaxIndex
	}
	return 0
}
