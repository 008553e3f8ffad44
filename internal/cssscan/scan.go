// Package cssscan finds and rewrites class selectors in CSS module sources.
//
// It is not a CSS parser. It walks the source once, tracking comments,
// strings and brace nesting, and reports every ".name" that appears in a
// selector prelude. Declaration blocks, at-rule preludes, url(...) and
// :global(...) are skipped, and all other bytes are left untouched by Rewrite.
//
// Known limits:
//   - only the functional :global(.x) form is global; the bare ":global .x"
//     selector is treated as local and renamed.
//   - rules nested directly inside a declaration block (CSS nesting,
//     ".a { .b { } }") are skipped with the block, so ".b" is not renamed.
package cssscan

import (
	"bytes"
	"strings"
)

// Class is one class selector occurrence. Start and End delimit the name
// (without the leading dot) in the source.
type Class struct {
	Name  string
	Start int
	End   int
}

// ruleAtRules are at-rules whose block contains rules rather than declarations.
var ruleAtRules = map[string]bool{
	"media":          true,
	"supports":       true,
	"layer":          true,
	"container":      true,
	"document":       true,
	"scope":          true,
	"starting-style": true,
}

type blockKind uint8

const (
	blockRules blockKind = iota
	blockSkip
)

type scanner struct {
	src     []byte
	pos     int
	stack   []blockKind
	atRule  string
	inAt    bool
	classes []Class
}

// Scan returns every class selector occurrence in source order.
func Scan(src []byte) []Class {
	s := &scanner{src: src}
	s.run()
	return s.classes
}

// Names returns the distinct class names of src in order of first appearance.
func Names(src []byte) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, c := range Scan(src) {
		if _, ok := seen[c.Name]; ok {
			continue
		}
		seen[c.Name] = struct{}{}
		names = append(names, c.Name)
	}
	return names
}

// Rewrite replaces every class selector name with rename(name).
func Rewrite(src []byte, rename func(name string) string) []byte {
	classes := Scan(src)
	if len(classes) == 0 {
		return bytes.Clone(src)
	}
	var out bytes.Buffer
	out.Grow(len(src))
	last := 0
	for _, c := range classes {
		out.Write(src[last:c.Start])
		out.WriteString(rename(c.Name))
		last = c.End
	}
	out.Write(src[last:])
	return out.Bytes()
}

func (s *scanner) run() {
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case c == '/' && s.peek(1) == '*':
			s.skipComment()
		case c == '"' || c == '\'':
			s.skipString(c)
		case c == '\\':
			s.pos += 2
		case c == '@':
			s.pos++
			s.atRule = strings.ToLower(s.readName())
			s.inAt = true
		case c == ';':
			s.pos++
			s.atRule, s.inAt = "", false
		case c == '{':
			s.pos++
			s.openBlock()
		case c == '}':
			s.pos++
			if len(s.stack) > 0 {
				s.stack = s.stack[:len(s.stack)-1]
			}
		case c == ':' && s.hasFold(1, "global("):
			s.pos += len(":global(")
			s.skipParens()
		case (c == 'u' || c == 'U') && s.hasFold(0, "url("):
			s.pos += len("url(")
			s.skipParens()
		case c == '.' && !s.inAt && s.identStartAt(s.pos+1):
			s.pos++
			start := s.pos
			name := s.readName()
			s.classes = append(s.classes, Class{Name: name, Start: start, End: s.pos})
		default:
			s.pos++
		}
	}
}

func (s *scanner) openBlock() {
	kind := blockSkip
	if s.inAt && ruleAtRules[s.atRule] {
		kind = blockRules
	}
	s.atRule, s.inAt = "", false
	if kind == blockRules {
		s.stack = append(s.stack, kind)
		return
	}
	s.skipBlock()
}

// skipBlock consumes a declaration (or opaque at-rule) block up to and
// including its closing brace.
func (s *scanner) skipBlock() {
	depth := 1
	for s.pos < len(s.src) && depth > 0 {
		c := s.src[s.pos]
		switch {
		case c == '/' && s.peek(1) == '*':
			s.skipComment()
		case c == '"' || c == '\'':
			s.skipString(c)
		case c == '\\':
			s.pos += 2
		case c == '{':
			depth++
			s.pos++
		case c == '}':
			depth--
			s.pos++
		default:
			s.pos++
		}
	}
}

func (s *scanner) skipComment() {
	end := bytes.Index(s.src[s.pos+2:], []byte("*/"))
	if end < 0 {
		s.pos = len(s.src)
		return
	}
	s.pos += 2 + end + 2
}

func (s *scanner) skipString(quote byte) {
	s.pos++
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case '\\':
			s.pos += 2
			continue
		case quote, '\n':
			s.pos++
			return
		}
		s.pos++
	}
}

// skipParens consumes up to the parenthesis closing an already opened one.
func (s *scanner) skipParens() {
	depth := 1
	for s.pos < len(s.src) && depth > 0 {
		c := s.src[s.pos]
		switch {
		case c == '"' || c == '\'':
			s.skipString(c)
			continue
		case c == '\\':
			s.pos++
		case c == '(':
			depth++
		case c == ')':
			depth--
		}
		s.pos++
	}
}

// readName consumes identifier characters, including backslash escapes.
func (s *scanner) readName() string {
	start := s.pos
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case c == '\\' && s.pos+1 < len(s.src):
			s.pos += 2
		case isNameChar(c):
			s.pos++
		default:
			return string(s.src[start:s.pos])
		}
	}
	return string(s.src[start:s.pos])
}

func (s *scanner) identStartAt(i int) bool {
	if i >= len(s.src) {
		return false
	}
	c := s.src[i]
	switch {
	case isNameStart(c), c == '\\':
		return true
	case c == '-':
		return i+1 < len(s.src) && (isNameStart(s.src[i+1]) || s.src[i+1] == '-' || s.src[i+1] == '\\')
	}
	return false
}

func (s *scanner) peek(off int) byte {
	if s.pos+off < len(s.src) {
		return s.src[s.pos+off]
	}
	return 0
}

func (s *scanner) hasFold(off int, word string) bool {
	start := s.pos + off
	if start+len(word) > len(s.src) {
		return false
	}
	return strings.EqualFold(string(s.src[start:start+len(word)]), word)
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isNameChar(c byte) bool {
	return isNameStart(c) || c == '-' || isDigit(c)
}
