package ident

import (
	"fortio.org/safecast"
)

// Alphabet is the ordered symbol set identifiers are drawn from.
const Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// MaxLength is the longest identifier the allocator will produce. Past it the
// generator stops allocating and hands keys back unchanged.
const MaxLength = 12

const (
	radix   = uint64(len(Alphabet))
	letters = uint64(26)
)

// Index is the position of an identifier in the allocation order: 0 means
// "nothing produced yet", 1 is "a", 26 is "z", 27 is "a0" and so on.
// Integer order matches identifier order (shorter first, then lexicographic
// over Alphabet).
type Index uint64

// MaxIndex is the index of the last identifier of MaxLength symbols.
var MaxIndex Index

var (
	// pow36[k] = 36^k
	pow36 [MaxLength]uint64
	// first[l] is the index of the first identifier of length l;
	// first[MaxLength+1] is MaxIndex+1.
	first [MaxLength + 2]uint64
)

func init() {
	pow36[0] = 1
	for k := 1; k < MaxLength; k++ {
		pow36[k] = pow36[k-1] * radix
	}
	first[1] = 1
	for l := 1; l <= MaxLength; l++ {
		first[l+1] = first[l] + letters*pow36[l-1]
	}
	MaxIndex = Index(first[MaxLength+1] - 1)
}

// Parse converts a lowercase identifier into its Index. The empty string maps
// to 0. It fails for anything that is not letter-led [0-9a-z] or is longer
// than MaxLength.
func Parse(s string) (Index, bool) {
	if s == "" {
		return 0, true
	}
	if len(s) > MaxLength || !IsLower(s) {
		return 0, false
	}
	v := uint64(s[0]-'a') * pow36[len(s)-1]
	for i := 1; i < len(s); i++ {
		v += symbolValue(s[i]) * pow36[len(s)-1-i]
	}
	return Index(first[len(s)] + v), true
}

// String formats the identifier at i. Index 0 and indexes past MaxIndex
// format as the empty string.
func (i Index) String() string {
	if i == 0 || i > MaxIndex {
		return ""
	}
	n := i.Len()
	v := uint64(i) - first[n]
	buf := make([]byte, n)
	for pos := n - 1; pos > 0; pos-- {
		buf[pos] = Alphabet[v%radix]
		v /= radix
	}
	buf[0] = byte('a' + v)
	return string(buf)
}

// Len returns the number of symbols of the identifier at i.
func (i Index) Len() int {
	for l := 1; l <= MaxLength; l++ {
		if uint64(i) < first[l+1] {
			return l
		}
	}
	return 0
}

// FirstOfLength returns the index of the first identifier with n symbols
// ("a", "a0", "a00", ...). For n past MaxLength it returns MaxIndex+1.
func FirstOfLength(n int) Index {
	if n < 1 {
		return 1
	}
	if n > MaxLength+1 {
		n = MaxLength + 1
	}
	return Index(first[n])
}

// Count returns the number of identifiers preceding and including i, as an
// int for progress reporting. It fails when i does not fit.
func (i Index) Count() (int, error) {
	return safecast.Conv[int](uint64(i))
}

// IsLower reports whether s is a letter-led string of lowercase letters and
// digits, the shape of every generated identifier.
func IsLower(s string) bool {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return false
	}
	for i := 1; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'z') {
			return false
		}
	}
	return true
}

// Valid reports whether s matches the identifier grammar accepted from map
// files: a letter (either case) followed by letters or digits.
func Valid(s string) bool {
	if s == "" || !isLetter(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isLetter(s[i]) && (s[i] < '0' || s[i] > '9') {
			return false
		}
	}
	return true
}

// Less orders identifiers the way the allocator produces them: shorter
// first, then bytewise.
func Less(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func symbolValue(c byte) uint64 {
	if c <= '9' {
		return uint64(c - '0')
	}
	return uint64(c-'a') + 10
}
