package ident

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAndFormatAgree(t *testing.T) {
	cases := []struct {
		ident string
		index Index
	}{
		{"", 0},
		{"a", 1},
		{"z", 26},
		{"a0", 27},
		{"a9", 36},
		{"aa", 37},
		{"az", 62},
		{"b0", 63},
		{"zz", 26 + 26*36},
		{"a00", 26 + 26*36 + 1},
	}
	for _, tc := range cases {
		got, ok := Parse(tc.ident)
		require.True(t, ok, "Parse(%q)", tc.ident)
		assert.Equal(t, tc.index, got, "Parse(%q)", tc.ident)
		assert.Equal(t, tc.ident, tc.index.String(), "Index(%d).String()", tc.index)
	}
}

func TestParseRejectsNonIdentifiers(t *testing.T) {
	for _, s := range []string{"0", "0a", "A", "aB", "a-b", "a_b", strings.Repeat("a", MaxLength+1)} {
		_, ok := Parse(s)
		assert.False(t, ok, "Parse(%q) should fail", s)
	}
}

func TestIndexRoundTripAcrossLengthBoundaries(t *testing.T) {
	for n := 1; n <= MaxLength; n++ {
		start := FirstOfLength(n)
		for _, idx := range []Index{start - 1, start, start + 1} {
			if idx == 0 {
				continue
			}
			s := idx.String()
			back, ok := Parse(s)
			require.True(t, ok, "Parse(%q)", s)
			assert.Equal(t, idx, back)
		}
		assert.Equal(t, "a"+strings.Repeat("0", n-1), start.String())
	}
}

func TestMaxIndexIsLongestIdentifier(t *testing.T) {
	assert.Equal(t, strings.Repeat("z", MaxLength), MaxIndex.String())
	assert.Equal(t, "", (MaxIndex + 1).String())
	assert.Equal(t, MaxIndex+1, FirstOfLength(MaxLength+1))
	n, err := MaxIndex.Count()
	require.NoError(t, err)
	assert.Positive(t, n)
}

func TestValidAndIsLower(t *testing.T) {
	assert.True(t, Valid("a"))
	assert.True(t, Valid("Ab9"))
	assert.False(t, Valid(""))
	assert.False(t, Valid("0"))
	assert.False(t, Valid("a_b"))
	assert.False(t, Valid("a-b"))
	assert.False(t, Valid("é"))

	assert.True(t, IsLower("a0"))
	assert.False(t, IsLower("Ab"))
}

func TestLessOrdersShorterFirst(t *testing.T) {
	assert.True(t, Less("z", "a0"))
	assert.True(t, Less("aa", "bb"))
	assert.True(t, Less("", "a"))
	assert.False(t, Less("cc", "bb"))
	assert.False(t, Less("aa", "aa"))
}
