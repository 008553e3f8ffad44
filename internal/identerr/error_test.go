package identerr

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessageComposition(t *testing.T) {
	cases := []struct {
		name string
		err  *Error
		want string
	}{
		{"no cause", New(KindConfiguration, "bad option"), "bad option"},
		{"single line cause", Detail(KindValidation, "Invalid map", "got null"), "Invalid map\n  got null"},
		{"multi line cause", Wrap(KindRead, "Failure to read x", errors.New("line1\nline2")), "Failure to read x\n  line1\n  line2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.err.Error())
		})
	}
}

func TestNestedCausesAreIndentedTwice(t *testing.T) {
	inner := Detail(KindParse, "Failure to parse a", "SyntaxError")
	outer := Wrap(KindRead, "Failure to load", inner)
	assert.Equal(t, "Failure to load\n  Failure to parse a\n    SyntaxError", outer.Error())
}

func TestErrorsIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("context: %w", Detail(KindValidation, "Invalid map", "got null"))
	assert.ErrorIs(t, err, ErrValidation)
	assert.NotErrorIs(t, err, ErrParse)
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Equal(t, Kind(0), KindOf(errors.New("plain")))
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(KindWrite, "Failure to write", cause)
	require.ErrorIs(t, err, cause)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "ConfigurationError", KindConfiguration.String())
	assert.Equal(t, "RemovalWarning", KindRemoval.String())
	assert.Equal(t, "UNKNOWN", Kind(42).String())
}

func TestDescribe(t *testing.T) {
	long := strings.Repeat(".", 80)
	cases := []struct {
		value any
		limit int
		want  string
	}{
		{nil, -1, "null"},
		{[]any{}, -1, "array"},
		{float64(0), -1, "number"},
		{true, -1, "boolean"},
		{map[string]any{}, -1, "object"},
		{"0", -1, `"0"`},
		{"a<b", -1, `"a<b"`},
		{long, 71, "string(80)"},
		{long, -1, `"` + long + `"`},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Describe(tc.value, tc.limit), "Describe(%v, %d)", tc.value, tc.limit)
	}
}

func TestTypeName(t *testing.T) {
	assert.Equal(t, "string", TypeName("x"))
	assert.Equal(t, "null", TypeName(nil))
	assert.Equal(t, "unknown", TypeName(struct{}{}))
}
