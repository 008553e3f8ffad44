package identerr

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Describe renders a decoded JSON value for diagnostics. Strings are quoted
// unless the quoted form exceeds limit, in which case only their length is
// shown as string(<n>). A negative limit disables summarising. Other values
// are shown by TypeName.
func Describe(v any, limit int) string {
	s, ok := v.(string)
	if !ok {
		return TypeName(v)
	}
	quoted := Quote(s)
	if limit >= 0 && utf8.RuneCountInString(quoted) > limit {
		return "string(" + strconv.Itoa(utf8.RuneCountInString(s)) + ")"
	}
	return quoted
}

// TypeName names the JSON type of a decoded value.
func TypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, json.Number, int, int64, uint64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return "unknown"
}

// lineSeparators undoes the escaping of U+2028 and U+2029, which JSON
// allows raw. An escaped backslash is matched first so `\\u2028` stays put.
var lineSeparators = strings.NewReplacer(`\\`, `\\`, `\u2028`, "\u2028", `\u2029`, "\u2029")

// Quote returns s as a JSON string literal without HTML escaping. U+2028 and
// U+2029 are written raw; invalid UTF-8 becomes U+FFFD.
func Quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return `"` + s + `"`
	}
	out := string(bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}))
	if strings.ContainsAny(s, "\u2028\u2029") {
		out = lineSeparators.Replace(out)
	}
	return out
}
