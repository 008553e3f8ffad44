package cssscan

import (
	"strconv"
	"strings"
)

// Escape makes s usable as a CSS identifier by backslash-escaping
// punctuation, hex-escaping whitespace control characters and guarding a
// leading digit or "--"/"-<digit>" sequence.
func Escape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\t' || c == '\n' || c == '\f' || c == '\r' || c == '\v':
			b.WriteString(hexEscape(c, s[i+1:]))
		case c == '\\' || singleEscape(c):
			b.WriteByte('\\')
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	out := b.String()
	switch {
	case len(out) >= 2 && out[0] == '-' && (out[1] == '-' || isDigit(out[1])):
		out = `\` + out
	case len(s) > 0 && isDigit(s[0]):
		out = hexEscape(s[0], out[1:]) + out[1:]
	}
	return out
}

// EscapeLocalIdent turns an arbitrary key (typically "path/local") into a
// readable identifier: reserved file name characters, control characters and
// dots become "-", a leading digit or "--" gets a "_" prefix, and the result
// is escaped.
func EscapeLocalIdent(key string) string {
	if len(key) > 0 && (isDigit(key[0]) || (key[0] == '-' && len(key) > 1 && (isDigit(key[1]) || key[1] == '-'))) {
		key = "_" + key
	}
	var b strings.Builder
	for _, r := range key {
		switch {
		case strings.ContainsRune(`<>:"/\|?*.`, r), r < 0x20, r >= 0x80 && r <= 0x9f:
			b.WriteByte('-')
		default:
			b.WriteRune(r)
		}
	}
	return Escape(b.String())
}

// singleEscape matches the printable ASCII punctuation that needs a plain
// backslash in an identifier: space to ",", ".", "/", ":" to "@", "[", "]",
// "^", "`" and "{" to "~".
func singleEscape(c byte) bool {
	switch {
	case c >= ' ' && c <= ',':
		return true
	case c == '.' || c == '/':
		return true
	case c >= ':' && c <= '@':
		return true
	case c == '[' || c == ']' || c == '^' || c == '`':
		return true
	case c >= '{' && c <= '~':
		return true
	}
	return false
}

// hexEscape writes c as \HEX, followed by a separating space only when the
// next character would otherwise be read as part of the escape.
func hexEscape(c byte, rest string) string {
	esc := `\` + strings.ToUpper(strconv.FormatInt(int64(c), 16))
	if rest != "" && (isHex(rest[0]) || rest[0] == ' ') {
		esc += " "
	}
	return esc
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHex(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
