// Package identmap reads, validates and writes persisted identifier maps.
//
// A map file is a JSON object whose keys are allocator keys and whose values
// are identifiers. Files are written in insertion order at a configurable
// indent and always end with a single newline, so the same map always
// produces the same bytes.
package identmap

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"cssident/internal/ident"
	"cssident/internal/identerr"
	"cssident/internal/logging"
)

// DefaultIndent is the indent used when none is configured.
const DefaultIndent = 2

// MaxIndent is the widest indent Stringify honours.
const MaxIndent = 10

// lineBudget bounds the width of one violation line before long string
// values are summarised by their length.
const lineBudget = 80

// Load parses and validates a map. source names the data in error messages.
// It returns the accepted map, in file order, and its greatest identifier.
func Load(data []byte, source string) (*ident.Map, string, error) {
	var top any
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, "", identerr.Wrap(identerr.KindParse, "Failure to parse "+source, err)
	}
	if _, ok := top.(map[string]any); !ok {
		return nil, "", identerr.Detail(identerr.KindValidation,
			"Invalid CSS identifier map in "+source,
			"Expected string dictionary, got "+identerr.TypeName(top))
	}

	keys, values, err := decodeObject(data)
	if err != nil {
		return nil, "", identerr.Wrap(identerr.KindParse, "Failure to parse "+source, err)
	}

	m := ident.NewMap()
	owners := make(map[string]string, len(keys))
	var invalid strings.Builder
	for _, key := range keys {
		value := values[key]
		prefix := "\n  " + displayKey(key) + ": "
		s, ok := value.(string)
		if !ok || !ident.Valid(s) {
			invalid.WriteString(prefix)
			invalid.WriteString(identerr.Describe(value, lineBudget-utf8.RuneCountInString(prefix)))
			continue
		}
		if owner, dup := owners[s]; dup {
			invalid.WriteString(prefix)
			invalid.WriteString(identerr.Quote(s) + " (duplicate of " + displayKey(owner) + ")")
			continue
		}
		owners[s] = key
		m.Set(key, s)
	}
	if invalid.Len() > 0 {
		return nil, "", identerr.New(identerr.KindValidation,
			"Invalid CSS identifier(s) in "+source+invalid.String())
	}
	return m, m.MaxIdent(), nil
}

// decodeObject walks a JSON object, keeping the first position and the last
// value of every key.
func decodeObject(raw []byte) ([]string, map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	var keys []string
	values := make(map[string]any)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, errors.New("object key is not a string")
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, nil, err
		}
		if _, seen := values[key]; !seen {
			keys = append(keys, key)
		}
		values[key] = value
	}
	return keys, values, nil
}

// displayKey quotes keys holding anything but $, ASCII letters, digits and _.
func displayKey(key string) string {
	for i := 0; i < len(key); i++ {
		c := key[i]
		plain := c == '$' || c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		if !plain {
			return identerr.Quote(key)
		}
	}
	return key
}

// Read returns the bytes of the map file at path. When ignoreMissing is set
// an absent file is reported as found == false without an error.
func Read(path string, ignoreMissing bool) ([]byte, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if ignoreMissing && errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, identerr.Wrap(identerr.KindRead, "Failure to read "+path, err)
	}
	return data, true, nil
}

// Stringify serialises m in insertion order. An indent of 0 or less is the
// compact form; wider indents are clamped to MaxIndent.
func Stringify(m *ident.Map, indent int) []byte {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for key, id := range m.All() {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.WriteString(identerr.Quote(key))
		buf.WriteByte(':')
		buf.WriteString(identerr.Quote(id))
	}
	buf.WriteByte('}')
	if indent > 0 && m.Len() > 0 {
		var out bytes.Buffer
		// buf holds valid JSON built above
		_ = json.Indent(&out, buf.Bytes(), "", strings.Repeat(" ", min(indent, MaxIndent)))
		out.WriteByte('\n')
		return out.Bytes()
	}
	buf.WriteByte('\n')
	return buf.Bytes()
}

// Save writes data to path, creating parent directories first. A failure to
// create the directory is only logged; the write decides the outcome.
func Save(path string, data []byte, log *slog.Logger) error {
	log = logging.OrNop(log)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Warn(identerr.Compose("Failure to create directory "+dir, err))
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return identerr.Wrap(identerr.KindWrite, "Failure to write CSS identifier map "+path, err)
	}
	return nil
}

// Remove deletes the map file at path. Failures are logged as warnings and
// never abort the build; the returned error is informational.
func Remove(path string, log *slog.Logger) error {
	if err := os.Remove(path); err != nil {
		warn := identerr.Wrap(identerr.KindRemoval, "Failure to remove CSS identifier map file "+path, err)
		logging.OrNop(log).Warn(warn.Error(), "kind", warn.Kind.String())
		return warn
	}
	return nil
}
