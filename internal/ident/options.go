package ident

import (
	"slices"
	"strings"

	"cssident/internal/identerr"
)

// Wildcard marks an exclusion entry as a prefix rule when it ends the entry.
const Wildcard = "*"

var (
	defaultExclude       = []string{"app", "root"}
	defaultExcludePrefix = []string{"ad"}
)

// Options configures a Generator.
type Options struct {
	// Exclude lists identifiers that must never be produced. An entry ending
	// with "*" forbids every identifier starting with the rest of the entry.
	// nil selects the defaults ("app", "root", "ad*"); an empty non-nil slice
	// excludes nothing.
	Exclude []string
	// StartIdent is the last identifier considered already consumed; the
	// first generated identifier is its successor.
	StartIdent string
}

// Resolved is the validated, immutable form of Options.
type Resolved struct {
	Exclude       []string
	ExcludePrefix []string
	StartIdent    string
}

// Resolve validates opts and splits exclusions into literals and prefixes.
func Resolve(opts Options) (Resolved, error) {
	if opts.Exclude == nil {
		return Resolved{
			Exclude:       slices.Clone(defaultExclude),
			ExcludePrefix: slices.Clone(defaultExcludePrefix),
			StartIdent:    opts.StartIdent,
		}, checkStart(opts.StartIdent)
	}
	res := Resolved{
		Exclude:       []string{},
		ExcludePrefix: []string{},
		StartIdent:    opts.StartIdent,
	}
	for _, entry := range opts.Exclude {
		idx := strings.Index(entry, Wildcard)
		switch {
		case idx < 0:
			res.Exclude = append(res.Exclude, entry)
		case idx == 0 || idx != len(entry)-1:
			return Resolved{}, identerr.Detail(identerr.KindConfiguration,
				`Invalid "exclude" option`,
				"The * wildchar can only be used at the end of an identifier")
		default:
			res.ExcludePrefix = append(res.ExcludePrefix, entry[:idx])
		}
	}
	return res, checkStart(opts.StartIdent)
}

func checkStart(start string) error {
	if start == "" || IsLower(start) {
		return nil
	}
	return identerr.Detail(identerr.KindConfiguration,
		`Invalid "startIdent" option`,
		"Expected a lowercase identifier starting with a letter, got "+identerr.Quote(start))
}

func (r Resolved) clone() Resolved {
	return Resolved{
		Exclude:       slices.Clone(r.Exclude),
		ExcludePrefix: slices.Clone(r.ExcludePrefix),
		StartIdent:    r.StartIdent,
	}
}
