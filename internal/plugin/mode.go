package plugin

import (
	"fmt"
	"strings"

	"cssident/internal/identerr"
)

// Mode selects what happens to the map file around a build.
type Mode string

const (
	// ModeDefault loads the map when it exists and saves it after the build.
	ModeDefault Mode = "default"
	// ModeLoadMap loads the map (it must exist) and never writes it.
	ModeLoadMap Mode = "load-map"
	// ModeExtendMap loads the map (it must exist) and saves the extended map.
	ModeExtendMap Mode = "extend-map"
	// ModeConsumeMap loads the map (it must exist) and deletes it after the build.
	ModeConsumeMap Mode = "consume-map"
	// ModeCreateMap ignores any previous map and saves a fresh one.
	ModeCreateMap Mode = "create-map"
)

// Modes lists every mode in documentation order.
var Modes = []Mode{ModeDefault, ModeLoadMap, ModeExtendMap, ModeConsumeMap, ModeCreateMap}

// ParseMode parses a mode name; the empty string is ModeDefault.
func ParseMode(value string) (Mode, error) {
	v := Mode(strings.ToLower(strings.TrimSpace(value)))
	if v == "" {
		return ModeDefault, nil
	}
	for _, m := range Modes {
		if v == m {
			return m, nil
		}
	}
	return "", identerr.Detail(identerr.KindConfiguration, `Invalid "mode" option`,
		fmt.Sprintf("Unknown mode %q, expected one of default, load-map, extend-map, consume-map or create-map", value))
}

// Loads reports whether the map is read before compilation.
func (m Mode) Loads() bool {
	return m == ModeDefault || m == ModeLoadMap || m == ModeExtendMap || m == ModeConsumeMap
}

// Saves reports whether the map is written after emission.
func (m Mode) Saves() bool {
	return m == ModeDefault || m == ModeExtendMap || m == ModeCreateMap
}

// Removes reports whether the map file is deleted after emission.
func (m Mode) Removes() bool { return m == ModeConsumeMap }

// toleratesMissing reports whether an absent map file is fine when loading.
func (m Mode) toleratesMissing() bool { return m == ModeDefault }
