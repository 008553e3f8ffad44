package main

import (
	"fmt"
	"os"
	"strings"
)

// switchMode is the value of the auto|on|off flags (--ui, --minify).
type switchMode string

const (
	switchAuto switchMode = "auto"
	switchOn   switchMode = "on"
	switchOff  switchMode = "off"
)

func readSwitch(value string) (switchMode, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return switchAuto, nil
	case "on":
		return switchOn, nil
	case "off":
		return switchOff, nil
	default:
		return "", fmt.Errorf("invalid value %q (expected auto|on|off)", value)
	}
}

// forced returns nil for auto and the forced value otherwise.
func (m switchMode) forced() *bool {
	var v bool
	switch m {
	case switchOn:
		v = true
	case switchOff:
		v = false
	default:
		return nil
	}
	return &v
}

func shouldUseTUI(mode switchMode) bool {
	switch mode {
	case switchOn:
		return true
	case switchOff:
		return false
	default:
		return isTerminal(os.Stdout)
	}
}
