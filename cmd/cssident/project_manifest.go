package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"cssident/internal/ident"
	"cssident/internal/plugin"
)

const manifestName = "cssident.toml"

type projectManifest struct {
	Path   string
	Root   string
	Config projectConfig
}

type projectConfig struct {
	CSS    cssConfig    `toml:"css"`
	Idents identsConfig `toml:"idents"`
	Map    mapConfig    `toml:"map"`
}

type cssConfig struct {
	Root    string   `toml:"root"`
	Include []string `toml:"include"`
	Ignore  []string `toml:"ignore"`
	Out     string   `toml:"out"`
	Exports bool     `toml:"exports"`
}

type identsConfig struct {
	// Exclude stays nil when the key is absent so the allocator defaults apply.
	Exclude []string `toml:"exclude"`
	Start   string   `toml:"start"`
}

type mapConfig struct {
	File   string `toml:"file"`
	Mode   string `toml:"mode"`
	Indent *int   `toml:"indent"`
	Minify string `toml:"minify"`
}

func findManifest(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, manifestName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

func loadProjectManifest(startDir string) (*projectManifest, bool, error) {
	manifestPath, ok, err := findManifest(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	cfg, err := loadProjectConfig(manifestPath)
	if err != nil {
		return nil, true, err
	}
	return &projectManifest{
		Path:   manifestPath,
		Root:   filepath.Dir(manifestPath),
		Config: cfg,
	}, true, nil
}

func loadProjectConfig(path string) (projectConfig, error) {
	var cfg projectConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return projectConfig{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return projectConfig{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if meta.IsDefined("idents", "exclude") && cfg.Idents.Exclude == nil {
		cfg.Idents.Exclude = []string{}
	}
	if meta.IsDefined("map", "mode") {
		if _, err := plugin.ParseMode(cfg.Map.Mode); err != nil {
			return projectConfig{}, fmt.Errorf("%s: [map].mode: %w", path, err)
		}
	}
	if meta.IsDefined("map", "indent") && *cfg.Map.Indent < 0 {
		return projectConfig{}, fmt.Errorf("%s: [map].indent must not be negative", path)
	}
	if meta.IsDefined("map", "minify") {
		if _, err := readSwitch(cfg.Map.Minify); err != nil {
			return projectConfig{}, fmt.Errorf("%s: [map].minify: %w", path, err)
		}
	}
	if meta.IsDefined("idents") {
		if _, err := ident.Resolve(ident.Options{Exclude: cfg.Idents.Exclude, StartIdent: cfg.Idents.Start}); err != nil {
			return projectConfig{}, fmt.Errorf("%s: [idents]: %w", path, err)
		}
	}
	return cfg, nil
}

// resolvePath makes a manifest-relative path absolute.
func (m *projectManifest) resolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Root, filepath.FromSlash(p))
}
