package buildpipeline

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultInclude selects CSS modules anywhere below the root.
var DefaultInclude = []string{"**/*.module.css"}

// Discover returns the slash-separated paths, relative to root, of the files
// matching one of include and none of ignore. The result is sorted and free
// of duplicates. Files below skipDir (relative to root, may be empty) are
// left out so a build never picks up its own output.
func Discover(root string, include, ignore []string, skipDir string) ([]string, error) {
	if len(include) == 0 {
		include = DefaultInclude
	}
	for _, pattern := range append(append([]string(nil), include...), ignore...) {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid glob pattern %q", pattern)
		}
	}
	skipDir = strings.TrimSuffix(filepath.ToSlash(skipDir), "/")
	if skipDir == "." {
		// the output is the root itself; nothing sensible to skip
		skipDir = ""
	}

	fsys := os.DirFS(root)
	seen := make(map[string]struct{})
	var files []string
	for _, pattern := range include {
		matches, err := doublestar.Glob(fsys, path.Clean(pattern), doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("failed to match %q: %w", pattern, err)
		}
		for _, rel := range matches {
			if _, ok := seen[rel]; ok {
				continue
			}
			seen[rel] = struct{}{}
			if skipDir != "" && (rel == skipDir || strings.HasPrefix(rel, skipDir+"/")) {
				continue
			}
			ignored, err := matchesAny(ignore, rel)
			if err != nil {
				return nil, err
			}
			if !ignored {
				files = append(files, rel)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

func matchesAny(patterns []string, rel string) (bool, error) {
	for _, pattern := range patterns {
		ok, err := doublestar.Match(path.Clean(pattern), rel)
		if err != nil {
			return false, fmt.Errorf("failed to match %q: %w", pattern, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// relativeSkipDir returns outDir relative to root when it lies below root.
func relativeSkipDir(root, outDir string) string {
	if outDir == "" {
		return ""
	}
	rel, err := filepath.Rel(root, outDir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	return rel
}
