// Package corpus resolves the document corpus patterns into a deterministic
// file list.
//
// Glob expansion is strictly sorted and deduplicated so a run never depends
// on filesystem directory ordering.
package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Resolver expands corpus path patterns relative to a base directory.
type Resolver struct {
	// BaseDir anchors relative patterns. Must be absolute.
	BaseDir string
}

// NewResolver creates a Resolver with the given base directory.
func NewResolver(baseDir string) *Resolver {
	return &Resolver{BaseDir: baseDir}
}

// Resolve expands every pattern and returns a sorted, deduplicated list of
// document file paths.
//
// A pattern without glob characters is treated as a literal path and
// contributes nothing when the file does not exist; whether an empty overall
// result is fatal is the caller's decision.
func (r *Resolver) Resolve(patterns []string) ([]string, error) {
	pathSet := make(map[string]struct{})

	for _, pattern := range patterns {
		expanded, err := r.expandPattern(pattern)
		if err != nil {
			return nil, fmt.Errorf("expanding corpus pattern %q: %w", pattern, err)
		}
		for _, p := range expanded {
			pathSet[p] = struct{}{}
		}
	}

	// Sort explicitly; never rely on OS directory ordering.
	paths := make([]string, 0, len(pathSet))
	for p := range pathSet {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

// expandPattern expands one glob pattern into file paths, skipping
// directories.
func (r *Resolver) expandPattern(pattern string) ([]string, error) {
	fullPattern := pattern
	if !filepath.IsAbs(pattern) {
		fullPattern = filepath.Join(r.BaseDir, pattern)
	}

	matches, err := filepath.Glob(fullPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern: %w", err)
	}

	if len(matches) == 0 && !containsGlobChar(pattern) {
		if _, err := os.Stat(fullPattern); err == nil {
			matches = []string{fullPattern}
		}
	}

	files := make([]string, 0, len(matches))
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil {
			return nil, fmt.Errorf("stat %q: %w", match, err)
		}
		if info.IsDir() {
			continue
		}
		files = append(files, filepath.ToSlash(match))
	}
	return files, nil
}

func containsGlobChar(pattern string) bool {
	for _, c := range pattern {
		switch c {
		case '*', '?', '[', ']':
			return true
		}
	}
	return false
}
