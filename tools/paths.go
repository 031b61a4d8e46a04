package tools

import (
	"fmt"
	"path/filepath"
	"strings"
)

// resolveWithin resolves relPath against root and rejects paths that escape
// the root after cleaning.
func resolveWithin(root, relPath string) (string, error) {
	abs := relPath
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(root, relPath)
	}
	abs = filepath.Clean(abs)

	cleanRoot := filepath.Clean(root)
	if abs != cleanRoot && !strings.HasPrefix(abs, cleanRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("path '%s' is outside working directory", relPath)
	}
	return abs, nil
}

// displayPath converts abs back to a posix-style path relative to root.
func displayPath(root, abs string) string {
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		rel = abs
	}
	return filepath.ToSlash(rel)
}
