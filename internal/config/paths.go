package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// PathSet maps symbolic root names to absolute paths. It is immutable.
type PathSet struct {
	roots map[string]string
}

// NewPathSet resolves roots against baseDir. Empty roots, and distinct
// roots resolving to the same directory, are configuration errors.
func NewPathSet(roots map[string]string, baseDir string) (PathSet, error) {
	var problems []string
	resolved := make(map[string]string, len(roots))
	owner := make(map[string]string, len(roots))
	for _, name := range sortedKeys(roots) {
		raw := strings.TrimSpace(roots[name])
		if name == "" {
			problems = append(problems, "root with empty name")
			continue
		}
		if raw == "" {
			problems = append(problems, fmt.Sprintf("root %q has an empty path", name))
			continue
		}
		abs := absUnder(baseDir, raw)
		if prev, dup := owner[abs]; dup {
			problems = append(problems, fmt.Sprintf("roots %q and %q both resolve to %s", prev, name, abs))
			continue
		}
		owner[abs] = name
		resolved[name] = abs
	}
	if len(problems) > 0 {
		return PathSet{}, ferrors.ConfigError("invalid path roots: " + strings.Join(problems, "; ")).Build()
	}
	return PathSet{roots: resolved}, nil
}

// Get returns the absolute path of a root.
func (p PathSet) Get(name string) (string, bool) {
	v, ok := p.roots[name]
	return v, ok
}

// Root returns the absolute path of a root, or "" if it is not defined.
func (p PathSet) Root(name string) string {
	return p.roots[name]
}

// Names returns the root names in sorted order.
func (p PathSet) Names() []string {
	return sortedKeys(p.roots)
}

// Len returns the number of roots.
func (p PathSet) Len() int { return len(p.roots) }

func absUnder(baseDir, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(baseDir, filepath.FromSlash(p))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
