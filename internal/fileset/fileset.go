// Package fileset expands glob patterns into ordered file lists and maps
// them to destinations the way grunt's expanded file mappings do.
package fileset

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Options control pattern expansion.
type Options struct {
	Dot  bool // let wildcards match dotfiles
	Dirs bool // include directories in the result
}

// Match is the result of expanding a pattern list.
type Match struct {
	Files     []string // absolute paths, first-seen order
	Unmatched []string // positive patterns that matched nothing
}

// Expand resolves patterns against base in order. Patterns starting with !
// remove earlier matches. Each pattern's own matches are sorted, so the result
// depends only on pattern order and the tree contents.
func Expand(base string, patterns []string, opts Options) (Match, error) {
	var m Match
	seen := make(map[string]int)
	for _, p := range patterns {
		if strings.HasPrefix(p, "!") {
			m.Files = exclude(base, m.Files, strings.TrimPrefix(p, "!"))
			seen = index(m.Files)
			continue
		}
		files, err := glob(base, p, opts)
		if err != nil {
			return Match{}, err
		}
		if len(files) == 0 {
			m.Unmatched = append(m.Unmatched, p)
			continue
		}
		for _, f := range files {
			if _, dup := seen[f]; dup {
				continue
			}
			seen[f] = len(m.Files)
			m.Files = append(m.Files, f)
		}
	}
	return m, nil
}

func index(files []string) map[string]int {
	out := make(map[string]int, len(files))
	for i, f := range files {
		out[f] = i
	}
	return out
}

// exclude drops files matching pattern. A pattern ending in /** also drops
// the directory it names.
func exclude(base string, files []string, pattern string) []string {
	absPattern := filepath.IsAbs(filepath.FromSlash(pattern))
	dirPattern, hasDir := strings.CutSuffix(pattern, "/**")
	out := files[:0]
	for _, f := range files {
		subject := filepath.ToSlash(f)
		if !absPattern {
			rel, err := filepath.Rel(base, f)
			if err == nil {
				subject = filepath.ToSlash(rel)
			}
		}
		if ok, _ := doublestar.Match(pattern, subject); ok {
			continue
		}
		if hasDir {
			if ok, _ := doublestar.Match(dirPattern, subject); ok {
				continue
			}
		}
		out = append(out, f)
	}
	return out
}

// glob expands a single pattern. Relative patterns are resolved against base.
func glob(base, pattern string, opts Options) ([]string, error) {
	full := filepath.ToSlash(pattern)
	if !filepath.IsAbs(filepath.FromSlash(pattern)) {
		full = path.Join(filepath.ToSlash(base), full)
	}
	if !doublestar.ValidatePattern(full) {
		return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, doublestar.ErrBadPattern)
	}
	root, rel := doublestar.SplitPattern(full)

	matches, err := doublestar.Glob(os.DirFS(filepath.FromSlash(root)), rel)
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}
	sort.Strings(matches)

	literal := strings.Split(rel, "/")
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if !opts.Dot && hiddenByWildcard(m, literal) {
			continue
		}
		abs := filepath.Join(filepath.FromSlash(root), filepath.FromSlash(m))
		info, err := os.Stat(abs)
		if err != nil {
			continue
		}
		if info.IsDir() && !opts.Dirs {
			continue
		}
		out = append(out, abs)
	}
	return out, nil
}

// hiddenByWildcard reports whether match has a dot-prefixed segment that the
// pattern does not spell out literally.
func hiddenByWildcard(match string, patternSegs []string) bool {
	for _, seg := range strings.Split(match, "/") {
		if !strings.HasPrefix(seg, ".") || seg == "." {
			continue
		}
		named := false
		for _, ps := range patternSegs {
			if ps == seg {
				named = true
				break
			}
		}
		if !named {
			return true
		}
	}
	return false
}

// IsDir reports whether p exists and is a directory.
func IsDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

// Exists reports whether p exists.
func Exists(p string) bool {
	_, err := os.Lstat(p)
	return err == nil || !os.IsNotExist(err)
}

// Contains reports whether p, with symlinks resolved, lies inside root.
// root itself is not inside root.
func Contains(root, p string) (bool, error) {
	r, err := filepath.EvalSymlinks(root)
	if err != nil {
		return false, err
	}
	q, err := filepath.EvalSymlinks(p)
	if err != nil {
		return false, err
	}
	rel, err := filepath.Rel(r, q)
	if err != nil {
		return false, nil
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false, nil
	}
	return true, nil
}
