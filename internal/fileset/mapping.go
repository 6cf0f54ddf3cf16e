package fileset

import (
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
)

// Pair is one source mapped to its destination.
type Pair struct {
	Src  string // absolute
	Dest string // absolute
	Rel  string // source path relative to the mapping cwd
	Dir  bool
}

// Manifest is an ordered list of sources with a single destination.
type Manifest struct {
	Sources []string
	Dest    string
}

// Map expands a grunt-style mapping. Cwd and Dest are resolved against
// baseDir; sources keep pattern order.
func Map(m config.Mapping, baseDir string, opts Options) ([]Pair, Match, error) {
	cwd := resolve(baseDir, m.Cwd)
	dest := resolve(baseDir, m.Dest)
	opts.Dot = opts.Dot || m.Dot

	match, err := Expand(cwd, m.Src, opts)
	if err != nil {
		return nil, Match{}, err
	}

	pairs := make([]Pair, 0, len(match.Files))
	for _, src := range match.Files {
		rel, err := filepath.Rel(cwd, src)
		if err != nil {
			return nil, Match{}, err
		}
		isDir := IsDir(src)
		target := rel
		if m.Flatten {
			if isDir {
				continue
			}
			target = filepath.Base(rel)
		}
		if m.Ext != "" && !isDir {
			target = ReplaceExt(target, m.Ext)
		}
		pairs = append(pairs, Pair{Src: src, Dest: filepath.Join(dest, target), Rel: rel, Dir: isDir})
	}
	return pairs, match, nil
}

// ReplaceExt replaces everything after the first dot of the base name.
// "usptostrap.scss" with ".min.css" becomes "usptostrap.min.css".
func ReplaceExt(p, ext string) string {
	dir, base := filepath.Split(p)
	if i := strings.Index(base, "."); i > 0 {
		base = base[:i]
	}
	return dir + base + ext
}

// Files expands patterns relative to baseDir into a manifest.
func Files(baseDir string, patterns []string, dest string, opts Options) (Manifest, Match, error) {
	match, err := Expand(baseDir, patterns, opts)
	if err != nil {
		return Manifest{}, Match{}, err
	}
	return Manifest{Sources: match.Files, Dest: resolve(baseDir, dest)}, match, nil
}

func resolve(baseDir, p string) string {
	if p == "" {
		return baseDir
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(baseDir, filepath.FromSlash(p))
}
