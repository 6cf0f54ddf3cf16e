package stages

import (
	"context"
	"log/slog"
	"path/filepath"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/fileset"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/task"
)

// Copy merges each mapping into its destination tree. Existing files are
// overwritten; a file and a directory competing for the same path is a
// MergeConflictError.
func Copy(mappings []config.Mapping) task.Func {
	return func(_ context.Context, rc *config.Resolved) error {
		for _, m := range mappings {
			pairs, match, err := fileset.Map(m, rc.BaseDir, fileset.Options{Dirs: true})
			if err != nil {
				return err
			}
			if len(match.Unmatched) > 0 && !m.Optional {
				return &MissingSourceError{Patterns: match.Unmatched}
			}
			copied := 0
			for _, p := range pairs {
				if p.Src == p.Dest {
					continue
				}
				if p.Dir {
					if err := ensureDir(p.Dest, p.Src); err != nil {
						return err
					}
					continue
				}
				if fileset.IsDir(p.Dest) {
					return &MergeConflictError{Src: p.Src, Dest: p.Dest, Reason: "a directory exists where a file is needed"}
				}
				if err := ensureDir(filepath.Dir(p.Dest), p.Src); err != nil {
					return err
				}
				if err := copyFile(p.Src, p.Dest); err != nil {
					return err
				}
				copied++
			}
			slog.Debug("Copied files", logfields.Dest(rc.Abs(m.Dest)), logfields.Count(copied))
		}
		return nil
	}
}
