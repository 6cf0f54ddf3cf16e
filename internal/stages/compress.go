package stages

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/fileset"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/task"
)

// Compress optimises every mapped image. It is best effort: an image the
// compressor rejects is copied through unchanged and reported in a warning
// once the whole set has been processed.
func Compress(mappings []config.Mapping, images ImageCompressor) task.Func {
	return func(ctx context.Context, rc *config.Resolved) error {
		var failures []FileFailure
		for _, m := range mappings {
			pairs, match, err := fileset.Map(m, rc.BaseDir, fileset.Options{})
			if err != nil {
				return err
			}
			if len(match.Unmatched) > 0 && !m.Optional {
				return &MissingSourceError{Patterns: match.Unmatched}
			}
			for _, p := range pairs {
				if err := ensureDir(filepath.Dir(p.Dest), p.Src); err != nil {
					return err
				}
				cerr := images.Compress(ctx, p.Src, p.Dest)
				if cerr == nil {
					continue
				}
				slog.Warn("Image compression failed, copying original", logfields.File(p.Src), logfields.Error(cerr))
				if err := copyFile(p.Src, p.Dest); err != nil {
					return fmt.Errorf("copy unoptimised %s: %w", p.Src, err)
				}
				failures = append(failures, FileFailure{File: p.Rel, Err: cerr})
			}
		}
		if len(failures) > 0 {
			return task.Warning("", &CompressFailureError{Failures: failures})
		}
		return nil
	}
}
