package stages

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/fileset"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/task"
)

// Compile turns each stylesheet entry point into CSS. Entry mappings use the
// ext field to name the output.
func Compile(cfg config.CompileConfig, compiler Compiler) task.Func {
	return func(ctx context.Context, rc *config.Resolved) error {
		include := make([]string, len(cfg.IncludePaths))
		for i, p := range cfg.IncludePaths {
			include[i] = rc.Abs(p)
		}
		for _, entry := range cfg.Entries {
			pairs, match, err := fileset.Map(entry, rc.BaseDir, fileset.Options{})
			if err != nil {
				return err
			}
			if len(match.Unmatched) > 0 && !entry.Optional {
				return &MissingSourceError{Patterns: match.Unmatched}
			}
			for _, p := range pairs {
				if err := ensureDir(filepath.Dir(p.Dest), p.Src); err != nil {
					return err
				}
				req := CompileRequest{
					Src:          p.Src,
					Dest:         p.Dest,
					IncludePaths: include,
					Style:        cfg.Style,
					SourceMap:    cfg.SourceMap,
				}
				if err := compiler.Compile(ctx, req); err != nil {
					var ce *CompileError
					if errors.As(err, &ce) {
						return err
					}
					return &CompileError{File: p.Rel, Err: err}
				}
				slog.Debug("Compiled stylesheet", logfields.File(p.Src), logfields.Dest(p.Dest))
			}
		}
		return nil
	}
}
