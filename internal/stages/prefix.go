package stages

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/fileset"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/task"
)

// Prefix rewrites compiled stylesheets in place with vendor prefixes for the
// configured browser list.
func Prefix(cfg config.PrefixConfig, prefixer Prefixer) task.Func {
	return func(ctx context.Context, rc *config.Resolved) error {
		match, err := fileset.Expand(rc.BaseDir, cfg.Files, fileset.Options{})
		if err != nil {
			return err
		}
		if len(match.Files) == 0 {
			slog.Warn("No stylesheets to prefix", slog.Any("patterns", cfg.Files))
			return nil
		}
		if err := prefixer.Prefix(ctx, match.Files, cfg.Browsers); err != nil {
			return err
		}
		slog.Debug("Prefixed stylesheets", logfields.Count(len(match.Files)))
		return nil
	}
}
