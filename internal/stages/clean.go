package stages

import (
	"context"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/task"
)

// Clean removes every target, dotfiles included. Missing targets are fine.
func Clean(targets []string) task.Func {
	return func(_ context.Context, rc *config.Resolved) error {
		for _, t := range targets {
			p := rc.Abs(t)
			if err := os.RemoveAll(p); err != nil {
				return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to remove output root").
					Fatal().
					WithContext("path", p).
					Build()
			}
			slog.Debug("Removed output root", logfields.Path(p))
		}
		return nil
	}
}
