package stages

import (
	"context"
	"fmt"
	"log/slog"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/fileset"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/task"
	"git.home.luguber.info/inful/assetbuilder/internal/workspace"
)

// Publish renders the public site into a freshly emptied destination.
func Publish(cfg config.PublishConfig, gen SiteGenerator) task.Func {
	return func(ctx context.Context, rc *config.Resolved) error {
		siteConfig := rc.Abs(cfg.Config)
		if !fileset.Exists(siteConfig) {
			return &MissingSourceError{Patterns: []string{cfg.Config}}
		}

		ws := workspace.NewPersistentManager(rc.BaseDir, rc.Abs(cfg.Destination))
		if err := ws.Reset(); err != nil {
			return err
		}
		req := GenerateRequest{Config: siteConfig, Destination: ws.GetPath(), Dir: rc.BaseDir}
		if err := gen.Generate(ctx, req); err != nil {
			return fmt.Errorf("%w: %w", ErrGenerator, err)
		}
		slog.Info("Site generated", logfields.Dest(ws.GetPath()))
		return nil
	}
}
