package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/metrics"
	"git.home.luguber.info/inful/assetbuilder/internal/stages"
	"git.home.luguber.info/inful/assetbuilder/internal/task"
	"git.home.luguber.info/inful/assetbuilder/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	MetricsAddr string `name:"metrics-addr" help:"Serve Prometheus metrics on this address (e.g. :9464)"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	s, err := openSession(g, root, true)
	if err != nil {
		return err
	}
	defer s.Close()

	wc := s.RC.Pipeline.Watch
	sup, err := watch.New(watch.Options{
		BaseDir:  s.RC.BaseDir,
		Rules:    wc.Rules,
		Registry: s.Registry,
		Run: func(ctx context.Context, names []task.Name) error {
			_, err := s.Run(ctx, names)
			return err
		},
		FullBuild:         []task.Name{stages.GroupBuild},
		Debounce:          wc.Debounce,
		FullBuildInterval: wc.FullBuildInterval,
		InitialBuild:      wc.InitialBuild,
		Ignore:            ignoredDirs(s.RC),
	})
	if err != nil {
		return err
	}

	ctx := g.ctx()
	if w.MetricsAddr != "" {
		stop := serveMetrics(w.MetricsAddr, s)
		defer stop()
	}

	_, _ = fmt.Fprintf(g.out(), "Watching %s (%d rules); press Ctrl+C to stop\n", s.RC.BaseDir, len(wc.Rules))
	if err := sup.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// ignoredDirs lists directories the pipeline writes to, so its own outputs
// never trigger runs.
func ignoredDirs(rc *config.Resolved) []string {
	var dirs []string
	for _, name := range rc.Paths.Names() {
		dirs = append(dirs, rc.Paths.Root(name))
	}
	if dest := rc.Pipeline.Publish.Destination; dest != "" {
		dirs = append(dirs, rc.Abs(dest))
	}
	if p := rc.Pipeline.History.Path; p != "" {
		dirs = append(dirs, filepath.Dir(rc.Abs(p)))
	}
	return dirs
}

func serveMetrics(addr string, s *Session) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(s.Metrics))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		slog.Info("Serving metrics", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server failed", logfields.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Warn("Metrics server shutdown failed", logfields.Error(err))
		}
	}
}
