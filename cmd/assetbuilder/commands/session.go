package commands

import (
	"context"
	"log/slog"
	"path/filepath"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/eventstore"
	"git.home.luguber.info/inful/assetbuilder/internal/gitinfo"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/manifest"
	"git.home.luguber.info/inful/assetbuilder/internal/metrics"
	"git.home.luguber.info/inful/assetbuilder/internal/pipeline"
	"git.home.luguber.info/inful/assetbuilder/internal/registry"
	"git.home.luguber.info/inful/assetbuilder/internal/stages"
	"git.home.luguber.info/inful/assetbuilder/internal/task"
)

// Session is a loaded project ready to run tasks.
type Session struct {
	RC       *config.Resolved
	Registry *registry.Registry
	Git      gitinfo.Info
	Metrics  *prom.Registry

	driver      *pipeline.Driver
	history     *eventstore.SQLiteStore
	metricsFile string
}

// loadConfig reads the pipeline file and returns it with its base directory.
func loadConfig(root *CLI) (*config.Config, string, string, error) {
	path, err := filepath.Abs(root.Config)
	if err != nil {
		return nil, "", "", err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", "", err
	}
	return cfg, path, filepath.Dir(path), nil
}

// openSession loads and validates the project, builds the registry and
// wires the driver's observers. Pre-flight failures are returned before
// any task runs.
func openSession(g *Global, root *CLI, withHistory bool) (*Session, error) {
	cfg, path, base, err := loadConfig(root)
	if err != nil {
		return nil, err
	}

	info, err := gitinfo.Lookup(base)
	if err != nil {
		slog.Warn("Failed to read git commit", logfields.Path(base), logfields.Error(err))
	}

	rc, err := config.Prepare(cfg, path, base, info.Short())
	if err != nil {
		return nil, err
	}
	root.applyConfigLevel(rc.LogLevel)

	reg, err := stages.NewStandard(rc, g.collaborators(rc.Pipeline.Tools))
	if err != nil {
		return nil, err
	}

	s := &Session{
		RC:          rc,
		Registry:    reg,
		Git:         info,
		Metrics:     prom.NewRegistry(),
		metricsFile: root.MetricsFile,
	}

	observers := []pipeline.Observer{
		pipeline.LoggingObserver{},
		pipeline.RecorderObserver{Recorder: metrics.NewPrometheusRecorder(s.Metrics)},
	}
	if withHistory && rc.Pipeline.History.Path != "" {
		store, err := eventstore.NewSQLiteStore(rc.Abs(rc.Pipeline.History.Path))
		if err != nil {
			slog.Warn("Run history disabled", logfields.Error(err))
		} else {
			s.history = store
			observers = append(observers, &eventstore.HistoryObserver{
				Store:   store,
				Project: rc.Project.Name(),
				Version: rc.Project.Version(),
				Commit:  info.Commit,
			})
		}
	}
	observers = append(observers, manifest.NewObserver(rc, info.Commit))

	s.driver = pipeline.NewDriver(reg, pipeline.WithObserver(observers...))
	return s, nil
}

// Run executes names and writes the metrics file when one is configured.
func (s *Session) Run(ctx context.Context, names []task.Name) (*pipeline.Report, error) {
	report, err := s.driver.Run(ctx, names, s.RC)
	if report != nil && s.metricsFile != "" {
		if werr := metrics.WriteTextfile(s.metricsFile, s.Metrics); werr != nil {
			slog.Warn("Failed to write metrics file", logfields.Path(s.metricsFile), logfields.Error(werr))
		}
	}
	return report, err
}

// Close releases the history store.
func (s *Session) Close() {
	if s.history == nil {
		return
	}
	if err := s.history.Close(); err != nil {
		slog.Warn("Failed to close run history", logfields.Error(err))
	}
}

func absUnder(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, filepath.FromSlash(p))
}
