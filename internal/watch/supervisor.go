// Package watch reruns pipeline tasks when source files change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/registry"
	"git.home.luguber.info/inful/assetbuilder/internal/task"
)

// RunFunc executes a flattened task list. Errors are logged by the supervisor.
type RunFunc func(ctx context.Context, names []task.Name) error

// Options configure a Supervisor.
type Options struct {
	BaseDir           string
	Rules             []config.WatchRule
	Registry          *registry.Registry
	Run               RunFunc
	FullBuild         []task.Name // run at startup and on the schedule
	Debounce          time.Duration
	FullBuildInterval time.Duration
	InitialBuild      bool
	Ignore            []string // directories that are never watched, usually the output roots
}

// Supervisor turns file changes into pipeline runs. All runs go through a
// single worker, so runs never overlap.
type Supervisor struct {
	opts Options

	mu          sync.Mutex
	pending     map[string]struct{}
	pendingFull bool
	wake        chan struct{}
}

// New validates opts. Every rule must flatten in the registry.
func New(opts Options) (*Supervisor, error) {
	if opts.Registry == nil || opts.Run == nil {
		return nil, errors.New("watch: registry and run function are required")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = config.DefaultDebounce
	}
	base, err := filepath.Abs(opts.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve base directory: %w", err)
	}
	opts.BaseDir = base
	for _, r := range opts.Rules {
		if _, err := opts.Registry.FlattenAll(names(r.Tasks)...); err != nil {
			return nil, fmt.Errorf("watch rule %q: %w", r.Name, err)
		}
	}
	if len(opts.FullBuild) > 0 {
		if _, err := opts.Registry.FlattenAll(opts.FullBuild...); err != nil {
			return nil, fmt.Errorf("watch full build: %w", err)
		}
	}
	return &Supervisor{
		opts:    opts,
		pending: make(map[string]struct{}),
		wake:    make(chan struct{}, 1),
	}, nil
}

func names(refs []string) []task.Name {
	out := make([]task.Name, len(refs))
	for i, r := range refs {
		out[i] = task.Name(r)
	}
	return out
}

// Plan returns the flattened union of the tasks of every rule matching one of
// the changed paths, in rule order. Paths may be absolute or relative to the
// base directory.
func (s *Supervisor) Plan(changed []string) ([]task.Name, error) {
	var refs []task.Name
	for _, r := range s.opts.Rules {
		if s.matches(r, changed) {
			refs = append(refs, names(r.Tasks)...)
		}
	}
	if len(refs) == 0 {
		return nil, nil
	}
	return s.opts.Registry.FlattenAll(refs...)
}

func (s *Supervisor) matches(r config.WatchRule, changed []string) bool {
	for _, p := range changed {
		abs := p
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(s.opts.BaseDir, abs)
		}
		rel, err := filepath.Rel(s.opts.BaseDir, abs)
		if err != nil {
			continue
		}
		for _, pattern := range r.Patterns {
			subject := filepath.ToSlash(rel)
			if filepath.IsAbs(filepath.FromSlash(pattern)) {
				subject = filepath.ToSlash(abs)
			}
			if ok, _ := doublestar.Match(filepath.ToSlash(pattern), subject); ok {
				return true
			}
		}
	}
	return false
}

// Run watches the base directory until ctx is done.
func (s *Supervisor) Run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer func() { _ = w.Close() }()
	s.addDirsRecursive(w, s.opts.BaseDir)

	if s.opts.FullBuildInterval > 0 && len(s.opts.FullBuild) > 0 {
		sched, err := gocron.NewScheduler()
		if err != nil {
			return fmt.Errorf("failed to create gocron scheduler: %w", err)
		}
		if _, err := sched.NewJob(
			gocron.DurationJob(s.opts.FullBuildInterval),
			gocron.NewTask(s.RequestFullBuild),
			gocron.WithName("full-build"),
		); err != nil {
			_ = sched.Shutdown()
			return fmt.Errorf("failed to schedule full build: %w", err)
		}
		sched.Start()
		defer func() {
			if err := sched.Shutdown(); err != nil {
				slog.Warn("Scheduler shutdown error", logfields.Error(err))
			}
		}()
	}

	slog.Info("Watching for changes", logfields.Path(s.opts.BaseDir), slog.Int("rules", len(s.opts.Rules)))
	return s.loop(ctx, w.Events, w.Errors, func(dir string) { s.addDirsRecursive(w, dir) })
}

// loop debounces events into batches and feeds the worker.
func (s *Supervisor) loop(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error, onNewDir func(string)) error {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.worker(ctx)
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	if s.opts.InitialBuild {
		s.RequestFullBuild()
	}

	timer := time.NewTimer(s.opts.Debounce)
	timer.Stop()
	defer timer.Stop()
	batch := make(map[string]struct{})

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if s.ignored(ev.Name) {
				continue
			}
			if ev.Op.Has(fsnotify.Create) && onNewDir != nil {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					onNewDir(ev.Name)
				}
			}
			slog.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
			batch[ev.Name] = struct{}{}
			timer.Reset(s.opts.Debounce)
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			slog.Error("Watcher error", logfields.Error(err))
		case <-timer.C:
			s.enqueue(batch, false)
			batch = make(map[string]struct{})
		}
	}
}

// RequestFullBuild queues a full build on the worker.
func (s *Supervisor) RequestFullBuild() {
	s.enqueue(nil, true)
}

func (s *Supervisor) enqueue(paths map[string]struct{}, full bool) {
	s.mu.Lock()
	for p := range paths {
		s.pending[p] = struct{}{}
	}
	s.pendingFull = s.pendingFull || full
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// take drains everything queued since the last run.
func (s *Supervisor) take() ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	paths := make([]string, 0, len(s.pending))
	for p := range s.pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	full := s.pendingFull
	s.pending = make(map[string]struct{})
	s.pendingFull = false
	return paths, full
}

func (s *Supervisor) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		}
		paths, full := s.take()
		s.runBatch(ctx, paths, full)
	}
}

func (s *Supervisor) runBatch(ctx context.Context, paths []string, full bool) {
	var (
		order []task.Name
		err   error
	)
	if full {
		order, err = s.opts.Registry.FlattenAll(s.opts.FullBuild...)
	} else {
		order, err = s.Plan(paths)
	}
	if err != nil {
		slog.Error("Failed to plan watch run", logfields.Error(err))
		return
	}
	if len(order) == 0 {
		slog.Debug("No watch rule matches the changed files", logfields.Count(len(paths)))
		return
	}

	slog.Info("Running tasks", slog.Bool("full", full), logfields.Count(len(paths)), slog.Any("tasks", order))
	if err := s.opts.Run(ctx, order); err != nil {
		slog.Error("Watch run failed", logfields.Error(err))
	}
}

func (s *Supervisor) ignored(path string) bool {
	if shouldIgnoreEvent(path) {
		return true
	}
	for _, dir := range s.opts.Ignore {
		if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (s *Supervisor) addDirsRecursive(w *fsnotify.Watcher, root string) {
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != root && (strings.HasPrefix(d.Name(), ".") || d.Name() == "node_modules" || s.ignored(path)) {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			slog.Warn("watch add failed", logfields.Path(path), logfields.Error(err))
		}
		return nil
	})
}

// shouldIgnoreEvent reports dotfiles and editor swap or lock files.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasPrefix(base, "."):
		return true
	case strings.HasSuffix(base, "~"), strings.HasSuffix(base, ".swp"), strings.HasSuffix(base, ".swx"):
		return true
	case strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"):
		return true
	case base == "Thumbs.db", strings.HasSuffix(base, ".tmp"):
		return true
	}
	return false
}
