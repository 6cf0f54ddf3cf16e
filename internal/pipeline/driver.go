// Package pipeline runs flattened task lists sequentially, stopping at the
// first fatal failure.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/registry"
	"git.home.luguber.info/inful/assetbuilder/internal/task"
)

// Driver executes tasks from a registry one at a time.
type Driver struct {
	registry *registry.Registry
	observer Observer
	now      func() time.Time
	newID    func() string
}

// Option configures a Driver.
type Option func(*Driver)

// WithObserver appends observers. They are called in the order given.
func WithObserver(obs ...Observer) Option {
	return func(d *Driver) {
		if existing, ok := d.observer.(Observers); ok {
			d.observer = append(existing, obs...)
			return
		}
		d.observer = Observers(obs)
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(d *Driver) { d.now = now }
}

// WithRunID overrides run ID generation.
func WithRunID(gen func() string) Option {
	return func(d *Driver) { d.newID = gen }
}

// NewDriver creates a driver over reg.
func NewDriver(reg *registry.Registry, opts ...Option) *Driver {
	d := &Driver{
		registry: reg,
		observer: Observers{},
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run flattens names and executes every task in order. Cancellation is only
// observed between tasks; a task runs with a context that keeps ctx's values
// but is never canceled, so a started task always finishes its work. The returned error is nil for success and warning
// outcomes; unknown or cyclic names fail before any task starts and yield no
// report.
func (d *Driver) Run(ctx context.Context, names []task.Name, rc *config.Resolved) (*Report, error) {
	order, err := d.registry.FlattenAll(names...)
	if err != nil {
		return nil, err
	}

	group := make([]string, len(names))
	for i, n := range names {
		group[i] = string(n)
	}
	report := &Report{
		RunID:     d.newID(),
		Group:     strings.Join(group, "+"),
		Requested: append([]task.Name(nil), names...),
		Tasks:     order,
		Start:     d.now(),
		Results:   make([]TaskReport, 0, len(order)),
	}
	d.observer.OnRunStart(report)

	taskCtx := context.WithoutCancel(ctx)
	var stop *task.Error
	for _, name := range order {
		if stop != nil {
			d.record(report, TaskReport{Name: name, Result: task.ResultSkipped})
			continue
		}
		if err := ctx.Err(); err != nil {
			stop = task.Canceled(name, err)
			d.record(report, TaskReport{Name: name, Result: task.ResultCanceled, Err: stop})
			continue
		}

		def, _ := d.registry.Lookup(name)
		d.observer.OnTaskStart(report, name)
		start := d.now()
		te := task.Classify(name, def.Run(taskCtx, rc))
		tr := TaskReport{Name: name, Result: task.ResultSuccess, Start: start, Duration: d.now().Sub(start)}
		if te != nil {
			tr.Err = te
			tr.Result = task.ResultFor(te.Kind)
			if te.Kind != task.ErrorWarning {
				stop = te
			}
		}
		d.record(report, tr)
	}

	report.End = d.now()
	report.deriveOutcome()
	d.observer.OnRunComplete(report)

	if stop == nil {
		return report, nil
	}
	return report, runError(report, stop)
}

func (d *Driver) record(r *Report, tr TaskReport) {
	r.Results = append(r.Results, tr)
	d.observer.OnTaskComplete(r, tr)
}

// runError classifies the task error that stopped a run.
func runError(r *Report, te *task.Error) error {
	b := ferrors.WrapError(te.Err, ferrors.CategoryBuild, "run aborted").Fatal()
	if te.Kind == task.ErrorCanceled {
		b = ferrors.WrapError(te.Err, ferrors.CategoryCanceled, "run canceled").Fatal()
	}
	return b.WithContext("task", string(te.Task)).
		WithContext("run_id", r.RunID).
		WithContext("group", r.Group).
		Build()
}
