package pipeline

import (
	"log/slog"

	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/metrics"
	"git.home.luguber.info/inful/assetbuilder/internal/task"
)

// Observer receives callbacks around task execution and the run lifecycle.
// Observers must not mutate the report.
type Observer interface {
	OnRunStart(r *Report)
	OnTaskStart(r *Report, name task.Name)
	OnTaskComplete(r *Report, tr TaskReport)
	OnRunComplete(r *Report)
}

// NoopObserver is a no-op implementation.
type NoopObserver struct{}

func (NoopObserver) OnRunStart(*Report)                 {}
func (NoopObserver) OnTaskStart(*Report, task.Name)     {}
func (NoopObserver) OnTaskComplete(*Report, TaskReport) {}
func (NoopObserver) OnRunComplete(*Report)              {}

// Observers fans callbacks out in order.
type Observers []Observer

func (o Observers) OnRunStart(r *Report) {
	for _, obs := range o {
		obs.OnRunStart(r)
	}
}

func (o Observers) OnTaskStart(r *Report, name task.Name) {
	for _, obs := range o {
		obs.OnTaskStart(r, name)
	}
}

func (o Observers) OnTaskComplete(r *Report, tr TaskReport) {
	for _, obs := range o {
		obs.OnTaskComplete(r, tr)
	}
}

func (o Observers) OnRunComplete(r *Report) {
	for _, obs := range o {
		obs.OnRunComplete(r)
	}
}

// LoggingObserver writes structured progress logs.
type LoggingObserver struct{ Logger *slog.Logger }

func (l LoggingObserver) logger() *slog.Logger {
	if l.Logger == nil {
		return slog.Default()
	}
	return l.Logger
}

func (l LoggingObserver) OnRunStart(r *Report) {
	l.logger().Info("Pipeline started",
		logfields.RunID(r.RunID), logfields.Group(r.Group), logfields.Count(len(r.Tasks)))
}

func (l LoggingObserver) OnTaskStart(r *Report, name task.Name) {
	l.logger().Debug("Task started", logfields.RunID(r.RunID), logfields.Task(string(name)))
}

func (l LoggingObserver) OnTaskComplete(r *Report, tr TaskReport) {
	attrs := []any{
		logfields.RunID(r.RunID),
		logfields.Task(string(tr.Name)),
		logfields.Result(string(tr.Result)),
		logfields.DurationMS(float64(tr.Duration.Microseconds()) / 1000),
	}
	switch tr.Result {
	case task.ResultFailed:
		l.logger().Error("Task failed", append(attrs, logfields.Error(tr.Err))...)
	case task.ResultWarning:
		l.logger().Warn("Task completed with warnings", append(attrs, logfields.Error(tr.Err))...)
	case task.ResultSkipped, task.ResultCanceled:
		l.logger().Debug("Task not run", attrs...)
	default:
		l.logger().Info("Task completed", attrs...)
	}
}

func (l LoggingObserver) OnRunComplete(r *Report) {
	l.logger().Info("Pipeline finished",
		logfields.RunID(r.RunID),
		logfields.Group(r.Group),
		logfields.Result(string(r.Outcome)),
		logfields.DurationMS(float64(r.Duration().Microseconds())/1000),
		slog.Int("skipped", r.Count(task.ResultSkipped)),
		slog.Int("warnings", r.Count(task.ResultWarning)))
}

// RecorderObserver adapts metrics.Recorder into an Observer.
type RecorderObserver struct{ Recorder metrics.Recorder }

func (RecorderObserver) OnRunStart(*Report)             {}
func (RecorderObserver) OnTaskStart(*Report, task.Name) {}

func (o RecorderObserver) OnTaskComplete(_ *Report, tr TaskReport) {
	if o.Recorder == nil {
		return
	}
	if tr.Result != task.ResultSkipped {
		o.Recorder.ObserveTaskDuration(string(tr.Name), tr.Duration)
	}
	o.Recorder.IncTaskResult(string(tr.Name), metrics.ResultLabel(tr.Result))
	if tr.Result == task.ResultWarning {
		o.Recorder.IncBestEffortFailure(string(tr.Name))
	}
}

func (o RecorderObserver) OnRunComplete(r *Report) {
	if o.Recorder == nil {
		return
	}
	o.Recorder.ObserveRunDuration(r.Group, r.Duration())
	o.Recorder.IncRunOutcome(metrics.OutcomeLabel(r.Outcome))
}
