package eventstore

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/pipeline"
	"git.home.luguber.info/inful/assetbuilder/internal/task"
)

// HistoryObserver appends run events to a store. Store failures are logged
// and never affect the run.
type HistoryObserver struct {
	pipeline.NoopObserver
	Store   Store
	Project string
	Version string
	Commit  string
	Now     func() time.Time
}

func (o *HistoryObserver) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o *HistoryObserver) append(e Event, err error) {
	if err == nil {
		err = o.Store.Append(context.Background(), e)
	}
	if err != nil {
		slog.Warn("Failed to record run history", logfields.Error(err))
	}
}

func (o *HistoryObserver) OnRunStart(r *pipeline.Report) {
	o.append(NewRunStarted(r.RunID, o.now(), RunStartedData{
		Group:     r.Group,
		Requested: names(r.Requested),
		Tasks:     names(r.Tasks),
		Project:   o.Project,
		Version:   o.Version,
		Commit:    o.Commit,
	}))
}

func (o *HistoryObserver) OnTaskComplete(r *pipeline.Report, tr pipeline.TaskReport) {
	d := TaskCompletedData{
		Task:       string(tr.Name),
		Result:     string(tr.Result),
		DurationMS: float64(tr.Duration.Microseconds()) / 1000,
	}
	if tr.Err != nil {
		d.Error = tr.Err.Err.Error()
	}
	o.append(NewTaskCompleted(r.RunID, o.now(), d))
}

func (o *HistoryObserver) OnRunComplete(r *pipeline.Report) {
	d := RunCompletedData{
		Outcome:    string(r.Outcome),
		DurationMS: float64(r.Duration().Microseconds()) / 1000,
	}
	if tr, ok := r.Failed(); ok {
		d.FailedTask = string(tr.Name)
		if tr.Err != nil {
			d.Error = tr.Err.Err.Error()
		}
	}
	o.append(NewRunCompleted(r.RunID, o.now(), d))
}

func names(in []task.Name) []string {
	out := make([]string, len(in))
	for i, n := range in {
		out[i] = string(n)
	}
	return out
}
