// Package eventstore records pipeline runs as events in SQLite and projects
// them into run summaries.
package eventstore

import (
	"context"
	"sort"
	"time"
)

const (
	runStatusRunning = "running"
	defaultHistory   = 20
)

// RunSummary is the read model of one run.
type RunSummary struct {
	RunID        string         `json:"run_id"`
	Group        string         `json:"group"`
	Status       string         `json:"status"` // running, success, warning, failed, canceled
	StartedAt    time.Time      `json:"started_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	Duration     time.Duration  `json:"duration,omitempty"`
	Commit       string         `json:"commit,omitempty"`
	Version      string         `json:"version,omitempty"`
	TaskCount    int            `json:"task_count"`
	Results      map[string]int `json:"results"` // per task result
	FailedTask   string         `json:"failed_task,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
}

// RunHistoryProjection rebuilds run summaries from the store.
type RunHistoryProjection struct {
	store Store
	runs  map[string]*RunSummary
}

// NewRunHistoryProjection creates a projection backed by store.
func NewRunHistoryProjection(store Store) *RunHistoryProjection {
	return &RunHistoryProjection{store: store, runs: make(map[string]*RunSummary)}
}

// Rebuild replays every stored event.
func (p *RunHistoryProjection) Rebuild(ctx context.Context) error {
	events, err := p.store.GetRange(ctx, time.Time{}, time.Now().Add(time.Hour))
	if err != nil {
		return err
	}
	p.runs = make(map[string]*RunSummary)
	for _, e := range events {
		p.Apply(e)
	}
	return nil
}

// Apply folds one event into the projection. Unknown types are ignored.
func (p *RunHistoryProjection) Apply(e Event) {
	runID := e.RunID
	if runID == "" {
		return
	}
	s, ok := p.runs[runID]
	if !ok {
		s = &RunSummary{RunID: runID, Status: runStatusRunning, StartedAt: e.At, Results: map[string]int{}}
		p.runs[runID] = s
	}

	switch e.Type {
	case TypeRunStarted:
		var d RunStartedData
		if err := e.Decode(&d); err == nil {
			s.Group = d.Group
			s.Commit = d.Commit
			s.Version = d.Version
			s.TaskCount = len(d.Tasks)
		}
		s.StartedAt = e.At

	case TypeTaskCompleted:
		var d TaskCompletedData
		if err := e.Decode(&d); err == nil {
			s.Results[d.Result]++
		}

	case TypeRunCompleted:
		at := e.At
		s.CompletedAt = &at
		var d RunCompletedData
		if err := e.Decode(&d); err == nil {
			s.Status = d.Outcome
			s.Duration = time.Duration(d.DurationMS * float64(time.Millisecond))
			s.FailedTask = d.FailedTask
			s.ErrorMessage = d.Error
		}
	}
}

// Recent returns up to limit runs, newest first. A limit of zero or less uses the default.
func (p *RunHistoryProjection) Recent(limit int) []RunSummary {
	if limit <= 0 {
		limit = defaultHistory
	}
	out := make([]RunSummary, 0, len(p.runs))
	for _, s := range p.runs {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].RunID > out[j].RunID
		}
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Get returns the summary of one run.
func (p *RunHistoryProjection) Get(runID string) (RunSummary, bool) {
	s, ok := p.runs[runID]
	if !ok {
		return RunSummary{}, false
	}
	return *s, true
}
