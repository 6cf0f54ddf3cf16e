package metrics

import "time"

// ResultLabel enumerates task result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultWarning  ResultLabel = "warning"
	ResultFailed   ResultLabel = "failed"
	ResultCanceled ResultLabel = "canceled"
	ResultSkipped  ResultLabel = "skipped"
)

// OutcomeLabel is the final status of a pipeline run: success|warning|failed|canceled.
type OutcomeLabel string

// Recorder defines observability hooks for run and task metrics.
type Recorder interface {
	ObserveTaskDuration(task string, d time.Duration)
	IncTaskResult(task string, result ResultLabel)
	ObserveRunDuration(group string, d time.Duration)
	IncRunOutcome(outcome OutcomeLabel)
	IncBestEffortFailure(task string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveTaskDuration(string, time.Duration) {}
func (NoopRecorder) IncTaskResult(string, ResultLabel)         {}
func (NoopRecorder) ObserveRunDuration(string, time.Duration)  {}
func (NoopRecorder) IncRunOutcome(OutcomeLabel)                {}
func (NoopRecorder) IncBestEffortFailure(string)               {}
