package pipeline

import (
	"time"

	"git.home.luguber.info/inful/assetbuilder/internal/task"
)

// Outcome is the aggregate status of a run.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeWarning  Outcome = "warning"
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
)

// TaskReport is the recorded result of one task.
type TaskReport struct {
	Name     task.Name
	Result   task.Result
	Start    time.Time
	Duration time.Duration
	Err      *task.Error // set for failed, warning and canceled tasks
}

// Report describes one pipeline run.
type Report struct {
	RunID     string
	Group     string      // requested names joined with "+"
	Requested []task.Name // names as passed to Run
	Tasks     []task.Name // flattened order
	Start     time.Time
	End       time.Time
	Results   []TaskReport
	Outcome   Outcome
}

// Duration returns the wall-clock duration of the run.
func (r *Report) Duration() time.Duration {
	if r.End.IsZero() {
		return 0
	}
	return r.End.Sub(r.Start)
}

// Failed returns the task that stopped the run, if any.
func (r *Report) Failed() (TaskReport, bool) {
	for _, tr := range r.Results {
		if tr.Result == task.ResultFailed || tr.Result == task.ResultCanceled {
			return tr, true
		}
	}
	return TaskReport{}, false
}

// Count returns how many tasks ended with result.
func (r *Report) Count(result task.Result) int {
	n := 0
	for _, tr := range r.Results {
		if tr.Result == result {
			n++
		}
	}
	return n
}

// Result returns the recorded result for a task name.
func (r *Report) Result(name task.Name) (TaskReport, bool) {
	for _, tr := range r.Results {
		if tr.Name == name {
			return tr, true
		}
	}
	return TaskReport{}, false
}

// deriveOutcome sets Outcome from the recorded task results.
func (r *Report) deriveOutcome() {
	r.Outcome = OutcomeSuccess
	for _, tr := range r.Results {
		switch tr.Result {
		case task.ResultFailed:
			r.Outcome = OutcomeFailed
			return
		case task.ResultCanceled:
			r.Outcome = OutcomeCanceled
			return
		case task.ResultWarning:
			r.Outcome = OutcomeWarning
		}
	}
}
