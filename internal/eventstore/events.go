package eventstore

import (
	"encoding/json"
	"time"

	"git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
)

// Event type names.
const (
	TypeRunStarted    = "run_started"
	TypeTaskCompleted = "task_completed"
	TypeRunCompleted  = "run_completed"
)

// RunStartedData is the payload of a run_started event.
type RunStartedData struct {
	Group     string   `json:"group"`
	Requested []string `json:"requested"`
	Tasks     []string `json:"tasks"`
	Project   string   `json:"project,omitempty"`
	Version   string   `json:"version,omitempty"`
	Commit    string   `json:"commit,omitempty"`
}

// TaskCompletedData is the payload of a task_completed event.
type TaskCompletedData struct {
	Task       string  `json:"task"`
	Result     string  `json:"result"`
	DurationMS float64 `json:"duration_ms"`
	Error      string  `json:"error,omitempty"`
}

// RunCompletedData is the payload of a run_completed event.
type RunCompletedData struct {
	Outcome    string  `json:"outcome"`
	DurationMS float64 `json:"duration_ms"`
	FailedTask string  `json:"failed_task,omitempty"`
	Error      string  `json:"error,omitempty"`
}

func newEvent(runID, eventType string, at time.Time, data any) (Event, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return Event{}, errors.EventStoreError("failed to marshal "+eventType+" payload").
			WithCause(err).
			WithContext("run_id", runID).
			Build()
	}
	return Event{RunID: runID, Type: eventType, At: at, Payload: payload}, nil
}

// NewRunStarted creates a run_started event.
func NewRunStarted(runID string, at time.Time, data RunStartedData) (Event, error) {
	return newEvent(runID, TypeRunStarted, at, data)
}

// NewTaskCompleted creates a task_completed event.
func NewTaskCompleted(runID string, at time.Time, data TaskCompletedData) (Event, error) {
	return newEvent(runID, TypeTaskCompleted, at, data)
}

// NewRunCompleted creates a run_completed event.
func NewRunCompleted(runID string, at time.Time, data RunCompletedData) (Event, error) {
	return newEvent(runID, TypeRunCompleted, at, data)
}
