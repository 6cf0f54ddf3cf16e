// Package task defines the unit of work executed by the pipeline driver.
package task

import (
	"context"
	"errors"
	"fmt"

	"git.home.luguber.info/inful/assetbuilder/internal/config"
)

// Name is the unique key of a task or group.
type Name string

// Func is a task executor. It reads and writes the file system under the
// resolved roots and hands nothing else to later tasks.
type Func func(ctx context.Context, rc *config.Resolved) error

// Definition pairs a task name with its executor and declared I/O.
type Definition struct {
	Name        Name
	Description string
	Run         Func
	Inputs      []string // globs, informational
	Outputs     []string // paths, informational
}

// ErrorKind classifies the outcome of a failed task.
type ErrorKind string

const (
	ErrorFatal    ErrorKind = "fatal"    // Run must abort.
	ErrorWarning  ErrorKind = "warning"  // Best-effort; record and continue.
	ErrorCanceled ErrorKind = "canceled" // Context cancellation.
)

// Error is a task failure with its kind and underlying cause.
type Error struct {
	Kind ErrorKind
	Task Name
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("%s task %s: %v", e.Kind, e.Task, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Fatal wraps err as a fatal failure of t.
func Fatal(t Name, err error) *Error { return &Error{Kind: ErrorFatal, Task: t, Err: err} }

// Warning wraps err as a best-effort failure of t.
func Warning(t Name, err error) *Error { return &Error{Kind: ErrorWarning, Task: t, Err: err} }

// Canceled reports that t did not run because the context was done.
func Canceled(t Name, err error) *Error { return &Error{Kind: ErrorCanceled, Task: t, Err: err} }

// Classify normalises an executor error. Plain errors are fatal.
func Classify(t Name, err error) *Error {
	if err == nil {
		return nil
	}
	var te *Error
	if errors.As(err, &te) {
		if te.Task == "" {
			return &Error{Kind: te.Kind, Task: t, Err: te.Err}
		}
		return te
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Canceled(t, err)
	}
	return Fatal(t, err)
}

// Result is the per-task outcome recorded by the driver.
type Result string

const (
	ResultSuccess  Result = "success"
	ResultWarning  Result = "warning"
	ResultFailed   Result = "failed"
	ResultCanceled Result = "canceled"
	ResultSkipped  Result = "skipped"
)

// ResultFor maps an error kind to a task result.
func ResultFor(k ErrorKind) Result {
	switch k {
	case ErrorWarning:
		return ResultWarning
	case ErrorCanceled:
		return ResultCanceled
	default:
		return ResultFailed
	}
}
