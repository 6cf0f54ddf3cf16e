package registry

import (
	"errors"
	"fmt"
	"strings"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/task"
)

var (
	ErrDuplicateTask = errors.New("duplicate task")
	ErrUnknownTask   = errors.New("unknown task")
	ErrCyclicGroup   = errors.New("cyclic group")
)

// DuplicateTaskError reports a name registered twice, as a task or a group.
type DuplicateTaskError struct {
	Name task.Name
}

func (e *DuplicateTaskError) Error() string {
	return fmt.Sprintf("%s: %s", ErrDuplicateTask, e.Name)
}

func (e *DuplicateTaskError) Unwrap() error { return ErrDuplicateTask }

// UnknownTaskError reports a reference to a name that is neither a task nor a group.
type UnknownTaskError struct {
	Name  task.Name
	Group task.Name // referencing group, empty for a top-level name
}

func (e *UnknownTaskError) Error() string {
	if e.Group == "" {
		return fmt.Sprintf("%s: %s", ErrUnknownTask, e.Name)
	}
	return fmt.Sprintf("%s: %s (referenced by group %s)", ErrUnknownTask, e.Name, e.Group)
}

func (e *UnknownTaskError) Unwrap() error { return ErrUnknownTask }

// CyclicGroupError carries the group path that re-entered an ancestor.
type CyclicGroupError struct {
	Path []task.Name
}

func (e *CyclicGroupError) Error() string {
	parts := make([]string, len(e.Path))
	for i, n := range e.Path {
		parts[i] = string(n)
	}
	return fmt.Sprintf("%s: %s", ErrCyclicGroup, strings.Join(parts, " -> "))
}

func (e *CyclicGroupError) Unwrap() error { return ErrCyclicGroup }

// classify tags err with the registry category so callers map it to the right exit code.
func classify(err error) error {
	return ferrors.WrapError(err, ferrors.CategoryRegistry, "task registry").
		Fatal().
		Build()
}
