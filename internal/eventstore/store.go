package eventstore

import (
	"context"
	"time"
)

// Store persists run events.
type Store interface {
	Append(ctx context.Context, e Event) error

	// GetByRunID returns one run's events in append order.
	GetByRunID(ctx context.Context, runID string) ([]Event, error)

	// GetRange returns events whose timestamp lies in [start, end].
	GetRange(ctx context.Context, start, end time.Time) ([]Event, error)

	Close() error
}
