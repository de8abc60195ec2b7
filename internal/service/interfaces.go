// Package service provides business logic layer implementations.
package service

import (
	"context"

	"github.com/jnst/event-sourcing-pattern/internal/model"
	"github.com/jnst/event-sourcing-pattern/internal/projection"
)

// EventService defines business logic methods for recording events and
// replaying them into entity snapshots.
type EventService interface {
	Append(ctx context.Context, events []model.Event) error
	Events(ctx context.Context) ([]model.Event, error)
	Snapshot(ctx context.Context) (*projection.Snapshot, error)
}

// EventNotifier publishes stored events for downstream consumers.
type EventNotifier interface {
	Publish(ctx context.Context, event model.Event) error
}
