package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jnst/event-sourcing-pattern/internal/model"
	"github.com/jnst/event-sourcing-pattern/internal/projection"
	"github.com/jnst/event-sourcing-pattern/internal/repository"
)

// EventServiceImpl implements EventService on top of an EventStore.
type EventServiceImpl struct {
	store     repository.EventStore
	directory projection.EntityDirectory
	notifier  EventNotifier
}

// NewEventServiceImpl creates a new EventService implementation. The notifier
// may be nil, in which case appended events are not published anywhere.
func NewEventServiceImpl(
	store repository.EventStore,
	directory projection.EntityDirectory,
	notifier EventNotifier,
) EventService {
	return &EventServiceImpl{
		store:     store,
		directory: directory,
		notifier:  notifier,
	}
}

// Append stores the events and publishes them to the notifier. Publishing is
// best effort: a failed publish is logged and never fails the append.
func (s *EventServiceImpl) Append(ctx context.Context, events []model.Event) error {
	if err := s.store.Append(ctx, events); err != nil {
		return fmt.Errorf("failed to append events: %w", err)
	}

	if s.notifier == nil {
		return nil
	}

	for _, event := range events {
		if err := s.notifier.Publish(ctx, event); err != nil {
			slog.Error("failed to publish event",
				slog.String("event_kind", string(event.Kind())),
				slog.String("error", err.Error()),
			)

			continue
		}

		slog.Debug("published event", slog.String("event_kind", string(event.Kind())))
	}

	return nil
}

// Events returns the full stored event history in chronological order.
func (s *EventServiceImpl) Events(ctx context.Context) ([]model.Event, error) {
	return s.store.FetchAll(ctx)
}

// Snapshot replays the full event history into a fresh entity snapshot.
func (s *EventServiceImpl) Snapshot(ctx context.Context) (*projection.Snapshot, error) {
	events, err := s.store.FetchAll(ctx)
	if err != nil {
		return nil, err
	}

	return projection.Project(ctx, s.directory, events)
}
