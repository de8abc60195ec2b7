// Package repository provides durable, append-only event log storage.
package repository

import (
	"context"
	"slices"

	"github.com/jnst/event-sourcing-pattern/internal/model"
)

// EventStore defines append and chronological retrieval over the per-variant
// event logs.
type EventStore interface {
	// CreateSchema creates the event log and identifier tables if they do not
	// already exist.
	CreateSchema(ctx context.Context) error
	// Append stores one row per event in the log matching its variant,
	// allocating identifiers for invented products and opened outlets and
	// resolving referenced names to identifiers. The first error aborts the
	// remaining events of the batch.
	Append(ctx context.Context, events []model.Event) error
	// FetchAll reads every row from all four logs, rebuilds the events and
	// returns them ordered by occurrence time ascending.
	FetchAll(ctx context.Context) ([]model.Event, error)
}

// sortByOccurrence orders events chronologically at second resolution. The
// sort is stable: events within the same second keep the order the log merge
// produced, which is an artifact of table iteration order rather than a
// guarantee.
func sortByOccurrence(events []model.Event) {
	slices.SortStableFunc(events, func(a, b model.Event) int {
		return a.OccurredAt().Compare(b.OccurredAt())
	})
}
