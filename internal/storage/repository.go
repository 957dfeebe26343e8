// Package storage defines the durable-store port (component B) that the
// range query composer and sync pipeline depend on, kept separate from any
// concrete adapter — spec.md §9 models this as "two named store
// abstractions composed by the query composer; no inheritance chain".
package storage

import (
	"context"

	"github.com/fever-marketplace/events/internal/domain"
)

// UpsertCounts reports how many rows an upsert_batch call inserted vs updated.
type UpsertCounts struct {
	Inserted int
	Updated  int
}

// EventStore is the durable store adapter contract (§4.2).
type EventStore interface {
	// FindOverlapping returns every event whose [start_ts,end_ts] intersects
	// [from,to], ordered ascending by (start_date,start_time), ties broken
	// by id. Empty, not an error, on no match.
	FindOverlapping(ctx context.Context, from, to domain.CivilTimestamp) ([]*domain.Event, error)

	// UpsertBatch inserts-or-updates every event by content hash in a single
	// transaction (all-or-nothing, O4). On conflict within the batch,
	// last write wins ordered by hash (deterministic).
	UpsertBatch(ctx context.Context, events []*domain.Event) (UpsertCounts, error)
}
