// Package composer implements the range query composer (component E): the
// single public read path that fronts the bucket cache and durable store.
package composer

import (
	"context"
	"log/slog"

	coreerrors "github.com/fever-marketplace/events/internal/core/errors"
	"github.com/fever-marketplace/events/internal/domain"
	"github.com/fever-marketplace/events/internal/storage"
)

// CacheStrategy is the subset of bucketcache.Strategy the composer depends
// on, kept as a narrow interface so tests can fake it without standing up
// Redis.
type CacheStrategy interface {
	Query(ctx context.Context, from, to domain.CivilTimestamp) (events []*domain.Event, ok bool, err error)
	Fill(ctx context.Context, from, to domain.Date, events []*domain.Event) error
}

// Composer answers search(from_ts, to_ts) per §4.5: try the cache, fall back
// to the durable store on cache failure or bypass, and asynchronously
// backfill the cache on a miss.
type Composer struct {
	cache   CacheStrategy
	durable storage.EventStore
}

// New builds a Composer.
func New(cache CacheStrategy, durable storage.EventStore) *Composer {
	return &Composer{cache: cache, durable: durable}
}

// Search returns every event intersecting [from,to], in global order.
func (c *Composer) Search(ctx context.Context, from, to domain.CivilTimestamp) ([]*domain.Event, error) {
	if from.After(to) {
		return nil, coreerrors.ErrInvalidRange
	}

	events, ok, err := c.cache.Query(ctx, from, to)
	if err != nil {
		slog.Warn("[Composer] cache query failed, falling back to durable store", "error", err)
		return c.searchDurable(ctx, from, to)
	}
	if ok {
		return events, nil
	}

	// Cache bypass (month decomposition too large): go straight to the
	// durable store, return immediately, and best-effort backfill the cache.
	events, err = c.durable.FindOverlapping(ctx, from, to)
	if err != nil {
		return nil, coreerrors.ErrDurableStoreUnavailable
	}

	go c.asyncFill(from, to, events)

	return events, nil
}

func (c *Composer) searchDurable(ctx context.Context, from, to domain.CivilTimestamp) ([]*domain.Event, error) {
	events, err := c.durable.FindOverlapping(ctx, from, to)
	if err != nil {
		return nil, coreerrors.ErrDurableStoreUnavailable
	}
	return events, nil
}

// asyncFill repopulates the cache after a bypass, best-effort (§4.5 step 4:
// "failures logged"). It runs detached from the request context so a client
// disconnect does not cancel the backfill.
func (c *Composer) asyncFill(from, to domain.CivilTimestamp, events []*domain.Event) {
	if err := c.cache.Fill(context.Background(), from.Date, to.Date, events); err != nil {
		slog.Warn("[Composer] async cache fill failed", "error", err)
	}
}
