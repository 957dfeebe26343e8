// Package sync implements the sync pipeline (component H): the single
// sync_once() operation the scheduler drives, plus the in-process
// last-run bookkeeping in metadata.go.
package sync

import (
	"context"
	"log/slog"
	"time"

	"github.com/fever-marketplace/events/internal/domain"
	"github.com/fever-marketplace/events/internal/mapper"
	"github.com/fever-marketplace/events/internal/provider"
	"github.com/fever-marketplace/events/internal/storage"
)

// CacheInvalidator is the subset of bucketcache.Strategy the pipeline needs.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, events []*domain.Event) error
}

// ProviderClient is the subset of provider.Client the pipeline needs.
type ProviderClient interface {
	FetchPlanList(ctx context.Context) provider.PlanListXML
}

// Pipeline runs sync_once(): fetch, invalidate, upsert, in that order.
type Pipeline struct {
	provider ProviderClient
	cache    CacheInvalidator
	store    storage.EventStore
	metadata *Metadata
}

// New builds a Pipeline.
func New(providerClient ProviderClient, cache CacheInvalidator, store storage.EventStore) *Pipeline {
	return &Pipeline{
		provider: providerClient,
		cache:    cache,
		store:    store,
		metadata: &Metadata{},
	}
}

// Metadata exposes the last-run bookkeeping; only tests read it.
func (p *Pipeline) Metadata() *Metadata { return p.metadata }

// SyncOnce fetches the upstream catalog, invalidates every touched bucket,
// and upserts the batch into the durable store, per §4.8. Step order is
// load-bearing: invalidate MUST precede the upsert (O1) so no reader can
// observe a pre-write bucket snapshot paired with post-write store state
// once this call returns.
func (p *Pipeline) SyncOnce(ctx context.Context) {
	runAt := time.Now()

	planList := p.provider.FetchPlanList(ctx)
	events := mapper.ToOnlineEvents(planList.Output.BasePlans)
	if len(events) == 0 {
		slog.Debug("[Sync] no online events from provider, skipping")
		p.metadata.Record(runAt, 0, nil)
		return
	}

	if err := p.cache.Invalidate(ctx, events); err != nil {
		slog.Warn("[Sync] cache invalidation failed, continuing with upsert", "error", err)
	}

	counts, err := p.store.UpsertBatch(ctx, events)
	if err != nil {
		slog.Error("[Sync] upsert batch failed", "error", err)
		p.metadata.Record(runAt, 0, err)
		return
	}

	slog.Info("[Sync] synced events", "inserted", counts.Inserted, "updated", counts.Updated)
	p.metadata.Record(runAt, len(events), nil)
}
