package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/fever-marketplace/events/internal/domain"
	"github.com/fever-marketplace/events/internal/provider"
	"github.com/fever-marketplace/events/internal/storage"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	planList provider.PlanListXML
}

func (f *fakeProvider) FetchPlanList(ctx context.Context) provider.PlanListXML {
	return f.planList
}

type fakeCache struct {
	invalidateErr   error
	invalidatedWith []*domain.Event
}

func (f *fakeCache) Invalidate(ctx context.Context, events []*domain.Event) error {
	f.invalidatedWith = events
	return f.invalidateErr
}

type fakeStore struct {
	upsertCalled bool
	counts       storage.UpsertCounts
	err          error

	// cache, when set, lets UpsertBatch record whether invalidation had
	// already happened by the time the upsert began.
	cache                   *fakeCache
	invalidatedBeforeUpsert bool
}

func (f *fakeStore) FindOverlapping(ctx context.Context, from, to domain.CivilTimestamp) ([]*domain.Event, error) {
	return nil, nil
}

func (f *fakeStore) UpsertBatch(ctx context.Context, events []*domain.Event) (storage.UpsertCounts, error) {
	f.upsertCalled = true
	if f.cache != nil {
		f.invalidatedBeforeUpsert = f.cache.invalidatedWith != nil
	}
	return f.counts, f.err
}

func samplePlanList() provider.PlanListXML {
	return provider.PlanListXML{
		Output: provider.OutputXML{
			BasePlans: []provider.BasePlanXML{
				{
					SellMode: "online",
					Title:    "Concert",
					Plans: []provider.PlanXML{
						{
							StartDate: "2024-12-01T20:00:00",
							EndDate:   "2024-12-01T23:00:00",
							Zones:     []provider.ZoneXML{{Capacity: 10, Price: 25.0}},
						},
					},
				},
			},
		},
	}
}

func TestPipeline_EmptyProviderResultIsANoOp(t *testing.T) {
	p := New(&fakeProvider{}, &fakeCache{}, &fakeStore{})
	p.SyncOnce(context.Background())

	snap := p.Metadata().Snapshot()
	require.Equal(t, 0, snap.LastEventCount)
	require.NoError(t, snap.LastErr)
}

func TestPipeline_InvalidatesBeforeUpsert(t *testing.T) {
	cache := &fakeCache{}
	store := &fakeStore{counts: storage.UpsertCounts{Inserted: 1}, cache: cache}
	p := New(&fakeProvider{planList: samplePlanList()}, cache, store)

	p.SyncOnce(context.Background())

	require.Len(t, cache.invalidatedWith, 1)
	require.True(t, store.upsertCalled)
	require.True(t, store.invalidatedBeforeUpsert)

	snap := p.Metadata().Snapshot()
	require.Equal(t, 1, snap.LastEventCount)
	require.NoError(t, snap.LastErr)
}

func TestPipeline_InvalidationFailureDoesNotAbortUpsert(t *testing.T) {
	cache := &fakeCache{invalidateErr: errors.New("redis down")}
	store := &fakeStore{}
	p := New(&fakeProvider{planList: samplePlanList()}, cache, store)

	p.SyncOnce(context.Background())

	require.True(t, store.upsertCalled)
}

func TestPipeline_UpsertFailureIsLoggedAndSwallowed(t *testing.T) {
	store := &fakeStore{err: errors.New("connection refused")}
	p := New(&fakeProvider{planList: samplePlanList()}, &fakeCache{}, store)

	require.NotPanics(t, func() { p.SyncOnce(context.Background()) })

	snap := p.Metadata().Snapshot()
	require.Error(t, snap.LastErr)
}

func TestPipeline_MapsOnlyOnlinePlansIntoInvalidation(t *testing.T) {
	offline := samplePlanList()
	offline.Output.BasePlans[0].SellMode = "offline"

	cache := &fakeCache{}
	p := New(&fakeProvider{planList: offline}, cache, &fakeStore{})

	p.SyncOnce(context.Background())
	require.Empty(t, cache.invalidatedWith)
}
