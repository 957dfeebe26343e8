package bucketcache

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/fever-marketplace/events/internal/domain"
	"github.com/fever-marketplace/events/internal/storage"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

func currentMonth() domain.Date {
	return domain.DateOf(time.Now()).FirstOfMonth()
}

// Strategy implements the bucket cache strategy (component D): month
// decomposition, partial-hit assembly against the bucket store, and
// invalidation on write effects, per §4.4.
type Strategy struct {
	store         *Store
	durable       storage.EventStore
	ttl           TTLPolicy
	maxMonths     int
	fillGroup     singleflight.Group
	backgroundCtx context.Context
	Metrics       *Metrics
}

// NewStrategy builds a Strategy. backgroundCtx governs asynchronous
// repopulation started by Query/invalidate-adjacent work and should outlive
// any single request context (typically the server's root context).
func NewStrategy(store *Store, durable storage.EventStore, ttl TTLPolicy, maxMonths int, backgroundCtx context.Context) *Strategy {
	return &Strategy{
		store:         store,
		durable:       durable,
		ttl:           ttl,
		maxMonths:     maxMonths,
		backgroundCtx: backgroundCtx,
		Metrics:       &Metrics{},
	}
}

// Query returns the events intersecting [from,to], preserving global
// ordering. ok=false signals a cache bypass (month decomposition exceeded
// max_months_per_query) — the caller (composer) must go straight to the
// durable store in that case. err != nil signals a cache transport/decode
// failure — the caller must also fall back to the durable store and MUST
// NOT attempt to write back (§4.5 step 3).
func (s *Strategy) Query(ctx context.Context, from, to domain.CivilTimestamp) (events []*domain.Event, ok bool, err error) {
	months := decomposeMonths(from, to)
	if months.Len() > s.maxMonths {
		return nil, false, nil
	}

	cached := make(map[string][]*domain.Event, months.Len())
	var missed []domain.Date

	for _, month := range months.months {
		bucket, getErr := s.store.Get(ctx, month)
		if getErr == ErrBucketAbsent {
			missed = append(missed, month)
			continue
		}
		if getErr != nil {
			s.Metrics.RecordError()
			return nil, true, getErr
		}
		decoded, decodeErrs := FromBucketEvents(bucket.Events)
		for _, derr := range decodeErrs {
			slog.Warn("[BucketCache] dropping unparseable cached event", "error", derr)
		}
		cached[month.String()] = decoded
	}

	var fromDurable []*domain.Event
	if len(missed) > 0 {
		s.Metrics.RecordMiss()
		fromDurable, err = s.durable.FindOverlapping(ctx, from, to)
		if err != nil {
			s.Metrics.RecordError()
			return nil, true, err
		}
		fromDurable = keepStartingInMonths(fromDurable, missed)

		go s.asyncRepopulate(months.months, missed, fromDurable)
	} else {
		s.Metrics.RecordHit()
	}

	merged := mergeDedupeSort(cached, fromDurable)
	merged = filterOverlap(merged, from, to)
	return merged, true, nil
}

// Fill populates the bucket store for every month touched by [from,to] using
// events, used by the composer after a cache bypass/miss (§4.5 step 4).
func (s *Strategy) Fill(ctx context.Context, from, to domain.Date, events []*domain.Event) error {
	months := monthsTouchedByRange(from, to)
	byMonth := bucketByStartMonth(events, months)
	for _, month := range months {
		bucket := &Bucket{Events: ToBucketEvents(byMonth[month.String()])}
		if err := s.store.Put(ctx, month, bucket, s.ttl.TTLFor(month, currentMonth())); err != nil {
			return err
		}
	}
	return nil
}

// Invalidate drops every bucket whose month is touched by any event's
// [start_date, end_date], per §4.4. Must run before the durable upsert of
// those events (O1, enforced by the sync pipeline's call order).
func (s *Strategy) Invalidate(ctx context.Context, events []*domain.Event) error {
	touched := map[string]domain.Date{}
	for _, e := range events {
		for _, month := range monthsTouchedByRange(e.StartDate, e.EndDate) {
			touched[month.String()] = month
		}
	}
	for _, month := range touched {
		if _, err := s.store.Delete(ctx, month); err != nil {
			return err
		}
		s.Metrics.RecordInvalidation()
	}
	return nil
}

// asyncRepopulate fills the missed months' buckets in the background from
// the durable events the calling Query already read, collapsing concurrent
// Puts for the same month via singleflight. It does not read the durable
// store itself: each Query that misses performs its own durable read.
func (s *Strategy) asyncRepopulate(allMonths, missed []domain.Date, durableEvents []*domain.Event) {
	byMonth := bucketByStartMonth(durableEvents, missed)

	g, ctx := errgroup.WithContext(s.backgroundCtx)
	for _, month := range missed {
		month := month
		g.Go(func() error {
			_, err, _ := s.fillGroup.Do(bucketKey(s.store.prefix, month), func() (interface{}, error) {
				bucket := &Bucket{Events: ToBucketEvents(byMonth[month.String()])}
				return nil, s.store.Put(ctx, month, bucket, s.ttl.TTLFor(month, currentMonth()))
			})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		slog.Warn("[BucketCache] async repopulation failed", "error", err)
	}
}

func keepStartingInMonths(events []*domain.Event, months []domain.Date) []*domain.Event {
	set := make(map[string]struct{}, len(months))
	for _, m := range months {
		set[m.String()] = struct{}{}
	}
	out := make([]*domain.Event, 0, len(events))
	for _, e := range events {
		if _, ok := set[e.StartDate.FirstOfMonth().String()]; ok {
			out = append(out, e)
		}
	}
	return out
}

func bucketByStartMonth(events []*domain.Event, months []domain.Date) map[string][]*domain.Event {
	out := make(map[string][]*domain.Event, len(months))
	for _, m := range months {
		out[m.String()] = nil
	}
	for _, e := range events {
		key := e.StartDate.FirstOfMonth().String()
		if _, tracked := out[key]; tracked {
			out[key] = append(out[key], e)
		}
	}
	return out
}

func mergeDedupeSort(cached map[string][]*domain.Event, fromDurable []*domain.Event) []*domain.Event {
	seen := make(map[string]*domain.Event)
	for _, events := range cached {
		for _, e := range events {
			seen[e.ID] = e
		}
	}
	for _, e := range fromDurable {
		seen[e.ID] = e
	}

	out := make([]*domain.Event, 0, len(seen))
	for _, e := range seen {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return domain.Compare(out[i], out[j]) < 0 })
	return out
}

func filterOverlap(events []*domain.Event, from, to domain.CivilTimestamp) []*domain.Event {
	out := make([]*domain.Event, 0, len(events))
	for _, e := range events {
		if e.Overlaps(from, to) {
			out = append(out, e)
		}
	}
	return out
}
