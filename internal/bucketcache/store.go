package bucketcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fever-marketplace/events/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrBucketAbsent is returned by Get when the month has no cached bucket
// (a cache miss, distinct from a legal empty-bucket hit — §4.4 "An empty
// bucket ... is a legal positive cache entry").
var ErrBucketAbsent = errors.New("bucket cache: bucket absent")

// Bucket is the ordered, schema-stable serialized form of a month's events.
// msgpack (ignore-unknown-field on decode by construction — unknown map
// keys are simply skipped) satisfies §4.3's "survives minor field additions".
type Bucket struct {
	Events []BucketEvent `msgpack:"events"`
}

// BucketEvent is the wire shape of a single cached event. Prices are stored
// as strings to keep decimal.Decimal's exact representation across the
// msgpack round trip.
type BucketEvent struct {
	ID        string `msgpack:"id"`
	Title     string `msgpack:"title"`
	StartDate string `msgpack:"start_date"`
	StartTime string `msgpack:"start_time"`
	EndDate   string `msgpack:"end_date"`
	EndTime   string `msgpack:"end_time"`
	MinPrice  string `msgpack:"min_price"`
	MaxPrice  string `msgpack:"max_price"`
}

// Store is the bucket store adapter (component C): a month-keyed KV wrapper
// around go-redis with per-month TTL and an approximate live-key count.
type Store struct {
	rdb    *redis.Client
	prefix string
}

// NewStore builds a Store against a Redis instance identified by addr,
// scoping keys under prefix (§4.10 cache.key_prefix).
func NewStore(addr string, db, poolSize, minIdleConns int, prefix string) *Store {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		DB:           db,
		PoolSize:     poolSize,
		MinIdleConns: minIdleConns,
	})
	return &Store{rdb: rdb, prefix: prefix}
}

// NewStoreFromClient wraps an existing *redis.Client, used by tests to
// point the adapter at a miniredis instance.
func NewStoreFromClient(rdb *redis.Client, prefix string) *Store {
	return &Store{rdb: rdb, prefix: prefix}
}

// Close releases the underlying Redis connection pool.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// Get fetches the bucket for month, or ErrBucketAbsent on a cache miss.
func (s *Store) Get(ctx context.Context, month domain.Date) (*Bucket, error) {
	raw, err := s.rdb.Get(ctx, bucketKey(s.prefix, month)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrBucketAbsent
	}
	if err != nil {
		return nil, fmt.Errorf("bucket store: get %s: %w", month, err)
	}

	var bucket Bucket
	if err := msgpack.Unmarshal(raw, &bucket); err != nil {
		return nil, fmt.Errorf("bucket store: decode %s: %w", month, err)
	}
	return &bucket, nil
}

// Put writes a full snapshot for month with the given TTL (I1, I4).
func (s *Store) Put(ctx context.Context, month domain.Date, bucket *Bucket, ttl time.Duration) error {
	raw, err := msgpack.Marshal(bucket)
	if err != nil {
		return fmt.Errorf("bucket store: encode %s: %w", month, err)
	}
	if err := s.rdb.Set(ctx, bucketKey(s.prefix, month), raw, ttl).Err(); err != nil {
		return fmt.Errorf("bucket store: put %s: %w", month, err)
	}
	return nil
}

// Delete removes the bucket for month, reporting whether it existed (I3:
// deleting a bucket never loses durable data, only the cached copy).
func (s *Store) Delete(ctx context.Context, month domain.Date) (bool, error) {
	n, err := s.rdb.Del(ctx, bucketKey(s.prefix, month)).Result()
	if err != nil {
		return false, fmt.Errorf("bucket store: delete %s: %w", month, err)
	}
	return n > 0, nil
}

// Count returns an approximate number of live bucket keys under the
// configured prefix, using SCAN rather than KEYS to avoid blocking Redis.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	var cursor uint64
	pattern := s.prefix + "*"
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, pattern, 1000).Result()
		if err != nil {
			return 0, fmt.Errorf("bucket store: count: %w", err)
		}
		count += int64(len(keys))
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return count, nil
}

// ToBucketEvents converts domain events into the wire representation.
func ToBucketEvents(events []*domain.Event) []BucketEvent {
	out := make([]BucketEvent, 0, len(events))
	for _, e := range events {
		out = append(out, BucketEvent{
			ID:        e.ID,
			Title:     e.Title,
			StartDate: e.StartDate.String(),
			StartTime: e.StartTime.String(),
			EndDate:   e.EndDate.String(),
			EndTime:   e.EndTime.String(),
			MinPrice:  e.MinPrice.String(),
			MaxPrice:  e.MaxPrice.String(),
		})
	}
	return out
}

// FromBucketEvents converts the wire representation back into domain events.
// Events failing to parse are dropped with an error slice rather than
// aborting the whole bucket — a decode-time data-quality boundary matching
// the mapper's §4.7 "drop the record, continue" policy.
func FromBucketEvents(events []BucketEvent) ([]*domain.Event, []error) {
	out := make([]*domain.Event, 0, len(events))
	var errs []error
	for _, be := range events {
		evt, err := be.toDomain()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, evt)
	}
	return out, errs
}

func parseDecimal(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

func (be BucketEvent) toDomain() (*domain.Event, error) {
	start, err := domain.ParseCivilDateTime(be.StartDate + "T" + be.StartTime)
	if err != nil {
		return nil, fmt.Errorf("bucket event %s: bad start: %w", be.ID, err)
	}
	end, err := domain.ParseCivilDateTime(be.EndDate + "T" + be.EndTime)
	if err != nil {
		return nil, fmt.Errorf("bucket event %s: bad end: %w", be.ID, err)
	}
	minPrice, err := parseDecimal(be.MinPrice)
	if err != nil {
		return nil, fmt.Errorf("bucket event %s: bad min_price: %w", be.ID, err)
	}
	maxPrice, err := parseDecimal(be.MaxPrice)
	if err != nil {
		return nil, fmt.Errorf("bucket event %s: bad max_price: %w", be.ID, err)
	}

	return &domain.Event{
		ID:        be.ID,
		Title:     be.Title,
		StartDate: start.Date,
		StartTime: start.Time,
		EndDate:   end.Date,
		EndTime:   end.Time,
		MinPrice:  minPrice,
		MaxPrice:  maxPrice,
	}, nil
}
