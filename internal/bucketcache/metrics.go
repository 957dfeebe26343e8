package bucketcache

import "sync/atomic"

// Metrics is the in-process bookkeeping counterpart to the original
// CacheStats port: Strategy tallies hits, misses, errors and invalidations
// here, readable through Snapshot. Nothing logs the counters periodically,
// and there is no dedicated stats HTTP endpoint — §6's external interface
// list is exhaustive.
type Metrics struct {
	hits         atomic.Int64
	misses       atomic.Int64
	errors       atomic.Int64
	invalidation atomic.Int64
}

// MetricsSnapshot is a point-in-time read of Metrics' counters.
type MetricsSnapshot struct {
	Hits         int64
	Misses       int64
	Errors       int64
	Invalidation int64
}

func (m *Metrics) RecordHit()          { m.hits.Add(1) }
func (m *Metrics) RecordMiss()         { m.misses.Add(1) }
func (m *Metrics) RecordError()        { m.errors.Add(1) }
func (m *Metrics) RecordInvalidation() { m.invalidation.Add(1) }

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Hits:         m.hits.Load(),
		Misses:       m.misses.Load(),
		Errors:       m.errors.Load(),
		Invalidation: m.invalidation.Load(),
	}
}
