package bucketcache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMetrics_SnapshotReflectsRecordedCounts(t *testing.T) {
	m := &Metrics{}
	m.RecordHit()
	m.RecordHit()
	m.RecordMiss()
	m.RecordError()
	m.RecordInvalidation()
	m.RecordInvalidation()
	m.RecordInvalidation()

	snap := m.Snapshot()
	require.Equal(t, MetricsSnapshot{Hits: 2, Misses: 1, Errors: 1, Invalidation: 3}, snap)
}
