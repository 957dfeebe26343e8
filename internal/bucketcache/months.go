// Package bucketcache implements the month-keyed Redis bucket store
// (component C) and the bucket cache strategy that sits on top of it
// (component D).
package bucketcache

import (
	"fmt"

	"github.com/fever-marketplace/events/internal/domain"
)

// monthRange is the inclusive sequence of first-of-month dates a query
// window touches, split out as its own type so it stays independently
// testable — the original implementation kept a dedicated
// BucketRangeCalculator rather than folding this into the cache strategy.
type monthRange struct {
	months []domain.Date
}

// decomposeMonths returns the inclusive month sequence
// [month_of(from) ... month_of(to)] per §4.4.
func decomposeMonths(from, to domain.CivilTimestamp) monthRange {
	start := from.Month()
	end := to.Month()

	var months []domain.Date
	for m := start; m.Compare(end) <= 0; m = m.AddMonths(1) {
		months = append(months, m)
	}
	return monthRange{months: months}
}

// Len returns the number of months touched.
func (r monthRange) Len() int { return len(r.months) }

// monthsTouchedByRange returns every first-of-month date the closed
// interval [start,end] touches — used by invalidate() (§4.4) which takes
// plain dates, not a full civil timestamp window.
func monthsTouchedByRange(start, end domain.Date) []domain.Date {
	startMonth := start.FirstOfMonth()
	endMonth := end.FirstOfMonth()

	var months []domain.Date
	for m := startMonth; m.Compare(endMonth) <= 0; m = m.AddMonths(1) {
		months = append(months, m)
	}
	return months
}

// bucketKey renders the Redis key for a given month under the configured prefix.
func bucketKey(prefix string, month domain.Date) string {
	return fmt.Sprintf("%s%04d-%02d", prefix, month.Year, month.Month)
}
