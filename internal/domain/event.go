// Package domain holds the event model shared by every component of the
// read/ingest core: the durable store, the bucket cache, the mapper, and
// the range query composer.
package domain

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/shopspring/decimal"
)

// hashSeparator is not a legal character in an upstream title, which keeps
// "A" + "|" + "B" from colliding with "A|" + "" + "B" style boundary
// ambiguity when concatenating hash-forming fields.
const hashSeparator = "\x1f"

// Event is the immutable domain record for a single online event.
//
// Two Events with equal Hash() are the same business event: price and ID
// are deliberately excluded from the hash (§4.1), so a later sync that only
// changes price updates the existing row instead of minting a new one.
type Event struct {
	ID        string
	Title     string
	StartDate Date
	StartTime TimeOfDay
	EndDate   Date
	EndTime   TimeOfDay
	MinPrice  decimal.Decimal
	MaxPrice  decimal.Decimal
}

// Validate checks the invariants from §3: non-empty title, start <= end,
// 0 <= min_price <= max_price.
func (e *Event) Validate() error {
	if e.Title == "" {
		return fmt.Errorf("title is required")
	}
	if e.ID == "" {
		return fmt.Errorf("id is required")
	}
	if CompareCivil(e.StartDate, e.StartTime, e.EndDate, e.EndTime) > 0 {
		return fmt.Errorf("start (%s %s) is after end (%s %s)", e.StartDate, e.StartTime, e.EndDate, e.EndTime)
	}
	if e.MinPrice.IsNegative() {
		return fmt.Errorf("min_price must be >= 0, got %s", e.MinPrice)
	}
	if e.MaxPrice.LessThan(e.MinPrice) {
		return fmt.Errorf("max_price (%s) must be >= min_price (%s)", e.MaxPrice, e.MinPrice)
	}
	return nil
}

// StartTimestamp returns the civil start instant used for overlap and ordering.
func (e *Event) StartTimestamp() CivilTimestamp {
	return CivilTimestamp{Date: e.StartDate, Time: e.StartTime}
}

// EndTimestamp returns the civil end instant used for overlap comparisons.
func (e *Event) EndTimestamp() CivilTimestamp {
	return CivilTimestamp{Date: e.EndDate, Time: e.EndTime}
}

// Overlaps reports whether the event's [start,end] interval intersects
// [from,to], per the closed-interval predicate in §4.2:
// start_ts <= to_ts AND end_ts >= from_ts.
func (e *Event) Overlaps(from, to CivilTimestamp) bool {
	start := e.StartTimestamp()
	end := e.EndTimestamp()
	return !start.After(to) && !end.Before(from)
}

// Hash computes the business-key digest of (title, start_date, start_time,
// end_date, end_time) — never id or prices — per §4.1. It is a 64-bit
// non-cryptographic digest (xxhash), deterministic across processes and
// platforms, which is the portable choice the Open Questions section in
// spec.md asks implementations to make explicit.
func (e *Event) Hash() uint64 {
	h := xxhash.New()
	h.WriteString(e.Title)
	h.WriteString(hashSeparator)
	h.WriteString(e.StartDate.String())
	h.WriteString(hashSeparator)
	h.WriteString(e.StartTime.String())
	h.WriteString(hashSeparator)
	h.WriteString(e.EndDate.String())
	h.WriteString(hashSeparator)
	h.WriteString(e.EndTime.String())
	return h.Sum64()
}

// HashHex renders Hash() as a fixed-width lowercase hex string, the form
// stored in the durable store's UNIQUE event_hash column.
func (e *Event) HashHex() string {
	return fmt.Sprintf("%016x", e.Hash())
}

// Compare orders two events by (start_date, start_time) ascending, ties
// broken by id, matching the ordering mandated by §4.2 and P3.
func Compare(a, b *Event) int {
	if c := CompareCivil(a.StartDate, a.StartTime, b.StartDate, b.StartTime); c != 0 {
		return c
	}
	if a.ID < b.ID {
		return -1
	}
	if a.ID > b.ID {
		return 1
	}
	return 0
}
