package bucketcache

import (
	"time"

	"github.com/fever-marketplace/events/internal/domain"
)

// TTLPolicy computes the per-month TTL tiering from §4.3.
type TTLPolicy struct {
	CurrentTTL  time.Duration
	NormalTTL   time.Duration
	LongTermTTL time.Duration
	Tiered      bool
}

// TTLFor returns the TTL for a bucket keyed by month, given the current
// month now. Age A = months(now) - months(month):
//
//	A = 0        -> CurrentTTL
//	0 < A <= 3   -> NormalTTL
//	A > 3        -> LongTermTTL
//
// Tiering disabled collapses to NormalTTL for every month (I4).
func (p TTLPolicy) TTLFor(month, now domain.Date) time.Duration {
	if !p.Tiered {
		return p.NormalTTL
	}

	age := domain.MonthsBetween(month.FirstOfMonth(), now.FirstOfMonth())
	if age < 0 {
		age = -age
	}

	switch {
	case age == 0:
		return p.CurrentTTL
	case age <= 3:
		return p.NormalTTL
	default:
		return p.LongTermTTL
	}
}
