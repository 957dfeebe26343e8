package domain

import (
	"fmt"
	"time"
)

// Date is a naive civil calendar date — no timezone, no time-of-day.
// All timestamps in this system are naive civil time (spec.md §1 Non-goals).
type Date struct {
	Year  int
	Month int
	Day   int
}

// DateOf truncates a time.Time to its civil date, ignoring timezone.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: int(m), Day: d}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// FirstOfMonth returns the bucket key for the month containing d (§3).
func (d Date) FirstOfMonth() Date {
	return Date{Year: d.Year, Month: d.Month, Day: 1}
}

// AddMonths returns the first-of-month date n months after d, normalizing
// month overflow/underflow into the year component.
func (d Date) AddMonths(n int) Date {
	totalMonths := d.Year*12 + (d.Month - 1) + n
	year := totalMonths / 12
	month := totalMonths % 12
	if month < 0 {
		month += 12
		year--
	}
	return Date{Year: year, Month: month + 1, Day: 1}
}

// MonthsBetween returns the number of calendar months between two
// first-of-month dates (b - a), matching spec.md §4.3's "age A = months(N) - months(M)".
func MonthsBetween(a, b Date) int {
	return (b.Year*12 + b.Month) - (a.Year*12 + a.Month)
}

// Compare orders two dates lexicographically by (year, month, day).
func (d Date) Compare(o Date) int {
	if d.Year != o.Year {
		return d.Year - o.Year
	}
	if d.Month != o.Month {
		return d.Month - o.Month
	}
	return d.Day - o.Day
}

// TimeOfDay is a naive civil time of day with second resolution.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// TimeOfDayOf truncates a time.Time to its civil time-of-day component.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// Compare orders two times of day lexicographically by (hour, minute, second).
func (t TimeOfDay) Compare(o TimeOfDay) int {
	if t.Hour != o.Hour {
		return t.Hour - o.Hour
	}
	if t.Minute != o.Minute {
		return t.Minute - o.Minute
	}
	return t.Second - o.Second
}

// CivilTimestamp is a civil date+time pair, compared lexicographically
// (date first, then time), as spec.md §3 "Derived" defines start_ts/end_ts.
type CivilTimestamp struct {
	Date Date
	Time TimeOfDay
}

// CompareCivil compares two (date, time) pairs lexicographically.
func CompareCivil(aDate Date, aTime TimeOfDay, bDate Date, bTime TimeOfDay) int {
	if c := aDate.Compare(bDate); c != 0 {
		return c
	}
	return aTime.Compare(bTime)
}

// Compare orders two civil timestamps lexicographically.
func (c CivilTimestamp) Compare(o CivilTimestamp) int {
	return CompareCivil(c.Date, c.Time, o.Date, o.Time)
}

// Before reports whether c is strictly earlier than o.
func (c CivilTimestamp) Before(o CivilTimestamp) bool { return c.Compare(o) < 0 }

// After reports whether c is strictly later than o.
func (c CivilTimestamp) After(o CivilTimestamp) bool { return c.Compare(o) > 0 }

// Month returns the first-of-month date containing this timestamp.
func (c CivilTimestamp) Month() Date { return c.Date.FirstOfMonth() }

// ParseCivilDateTime parses an ISO-local-datetime string ("2024-12-01T10:00:00"
// or with a fractional-seconds/timezone suffix, which is ignored) into a
// CivilTimestamp. Used to decode the HTTP query params in §6 and the
// upstream XML plan_start_date/plan_end_date attributes in §4.7.
func ParseCivilDateTime(s string) (CivilTimestamp, error) {
	layouts := []string{
		"2006-01-02T15:04:05",
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return CivilTimestamp{Date: DateOf(t), Time: TimeOfDayOf(t)}, nil
		}
		lastErr = err
	}
	return CivilTimestamp{}, fmt.Errorf("unparseable civil datetime %q: %w", s, lastErr)
}
