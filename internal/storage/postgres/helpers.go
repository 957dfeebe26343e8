package postgres

import (
	"fmt"
	"time"

	"github.com/fever-marketplace/events/internal/domain"
	"github.com/shopspring/decimal"
)

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanEventRow scans a database row into a domain.Event. Compatible with
// both sql.Row (single) and sql.Rows (multiple), same dual-use shape as the
// teacher's scanEventRow helper.
func scanEventRow(row scanner) (*domain.Event, error) {
	var (
		id, title, hash    string
		startDate, endDate time.Time
		startTime, endTime time.Time
		minPrice, maxPrice decimal.Decimal
	)

	if err := row.Scan(&id, &title, &startDate, &startTime, &endDate, &endTime, &minPrice, &maxPrice, &hash); err != nil {
		return nil, fmt.Errorf("failed to scan event row: %w", err)
	}

	return &domain.Event{
		ID:        id,
		Title:     title,
		StartDate: domain.DateOf(startDate),
		StartTime: domain.TimeOfDayOf(startTime),
		EndDate:   domain.DateOf(endDate),
		EndTime:   domain.TimeOfDayOf(endTime),
		MinPrice:  minPrice,
		MaxPrice:  maxPrice,
	}, nil
}

// civilDate/civilTime render domain civil values as the date/time-of-day
// literals lib/pq expects for DATE and TIME columns.
func civilDate(d domain.Date) time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
}

func civilTime(t domain.TimeOfDay) time.Time {
	return time.Date(0, 1, 1, t.Hour, t.Minute, t.Second, 0, time.UTC)
}
