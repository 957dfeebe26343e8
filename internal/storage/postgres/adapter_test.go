package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fever-marketplace/events/internal/domain"
	"github.com/fever-marketplace/events/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func mustDT(t *testing.T, s string) domain.CivilTimestamp {
	t.Helper()
	ts, err := domain.ParseCivilDateTime(s)
	require.NoError(t, err)
	return ts
}

func newTestAdapter(t *testing.T) (*Adapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectPrepare(regexp.QuoteMeta(queryFindOverlapping))
	stmtFindOverlapping, err := db.Prepare(queryFindOverlapping)
	require.NoError(t, err)

	return &Adapter{db: db, stmtFindOverlapping: stmtFindOverlapping}, mock
}

func TestAdapter_FindOverlapping_OrdersAndScans(t *testing.T) {
	adapter, mock := newTestAdapter(t)

	from := mustDT(t, "2024-12-01T00:00:00")
	to := mustDT(t, "2024-12-31T23:59:00")

	rows := sqlmock.NewRows([]string{
		"id", "title", "start_date", "start_time", "end_date", "end_time", "min_price", "max_price", "event_hash",
	}).AddRow(
		"evt-1", "ConcertMadrid",
		time.Date(2024, 12, 15, 0, 0, 0, 0, time.UTC), time.Date(0, 1, 1, 20, 0, 0, 0, time.UTC),
		time.Date(2024, 12, 15, 0, 0, 0, 0, time.UTC), time.Date(0, 1, 1, 23, 0, 0, 0, time.UTC),
		decimal.NewFromInt(25), decimal.NewFromInt(100), "abc123",
	)

	mock.ExpectQuery(regexp.QuoteMeta(queryFindOverlapping)).
		WithArgs(civilDate(to.Date), civilTime(to.Time), civilDate(from.Date), civilTime(from.Time)).
		WillReturnRows(rows)

	events, err := adapter.FindOverlapping(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "ConcertMadrid", events[0].Title)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_FindOverlapping_TransportErrorIsFatal(t *testing.T) {
	adapter, mock := newTestAdapter(t)

	from := mustDT(t, "2024-12-01T00:00:00")
	to := mustDT(t, "2024-12-31T23:59:00")

	mock.ExpectQuery(regexp.QuoteMeta(queryFindOverlapping)).
		WithArgs(civilDate(to.Date), civilTime(to.Time), civilDate(from.Date), civilTime(from.Time)).
		WillReturnError(sql.ErrConnDone)

	_, err := adapter.FindOverlapping(context.Background(), from, to)
	require.Error(t, err)
}

// TestAdapter_UpsertBatch mirrors the teacher's TestAdapter_SaveEvent shape
// (events_adapter_test.go): one table-driven test over the adapter's single
// write operation, one mockResult func(sqlmock.Sqlmock, ...) per case.
func TestAdapter_UpsertBatch(t *testing.T) {
	start := mustDT(t, "2024-12-15T20:00:00")
	end := mustDT(t, "2024-12-15T23:00:00")
	evt := &domain.Event{
		ID: "evt-1", Title: "ConcertMadrid",
		StartDate: start.Date, StartTime: start.Time,
		EndDate: end.Date, EndTime: end.Time,
		MinPrice: decimal.NewFromInt(25), MaxPrice: decimal.NewFromInt(100),
	}

	tests := []struct {
		name       string
		events     []*domain.Event
		mockResult func(mock sqlmock.Sqlmock, evt *domain.Event)
		assertions func(t *testing.T, counts storage.UpsertCounts, err error)
	}{
		{
			name:   "insert",
			events: []*domain.Event{evt},
			mockResult: func(mock sqlmock.Sqlmock, evt *domain.Event) {
				mock.ExpectBegin()
				mock.ExpectPrepare(regexp.QuoteMeta(queryUpsertEvent))
				mock.ExpectQuery(regexp.QuoteMeta(queryUpsertEvent)).
					WithArgs(
						evt.ID, evt.Title,
						civilDate(evt.StartDate), civilTime(evt.StartTime),
						civilDate(evt.EndDate), civilTime(evt.EndTime),
						evt.MinPrice, evt.MaxPrice, evt.HashHex(),
						sqlmock.AnyArg(), sqlmock.AnyArg(),
					).
					WillReturnRows(sqlmock.NewRows([]string{"inserted"}).AddRow(true))
				mock.ExpectCommit()
			},
			assertions: func(t *testing.T, counts storage.UpsertCounts, err error) {
				require.NoError(t, err)
				require.Equal(t, 1, counts.Inserted)
				require.Equal(t, 0, counts.Updated)
			},
		},
		{
			name:   "conflicting hash updates instead of inserting",
			events: []*domain.Event{evt},
			mockResult: func(mock sqlmock.Sqlmock, evt *domain.Event) {
				mock.ExpectBegin()
				mock.ExpectPrepare(regexp.QuoteMeta(queryUpsertEvent))
				mock.ExpectQuery(regexp.QuoteMeta(queryUpsertEvent)).
					WithArgs(
						evt.ID, evt.Title,
						civilDate(evt.StartDate), civilTime(evt.StartTime),
						civilDate(evt.EndDate), civilTime(evt.EndTime),
						evt.MinPrice, evt.MaxPrice, evt.HashHex(),
						sqlmock.AnyArg(), sqlmock.AnyArg(),
					).
					WillReturnRows(sqlmock.NewRows([]string{"inserted"}).AddRow(false))
				mock.ExpectCommit()
			},
			assertions: func(t *testing.T, counts storage.UpsertCounts, err error) {
				require.NoError(t, err)
				require.Equal(t, 0, counts.Inserted)
				require.Equal(t, 1, counts.Updated)
			},
		},
		{
			name:   "failure rolls back the whole batch",
			events: []*domain.Event{evt},
			mockResult: func(mock sqlmock.Sqlmock, evt *domain.Event) {
				mock.ExpectBegin()
				mock.ExpectPrepare(regexp.QuoteMeta(queryUpsertEvent))
				mock.ExpectQuery(regexp.QuoteMeta(queryUpsertEvent)).
					WithArgs(
						evt.ID, evt.Title,
						civilDate(evt.StartDate), civilTime(evt.StartTime),
						civilDate(evt.EndDate), civilTime(evt.EndTime),
						evt.MinPrice, evt.MaxPrice, evt.HashHex(),
						sqlmock.AnyArg(), sqlmock.AnyArg(),
					).
					WillReturnError(sql.ErrTxDone)
				mock.ExpectRollback()
			},
			assertions: func(t *testing.T, counts storage.UpsertCounts, err error) {
				require.Error(t, err)
			},
		},
		{
			name:   "empty batch is a no-op",
			events: nil,
			assertions: func(t *testing.T, counts storage.UpsertCounts, err error) {
				require.NoError(t, err)
				require.Zero(t, counts.Inserted)
				require.Zero(t, counts.Updated)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			adapter, mock := newTestAdapter(t)
			if tc.mockResult != nil {
				tc.mockResult(mock, evt)
			}

			counts, err := adapter.UpsertBatch(context.Background(), tc.events)
			tc.assertions(t, counts, err)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
