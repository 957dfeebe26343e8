// Package postgres implements the durable store adapter (component B)
// against PostgreSQL, in the same shape as the teacher's
// internal/core/storage/postgres.Adapter: prepared statements built once at
// construction, a bounded connection pool, and every write wrapped in a
// single transaction (O4).
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/fever-marketplace/events/internal/domain"
	"github.com/fever-marketplace/events/internal/storage"
	_ "github.com/lib/pq" // register the postgres driver
)

const connectPingTimeout = 5 * time.Second

// Adapter implements storage.EventStore for PostgreSQL.
type Adapter struct {
	db                    *sql.DB
	stmtFindOverlapping   *sql.Stmt
}

// NewAdapter opens a connection pool to dsn, applies pool settings, and
// prepares the adapter's statements.
//
// IMPORTANT: schema must be initialized separately via migrations
// (internal/migrations) before this adapter is used.
func NewAdapter(dsn string, maxOpenConns, maxIdleConns int) (*Adapter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	slog.Info("[Postgres] Connection pool configured",
		"max_open_conns", maxOpenConns,
		"max_idle_conns", maxIdleConns)

	pingCtx, cancel := context.WithTimeout(context.Background(), connectPingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres database: %w", err)
	}

	stmtFindOverlapping, err := db.Prepare(queryFindOverlapping)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare findOverlapping statement: %w", err)
	}

	slog.Info("[Postgres] Adapter initialized with prepared statements")

	return &Adapter{
		db:                  db,
		stmtFindOverlapping: stmtFindOverlapping,
	}, nil
}

// NewAdapterFromDB builds an Adapter around an already-open *sql.DB,
// preparing its statements. Used by tests wiring sqlmock in place of a
// live Postgres connection.
func NewAdapterFromDB(db *sql.DB) (*Adapter, error) {
	stmtFindOverlapping, err := db.Prepare(queryFindOverlapping)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare findOverlapping statement: %w", err)
	}
	return &Adapter{
		db:                  db,
		stmtFindOverlapping: stmtFindOverlapping,
	}, nil
}

// DB returns the underlying *sql.DB, shared with the migrations runner.
func (a *Adapter) DB() *sql.DB {
	return a.db
}

// Close closes the prepared statements and the connection pool. Called
// during graceful shutdown.
func (a *Adapter) Close() error {
	var firstErr error
	if err := a.stmtFindOverlapping.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to close findOverlapping statement: %w", err)
	}
	if err := a.db.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to close database: %w", err)
	}
	if firstErr != nil {
		return firstErr
	}
	slog.Info("[Postgres] Adapter closed gracefully")
	return nil
}

// FindOverlapping returns every event whose interval intersects [from,to],
// ordered per §4.2/P3. Transport errors here are the only failure mode
// this method surfaces — the composer treats them as fatal for the request (§4.5).
func (a *Adapter) FindOverlapping(ctx context.Context, from, to domain.CivilTimestamp) ([]*domain.Event, error) {
	rows, err := a.stmtFindOverlapping.QueryContext(ctx,
		civilDate(to.Date), civilTime(to.Time),
		civilDate(from.Date), civilTime(from.Time),
	)
	if err != nil {
		return nil, fmt.Errorf("find overlapping: %w", err)
	}
	defer rows.Close()

	var events []*domain.Event
	for rows.Next() {
		evt, err := scanEventRow(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find overlapping: iterate rows: %w", err)
	}
	return events, nil
}

// UpsertBatch inserts-or-updates every event by content hash in a single
// transaction (O4, all-or-nothing). Events are applied in ascending hash
// order so that a duplicate hash within the same batch resolves
// deterministically: last write (by hash order) wins, per §4.2.
func (a *Adapter) UpsertBatch(ctx context.Context, events []*domain.Event) (storage.UpsertCounts, error) {
	var counts storage.UpsertCounts
	if len(events) == 0 {
		return counts, nil
	}

	ordered := make([]*domain.Event, len(events))
	copy(ordered, events)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].HashHex() < ordered[j].HashHex()
	})

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return counts, fmt.Errorf("upsert batch: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, queryUpsertEvent)
	if err != nil {
		return counts, fmt.Errorf("upsert batch: prepare: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, evt := range ordered {
		var inserted bool
		err := stmt.QueryRowContext(ctx,
			evt.ID,
			evt.Title,
			civilDate(evt.StartDate),
			civilTime(evt.StartTime),
			civilDate(evt.EndDate),
			civilTime(evt.EndTime),
			evt.MinPrice,
			evt.MaxPrice,
			evt.HashHex(),
			now,
			now,
		).Scan(&inserted)
		if err != nil {
			return storage.UpsertCounts{}, fmt.Errorf("upsert batch: upsert hash %s: %w", evt.HashHex(), err)
		}
		if inserted {
			counts.Inserted++
		} else {
			counts.Updated++
		}
	}

	if err := tx.Commit(); err != nil {
		return storage.UpsertCounts{}, fmt.Errorf("upsert batch: commit: %w", err)
	}

	slog.Info("[Postgres] Upserted batch", "inserted", counts.Inserted, "updated", counts.Updated)
	return counts, nil
}
