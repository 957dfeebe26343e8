package postgres

// SQL queries for the durable events store (component B).

const (
	// queryFindOverlapping implements the closed-interval overlap predicate
	// from §4.2: start_ts <= to_ts AND end_ts >= from_ts. Ordering matches
	// §4.2 and P3: ascending by (start_date, start_time), ties broken by id.
	queryFindOverlapping = `
		SELECT
			id, title, start_date, start_time, end_date, end_time,
			min_price, max_price, event_hash
		FROM events
		WHERE (start_date, start_time) <= ($1, $2)
		  AND (end_date, end_time) >= ($3, $4)
		ORDER BY start_date ASC, start_time ASC, id ASC
	`

	// queryUpsertEvent mandates DO UPDATE for mutable fields while
	// preserving id — the Open Questions section in spec.md rejects the
	// DO NOTHING variant seen in one historical path.
	queryUpsertEvent = `
		INSERT INTO events (
			id, title, start_date, start_time, end_date, end_time,
			min_price, max_price, event_hash, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (event_hash) DO UPDATE SET
			title      = EXCLUDED.title,
			start_date = EXCLUDED.start_date,
			start_time = EXCLUDED.start_time,
			end_date   = EXCLUDED.end_date,
			end_time   = EXCLUDED.end_time,
			min_price  = EXCLUDED.min_price,
			max_price  = EXCLUDED.max_price,
			updated_at = EXCLUDED.updated_at
		RETURNING (xmax = 0) AS inserted
	`
)
