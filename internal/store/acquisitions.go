package store

import (
	"context"
	"fmt"
	"time"
)

// AcquisitionTimes loads every frequency's last completed acquisition.
func (s *Store) AcquisitionTimes(ctx context.Context) (map[int]time.Time, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), "SELECT frequency, last_acquired_ms FROM epg_acquisitions")
	if err != nil {
		return nil, fmt.Errorf("load acquisition times: %w", err)
	}
	defer rows.Close()

	out := make(map[int]time.Time)
	for rows.Next() {
		var (
			frequency int
			ms        int64
		)
		if err := rows.Scan(&frequency, &ms); err != nil {
			return nil, err
		}
		out[frequency] = fromMillis(ms)
	}
	return out, rows.Err()
}

// RecordAcquisition stores at as the last completed acquisition for frequency.
func (s *Store) RecordAcquisition(ctx context.Context, frequency int, at time.Time) error {
	_, err := s.execWithRetry(ctx,
		`INSERT INTO epg_acquisitions (frequency, last_acquired_ms) VALUES (?, ?)
		 ON CONFLICT(frequency) DO UPDATE SET last_acquired_ms = excluded.last_acquired_ms`,
		frequency, toMillis(at))
	if err != nil {
		return fmt.Errorf("record acquisition for %d: %w", frequency, err)
	}
	return nil
}
