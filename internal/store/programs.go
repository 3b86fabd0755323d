package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const programColumns = "id, channel_id, title, description, start_ms, end_ms, rating, genre"

func scanProgram(scanner interface{ Scan(dest ...any) error }) (*Program, error) {
	var (
		p              Program
		startMs, endMs int64
	)
	if err := scanner.Scan(&p.ID, &p.ChannelID, &p.Title, &p.Description, &startMs, &endMs, &p.Rating, &p.Genre); err != nil {
		return nil, err
	}
	p.Start = fromMillis(startMs)
	p.End = fromMillis(endMs)
	return &p, nil
}

// ProgramBatch is the outcome of InsertPrograms.
type ProgramBatch struct {
	// Inserted counts new rows.
	Inserted int
	// Rejected counts programs the database refused, such as programs of a
	// channel that no longer exists.
	Rejected int
	// FirstRejection is the error of the first rejected program.
	FirstRejection error
}

// InsertPrograms stores programs in one transaction. A program matching an
// existing (channel, start, end) is ignored. Each row runs under its own
// savepoint, so a row the database refuses is counted as rejected and the
// rest of the batch is still stored.
func (s *Store) InsertPrograms(ctx context.Context, programs []Program) (ProgramBatch, error) {
	if len(programs) == 0 {
		return ProgramBatch{}, nil
	}
	var batch ProgramBatch
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		batch = ProgramBatch{}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT OR IGNORE INTO programs (channel_id, title, description, start_ms, end_ms, rating, genre)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare program insert: %w", err)
		}
		defer stmt.Close()
		for _, p := range programs {
			if _, err := tx.ExecContext(ctx, "SAVEPOINT program_row"); err != nil {
				return fmt.Errorf("savepoint: %w", err)
			}
			res, err := stmt.ExecContext(ctx, p.ChannelID, p.Title, p.Description, toMillis(p.Start), toMillis(p.End), p.Rating, p.Genre)
			if err != nil {
				if ctx.Err() != nil || isSQLiteBusy(err) {
					return err
				}
				if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO program_row"); rbErr != nil {
					return fmt.Errorf("rollback program %q: %w", p.Title, rbErr)
				}
				batch.Rejected++
				if batch.FirstRejection == nil {
					batch.FirstRejection = fmt.Errorf("insert program %q on channel %d: %w", p.Title, p.ChannelID, err)
				}
			} else if n, err := res.RowsAffected(); err == nil {
				batch.Inserted += int(n)
			}
			if _, err := tx.ExecContext(ctx, "RELEASE program_row"); err != nil {
				return fmt.Errorf("release savepoint: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return ProgramBatch{}, err
	}
	return batch, nil
}

// ProgramsBetween returns programs of a channel overlapping [from, to),
// ordered by start time.
func (s *Store) ProgramsBetween(ctx context.Context, channelID int64, from, to time.Time) ([]*Program, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		"SELECT "+programColumns+" FROM programs WHERE channel_id = ? AND end_ms > ? AND start_ms < ? ORDER BY start_ms",
		channelID, toMillis(from), toMillis(to))
	if err != nil {
		return nil, fmt.Errorf("list programs: %w", err)
	}
	defer rows.Close()

	var out []*Program
	for rows.Next() {
		p, err := scanProgram(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ProgramAt returns the program airing on a channel at the given instant,
// or nil when the guide has none.
func (s *Store) ProgramAt(ctx context.Context, channelID int64, at time.Time) (*Program, error) {
	ms := toMillis(at)
	row := s.db.QueryRowContext(ensureContext(ctx),
		"SELECT "+programColumns+" FROM programs WHERE channel_id = ? AND start_ms <= ? AND end_ms > ? ORDER BY start_ms DESC LIMIT 1",
		channelID, ms, ms)
	p, err := scanProgram(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("program at: %w", err)
	}
	return p, nil
}

// PruneProgramsBefore deletes programs that ended before cutoff.
func (s *Store) PruneProgramsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(ctx, "DELETE FROM programs WHERE end_ms < ?", toMillis(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune programs: %w", err)
	}
	return res.RowsAffected()
}
