package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tvcore/internal/middleware"
	"tvcore/internal/routes"
)

const channelColumns = "id, display_number, name, url, technology, service_index, service_kind, frequency, created_at"

func scanChannel(scanner interface{ Scan(dest ...any) error }) (*Channel, error) {
	var (
		ch         Channel
		technology string
		kind       string
		createdRaw string
	)
	if err := scanner.Scan(&ch.ID, &ch.DisplayNumber, &ch.Name, &ch.URL, &technology, &ch.ServiceIndex, &kind, &ch.Frequency, &createdRaw); err != nil {
		return nil, err
	}
	tech, err := routes.ParseTechnology(technology)
	if err != nil {
		return nil, fmt.Errorf("channel %d: %w", ch.ID, err)
	}
	ch.Technology = tech
	ch.ServiceKind = middleware.ParseServiceKind(kind)
	if created, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		ch.CreatedAt = created
	}
	return &ch, nil
}

func insertChannel(ctx context.Context, tx *sql.Tx, ch Channel, now string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO channels (display_number, name, url, technology, service_index, service_kind, frequency, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ch.DisplayNumber, ch.Name, ch.URL, ch.Technology.String(), ch.ServiceIndex, ch.ServiceKind.String(), ch.Frequency, now,
	)
	if err != nil {
		return fmt.Errorf("insert channel %q: %w", ch.Name, err)
	}
	return nil
}

// ReplaceChannels deletes every channel and its programs, then inserts
// channels in order. Identifiers restart at 1 so identical input yields
// identical rows.
func (s *Store) ReplaceChannels(ctx context.Context, channels []Channel) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM programs"); err != nil {
			return fmt.Errorf("clear programs: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM channels"); err != nil {
			return fmt.Errorf("clear channels: %w", err)
		}
		for _, ch := range channels {
			if err := insertChannel(ctx, tx, ch, now); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListChannels returns every channel in insertion order.
func (s *Store) ListChannels(ctx context.Context) ([]*Channel, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), "SELECT "+channelColumns+" FROM channels ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	var out []*Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

// ChannelByID returns the channel with id, or nil when absent.
func (s *Store) ChannelByID(ctx context.Context, id int64) (*Channel, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), "SELECT "+channelColumns+" FROM channels WHERE id = ?", id)
	ch, err := scanChannel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get channel %d: %w", id, err)
	}
	return ch, nil
}

// CountChannels returns the number of persisted channels.
func (s *Store) CountChannels(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ensureContext(ctx), "SELECT COUNT(1) FROM channels").Scan(&n); err != nil {
		return 0, fmt.Errorf("count channels: %w", err)
	}
	return n, nil
}
