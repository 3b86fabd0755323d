package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is stored in the SQLite user_version header field. Bump it
// whenever schema.sql changes.
const schemaVersion = 1

// schemaTables are the tables schema.sql creates.
var schemaTables = []string{"channels", "programs", "epg_acquisitions"}

// ErrSchemaMismatch indicates the database was written by a different schema.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// prepareSchema creates the schema in an empty database and verifies the
// header version and tables of an existing one.
func (s *Store) prepareSchema(ctx context.Context) error {
	version, err := userVersion(ctx, s.db)
	if err != nil {
		return err
	}
	missing, err := missingTables(ctx, s.db)
	if err != nil {
		return err
	}

	switch {
	case version == 0 && len(missing) == len(schemaTables):
		return s.withTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
				return fmt.Errorf("create schema: %w", err)
			}
			// PRAGMA takes no bind parameters.
			if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
				return fmt.Errorf("record schema version: %w", err)
			}
			return nil
		})
	case version != schemaVersion:
		return fmt.Errorf("%w: %s has version %d, expected %d (delete it to rebuild)",
			ErrSchemaMismatch, s.path, version, schemaVersion)
	case len(missing) > 0:
		return fmt.Errorf("%w: %s lacks tables %s (delete it to rebuild)",
			ErrSchemaMismatch, s.path, strings.Join(missing, ", "))
	}
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func userVersion(ctx context.Context, q queryer) (int, error) {
	var version int
	if err := q.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

func missingTables(ctx context.Context, q queryer) ([]string, error) {
	var missing []string
	for _, table := range schemaTables {
		var count int
		row := q.QueryRowContext(ctx, "SELECT COUNT(1) FROM sqlite_master WHERE type = 'table' AND name = ?", table)
		if err := row.Scan(&count); err != nil {
			return nil, fmt.Errorf("query table info: %w", err)
		}
		if count == 0 {
			missing = append(missing, table)
		}
	}
	return missing, nil
}
