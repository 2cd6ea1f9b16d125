package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// Bump when schema.sql changes. Older databases are rejected rather than
// migrated.
const schemaVersion = 1

// ErrSchemaMismatch is returned by Open when the database was created by a
// different schema version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// readSchemaVersion returns 0 for a database that has never been initialised.
func readSchemaVersion(ctx context.Context, q rowQuerier) (int, error) {
	var tables int
	if err := q.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM sqlite_master WHERE type = 'table' AND name = 'schema_version'`,
	).Scan(&tables); err != nil {
		return 0, fmt.Errorf("inspect sqlite_master: %w", err)
	}
	if tables == 0 {
		return 0, nil
	}
	var version int
	err := q.QueryRowContext(ctx, `SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		version, err := readSchemaVersion(ctx, tx)
		if err != nil {
			return err
		}
		switch version {
		case schemaVersion:
			return nil
		case 0:
			if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
				return fmt.Errorf("create schema: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, schemaVersion); err != nil {
				return fmt.Errorf("record schema version: %w", err)
			}
			return nil
		default:
			return fmt.Errorf("%w: %s is at version %d, this build expects %d; remove it to rebuild the library index",
				ErrSchemaMismatch, s.path, version, schemaVersion)
		}
	})
}
