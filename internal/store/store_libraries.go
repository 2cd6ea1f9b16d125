package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fileflows/internal/library"
)

// SyncLibraries upserts the configured libraries, disables persisted libraries
// that are no longer configured and returns libs with their persisted
// LastScanned filled in.
func (s *Store) SyncLibraries(ctx context.Context, libs []library.Library) ([]library.Library, error) {
	out := make([]library.Library, len(libs))
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		now := nowString()
		names := make([]any, 0, len(libs))
		for i, lib := range libs {
			last, err := upsertLibrary(ctx, tx, lib, now)
			if err != nil {
				return err
			}
			lib.LastScanned = last
			out[i] = lib
			names = append(names, lib.Name)
		}

		query := `UPDATE libraries SET enabled = 0, updated_at = ?`
		args := []any{now}
		if len(names) > 0 {
			query += ` WHERE name NOT IN (` + makePlaceholders(len(names)) + `)`
			args = append(args, names...)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("disable removed libraries: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// upsertLibrary writes lib and returns its persisted LastScanned.
func upsertLibrary(ctx context.Context, tx *sql.Tx, lib library.Library, now string) (time.Time, error) {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO libraries (name, path, priority, enabled, updated_at)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT(name) DO UPDATE SET
            path = excluded.path,
            priority = excluded.priority,
            enabled = excluded.enabled,
            updated_at = excluded.updated_at`,
		lib.Name, lib.Path, lib.Priority, boolToInt(lib.Enabled), now,
	); err != nil {
		return time.Time{}, fmt.Errorf("upsert library %s: %w", lib.Name, err)
	}
	var lastScanned sql.NullString
	if err := tx.QueryRowContext(ctx,
		`SELECT last_scanned FROM libraries WHERE name = ?`, lib.Name,
	).Scan(&lastScanned); err != nil {
		return time.Time{}, fmt.Errorf("read library %s: %w", lib.Name, err)
	}
	return parseNullTime(lastScanned), nil
}

// UpdateLastScanned records the completion time of a library scan.
func (s *Store) UpdateLastScanned(ctx context.Context, name string, at time.Time) error {
	if _, err := s.execWithRetry(ctx,
		`UPDATE libraries SET last_scanned = ?, updated_at = ? WHERE name = ?`,
		formatTime(at), nowString(), name,
	); err != nil {
		return fmt.Errorf("update last scanned for %s: %w", name, err)
	}
	return nil
}

// MarkForRescan clears last_scanned so the next scan of each named library is
// a full scan. No names marks every library.
func (s *Store) MarkForRescan(ctx context.Context, names ...string) (int64, error) {
	query := `UPDATE libraries SET last_scanned = NULL, updated_at = ?`
	args := []any{nowString()}
	if len(names) > 0 {
		query += ` WHERE name IN (` + makePlaceholders(len(names)) + `)`
		for _, name := range names {
			args = append(args, name)
		}
	}
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("mark libraries for rescan: %w", err)
	}
	return res.RowsAffected()
}

// ListLibraries returns every persisted library with its file count.
func (s *Store) ListLibraries(ctx context.Context) ([]LibraryState, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT l.name, l.path, l.priority, l.enabled, l.last_scanned, COUNT(f.id)
        FROM libraries l
        LEFT JOIN library_files f ON f.library_name = l.name
        GROUP BY l.name
        ORDER BY l.name`)
	if err != nil {
		return nil, fmt.Errorf("list libraries: %w", err)
	}
	defer rows.Close()

	var out []LibraryState
	for rows.Next() {
		var (
			state       LibraryState
			enabled     int
			lastScanned sql.NullString
		)
		if err := rows.Scan(&state.Name, &state.Path, &state.Priority, &enabled, &lastScanned, &state.Files); err != nil {
			return nil, err
		}
		state.Enabled = enabled != 0
		state.LastScanned = parseNullTime(lastScanned)
		out = append(out, state)
	}
	return out, rows.Err()
}
