package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Insert persists a new library file and assigns its ID. A second insert for
// the same library and path fails on the unique constraint.
func (s *Store) Insert(ctx context.Context, file *File) error {
	if file == nil {
		return errors.New("file is nil")
	}
	if file.Status == "" {
		file.Status = StatusUnprocessed
	}
	if file.ProcessingOrder == 0 {
		file.ProcessingOrder = UnsetOrder
	}
	now := time.Now().UTC()
	file.CreatedAt = now
	file.UpdatedAt = now

	var dupID, dupPath any
	if file.DuplicateOf != nil {
		dupID = file.DuplicateOf.ID
		dupPath = file.DuplicateOf.Path
	}

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO library_files (
            path, relative_path, library_name, is_directory, fingerprint,
            original_size, final_size, creation_time, last_write_time, status,
            processing_order, duplicate_of_id, duplicate_of_path, hold_until,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		file.Path,
		file.RelativePath,
		file.LibraryName,
		boolToInt(file.IsDirectory),
		nullableString(file.Fingerprint),
		file.OriginalSize,
		file.FinalSize,
		nullableTime(file.CreationTime),
		nullableTime(file.LastWriteTime),
		file.Status,
		file.ProcessingOrder,
		dupID,
		dupPath,
		nullableTime(file.HoldUntil),
		formatTime(now),
		formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("insert library file %s: %w", file.Path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	file.ID = id
	return nil
}

// Update persists every mutable field of an existing library file. A file that
// is processing only leaves that status through Complete; moving it anywhere
// else fails with ErrInvalidTransition.
func (s *Store) Update(ctx context.Context, file *File) error {
	if file == nil {
		return errors.New("file is nil")
	}
	file.UpdatedAt = time.Now().UTC()

	var dupID, dupPath any
	if file.DuplicateOf != nil {
		dupID = file.DuplicateOf.ID
		dupPath = file.DuplicateOf.Path
	}

	res, err := s.execWithRetry(
		ctx,
		`UPDATE library_files
        SET path = ?, relative_path = ?, is_directory = ?, fingerprint = ?,
            original_size = ?, final_size = ?, creation_time = ?, last_write_time = ?,
            status = ?, processing_order = ?, duplicate_of_id = ?, duplicate_of_path = ?,
            hold_until = ?, flow_name = ?, request_id = ?, failure_reason = ?, log_path = ?,
            processing_started = ?, processing_ended = ?, updated_at = ?
        WHERE id = ? AND (status != ? OR ? = ?)`,
		file.Path,
		file.RelativePath,
		boolToInt(file.IsDirectory),
		nullableString(file.Fingerprint),
		file.OriginalSize,
		file.FinalSize,
		nullableTime(file.CreationTime),
		nullableTime(file.LastWriteTime),
		file.Status,
		file.ProcessingOrder,
		dupID,
		dupPath,
		nullableTime(file.HoldUntil),
		nullableString(file.FlowName),
		nullableString(file.RequestID),
		nullableString(file.FailureReason),
		nullableString(file.LogPath),
		nullableTime(file.ProcessingStarted),
		nullableTime(file.ProcessingEnded),
		formatTime(file.UpdatedAt),
		file.ID,
		StatusProcessing,
		file.Status,
		StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("update library file %d: %w", file.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update library file %d: %w", file.ID, err)
	}
	if n == 1 {
		return nil
	}
	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM library_files WHERE id = ?`, file.ID).Scan(&exists); err != nil {
		return fmt.Errorf("update library file %d: %w", file.ID, err)
	}
	if exists == 0 {
		return fmt.Errorf("update library file %d: %w", file.ID, ErrNotFound)
	}
	return fmt.Errorf("update library file %d: %w", file.ID, ErrInvalidTransition)
}

// GetByID fetches a library file by identifier. It returns nil when absent.
func (s *Store) GetByID(ctx context.Context, id int64) (*File, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM library_files WHERE id = ?`, id)
	file, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get library file: %w", err)
	}
	return file, nil
}

// FindByPath returns the file recorded for path in the named library, or nil.
func (s *Store) FindByPath(ctx context.Context, libraryName, path string) (*File, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+fileColumns+` FROM library_files WHERE library_name = ? AND path = ?`,
		libraryName, path,
	)
	file, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by path: %w", err)
	}
	return file, nil
}

// FindByFingerprint returns the earliest file carrying fingerprint, or nil.
// Empty fingerprints never match.
func (s *Store) FindByFingerprint(ctx context.Context, fingerprint string) (*File, error) {
	if strings.TrimSpace(fingerprint) == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+fileColumns+` FROM library_files WHERE fingerprint = ? ORDER BY id LIMIT 1`,
		fingerprint,
	)
	file, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by fingerprint: %w", err)
	}
	return file, nil
}

// KnownPathsWithCreationTimes maps every recorded path of a library to its
// stored creation time.
func (s *Store) KnownPathsWithCreationTimes(ctx context.Context, libraryName string) (map[string]time.Time, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, creation_time FROM library_files WHERE library_name = ?`, libraryName)
	if err != nil {
		return nil, fmt.Errorf("known paths: %w", err)
	}
	defer rows.Close()

	known := make(map[string]time.Time)
	for rows.Next() {
		var (
			path    string
			created sql.NullString
		)
		if err := rows.Scan(&path, &created); err != nil {
			return nil, err
		}
		known[path] = parseNullTime(created)
	}
	return known, rows.Err()
}

// QueryUnprocessed returns claimable files whose hold elapsed at now, in claim
// order: explicit processing order first, then library priority, then the
// most recently modified record.
func (s *Store) QueryUnprocessed(ctx context.Context, now time.Time) ([]*File, error) {
	columns := "f." + strings.ReplaceAll(fileColumns, ", ", ", f.")
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+columns+`
        FROM library_files f
        JOIN libraries l ON l.name = f.library_name
        WHERE f.status IN (?, ?)
          AND l.enabled = 1
          AND (f.hold_until IS NULL OR f.hold_until <= ?)
        ORDER BY CASE WHEN f.processing_order > 0 THEN f.processing_order ELSE 1000000 END,
                 l.priority DESC,
                 f.updated_at DESC,
                 f.id`,
		StatusUnprocessed,
		StatusOutOfSchedule,
		formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("query unprocessed: %w", err)
	}
	defer rows.Close()
	return collectFiles(rows)
}

// List returns files matching opts, newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]*File, error) {
	query := `SELECT ` + fileColumns + ` FROM library_files`
	var (
		where []string
		args  []any
	)
	if lib := strings.TrimSpace(opts.Library); lib != "" {
		where = append(where, "library_name = ?")
		args = append(args, lib)
	}
	if len(opts.Statuses) > 0 {
		where = append(where, "status IN ("+makePlaceholders(len(opts.Statuses))+")")
		for _, status := range opts.Statuses {
			args = append(args, status)
		}
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list library files: %w", err)
	}
	defer rows.Close()
	return collectFiles(rows)
}

func collectFiles(rows *sql.Rows) ([]*File, error) {
	var files []*File
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, rows.Err()
}
