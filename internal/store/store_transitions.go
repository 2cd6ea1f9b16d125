package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Claim moves a claimable file to processing for flowName. Exactly one caller
// wins; everybody else receives ErrClaimConflict.
func (s *Store) Claim(ctx context.Context, id int64, flowName, requestID string) error {
	now := nowString()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE library_files
        SET status = ?, flow_name = ?, request_id = ?, failure_reason = NULL,
            processing_order = ?, processing_started = ?, processing_ended = NULL,
            updated_at = ?
        WHERE id = ? AND status IN (?, ?)`,
		StatusProcessing,
		nullableString(flowName),
		nullableString(requestID),
		UnsetOrder,
		now,
		now,
		id,
		StatusUnprocessed,
		StatusOutOfSchedule,
	)
	if err != nil {
		return fmt.Errorf("claim library file %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("claim library file %d: %w", id, err)
	}
	if n != 1 {
		return fmt.Errorf("claim library file %d: %w", id, ErrClaimConflict)
	}
	return nil
}

// SetLogPath records where the processing log of a claimed file lives.
func (s *Store) SetLogPath(ctx context.Context, id int64, logPath string) error {
	if _, err := s.execWithRetry(ctx,
		`UPDATE library_files SET log_path = ? WHERE id = ?`,
		nullableString(logPath), id,
	); err != nil {
		return fmt.Errorf("set log path: %w", err)
	}
	return nil
}

// MarkOutOfSchedule parks an unprocessed file whose library is outside its
// processing window. It reports whether the row changed.
func (s *Store) MarkOutOfSchedule(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE library_files SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		StatusOutOfSchedule, nowString(), id, StatusUnprocessed,
	)
	if err != nil {
		return false, fmt.Errorf("mark out of schedule: %w", err)
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// Complete ends a processing attempt with one of the terminal statuses.
func (s *Store) Complete(ctx context.Context, id int64, status Status, reason string, finalSize int64) error {
	if !status.Terminal() {
		return fmt.Errorf("complete library file %d as %s: %w", id, status, ErrInvalidTransition)
	}
	if status == StatusProcessed {
		reason = ""
	}
	now := nowString()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE library_files
        SET status = ?, failure_reason = ?, final_size = ?, processing_ended = ?, updated_at = ?
        WHERE id = ? AND status = ?`,
		status,
		nullableString(reason),
		finalSize,
		now,
		now,
		id,
		StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("complete library file %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n != 1 {
		return fmt.Errorf("complete library file %d: %w", id, ErrInvalidTransition)
	}
	return nil
}

// Reprocess returns files in any status except processing to unprocessed and
// clears the outcome of earlier attempts. It returns the number of files reset.
func (s *Store) Reprocess(ctx context.Context, ids ...int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := []any{StatusUnprocessed, nowString()}
	args = append(args, idArgs(ids)...)
	args = append(args, StatusProcessing)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE library_files
        SET status = ?, failure_reason = NULL, flow_name = NULL, request_id = NULL,
            duplicate_of_id = NULL, duplicate_of_path = NULL, hold_until = NULL,
            final_size = 0, processing_started = NULL, processing_ended = NULL,
            updated_at = ?
        WHERE id IN (`+makePlaceholders(len(ids))+`) AND status != ?`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("reprocess library files: %w", err)
	}
	return res.RowsAffected()
}

// Cancel fails claimable files with the cancelled reason. Files already
// processing are cancelled by the scheduler instead.
func (s *Store) Cancel(ctx context.Context, ids ...int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	now := nowString()
	args := []any{StatusProcessingFailed, CancelledReason, now, now}
	args = append(args, idArgs(ids)...)
	args = append(args, StatusUnprocessed, StatusOutOfSchedule)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE library_files
        SET status = ?, failure_reason = ?, processing_order = -1, processing_ended = ?, updated_at = ?
        WHERE id IN (`+makePlaceholders(len(ids))+`) AND status IN (?, ?)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("cancel library files: %w", err)
	}
	return res.RowsAffected()
}

// MoveToTop gives the claimable files in ids processing orders 1..n in the
// order supplied and pushes every other explicitly ordered file down by n.
func (s *Store) MoveToTop(ctx context.Context, ids ...int64) error {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil
	}
	n := len(ids)
	return s.withTx(ctx, func(tx *sql.Tx) error {
		now := nowString()
		args := []any{n}
		args = append(args, idArgs(ids)...)
		if _, err := tx.ExecContext(ctx,
			`UPDATE library_files SET processing_order = processing_order + ?
            WHERE processing_order > 0 AND id NOT IN (`+makePlaceholders(n)+`)`,
			args...,
		); err != nil {
			return fmt.Errorf("shift processing order: %w", err)
		}
		for i, id := range ids {
			if _, err := tx.ExecContext(ctx,
				`UPDATE library_files SET processing_order = ?, updated_at = ?
                WHERE id = ? AND status IN (?, ?)`,
				i+1, now, id, StatusUnprocessed, StatusOutOfSchedule,
			); err != nil {
				return fmt.Errorf("move library file %d to top: %w", id, err)
			}
		}
		return nil
	})
}

// ResetStuckProcessing returns files left in processing by an earlier daemon
// run to unprocessed.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE library_files
        SET status = ?, request_id = NULL, processing_started = NULL, updated_at = ?
        WHERE status = ?`,
		StatusUnprocessed,
		formatTime(time.Now()),
		StatusProcessing,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck files: %w", err)
	}
	return res.RowsAffected()
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
