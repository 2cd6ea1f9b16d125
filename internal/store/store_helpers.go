package store

import (
	"database/sql"
	"errors"
	"time"
)

const fileColumns = "id, path, relative_path, library_name, is_directory, fingerprint, original_size, final_size, creation_time, last_write_time, status, processing_order, duplicate_of_id, duplicate_of_path, hold_until, flow_name, request_id, failure_reason, log_path, processing_started, processing_ended, created_at, updated_at"

// timeLayout is fixed width so lexical comparison in SQL matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func scanFile(scanner interface{ Scan(dest ...any) error }) (*File, error) {
	var (
		file          File
		isDirectory   int
		fingerprint   sql.NullString
		creationRaw   sql.NullString
		lastWriteRaw  sql.NullString
		statusStr     string
		duplicateID   sql.NullInt64
		duplicatePath sql.NullString
		holdRaw       sql.NullString
		flowName      sql.NullString
		requestID     sql.NullString
		failureReason sql.NullString
		logPath       sql.NullString
		startedRaw    sql.NullString
		endedRaw      sql.NullString
		createdRaw    sql.NullString
		updatedRaw    sql.NullString
	)

	if err := scanner.Scan(
		&file.ID,
		&file.Path,
		&file.RelativePath,
		&file.LibraryName,
		&isDirectory,
		&fingerprint,
		&file.OriginalSize,
		&file.FinalSize,
		&creationRaw,
		&lastWriteRaw,
		&statusStr,
		&file.ProcessingOrder,
		&duplicateID,
		&duplicatePath,
		&holdRaw,
		&flowName,
		&requestID,
		&failureReason,
		&logPath,
		&startedRaw,
		&endedRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	file.IsDirectory = isDirectory != 0
	file.Fingerprint = fingerprint.String
	file.Status = Status(statusStr)
	file.FlowName = flowName.String
	file.RequestID = requestID.String
	file.FailureReason = failureReason.String
	file.LogPath = logPath.String
	if duplicateID.Valid {
		file.DuplicateOf = &Reference{ID: duplicateID.Int64, Path: duplicatePath.String}
	}
	file.CreationTime = parseNullTime(creationRaw)
	file.LastWriteTime = parseNullTime(lastWriteRaw)
	file.HoldUntil = parseNullTime(holdRaw)
	file.ProcessingStarted = parseNullTime(startedRaw)
	file.ProcessingEnded = parseNullTime(endedRaw)
	file.CreatedAt = parseNullTime(createdRaw)
	file.UpdatedAt = parseNullTime(updatedRaw)
	return &file, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return formatTime(value)
}

func formatTime(value time.Time) string {
	return value.UTC().Format(timeLayout)
}

func nowString() string {
	return formatTime(time.Now())
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseNullTime(value sql.NullString) time.Time {
	if !value.Valid {
		return time.Time{}
	}
	t, err := parseTimeString(value.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(timeLayout, value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

func idArgs(ids []int64) []any {
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	return args
}
