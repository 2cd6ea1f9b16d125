package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RetentionTarget selects log files in Dir matching Pattern. Paths listed in
// Exclude are never pruned.
type RetentionTarget struct {
	Dir     string
	Pattern string
	Exclude []string
}

func (t RetentionTarget) candidates() []string {
	dir := strings.TrimSpace(t.Dir)
	if dir == "" {
		return nil
	}
	pattern := strings.TrimSpace(t.Pattern)
	if pattern == "" {
		pattern = "*"
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil
	}
	return matches
}

// CleanupOldLogs deletes daemon and per-file logs last modified more than
// retentionDays ago and returns how many were removed. A non-positive
// retention keeps everything.
func CleanupOldLogs(logger *slog.Logger, retentionDays int, targets ...RetentionTarget) int {
	if retentionDays <= 0 {
		return 0
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	keep := map[string]bool{}
	for _, target := range targets {
		for _, path := range target.Exclude {
			if path = strings.TrimSpace(path); path != "" {
				keep[absPath(path)] = true
			}
		}
	}

	removed := 0
	for _, target := range targets {
		for _, path := range target.candidates() {
			path = absPath(path)
			if keep[path] {
				continue
			}
			info, err := os.Lstat(path)
			if err != nil || !info.Mode().IsRegular() || !info.ModTime().Before(cutoff) {
				continue
			}
			if err := os.Remove(path); err != nil {
				WarnWithContext(logger, "stale log could not be removed", "log_retention_failed",
					Path(path),
					Error(err),
					Hint("check permissions on log_dir"),
					Impact("the old log stays on disk until the next daemon start"),
				)
				continue
			}
			removed++
			if logger != nil {
				logger.Debug("stale log removed", Path(path), Event("log_pruned"))
			}
		}
	}
	return removed
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
