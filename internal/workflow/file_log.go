package workflow

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"fileflows/internal/config"
	"fileflows/internal/logging"
	"fileflows/internal/store"
)

// FileLogger creates the dedicated processing log for each dispatched file.
type FileLogger struct {
	baseDir string
	format  string
	level   string
}

// NewFileLogger returns a FileLogger writing below cfg's per-file log dir.
func NewFileLogger(cfg *config.Config) *FileLogger {
	f := &FileLogger{format: "json", level: "info"}
	if cfg == nil {
		return f
	}
	f.baseDir = cfg.FileLogDir()
	if strings.TrimSpace(cfg.Logging.Level) != "" {
		f.level = cfg.Logging.Level
	}
	if strings.TrimSpace(cfg.Logging.Format) != "" {
		f.format = cfg.Logging.Format
	}
	return f
}

// Open creates the log for file and returns its path and a logger writing to
// it. The caller closes the returned closer when the run ends.
func (f *FileLogger) Open(file *store.File, requestID string) (string, *slog.Logger, func() error, error) {
	if file == nil {
		return "", nil, nil, fmt.Errorf("library file is nil")
	}
	if strings.TrimSpace(f.baseDir) == "" {
		return "", nil, nil, fmt.Errorf("file log directory not configured")
	}
	path := filepath.Join(f.baseDir, f.filename(file, requestID))
	logger, closer, err := logging.NewFileLogger(path, f.format, f.level)
	if err != nil {
		return "", nil, nil, err
	}
	return path, logger, closer.Close, nil
}

func (f *FileLogger) filename(file *store.File, requestID string) string {
	timestamp := time.Now().UTC().Format("20060102T150405")
	name := sanitizeSlug(strings.TrimSuffix(filepath.Base(file.Path), filepath.Ext(file.Path)))
	if name == "" {
		name = "file"
	}
	short := requestID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("%s-%d-%s-%s.log", timestamp, file.ID, name, short)
}

func sanitizeSlug(value string) string {
	var builder strings.Builder
	builder.Grow(len(value))
	lastDash := false
	for _, r := range strings.TrimSpace(value) {
		switch {
		case unicode.IsLetter(r) && r < unicode.MaxASCII, unicode.IsDigit(r):
			builder.WriteRune(unicode.ToLower(r))
			lastDash = false
		default:
			if !lastDash {
				builder.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(builder.String(), "-")
}
