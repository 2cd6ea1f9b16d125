package logging

import (
	"context"
	"log/slog"
	"time"
)

type Attr = slog.Attr

func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func Int64(key string, value int64) Attr { return slog.Int64(key, value) }

func String(key string, value string) Attr { return slog.String(key, value) }

func Time(key string, value time.Time) Attr { return slog.Time(key, value) }

// Error records err under "error". A nil error is logged as "<nil>" so the key
// is always present.
func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

// FileID tags a line with a library file record id.
func FileID(id int64) Attr { return slog.Int64(FieldFileID, id) }

// Library tags a line with a library name.
func Library(name string) Attr { return slog.String(FieldLibrary, name) }

// Path tags a line with a filesystem path.
func Path(path string) Attr { return slog.String(FieldPath, path) }

// Event sets the event_type used to filter log lines.
func Event(eventType string) Attr { return slog.String(FieldEventType, eventType) }

// Hint sets the suggested next step for a warning or error.
func Hint(hint string) Attr { return slog.String(FieldErrorHint, hint) }

// Impact states what a warning means for the user.
func Impact(impact string) Attr { return slog.String(FieldImpact, impact) }

// Args converts attributes into the variadic form slog methods accept.
func Args(attrs ...Attr) []any {
	args := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	return args
}

func NewNop() *slog.Logger {
	return slog.New(nopHandler{})
}

// NewComponentLogger tags logger with a component name. A nil logger yields a
// no-op logger.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

// WarnWithContext logs a warning that always carries event_type, error_hint
// and impact. Missing fields get generic defaults.
func WarnWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	if logger == nil {
		return
	}
	attrs = withDefault(attrs, Event(eventType))
	attrs = withDefault(attrs, Hint("check the daemon log for details"))
	attrs = withDefault(attrs, Impact("the affected file or library is retried on the next scan"))
	logger.Warn(msg, Args(attrs...)...)
}

// ErrorWithContext logs an error that always carries event_type and
// error_hint.
func ErrorWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	if logger == nil {
		return
	}
	attrs = withDefault(attrs, Event(eventType))
	attrs = withDefault(attrs, Hint("check the daemon log for details"))
	logger.Error(msg, Args(attrs...)...)
}

func withDefault(attrs []Attr, fallback Attr) []Attr {
	for _, a := range attrs {
		if a.Key == fallback.Key {
			return attrs
		}
	}
	return append(attrs, fallback)
}

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool { return false }

func (nopHandler) Handle(context.Context, slog.Record) error { return nil }

func (nopHandler) WithAttrs([]slog.Attr) slog.Handler { return nopHandler{} }

func (nopHandler) WithGroup(string) slog.Handler { return nopHandler{} }
