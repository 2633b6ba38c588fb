package logging

import (
	"context"
	"log/slog"
	"time"
)

// Keys shared by every component so console and JSON output line up.
const (
	FieldComponent = "component"
	// FieldSource is the cache entry file name being converted.
	FieldSource  = "source"
	FieldTrackID = "track_id"
	FieldRunID   = "run_id"
	// FieldEventType classifies a line for filtering in JSON output.
	FieldEventType = "event_type"
	// FieldErrorHint is the operator's next step.
	FieldErrorHint = "error_hint"
	// FieldImpact is what the warning means for the converted track.
	FieldImpact = "impact"
)

func String(key, value string) slog.Attr { return slog.String(key, value) }

func Int(key string, value int) slog.Attr { return slog.Int(key, value) }

func Bool(key string, value bool) slog.Attr { return slog.Bool(key, value) }

func Duration(key string, value time.Duration) slog.Attr { return slog.Duration(key, value) }

// Error keys err under "error"; a nil error is logged as "<nil>".
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// NewComponentLogger tags logger with component. A nil logger yields a no-op.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

// WarnWithContext logs a warning that always carries event_type, error_hint
// and impact; missing ones get generic values.
func WarnWithContext(logger *slog.Logger, msg, eventType string, attrs ...slog.Attr) {
	logClassified(logger, slog.LevelWarn, msg, eventType, true, attrs)
}

// ErrorWithContext is WarnWithContext at error level, without the impact field.
func ErrorWithContext(logger *slog.Logger, msg, eventType string, attrs ...slog.Attr) {
	logClassified(logger, slog.LevelError, msg, eventType, false, attrs)
}

func logClassified(logger *slog.Logger, level slog.Level, msg, eventType string, withImpact bool, attrs []slog.Attr) {
	if logger == nil {
		return
	}
	defaults := []slog.Attr{
		String(FieldEventType, eventType),
		String(FieldErrorHint, "check logs for details"),
	}
	if withImpact {
		defaults = append(defaults, String(FieldImpact, "track converted with warnings"))
	}
	for _, def := range defaults {
		if !hasKey(attrs, def.Key) {
			attrs = append(attrs, def)
		}
	}
	logger.LogAttrs(context.Background(), level, msg, attrs...)
}

func hasKey(attrs []slog.Attr, key string) bool {
	for _, attr := range attrs {
		if attr.Key == key {
			return true
		}
	}
	return false
}
