package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

// consoleHandler prints one human-oriented line per record:
//
//	2026-10-16 21:04:05 WARN  [watcher] 42-3f2a….uc: catalog lookup failed error="…" (hint: …; impact: …)
//
// The cache entry being converted leads the message, the operator hint and
// impact trail it, and run_id/event_type stay out of the way (the JSON format
// keeps them).
type consoleHandler struct {
	mu    *sync.Mutex
	out   io.Writer
	level slog.Level
	color bool

	component string
	source    string
	prefix    string
	attrs     []slog.Attr
}

func newConsoleHandler(w io.Writer, level slog.Level, color bool) *consoleHandler {
	return &consoleHandler{mu: &sync.Mutex{}, out: w, level: level, color: color}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, attr := range attrs {
		next.absorb(attr)
	}
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

// absorb lifts the line-level fields out of the key=value tail.
func (h *consoleHandler) absorb(attr slog.Attr) {
	if h.prefix == "" {
		switch attr.Key {
		case FieldComponent:
			h.component = attr.Value.String()
			return
		case FieldSource:
			h.source = attr.Value.String()
			return
		}
	}
	if h.prefix != "" {
		attr.Key = h.prefix + attr.Key
	}
	h.attrs = append(h.attrs, attr)
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	line := *h
	line.attrs = append([]slog.Attr(nil), h.attrs...)
	record.Attrs(func(attr slog.Attr) bool {
		line.absorb(attr)
		return true
	})

	var b strings.Builder
	when := record.Time
	if when.IsZero() {
		when = time.Now()
	}
	b.WriteString(when.Format(time.DateTime))
	b.WriteByte(' ')
	b.WriteString(h.levelLabel(record.Level))
	if line.component != "" {
		b.WriteString(" [")
		b.WriteString(line.component)
		b.WriteByte(']')
	}
	b.WriteByte(' ')
	if line.source != "" {
		b.WriteString(line.source)
		b.WriteString(": ")
	}
	b.WriteString(record.Message)

	var hint, impact string
	for _, attr := range line.attrs {
		writeAttr(&b, attr, &hint, &impact)
	}
	switch {
	case hint != "" && impact != "":
		fmt.Fprintf(&b, " (hint: %s; impact: %s)", hint, impact)
	case hint != "":
		fmt.Fprintf(&b, " (hint: %s)", hint)
	case impact != "":
		fmt.Fprintf(&b, " (impact: %s)", impact)
	}
	if h.level <= slog.LevelDebug && record.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{record.PC}).Next()
		fmt.Fprintf(&b, " @%s:%d", filepath.Base(frame.File), frame.Line)
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, b.String())
	return err
}

func writeAttr(b *strings.Builder, attr slog.Attr, hint, impact *string) {
	value := attr.Value.Resolve()
	switch attr.Key {
	case FieldRunID, FieldEventType:
		return
	case FieldErrorHint:
		*hint = value.String()
		return
	case FieldImpact:
		*impact = value.String()
		return
	}
	if value.Kind() == slog.KindGroup {
		for _, member := range value.Group() {
			member.Key = attr.Key + "." + member.Key
			writeAttr(b, member, hint, impact)
		}
		return
	}
	b.WriteByte(' ')
	b.WriteString(attr.Key)
	b.WriteByte('=')
	b.WriteString(quoteIfNeeded(value.String()))
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsAny(s, " =\"\t\n") {
		return strconv.Quote(s)
	}
	return s
}

func (h *consoleHandler) levelLabel(level slog.Level) string {
	label := fmt.Sprintf("%-5s", level.String())
	if !h.color {
		return label
	}
	code := "90"
	switch {
	case level >= slog.LevelError:
		code = "31"
	case level >= slog.LevelWarn:
		code = "33"
	case level >= slog.LevelInfo:
		code = "34"
	}
	return "\x1b[" + code + "m" + label + "\x1b[0m"
}
