package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"

	"ucmusic/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level  string
	Format string
	// Outputs lists "stdout" and/or file paths; empty means stdout.
	Outputs []string
	// Color enables ANSI level colouring in the console format.
	Color bool
}

// New builds a logger. Debug level also records the caller.
func New(opts Options) (*slog.Logger, error) {
	level := slog.LevelInfo
	if text := strings.TrimSpace(opts.Level); text != "" {
		if err := level.UnmarshalText([]byte(text)); err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
	}

	out, err := openOutputs(opts.Outputs)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", "console":
		return slog.New(newConsoleHandler(out, level, opts.Color)), nil
	case "json":
		return slog.New(newJSONHandler(out, level)), nil
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}
}

// NewFromConfig builds the process logger: stdout, plus Music/ucmusic.log
// when logging.file is set. Colour is used only on an interactive stdout.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Color: IsTerminal(os.Stdout)})
	}
	outputs := []string{"stdout"}
	if cfg.Logging.File {
		outputs = append(outputs, cfg.LogPath())
	}
	return New(Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Outputs: outputs,
		Color:   !cfg.Logging.File && IsTerminal(os.Stdout),
	})
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func openOutputs(outputs []string) (io.Writer, error) {
	var writers []io.Writer
	seen := make(map[string]bool, len(outputs))
	for _, target := range outputs {
		target = strings.TrimSpace(target)
		if target == "" || seen[target] {
			continue
		}
		seen[target] = true
		if target == "stdout" {
			writers = append(writers, os.Stdout)
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		file, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", target, err)
		}
		writers = append(writers, file)
	}
	switch len(writers) {
	case 0:
		return os.Stdout, nil
	case 1:
		return writers[0], nil
	default:
		return io.MultiWriter(writers...), nil
	}
}

// newJSONHandler emits one object per line with UTC millisecond timestamps
// and lower-case levels, for ingestion by log shippers.
func newJSONHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return attr
			}
			switch attr.Key {
			case slog.TimeKey:
				return slog.String(slog.TimeKey, attr.Value.Time().UTC().Format("2006-01-02T15:04:05.000Z"))
			case slog.LevelKey:
				return slog.String(slog.LevelKey, strings.ToLower(attr.Value.String()))
			case slog.SourceKey:
				if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
					return slog.String("caller", fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
				}
			}
			return attr
		},
	})
}
