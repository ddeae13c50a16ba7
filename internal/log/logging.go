// Package log builds the slog.Logger used by the irecovery command.
//
// Without a log file, records below error go to stdout and errors go to
// stderr. With a log file, records go to stderr and to the file.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LevelTrace sits below Debug and enables the USB transfer hex dump.
const LevelTrace slog.Level = -8

// ParseLevel maps a level name to a slog level. Unknown names mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// fanout sends each record to every handler that accepts it.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			_ = h.Handle(ctx, r.Clone())
		}
	}
	return nil
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}

// levelRange passes records whose level is in [min, max) to h.
type levelRange struct {
	min, max slog.Level
	h        slog.Handler
}

func (r levelRange) pass(l slog.Level) bool {
	return l >= r.min && l < r.max
}

func (r levelRange) Enabled(ctx context.Context, level slog.Level) bool {
	return r.pass(level) && r.h.Enabled(ctx, level)
}

func (r levelRange) Handle(ctx context.Context, rec slog.Record) error {
	if !r.pass(rec.Level) {
		return nil
	}
	return r.h.Handle(ctx, rec)
}

func (r levelRange) WithAttrs(attrs []slog.Attr) slog.Handler {
	return levelRange{min: r.min, max: r.max, h: r.h.WithAttrs(attrs)}
}

func (r levelRange) WithGroup(name string) slog.Handler {
	return levelRange{min: r.min, max: r.max, h: r.h.WithGroup(name)}
}

// SetupLogger builds a logger for the given level with console output and an
// optional log file. The returned closers must be closed on exit.
func SetupLogger(logLevel, logFile string) (*slog.Logger, []io.Closer, error) {
	return setupLogger(logLevel, logFile, os.Stdout, os.Stderr)
}

func setupLogger(logLevel, logFile string, stdout, stderr io.Writer) (*slog.Logger, []io.Closer, error) {
	level := ParseLevel(logLevel)
	opts := &slog.HandlerOptions{Level: level, ReplaceAttr: replaceLevel}

	var handlers fanout
	var closers []io.Closer

	if logFile == "" {
		handlers = append(handlers,
			levelRange{min: LevelTrace, max: slog.LevelError, h: slog.NewTextHandler(stdout, opts)},
			levelRange{min: slog.LevelError, max: slog.LevelError + 100, h: slog.NewTextHandler(stderr, opts)},
		)
	} else {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, f)
		handlers = append(handlers,
			slog.NewTextHandler(stderr, opts),
			slog.NewTextHandler(f, opts),
		)
	}

	return slog.New(handlers), closers, nil
}

// replaceLevel prints LevelTrace as TRACE instead of DEBUG-4.
func replaceLevel(groups []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey || len(groups) > 0 {
		return a
	}
	if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
		a.Value = slog.StringValue("TRACE")
	}
	return a
}
