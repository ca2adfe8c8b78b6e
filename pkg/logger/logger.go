// Package logger configures the process-wide slog logger.
//
// Formats: "simple" (level + message + attrs), "verbose" (timestamped), or
// "json". Terminal output gets ANSI-colored levels. Records emitted by
// third-party libraries are suppressed unless the level is DEBUG, so remote
// client chatter does not drown the service's own logs.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"golang.org/x/term"
)

const modulePrefix = "github.com/tamadze/tamada"

var defaultLogger *slog.Logger

// ParseLevel converts a level string (debug, info, warn, error) to slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Init installs the default logger. All slog users in the process,
// including libraries, go through the returned configuration.
func Init(level slog.Level, output *os.File, format string) {
	var inner slog.Handler
	switch format {
	case "json":
		inner = slog.NewJSONHandler(output, &slog.HandlerOptions{Level: level})
	case "verbose":
		inner = &textHandler{
			w:         output,
			level:     level,
			color:     isTerminal(output),
			timestamp: true,
		}
	default: // simple
		inner = &textHandler{
			w:     output,
			level: level,
			color: isTerminal(output),
		}
	}

	defaultLogger = slog.New(&ownCodeHandler{inner: inner, minLevel: level})
	slog.SetDefault(defaultLogger)
}

// GetLogger returns the default logger, initializing it lazily.
func GetLogger() *slog.Logger {
	if defaultLogger == nil {
		Init(slog.LevelInfo, os.Stderr, "simple")
	}
	return defaultLogger
}

// OpenLogFile opens path for appending and returns it with a close func.
func OpenLogFile(path string) (*os.File, func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

func isTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// ownCodeHandler drops records whose call site is outside this module
// unless the configured level is DEBUG.
type ownCodeHandler struct {
	inner    slog.Handler
	minLevel slog.Level
}

func (h *ownCodeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.minLevel && h.inner.Enabled(ctx, level)
}

func (h *ownCodeHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.minLevel > slog.LevelDebug && !fromThisModule(r.PC) {
		return nil
	}
	return h.inner.Handle(ctx, r)
}

func (h *ownCodeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ownCodeHandler{inner: h.inner.WithAttrs(attrs), minLevel: h.minLevel}
}

func (h *ownCodeHandler) WithGroup(name string) slog.Handler {
	return &ownCodeHandler{inner: h.inner.WithGroup(name), minLevel: h.minLevel}
}

func fromThisModule(pc uintptr) bool {
	if pc == 0 {
		return false
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return false
	}
	if strings.HasPrefix(fn.Name(), modulePrefix) {
		return true
	}
	file, _ := fn.FileLine(pc)
	return strings.Contains(file, "tamada/")
}

// textHandler writes "LEVEL message k=v ..." lines, optionally timestamped
// and colored.
type textHandler struct {
	w         io.Writer
	level     slog.Level
	color     bool
	timestamp bool
	attrs     []slog.Attr
}

func (h *textHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *textHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder

	if h.timestamp && !r.Time.IsZero() {
		b.WriteString(r.Time.Format("2006/01/02 15:04:05 "))
	}

	level := r.Level.String()
	if level == "WARNING" {
		level = "WARN"
	}
	if h.color {
		b.WriteString(levelColor(r.Level))
		b.WriteString(level)
		b.WriteString("\033[0m")
	} else {
		b.WriteString(level)
	}
	b.WriteString(" ")
	b.WriteString(r.Message)

	writeAttr := func(a slog.Attr) bool {
		b.WriteString(" ")
		b.WriteString(a.Key)
		b.WriteString("=")
		b.WriteString(a.Value.String())
		return true
	}
	for _, a := range h.attrs {
		writeAttr(a)
	}
	r.Attrs(writeAttr)
	b.WriteString("\n")

	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *textHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

func (h *textHandler) WithGroup(string) slog.Handler { return h }

func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "\033[31m"
	case level >= slog.LevelWarn:
		return "\033[33m"
	case level >= slog.LevelInfo:
		return "\033[36m"
	default:
		return "\033[90m"
	}
}
