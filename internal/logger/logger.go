package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"

	"github.com/iliyamo/ticketctl/internal/config"
)

// Logger wraps slog.Logger with helpers for the fields the client logs
// most often.
type Logger struct {
	*slog.Logger
}

// New creates a logger writing to w.  JSON output is used unless w is a
// terminal.
func New(w io.Writer, level string) *Logger {
	opts := &slog.HandlerOptions{
		Level:     ParseLevel(level),
		AddSource: ParseLevel(level) == slog.LevelDebug,
	}

	var handler slog.Handler
	if isTerminal(w) {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return &Logger{Logger: slog.New(handler)}
}

// Open builds the logger described by cfg.  A file destination is created
// with its parent directory and must be closed by the caller; an empty
// file or "-" logs to stderr.
func Open(cfg config.LogConfig) (*Logger, io.Closer, error) {
	if cfg.File == "" || cfg.File == "-" {
		return New(os.Stderr, cfg.Level), io.NopCloser(nil), nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o700); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, err
	}
	return New(f, cfg.Level), f, nil
}

// Discard returns a logger that drops every record.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// ParseLevel converts a LOG_LEVEL string to slog.Level.  Unknown values
// map to info.
func ParseLevel(levelStr string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
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

// WithComponent scopes the logger to a named part of the client.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{Logger: l.Logger.With(slog.String("component", name))}
}

// WithError adds error to logger context
func (l *Logger) WithError(err error) *Logger {
	return &Logger{Logger: l.Logger.With(slog.String("error", err.Error()))}
}

// WithSeat adds the seat identity to logger context.
func (l *Logger) WithSeat(id int64, label string) *Logger {
	return &Logger{Logger: l.Logger.With(slog.Int64("seat_id", id), slog.String("seat", label))}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
