package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

var (
	// current is the process-wide structured logger. Readers load it
	// without taking mu; mu only serializes rebuilds.
	current atomic.Pointer[slog.Logger]

	mu    sync.Mutex
	level = new(slog.LevelVar)
)

// Init configures the global logger from LOG_LEVEL (default info).
func Init() {
	SetLevel(os.Getenv("LOG_LEVEL"))
}

// SetLevel (re)builds the JSON logger at the given level name. Unknown names
// fall back to info. Calling it again only adjusts the level.
func SetLevel(name string) {
	mu.Lock()
	defer mu.Unlock()

	if name == "" {
		name = "info"
	}
	level.Set(parseLevel(name))

	l := current.Load()
	if l == nil {
		l = newLogger(os.Stdout)
		current.Store(l)
		slog.SetDefault(l)
	}
	l.Debug("Logger configured", "level", strings.ToLower(name))
}

// SetOutput redirects log output, mostly useful in tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	l := newLogger(w)
	current.Store(l)
	slog.SetDefault(l)
}

func newLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

func parseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
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

func get() *slog.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	return slog.Default()
}

// With returns a child logger carrying the given attributes.
func With(args ...any) *slog.Logger {
	return get().With(args...)
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	get().Debug(msg, args...)
}

// Info logs an info message
func Info(msg string, args ...any) {
	get().Info(msg, args...)
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	get().Warn(msg, args...)
}

// Error logs an error message
func Error(msg string, args ...any) {
	get().Error(msg, args...)
}
