// Package logger provides structured logging for the application.
// The catalogue model and the persistence adapter never log; all logging
// happens in the shell layers.
package logger

import (
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

var log atomic.Pointer[slog.Logger]

func init() {
	log.Store(newLogger("info"))
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// Init configures the process-wide logger with the given level
// ("debug", "info", "warn" or "error").
func Init(level string) {
	log.Store(newLogger(level))
}

func Debug(msg string, args ...any) { log.Load().Debug(msg, args...) }
func Info(msg string, args ...any)  { log.Load().Info(msg, args...) }
func Warn(msg string, args ...any)  { log.Load().Warn(msg, args...) }
func Error(msg string, args ...any) { log.Load().Error(msg, args...) }
