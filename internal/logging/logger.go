// Package logging provides the key/value logger used across pagesync. It is a
// thin layer over log/slog whose level and output can be changed after
// loggers have been created.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Level orders log severities.
type Level = slog.Level

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// switchWriter lets SetOutput redirect handlers that already exist.
type switchWriter struct {
	mu sync.RWMutex
	w  io.Writer
}

func (s *switchWriter) Write(p []byte) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.w.Write(p)
}

var (
	output  = &switchWriter{w: os.Stderr}
	level   = new(slog.LevelVar)
	handler = slog.NewTextHandler(output, &slog.HandlerOptions{Level: level})
)

// SetOutput changes where loggers created afterwards (and existing ones) write.
func SetOutput(w io.Writer) {
	output.mu.Lock()
	defer output.mu.Unlock()
	output.w = w
}

// SetLevel sets the minimum level that is written.
func SetLevel(l Level) {
	level.Set(l)
}

// LookupLevel maps "debug", "info", "warn" and "error" to a Level.
func LookupLevel(s string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, true
	case "info", "":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	default:
		return LevelInfo, false
	}
}

// ParseLevel is LookupLevel with unknown names treated as info.
func ParseLevel(s string) Level {
	l, _ := LookupLevel(s)
	return l
}

// Logger provides structured logging for one component
type Logger struct {
	sl *slog.Logger
}

// NewLogger creates a new logger tagged with component=name
func NewLogger(name string) *Logger {
	return &Logger{sl: slog.New(handler).With("component", name)}
}

// Info logs an informational message with key-value pairs
func (l *Logger) Info(msg string, keysAndValues ...any) {
	l.log(LevelInfo, msg, keysAndValues)
}

// Warn logs a warning message with key-value pairs
func (l *Logger) Warn(msg string, keysAndValues ...any) {
	l.log(LevelWarn, msg, keysAndValues)
}

// Error logs an error message with key-value pairs
func (l *Logger) Error(msg string, keysAndValues ...any) {
	l.log(LevelError, msg, keysAndValues)
}

// Debug logs a debug message with key-value pairs
func (l *Logger) Debug(msg string, keysAndValues ...any) {
	l.log(LevelDebug, msg, keysAndValues)
}

func (l *Logger) log(lv Level, msg string, keysAndValues []any) {
	if l == nil {
		return
	}
	l.sl.Log(context.Background(), lv, msg, keysAndValues...)
}
