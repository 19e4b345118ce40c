// Package logger provides the explicit logger handle used throughout this
// module, replacing the source's pervasive process-wide logging with a
// handle constructed once at startup and passed into whatever subcomponent
// needs it (per spec.md §9's re-architecture note).
package logger

import (
	"context"
	"fmt"
	"io"
	stdlog "log"
	"log/slog"
	"os"
	"strings"
)

// Severity ranks log verbosity, ordered TRACE < DEBUG < INFO < WARNING <
// ERROR < OFF.
type Severity int

const (
	TRACE Severity = iota
	DEBUG
	INFO
	WARNING
	ERROR
	OFF
)

var severityNames = map[Severity]string{
	TRACE:   "TRACE",
	DEBUG:   "DEBUG",
	INFO:    "INFO",
	WARNING: "WARNING",
	ERROR:   "ERROR",
	OFF:     "OFF",
}

// ParseSeverity parses a case-insensitive severity name, defaulting to INFO
// on an unrecognized value.
func ParseSeverity(s string) Severity {
	switch strings.ToUpper(s) {
	case "TRACE":
		return TRACE
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARNING", "WARN":
		return WARNING
	case "ERROR":
		return ERROR
	case "OFF":
		return OFF
	default:
		return INFO
	}
}

func (s Severity) slogLevel() slog.Level {
	switch s {
	case TRACE:
		return slog.Level(-8)
	case DEBUG:
		return slog.LevelDebug
	case INFO:
		return slog.LevelInfo
	case WARNING:
		return slog.LevelWarn
	case ERROR:
		return slog.LevelError
	default:
		return slog.Level(64) // above Error: nothing passes
	}
}

// Logger is an explicit handle around a *slog.Logger, held by the FS
// handler and injected into subcomponents (ingest, tagfs) that need to log.
type Logger struct {
	slog *slog.Logger
}

// New builds a Logger writing to w at the given severity, in either "text"
// or "json" format.
func New(w io.Writer, severity Severity, format string) *Logger {
	level := severity.slogLevel()
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return &Logger{slog: slog.New(handler)}
}

// Default builds a Logger writing to stderr at INFO in text format.
func Default() *Logger {
	return New(os.Stderr, INFO, "text")
}

func (l *Logger) log(level slog.Level, format string, args ...interface{}) {
	l.slog.Log(context.Background(), level, fmt.Sprintf(format, args...))
}

func (l *Logger) Tracef(format string, args ...interface{}) {
	l.log(slog.Level(-8), format, args...)
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.log(slog.LevelDebug, format, args...)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.log(slog.LevelInfo, format, args...)
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.log(slog.LevelWarn, format, args...)
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.log(slog.LevelError, format, args...)
}

// legacyWriter adapts a Logger into an io.Writer that emits each line at a
// fixed severity, so NewLegacyLogger can hand jacobsa/fuse's MountConfig a
// *log.Logger for its ErrorLogger/DebugLogger hooks.
type legacyWriter struct {
	logf func(format string, args ...interface{})
}

func (w legacyWriter) Write(p []byte) (int, error) {
	w.logf("%s", strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// NewLegacyLogger adapts this Logger to the *log.Logger shape that
// jacobsa/fuse's fuse.MountConfig expects for ErrorLogger and DebugLogger.
func (l *Logger) NewLegacyLogger(severity Severity, prefix string) *stdlog.Logger {
	var logf func(string, ...interface{})
	switch severity {
	case TRACE:
		logf = l.Tracef
	case DEBUG:
		logf = l.Debugf
	case WARNING:
		logf = l.Warnf
	case ERROR:
		logf = l.Errorf
	default:
		logf = l.Infof
	}
	return stdlog.New(legacyWriter{logf: logf}, prefix, 0)
}
