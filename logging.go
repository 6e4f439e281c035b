// Copyright 2025 The go-zeromq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pushpull

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"
)

// LogLevel represents different logging levels
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
	LogLevelTrace
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LogLevelError:
		return "ERROR"
	case LogLevelWarn:
		return "WARNING"
	case LogLevelInfo:
		return "INFO"
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelTrace:
		return "TRACE"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel parses a level name such as "info" or "DEBUG".
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return LogLevelError, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "", "info":
		return LogLevelInfo, nil
	case "debug":
		return LogLevelDebug, nil
	case "trace":
		return LogLevelTrace, nil
	}
	return LogLevelInfo, fmt.Errorf("pushpull: unknown log level %q", s)
}

// Logger provides leveled logging. Lines are rendered as
//
//	2006-01-02 15:04:05.99 - INFO - message
//
// with centisecond precision.
type Logger struct {
	logger *log.Logger
	level  atomic.Int32
	now    func() time.Time
}

// NewLogger creates a new Logger writing to stderr with the specified level
func NewLogger(level LogLevel) *Logger {
	return NewLoggerWithWriter(os.Stderr, level)
}

// NewLoggerWithWriter creates a new Logger with custom writer and level
func NewLoggerWithWriter(w io.Writer, level LogLevel) *Logger {
	l := &Logger{
		logger: log.New(w, "", 0),
		now:    time.Now,
	}
	l.level.Store(int32(level))
	return l
}

// SetLevel sets the minimum logging level
func (l *Logger) SetLevel(level LogLevel) {
	l.level.Store(int32(level))
}

// GetLevel returns the current logging level
func (l *Logger) GetLevel() LogLevel {
	return LogLevel(l.level.Load())
}

// IsEnabled checks if a log level is enabled
func (l *Logger) IsEnabled(level LogLevel) bool {
	return level <= l.GetLevel()
}

// Timestamp formats t the way log lines do.
func Timestamp(t time.Time) string {
	return fmt.Sprintf("%s.%02d", t.Format("2006-01-02 15:04:05"), t.Nanosecond()/int(10*time.Millisecond))
}

func (l *Logger) output(level LogLevel, format string, args ...interface{}) {
	if !l.IsEnabled(level) {
		return
	}
	l.logger.Printf("%s - %s - %s", Timestamp(l.now()), level, fmt.Sprintf(format, args...))
}

// Error logs at error level (always shown unless disabled entirely)
func (l *Logger) Error(format string, args ...interface{}) {
	l.output(LogLevelError, format, args...)
}

// Warn logs at warning level
func (l *Logger) Warn(format string, args ...interface{}) {
	l.output(LogLevelWarn, format, args...)
}

// Info logs at info level
func (l *Logger) Info(format string, args ...interface{}) {
	l.output(LogLevelInfo, format, args...)
}

// Debug logs at debug level
func (l *Logger) Debug(format string, args ...interface{}) {
	l.output(LogLevelDebug, format, args...)
}

// Trace logs at trace level (most verbose)
func (l *Logger) Trace(format string, args ...interface{}) {
	l.output(LogLevelTrace, format, args...)
}

type levelWriter struct {
	l      *Logger
	level  LogLevel
	prefix string
}

func (w levelWriter) Write(p []byte) (int, error) {
	w.l.output(w.level, "%s%s", w.prefix, strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// StdLogger returns a *log.Logger whose lines are emitted through l at level.
// It is handed to libraries that only accept the standard logger.
func (l *Logger) StdLogger(level LogLevel, prefix string) *log.Logger {
	return log.New(levelWriter{l: l, level: level, prefix: prefix}, "", 0)
}

// RunLogOptions configures NewRunLogger.
type RunLogOptions struct {
	Level   LogLevel
	Console io.Writer // nil means stderr
	File    bool      // also write a per-run log file
	Dir     string    // directory of the per-run file
	Prefix  string    // file name prefix, e.g. "receiver"
}

// NewRunLogger builds the program logger: console always, plus a file named
// <dir>/<prefix>-<YYYYMMDD-HHMMSS>.log when File is set, so each run gets its
// own file. The returned closer must be called at exit; path is empty when
// file logging is off.
func NewRunLogger(opts RunLogOptions) (l *Logger, closer io.Closer, path string, err error) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	if !opts.File {
		return NewLoggerWithWriter(console, opts.Level), nopCloser{}, "", nil
	}

	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, "", fmt.Errorf("pushpull: could not create log directory %q: %w", dir, err)
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "pushpull"
	}
	path = filepath.Join(dir, fmt.Sprintf("%s-%s.log", prefix, time.Now().Format("20060102-150405")))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, "", fmt.Errorf("pushpull: could not open log file %q: %w", path, err)
	}
	return NewLoggerWithWriter(io.MultiWriter(console, f), opts.Level), f, path, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Default loggers for different levels
var (
	// DevNull logger that discards all output
	DevNullLogger = NewLoggerWithWriter(io.Discard, LogLevelError)

	// Default logger at info level
	DefaultLogger = NewLogger(LogLevelInfo)

	// Debug logger for development
	DebugLogger = NewLogger(LogLevelDebug)
)
