// Package logger provides structured JSON logging for the HTTP surface of
// SIAKAD Enrollment Hub. Application and infrastructure code log through
// log/slog; this package serves the request path, where per-request loggers
// with preset fields are derived constantly. Standard library only.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEVELS
// ══════════════════════════════════════════════════════════════════════════════

// Level represents the severity of a log message.
type Level int

const (
	// LevelDebug is for detailed debugging information.
	LevelDebug Level = iota
	// LevelInfo is for general operational information.
	LevelInfo
	// LevelWarn is for warning messages.
	LevelWarn
	// LevelError is for error messages.
	LevelError
	// LevelFatal is for errors the process cannot survive.
	LevelFatal
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel reads a level name, defaulting to info for anything unknown.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "INFO":
		return LevelInfo
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	case "FATAL":
		return LevelFatal
	default:
		return LevelInfo
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// FIELDS
// ══════════════════════════════════════════════════════════════════════════════

// Field is one key-value pair attached to a log line.
type Field struct {
	Key   string
	Value any
}

// F creates a Field with the given key and value.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Typed field constructors.
func String(key, value string) Field          { return Field{Key: key, Value: value} }
func Int(key string, value int) Field         { return Field{Key: key, Value: value} }
func Int64(key string, value int64) Field     { return Field{Key: key, Value: value} }
func Float64(key string, value float64) Field { return Field{Key: key, Value: value} }
func Bool(key string, value bool) Field       { return Field{Key: key, Value: value} }
func Any(key string, value any) Field         { return Field{Key: key, Value: value} }

// Err creates an error field.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Duration creates a duration field rendered in Go notation.
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

// Time creates an RFC3339 time field.
func Time(key string, value time.Time) Field {
	return Field{Key: key, Value: value.Format(time.RFC3339)}
}

// Enrollment-related field helpers.
func StudentID(id string) Field     { return String("student_id", id) }
func NIM(nim string) Field          { return String("nim", nim) }
func Email(email string) Field      { return String("email", email) }
func CourseCode(code string) Field  { return String("course_code", code) }
func EnrollmentID(id string) Field  { return String("enrollment_id", id) }
func Credits(sks int) Field         { return Int("credits", sks) }
func SeatsLeft(seats int) Field     { return Int("seats_left", seats) }
func Component(name string) Field   { return String("component", name) }
func Operation(name string) Field   { return String("operation", name) }
func Latency(d time.Duration) Field { return Duration("latency", d) }

// ══════════════════════════════════════════════════════════════════════════════
// LOGGER
// ══════════════════════════════════════════════════════════════════════════════

// Logger writes one flat JSON object per line. Derived loggers from With
// share the parent's writer and its lock, so they are safe to use from
// concurrent request handlers.
type Logger struct {
	mu     *sync.Mutex
	output io.Writer
	level  Level
	caller bool
	skip   int
	preset []Field
}

// Options configures the logger.
type Options struct {
	Output     io.Writer
	Level      Level
	AddCaller  bool
	CallerSkip int
}

// DefaultOptions returns sensible defaults: info level to stdout with
// caller locations.
func DefaultOptions() Options {
	return Options{
		Output:    os.Stdout,
		Level:     LevelInfo,
		AddCaller: true,
	}
}

// New creates a Logger with the given options.
func New(opts Options) *Logger {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	return &Logger{
		mu:     &sync.Mutex{},
		output: opts.Output,
		level:  opts.Level,
		caller: opts.AddCaller,
		skip:   opts.CallerSkip,
	}
}

// Default creates a logger with default options.
func Default() *Logger {
	return New(DefaultOptions())
}

// With returns a logger that adds the given fields to every line.
func (l *Logger) With(fields ...Field) *Logger {
	preset := make([]Field, 0, len(l.preset)+len(fields))
	preset = append(preset, l.preset...)
	preset = append(preset, fields...)

	return &Logger{
		mu:     l.mu,
		output: l.output,
		level:  l.level,
		caller: l.caller,
		skip:   l.skip,
		preset: preset,
	}
}

// log renders one line. Preset fields come first so call-site fields and
// the core keys win on collision.
func (l *Logger) log(level Level, msg string, fields ...Field) {
	if level < l.level {
		return
	}

	entry := make(map[string]any, len(l.preset)+len(fields)+4)
	for _, f := range l.preset {
		entry[f.Key] = f.Value
	}
	for _, f := range fields {
		entry[f.Key] = f.Value
	}

	entry["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)
	entry["level"] = level.String()
	entry["message"] = msg

	if l.caller {
		if _, file, line, ok := runtime.Caller(2 + l.skip); ok {
			entry["caller"] = fmt.Sprintf("%s:%d", filepath.Base(file), line)
		}
	}

	buf, err := json.Marshal(entry)
	if err != nil {
		buf = []byte(fmt.Sprintf("{\"level\":%q,\"message\":%q,\"marshal_error\":%q}",
			level.String(), msg, err.Error()))
	}
	buf = append(buf, '\n')

	l.mu.Lock()
	l.output.Write(buf)
	l.mu.Unlock()
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...Field) {
	l.log(LevelDebug, msg, fields...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...Field) {
	l.log(LevelInfo, msg, fields...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...Field) {
	l.log(LevelWarn, msg, fields...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...Field) {
	l.log(LevelError, msg, fields...)
}

// Fatal logs a fatal message and exits the process.
func (l *Logger) Fatal(msg string, fields ...Field) {
	l.log(LevelFatal, msg, fields...)
	os.Exit(1)
}
