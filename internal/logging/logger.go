package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LogFileName is the file created inside a log directory.
const LogFileName = "taskpool.log"

// Level is a log severity. Lower values are more severe.
type Level int

// Log levels, most severe first.
const (
	LevelFatal Level = iota
	LevelError
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

// slog has no TRACE or FATAL, so they sit four steps outside DEBUG and ERROR.
const (
	slogLevelTrace = slog.LevelDebug - 4
	slogLevelFatal = slog.LevelError + 4
)

// String returns the upper-case level name.
func (l Level) String() string {
	switch l {
	case LevelFatal:
		return "FATAL"
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	case LevelTrace:
		return "TRACE"
	default:
		return "UNKNOWN"
	}
}

// Enabled reports whether a message at l passes a minimum of min.
func (l Level) Enabled(min Level) bool {
	return l <= min
}

func (l Level) slog() slog.Level {
	switch l {
	case LevelFatal:
		return slogLevelFatal
	case LevelError:
		return slog.LevelError
	case LevelWarn:
		return slog.LevelWarn
	case LevelDebug:
		return slog.LevelDebug
	case LevelTrace:
		return slogLevelTrace
	default:
		return slog.LevelInfo
	}
}

// ParseLevel converts a level name to a Level. Unknown names yield
// LevelInfo and false.
func ParseLevel(level string) (Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "FATAL":
		return LevelFatal, true
	case "ERROR":
		return LevelError, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "INFO":
		return LevelInfo, true
	case "DEBUG":
		return LevelDebug, true
	case "TRACE":
		return LevelTrace, true
	default:
		return LevelInfo, false
	}
}

// ValidLevels returns the list of valid log level names.
func ValidLevels() []string {
	return []string{"fatal", "error", "warn", "info", "debug", "trace"}
}

// replaceLevel prints TRACE and FATAL instead of slog's "DEBUG-4" style names.
func replaceLevel(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	lvl, ok := a.Value.Any().(slog.Level)
	if !ok {
		return a
	}
	switch {
	case lvl <= slogLevelTrace:
		a.Value = slog.StringValue("TRACE")
	case lvl >= slogLevelFatal:
		a.Value = slog.StringValue("FATAL")
	}
	return a
}

// componentFilter holds per-component overrides shared by a logger and its
// children.
type componentFilter struct {
	mu       sync.RWMutex
	levels   map[string]Level
	disabled map[string]bool
}

func newComponentFilter() *componentFilter {
	return &componentFilter{
		levels:   make(map[string]Level),
		disabled: make(map[string]bool),
	}
}

func (f *componentFilter) allows(component string, level Level) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.disabled[component] {
		return false
	}
	if min, ok := f.levels[component]; ok {
		return level.Enabled(min)
	}
	return true
}

// Logger provides structured logging with component tagging.
// It is safe for concurrent use.
type Logger struct {
	logger *slog.Logger
	level  *slog.LevelVar
	filter *componentFilter
	attrs  []slog.Attr // Persistent attributes (component, pool_id, ...)

	out *output // shared with children
}

// output owns the file behind a logger tree.
type output struct {
	mu     sync.Mutex
	closer io.Closer
}

// New creates a Logger that writes JSON lines to w at the given minimum level.
func New(w io.Writer, level Level) *Logger {
	lv := new(slog.LevelVar)
	lv.Set(level.slog())

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       lv,
		ReplaceAttr: replaceLevel,
	})

	return &Logger{
		logger: slog.New(handler),
		level:  lv,
		filter: newComponentFilter(),
		attrs:  make([]slog.Attr, 0),
		out:    &output{},
	}
}

// NewLoggerWithRotation creates a Logger backed by a RotatingWriter at
// {dir}/taskpool.log, creating dir if needed. An empty dir falls back to
// stderr without rotation.
func NewLoggerWithRotation(dir string, level Level, config RotationConfig) (*Logger, error) {
	if dir == "" {
		return New(os.Stderr, level), nil
	}

	rw, err := NewRotatingWriter(filepath.Join(dir, LogFileName), config)
	if err != nil {
		return nil, err
	}

	l := New(rw, level)
	l.out.closer = rw
	return l, nil
}

// NopLogger returns a Logger that discards all log output.
func NopLogger() *Logger {
	return New(io.Discard, LevelFatal)
}

// SetLevel changes the global minimum level. Children share the setting.
func (l *Logger) SetLevel(level Level) {
	l.level.Set(level.slog())
}

// SetComponentLevel sets a minimum level for one component, on top of the
// global level.
func (l *Logger) SetComponentLevel(component string, level Level) {
	l.filter.mu.Lock()
	defer l.filter.mu.Unlock()
	l.filter.levels[component] = level
}

// SetComponentEnabled turns all output for a component on or off.
func (l *Logger) SetComponentEnabled(component string, enabled bool) {
	l.filter.mu.Lock()
	defer l.filter.mu.Unlock()
	if enabled {
		delete(l.filter.disabled, component)
	} else {
		l.filter.disabled[component] = true
	}
}

// IsEnabled reports whether a message for component at level would be written.
func (l *Logger) IsEnabled(component string, level Level) bool {
	if !l.logger.Enabled(context.Background(), level.slog()) {
		return false
	}
	return l.filter.allows(component, level)
}

// WithComponent returns a child Logger whose entries carry the component tag.
func (l *Logger) WithComponent(component string) *Logger {
	return l.withAttr(slog.String("component", component))
}

// With returns a child Logger with arbitrary key-value attributes.
func (l *Logger) With(args ...any) *Logger {
	if len(args) == 0 {
		return l
	}

	child := l.clone(len(args) / 2)
	for i := 0; i < len(args)-1; i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		child.attrs = append(child.attrs, slog.Any(key, args[i+1]))
	}
	return child
}

func (l *Logger) withAttr(attr slog.Attr) *Logger {
	child := l.clone(1)
	child.attrs = append(child.attrs, attr)
	return child
}

func (l *Logger) clone(extra int) *Logger {
	attrs := make([]slog.Attr, len(l.attrs), len(l.attrs)+extra)
	copy(attrs, l.attrs)
	return &Logger{
		logger: l.logger,
		level:  l.level,
		filter: l.filter,
		attrs:  attrs,
		out:    l.out,
	}
}

// component returns the component attribute carried by l, if any.
func (l *Logger) component() string {
	for i := len(l.attrs) - 1; i >= 0; i-- {
		if l.attrs[i].Key == "component" {
			return l.attrs[i].Value.String()
		}
	}
	return ""
}

// Trace logs a message at TRACE level with optional key-value pairs.
func (l *Logger) Trace(msg string, args ...any) { l.log(LevelTrace, msg, args...) }

// Debug logs a message at DEBUG level with optional key-value pairs.
func (l *Logger) Debug(msg string, args ...any) { l.log(LevelDebug, msg, args...) }

// Info logs a message at INFO level with optional key-value pairs.
func (l *Logger) Info(msg string, args ...any) { l.log(LevelInfo, msg, args...) }

// Warn logs a message at WARN level with optional key-value pairs.
func (l *Logger) Warn(msg string, args ...any) { l.log(LevelWarn, msg, args...) }

// Error logs a message at ERROR level with optional key-value pairs.
func (l *Logger) Error(msg string, args ...any) { l.log(LevelError, msg, args...) }

// Fatal logs a message at FATAL level. It does not exit the process.
func (l *Logger) Fatal(msg string, args ...any) { l.log(LevelFatal, msg, args...) }

// Emit implements Sink. The component argument overrides any component
// attribute the logger already carries.
func (l *Logger) Emit(level Level, component, msg string) {
	if !l.IsEnabled(component, level) {
		return
	}

	args := make([]any, 0, len(l.attrs)*2+2)
	for _, attr := range l.attrs {
		if attr.Key == "component" {
			continue
		}
		args = append(args, attr.Key, attr.Value.Any())
	}
	args = append(args, "component", component)

	l.logger.Log(context.Background(), level.slog(), msg, args...)
}

func (l *Logger) log(level Level, msg string, args ...any) {
	if !l.IsEnabled(l.component(), level) {
		return
	}

	allArgs := make([]any, 0, len(l.attrs)*2+len(args))
	for _, attr := range l.attrs {
		allArgs = append(allArgs, attr.Key, attr.Value.Any())
	}
	allArgs = append(allArgs, args...)

	l.logger.Log(context.Background(), level.slog(), msg, allArgs...)
}

// Close flushes and closes the underlying file, if the logger owns one.
// Closing any child closes the shared file.
func (l *Logger) Close() error {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()

	if l.out.closer == nil {
		return nil
	}
	if s, ok := l.out.closer.(interface{ Sync() error }); ok {
		if err := s.Sync(); err != nil {
			return fmt.Errorf("failed to sync log file: %w", err)
		}
	}
	if err := l.out.closer.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	l.out.closer = nil
	return nil
}
