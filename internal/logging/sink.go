package logging

import (
	"fmt"
	"os"
)

// Sink is the logging collaborator consumed by the task pool. Implementations
// must not block indefinitely; the pool calls Emit on its hot paths.
type Sink interface {
	Emit(level Level, component, msg string)
}

// SinkFunc adapts a plain function to Sink.
type SinkFunc func(level Level, component, msg string)

// Emit calls f.
func (f SinkFunc) Emit(level Level, component, msg string) {
	f(level, component, msg)
}

type nopSink struct{}

func (nopSink) Emit(Level, string, string) {}

// NopSink discards everything.
var NopSink Sink = nopSink{}

// MultiSink fans a message out to every sink in order. A sink that panics
// is reported on stderr and skipped; the remaining sinks still receive the
// message.
type MultiSink []Sink

// Emit forwards the message to each sink.
func (m MultiSink) Emit(level Level, component, msg string) {
	for _, s := range m {
		if s == nil {
			continue
		}
		emitSafely(s, level, component, msg)
	}
}

func emitSafely(s Sink, level Level, component, msg string) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Warning: log sink panicked: %v\n", r)
		}
	}()
	s.Emit(level, component, msg)
}

// LevelFilter wraps a sink and drops messages less severe than Min.
type LevelFilter struct {
	Sink Sink
	Min  Level
}

// Emit forwards the message when it is at or above the minimum severity.
func (f LevelFilter) Emit(level Level, component, msg string) {
	if f.Sink == nil || !level.Enabled(f.Min) {
		return
	}
	f.Sink.Emit(level, component, msg)
}
