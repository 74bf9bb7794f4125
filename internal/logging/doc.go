// Package logging provides the logging collaborator for the task pool.
//
// The pool itself only depends on the [Sink] contract:
//
//	Emit(level Level, component, msg string)
//
// Everything else in this package is one concrete way to satisfy it: a
// [Logger] that wraps log/slog and writes JSON lines, optional size-based
// rotation through [RotatingWriter], and helpers to read the resulting file
// back for the `taskpool logs` command.
//
// # Levels
//
// Six levels are supported, most severe first: FATAL, ERROR, WARN, INFO,
// DEBUG, TRACE. TRACE and FATAL are mapped four steps below DEBUG and above
// ERROR on the slog scale and are rendered by name in the output.
//
// # Components
//
// Every message is tagged with a component ("pool", "cli", ...). A Logger can
// raise the minimum level or switch output off per component:
//
//	logger.SetComponentLevel("pool", logging.LevelWarn)
//	logger.SetComponentEnabled("metrics", false)
//
// # Sinks
//
// [NopSink] discards everything and is the pool's default. [SinkFunc] adapts
// a function, [MultiSink] fans a message out to several sinks, and
// [LevelFilter] drops messages below a minimum.
//
// # Thread Safety
//
// All types in this package are safe for concurrent use. Child loggers
// created via With* share the writer, level and component filter of their
// parent.
//
// # Testing
//
// Use [NopLogger] or [New] with a bytes.Buffer:
//
//	var buf bytes.Buffer
//	logger := logging.New(&buf, logging.LevelTrace)
package logging
