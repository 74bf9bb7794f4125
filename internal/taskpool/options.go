package taskpool

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/Iron-Ham/taskpool/internal/event"
	"github.com/Iron-Ham/taskpool/internal/logging"
)

// tracerName identifies spans created by the pool.
const tracerName = "github.com/Iron-Ham/taskpool/internal/taskpool"

// Option configures a Pool.
type Option func(*options)

type options struct {
	sink      logging.Sink
	bus       *event.Bus
	tracer    trace.Tracer
	deadlock  bool
	onDiscard func(Task)
	spawn     spawnFunc
}

// spawnFunc starts run for worker idx. It returns an error if the worker
// could not be started, in which case run must not have been called.
type spawnFunc func(idx int, run func()) error

func goSpawn(_ int, run func()) error {
	go run()
	return nil
}

func defaultOptions() options {
	return options{
		sink:  logging.NopSink,
		spawn: goSpawn,
	}
}

// WithSink sets the logging collaborator. A nil sink is ignored.
func WithSink(sink logging.Sink) Option {
	return func(o *options) {
		if sink != nil {
			o.sink = sink
		}
	}
}

// WithEventBus publishes pool lifecycle events on bus.
func WithEventBus(bus *event.Bus) Option {
	return func(o *options) {
		o.bus = bus
	}
}

// WithTracer records one span per executed task. Without it the global
// OpenTelemetry tracer provider is used, which is a no-op unless configured.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

// WithDeadlockDetection guards the pool with a go-deadlock mutex, which
// reports lock-order inversions and long waits.
func WithDeadlockDetection() Option {
	return func(o *options) {
		o.deadlock = true
	}
}

// WithDiscardHandler registers fn to be called, after all workers have
// exited, for every queued task that Destroy drops without running. The
// handler may dispose of the task's argument; without one, arguments of
// discarded tasks are simply released.
func WithDiscardHandler(fn func(Task)) Option {
	return func(o *options) {
		o.onDiscard = fn
	}
}

// withSpawner replaces how worker goroutines are started.
func withSpawner(spawn spawnFunc) Option {
	return func(o *options) {
		o.spawn = spawn
	}
}

func (o *options) resolveTracer() trace.Tracer {
	if o.tracer != nil {
		return o.tracer
	}
	return otel.Tracer(tracerName)
}
