package taskpool

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sasha-s/go-deadlock"
	"go.opentelemetry.io/otel/trace"

	"github.com/Iron-Ham/taskpool/internal/errors"
	"github.com/Iron-Ham/taskpool/internal/event"
	"github.com/Iron-Ham/taskpool/internal/logging"
)

// component tags every message the pool sends to its sink.
const component = "pool"

// Dispatcher is the handle surface of a worker pool.
type Dispatcher interface {
	Submit(action Action, arg any, name string) error
	SubmitTask(t Task) error
	RunningTaskNames() ([]string, error)
	Destroy() error
	WorkerCount() int
}

var _ Dispatcher = (*Pool)(nil)

// Stats is a point-in-time snapshot of pool counters. At every instant
// Completed + Panicked + Discarded + Queued + Busy == Submitted.
type Stats struct {
	Workers int
	Busy    int
	Queued  int

	Submitted uint64
	Rejected  uint64
	Started   uint64
	Completed uint64
	Panicked  uint64
	Discarded uint64
}

// Pool is a fixed-size set of worker goroutines executing tasks from a
// shared FIFO queue. All methods are safe for concurrent use, and a nil
// *Pool reports errors.ErrNilPool instead of panicking.
type Pool struct {
	id      string
	workers int

	// mu guards everything below up to the collaborators.
	mu       sync.Locker
	wake     *sync.Cond // workers: queue non-empty or shutdown
	settled  *sync.Cond // WaitIdle: queue empty and no worker busy
	queue    *queue
	slots    []string
	busy     int
	shutdown bool
	stats    Stats

	// done[i] is closed when worker i returns. Written only by New.
	done []chan struct{}

	sink      logging.Sink
	bus       *event.Bus
	tracer    trace.Tracer
	onDiscard func(Task)
}

// New creates a pool and starts workerCount workers. A workerCount below
// one is a usage error and starts nothing. If a worker fails to start, the
// workers already running are stopped and joined before New returns.
func New(workerCount int, opts ...Option) (*Pool, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if workerCount < 1 {
		err := errors.NewPoolError("create", fmt.Errorf("%w: got %d", errors.ErrInvalidWorkerCount, workerCount))
		safeEmit(o.sink, logging.LevelError, err.Error())
		return nil, err
	}

	p := &Pool{
		id:        uuid.NewString(),
		workers:   workerCount,
		queue:     newQueue(),
		slots:     make([]string, workerCount),
		done:      make([]chan struct{}, 0, workerCount),
		sink:      o.sink,
		bus:       o.bus,
		tracer:    o.resolveTracer(),
		onDiscard: o.onDiscard,
	}
	if o.deadlock {
		p.mu = new(deadlock.Mutex)
	} else {
		p.mu = new(sync.Mutex)
	}
	p.wake = sync.NewCond(p.mu)
	p.settled = sync.NewCond(p.mu)
	for i := range p.slots {
		p.slots[i] = IdleTaskName
	}

	for i := range workerCount {
		done := make(chan struct{})
		if err := o.spawn(i, func() { p.work(i, done) }); err != nil {
			perr := errors.NewPoolError("create", fmt.Errorf("%w %d: %w", errors.ErrWorkerStart, i, err)).
				WithPoolID(p.id).
				WithWorker(i)
			p.emit(logging.LevelError, perr.Error())
			p.unwind()
			return nil, perr
		}
		p.done = append(p.done, done)
	}

	p.emit(logging.LevelInfo, fmt.Sprintf("pool %s created with %d workers", p.id, workerCount))
	p.publish(event.NewPoolCreatedEvent(p.id, workerCount))
	return p, nil
}

// unwind stops the workers started so far. Used only by New.
func (p *Pool) unwind() {
	p.mu.Lock()
	p.shutdown = true
	p.wake.Broadcast()
	p.mu.Unlock()

	p.join()
	p.emit(logging.LevelWarn, fmt.Sprintf("pool %s creation unwound after %d workers", p.id, len(p.done)))
}

// join waits for every started worker, in index order.
func (p *Pool) join() {
	for _, done := range p.done {
		<-done
	}
}

// ID returns the pool's unique identifier.
func (p *Pool) ID() string {
	if p == nil {
		return ""
	}
	return p.id
}

// WorkerCount returns the fixed number of workers.
func (p *Pool) WorkerCount() int {
	if p == nil {
		return 0
	}
	return p.workers
}

// QueueLen returns the number of tasks waiting for a worker.
func (p *Pool) QueueLen() int {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.len()
}

// Stats returns a consistent snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	if p == nil {
		return Stats{}
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.stats
	s.Workers = p.workers
	s.Busy = p.busy
	s.Queued = p.queue.len()
	return s
}

// Submit queues action to run with arg on the next free worker. On error
// the task was not queued and the caller keeps ownership of arg.
func (p *Pool) Submit(action Action, arg any, name string) error {
	if p == nil {
		return errors.NewPoolError("submit", errors.ErrNilPool)
	}
	return p.SubmitTask(NewTask(action, arg, name))
}

// SubmitTask queues a prepared task. The name is normalized and a missing
// ID is generated.
func (p *Pool) SubmitTask(t Task) error {
	if p == nil {
		return errors.NewPoolError("submit", errors.ErrNilPool)
	}

	t.Name = NormalizeName(t.Name)
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Action == nil {
		return p.reject(t, errors.ErrNilAction)
	}

	p.mu.Lock()
	if p.shutdown {
		p.mu.Unlock()
		return p.reject(t, errors.ErrPoolShutdown)
	}
	p.queue.enqueue(t)
	p.stats.Submitted++
	queued := p.queue.len()
	p.wake.Signal()
	p.mu.Unlock()

	p.emit(logging.LevelTrace, fmt.Sprintf("task %q submitted (queued=%d)", t.Name, queued))
	p.publish(event.NewTaskSubmittedEvent(p.id, t.ID, t.Name))
	return nil
}

func (p *Pool) reject(t Task, cause error) error {
	p.mu.Lock()
	p.stats.Rejected++
	p.mu.Unlock()

	err := errors.NewPoolError("submit", cause).WithPoolID(p.id).WithTaskName(t.Name)
	level := logging.LevelError
	if errors.IsShutdown(err) {
		level = logging.LevelWarn
	}
	p.emit(level, err.Error())
	p.publish(event.NewTaskRejectedEvent(p.id, t.Name, cause.Error()))
	return err
}

// RunningTaskNames returns one entry per worker, in worker order: the name
// of the task it is running or IdleTaskName. All entries are read at the
// same instant. The slice is the caller's.
func (p *Pool) RunningTaskNames() ([]string, error) {
	if p == nil {
		return nil, errors.NewPoolError("query", errors.ErrNilPool)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	names := make([]string, len(p.slots))
	copy(names, p.slots)
	return names, nil
}

// ReleaseNames clears the first count entries of names so the strings can
// be collected. A nil slice or a negative count is a no-op; count is capped
// at len(names).
func ReleaseNames(names []string, count int) {
	if names == nil || count <= 0 {
		return
	}
	clear(names[:min(count, len(names))])
}

// WaitIdle blocks until the queue is empty and no worker is running a task,
// or until ctx is done. Destroy after WaitIdle discards nothing unless more
// work was submitted in between.
func (p *Pool) WaitIdle(ctx context.Context) error {
	if p == nil {
		return errors.NewPoolError("wait", errors.ErrNilPool)
	}

	stop := context.AfterFunc(ctx, func() {
		p.mu.Lock()
		p.settled.Broadcast()
		p.mu.Unlock()
	})
	defer stop()

	p.mu.Lock()
	defer p.mu.Unlock()
	for p.queue.len() > 0 || p.busy > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.settled.Wait()
	}
	return nil
}

// Destroy shuts the pool down. It sets the shutdown flag, wakes every
// worker and waits for each, in index order, to finish its current task and
// exit. Tasks still queued afterwards are discarded without running. Calls
// after the first return nil immediately.
func (p *Pool) Destroy() error {
	if p == nil {
		return errors.NewPoolError("destroy", errors.ErrNilPool)
	}

	p.mu.Lock()
	if p.shutdown {
		p.mu.Unlock()
		p.emit(logging.LevelDebug, fmt.Sprintf("pool %s already shutting down", p.id))
		return nil
	}
	p.shutdown = true
	queued := p.queue.len()
	p.wake.Broadcast()
	p.mu.Unlock()

	p.emit(logging.LevelInfo, fmt.Sprintf("pool %s shutting down (%d tasks queued)", p.id, queued))
	p.publish(event.NewPoolShutdownEvent(p.id, queued))

	p.join()

	p.mu.Lock()
	dropped := p.queue.drain()
	p.stats.Discarded += uint64(len(dropped))
	p.settled.Broadcast()
	p.mu.Unlock()

	if len(dropped) > 0 {
		p.emit(logging.LevelWarn, fmt.Sprintf("pool %s discarded %d queued tasks", p.id, len(dropped)))
	}
	for _, t := range dropped {
		p.publish(event.NewTaskDiscardedEvent(p.id, t.ID, t.Name))
		p.discard(t)
	}

	p.emit(logging.LevelInfo, fmt.Sprintf("pool %s destroyed", p.id))
	p.publish(event.NewPoolDestroyedEvent(p.id, p.workers, len(dropped)))
	return nil
}

func (p *Pool) discard(t Task) {
	if p.onDiscard == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.emit(logging.LevelError, fmt.Sprintf("discard handler panicked for task %q: %v", t.Name, r))
		}
	}()
	p.onDiscard(t)
}

func (p *Pool) emit(level logging.Level, msg string) {
	safeEmit(p.sink, level, msg)
}

func (p *Pool) publish(e event.Event) {
	if p.bus != nil {
		p.bus.Publish(e)
	}
}

// safeEmit keeps a misbehaving sink from failing a pool operation.
func safeEmit(sink logging.Sink, level logging.Level, msg string) {
	defer func() { _ = recover() }()
	sink.Emit(level, component, msg)
}
