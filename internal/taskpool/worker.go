package taskpool

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Iron-Ham/taskpool/internal/event"
	"github.com/Iron-Ham/taskpool/internal/logging"
)

// work is the loop run by worker idx. It returns once the worker observes
// shutdown; queued tasks left at that point belong to Destroy.
func (p *Pool) work(idx int, done chan<- struct{}) {
	defer close(done)

	p.emit(logging.LevelDebug, fmt.Sprintf("worker %d started", idx))
	p.publish(event.NewWorkerStartedEvent(p.id, idx))

	executed := 0
	for {
		t, ok := p.next(idx)
		if !ok {
			break
		}
		p.publish(event.NewTaskStartedEvent(p.id, t.ID, t.Name, idx))

		elapsed, panicked := p.execute(idx, t)
		executed++
		p.finish(idx, t, elapsed, panicked)
	}

	p.emit(logging.LevelDebug, fmt.Sprintf("worker %d stopped after %d tasks", idx, executed))
	p.publish(event.NewWorkerStoppedEvent(p.id, idx, executed))
}

// next blocks until there is a task to run or shutdown is set, and reports
// false in the latter case. A dequeued task is recorded in the worker's
// status slot before the lock is released.
func (p *Pool) next(idx int) (Task, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for {
		for p.queue.len() == 0 && !p.shutdown {
			p.wake.Wait()
		}
		if p.shutdown {
			return Task{}, false
		}

		t, ok := p.queue.dequeue()
		if !ok {
			continue
		}
		p.slots[idx] = t.Name
		p.busy++
		p.stats.Started++
		return t, true
	}
}

// execute runs t outside the lock inside its own span. A panicking action
// is recovered and reported so the worker can keep going.
func (p *Pool) execute(idx int, t Task) (elapsed time.Duration, panicked bool) {
	_, span := p.tracer.Start(context.Background(), "taskpool.task",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("taskpool.pool_id", p.id),
			attribute.String("taskpool.task_id", t.ID),
			attribute.String("taskpool.task_name", t.Name),
			attribute.Int("taskpool.worker", idx),
		))

	start := time.Now()
	defer func() {
		elapsed = time.Since(start)
		if r := recover(); r != nil {
			panicked = true
			p.emit(logging.LevelError, fmt.Sprintf("worker %d: task %q panicked: %v", idx, t.Name, r))
			p.emit(logging.LevelDebug, string(debug.Stack()))
			span.RecordError(fmt.Errorf("panic: %v", r))
			span.SetStatus(codes.Error, "task panicked")
		}
		span.End()
	}()

	t.Action(t.Arg)
	return 0, false
}

// finish returns worker idx to idle.
func (p *Pool) finish(idx int, t Task, elapsed time.Duration, panicked bool) {
	p.mu.Lock()
	p.slots[idx] = IdleTaskName
	p.busy--
	if panicked {
		p.stats.Panicked++
	} else {
		p.stats.Completed++
	}
	if p.busy == 0 && p.queue.len() == 0 {
		p.settled.Broadcast()
	}
	p.mu.Unlock()

	p.emit(logging.LevelTrace, fmt.Sprintf("worker %d finished %q in %v", idx, t.Name, elapsed))
	p.publish(event.NewTaskFinishedEvent(p.id, t.ID, t.Name, idx, elapsed, panicked))
}
