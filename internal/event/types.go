package event

import "time"

// Event is the interface that all events must implement.
// It provides a common way to identify and timestamp events.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "pool.created", "task.finished")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type identifiers.
const (
	TypePoolCreated   = "pool.created"
	TypePoolShutdown  = "pool.shutdown"
	TypePoolDestroyed = "pool.destroyed"

	TypeWorkerStarted = "worker.started"
	TypeWorkerStopped = "worker.stopped"

	TypeTaskSubmitted = "task.submitted"
	TypeTaskRejected  = "task.rejected"
	TypeTaskStarted   = "task.started"
	TypeTaskFinished  = "task.finished"
	TypeTaskDiscarded = "task.discarded"
)

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Pool Lifecycle Events
// -----------------------------------------------------------------------------

// PoolCreatedEvent is emitted once every worker of a new pool has started.
type PoolCreatedEvent struct {
	baseEvent
	PoolID  string
	Workers int
}

// NewPoolCreatedEvent creates a PoolCreatedEvent.
func NewPoolCreatedEvent(poolID string, workers int) PoolCreatedEvent {
	return PoolCreatedEvent{
		baseEvent: newBaseEvent(TypePoolCreated),
		PoolID:    poolID,
		Workers:   workers,
	}
}

// PoolShutdownEvent is emitted when the shutdown flag is set.
type PoolShutdownEvent struct {
	baseEvent
	PoolID string
	Queued int // Tasks still queued when shutdown began
}

// NewPoolShutdownEvent creates a PoolShutdownEvent.
func NewPoolShutdownEvent(poolID string, queued int) PoolShutdownEvent {
	return PoolShutdownEvent{
		baseEvent: newBaseEvent(TypePoolShutdown),
		PoolID:    poolID,
		Queued:    queued,
	}
}

// PoolDestroyedEvent is emitted after all workers have joined and the queue
// has been discarded.
type PoolDestroyedEvent struct {
	baseEvent
	PoolID    string
	Workers   int
	Discarded int
}

// NewPoolDestroyedEvent creates a PoolDestroyedEvent.
func NewPoolDestroyedEvent(poolID string, workers, discarded int) PoolDestroyedEvent {
	return PoolDestroyedEvent{
		baseEvent: newBaseEvent(TypePoolDestroyed),
		PoolID:    poolID,
		Workers:   workers,
		Discarded: discarded,
	}
}

// -----------------------------------------------------------------------------
// Worker Events
// -----------------------------------------------------------------------------

// WorkerStartedEvent is emitted when a worker goroutine begins its loop.
type WorkerStartedEvent struct {
	baseEvent
	PoolID string
	Worker int
}

// NewWorkerStartedEvent creates a WorkerStartedEvent.
func NewWorkerStartedEvent(poolID string, worker int) WorkerStartedEvent {
	return WorkerStartedEvent{
		baseEvent: newBaseEvent(TypeWorkerStarted),
		PoolID:    poolID,
		Worker:    worker,
	}
}

// WorkerStoppedEvent is emitted when a worker observes shutdown and exits.
type WorkerStoppedEvent struct {
	baseEvent
	PoolID   string
	Worker   int
	Executed int // Tasks this worker ran, panicked ones included
}

// NewWorkerStoppedEvent creates a WorkerStoppedEvent.
func NewWorkerStoppedEvent(poolID string, worker, executed int) WorkerStoppedEvent {
	return WorkerStoppedEvent{
		baseEvent: newBaseEvent(TypeWorkerStopped),
		PoolID:    poolID,
		Worker:    worker,
		Executed:  executed,
	}
}

// -----------------------------------------------------------------------------
// Task Events
// -----------------------------------------------------------------------------

// TaskSubmittedEvent is emitted after a task has been queued.
type TaskSubmittedEvent struct {
	baseEvent
	PoolID   string
	TaskID   string
	TaskName string
}

// NewTaskSubmittedEvent creates a TaskSubmittedEvent.
func NewTaskSubmittedEvent(poolID, taskID, taskName string) TaskSubmittedEvent {
	return TaskSubmittedEvent{
		baseEvent: newBaseEvent(TypeTaskSubmitted),
		PoolID:    poolID,
		TaskID:    taskID,
		TaskName:  taskName,
	}
}

// TaskRejectedEvent is emitted when a submission is refused.
type TaskRejectedEvent struct {
	baseEvent
	PoolID   string
	TaskName string
	Reason   string
}

// NewTaskRejectedEvent creates a TaskRejectedEvent.
func NewTaskRejectedEvent(poolID, taskName, reason string) TaskRejectedEvent {
	return TaskRejectedEvent{
		baseEvent: newBaseEvent(TypeTaskRejected),
		PoolID:    poolID,
		TaskName:  taskName,
		Reason:    reason,
	}
}

// TaskStartedEvent is emitted when a worker has dequeued a task and is
// about to run it.
type TaskStartedEvent struct {
	baseEvent
	PoolID   string
	TaskID   string
	TaskName string
	Worker   int
}

// NewTaskStartedEvent creates a TaskStartedEvent.
func NewTaskStartedEvent(poolID, taskID, taskName string, worker int) TaskStartedEvent {
	return TaskStartedEvent{
		baseEvent: newBaseEvent(TypeTaskStarted),
		PoolID:    poolID,
		TaskID:    taskID,
		TaskName:  taskName,
		Worker:    worker,
	}
}

// TaskFinishedEvent is emitted when a task's action has returned or panicked.
type TaskFinishedEvent struct {
	baseEvent
	PoolID   string
	TaskID   string
	TaskName string
	Worker   int
	Duration time.Duration
	Panicked bool
}

// NewTaskFinishedEvent creates a TaskFinishedEvent.
func NewTaskFinishedEvent(poolID, taskID, taskName string, worker int, duration time.Duration, panicked bool) TaskFinishedEvent {
	return TaskFinishedEvent{
		baseEvent: newBaseEvent(TypeTaskFinished),
		PoolID:    poolID,
		TaskID:    taskID,
		TaskName:  taskName,
		Worker:    worker,
		Duration:  duration,
		Panicked:  panicked,
	}
}

// TaskDiscardedEvent is emitted for each queued task dropped by shutdown.
type TaskDiscardedEvent struct {
	baseEvent
	PoolID   string
	TaskID   string
	TaskName string
}

// NewTaskDiscardedEvent creates a TaskDiscardedEvent.
func NewTaskDiscardedEvent(poolID, taskID, taskName string) TaskDiscardedEvent {
	return TaskDiscardedEvent{
		baseEvent: newBaseEvent(TypeTaskDiscarded),
		PoolID:    poolID,
		TaskID:    taskID,
		TaskName:  taskName,
	}
}
