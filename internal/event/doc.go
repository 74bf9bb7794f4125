// Package event provides a pub-sub event bus for decoupled inter-component
// communication in taskpool.
//
// The pool publishes lifecycle events here and the metrics collector, the
// CLI and tests consume them, so none of them need a direct dependency on
// the others. Events are always published outside the pool lock.
//
// # Main Types
//
//   - [Event]: Interface that all events must implement, providing EventType() and Timestamp()
//   - [Bus]: Synchronous pub-sub event dispatcher with thread-safe operations
//   - [Handler]: Function type for event handlers (func(Event))
//   - [Subscription]: Returned by Subscribe; Cancel stops delivery
//
// # Event Categories
//
// Pool lifecycle:
//   - [PoolCreatedEvent]: every worker of a new pool is running
//   - [PoolShutdownEvent]: the shutdown flag was set
//   - [PoolDestroyedEvent]: workers joined and the queue was discarded
//
// Workers:
//   - [WorkerStartedEvent], [WorkerStoppedEvent]
//
// Tasks:
//   - [TaskSubmittedEvent], [TaskRejectedEvent]
//   - [TaskStartedEvent], [TaskFinishedEvent]
//   - [TaskDiscardedEvent]: dropped from the queue by shutdown
//
// # Delivery
//
// Handlers run synchronously on the publishing goroutine, in the order they
// subscribed. The subscriber list is copied on write, so Publish takes no
// lock and a handler may subscribe or cancel while an event is in flight. A
// cancelled subscription is skipped even by a Publish that has already
// started; a new one first sees the next event. A panicking handler is
// reported to the bus sink and the remaining handlers still run.
//
// # Basic Usage
//
//	bus := event.NewBus()
//	bus.SetSink(logger)
//
//	// Only finished tasks
//	bus.Subscribe(func(e event.Event) {
//	    finished := e.(event.TaskFinishedEvent)
//	    fmt.Printf("%s took %v\n", finished.TaskName, finished.Duration)
//	}, event.TypeTaskFinished)
//
//	// Every event
//	sub := bus.Subscribe(func(e event.Event) {
//	    fmt.Printf("%s at %v\n", e.EventType(), e.Timestamp())
//	})
//	defer sub.Cancel()
//
// # Event Type Naming Convention
//
// Event types follow the pattern "category.action":
//   - pool.created, pool.shutdown, pool.destroyed
//   - worker.started, worker.stopped
//   - task.submitted, task.rejected, task.started, task.finished, task.discarded
package event
