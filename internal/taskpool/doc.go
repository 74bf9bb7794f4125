// Package taskpool provides a fixed-size worker pool that executes named
// tasks from a shared FIFO queue.
//
// A [Pool] owns the queue, one status slot per worker and a single lock with
// its condition variables. Workers sleep until a task is queued or shutdown
// is requested, run the task outside the lock and go back to sleep.
//
// # Lifecycle
//
//	pool, err := taskpool.New(4, taskpool.WithSink(logger))
//	if err != nil {
//	    return err
//	}
//
//	_ = pool.Submit(func(arg any) { resize(arg.(string)) }, "photo.jpg", "resize")
//
//	names, _ := pool.RunningTaskNames() // e.g. ["resize", "[idle]", "[idle]", "[idle]"]
//
//	_ = pool.WaitIdle(ctx) // optional: let queued work finish
//	_ = pool.Destroy()
//
// # Shutdown
//
// Destroy sets a one-way shutdown flag. From then on Submit fails with
// errors.ErrPoolShutdown and the task is not queued. Each worker finishes the
// task it is running, then exits without taking more work. Tasks still queued
// after every worker has joined are discarded without running; register
// [WithDiscardHandler] to dispose of their arguments. Destroy is idempotent.
//
// # Ordering
//
// Tasks become eligible in submission order. With one worker they also
// complete in that order; with several, start and completion order across
// workers is not defined.
//
// # Observability
//
// The pool reports to a logging.Sink under the "pool" component, publishes
// lifecycle events on an optional event.Bus and records one OpenTelemetry
// span per executed task. None of these are required.
package taskpool
