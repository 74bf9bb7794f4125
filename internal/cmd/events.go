package cmd

import (
	"fmt"
	"io"
	"sync"

	"github.com/Iron-Ham/taskpool/internal/event"
)

// eventPrinter returns a handler that writes one line per event to w.
func eventPrinter(w io.Writer) event.Handler {
	var mu sync.Mutex
	return func(e event.Event) {
		line := fmt.Sprintf("%s %-15s %s\n", e.Timestamp().Format("15:04:05.000"), e.EventType(), eventDetail(e))
		mu.Lock()
		defer mu.Unlock()
		_, _ = io.WriteString(w, line)
	}
}

func eventDetail(e event.Event) string {
	switch ev := e.(type) {
	case event.PoolCreatedEvent:
		return fmt.Sprintf("workers=%d", ev.Workers)
	case event.PoolShutdownEvent:
		return fmt.Sprintf("queued=%d", ev.Queued)
	case event.PoolDestroyedEvent:
		return fmt.Sprintf("workers=%d discarded=%d", ev.Workers, ev.Discarded)
	case event.WorkerStartedEvent:
		return fmt.Sprintf("worker=%d", ev.Worker)
	case event.WorkerStoppedEvent:
		return fmt.Sprintf("worker=%d executed=%d", ev.Worker, ev.Executed)
	case event.TaskSubmittedEvent:
		return fmt.Sprintf("task=%s", ev.TaskName)
	case event.TaskRejectedEvent:
		return fmt.Sprintf("task=%s reason=%q", ev.TaskName, ev.Reason)
	case event.TaskStartedEvent:
		return fmt.Sprintf("task=%s worker=%d", ev.TaskName, ev.Worker)
	case event.TaskFinishedEvent:
		return fmt.Sprintf("task=%s worker=%d took=%v panicked=%t", ev.TaskName, ev.Worker, ev.Duration, ev.Panicked)
	case event.TaskDiscardedEvent:
		return fmt.Sprintf("task=%s", ev.TaskName)
	}
	return ""
}
