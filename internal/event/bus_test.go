package event

import (
	"strings"
	"sync"
	"testing"

	"github.com/Iron-Ham/taskpool/internal/logging"
)

// recorder collects the types of the events it is handed.
type recorder struct {
	mu    sync.Mutex
	types []string
}

func (r *recorder) handle(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, e.EventType())
}

func (r *recorder) got() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.types...)
}

func equalTypes(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// lifecycle is the event sequence of a one-worker pool that runs one task
// and discards another.
func lifecycle() []Event {
	return []Event{
		NewWorkerStartedEvent("p1", 0),
		NewPoolCreatedEvent("p1", 1),
		NewTaskSubmittedEvent("p1", "t1", "resize"),
		NewTaskSubmittedEvent("p1", "t2", "upload"),
		NewTaskStartedEvent("p1", "t1", "resize", 0),
		NewTaskFinishedEvent("p1", "t1", "resize", 0, 0, false),
		NewPoolShutdownEvent("p1", 1),
		NewWorkerStoppedEvent("p1", 0, 1),
		NewTaskDiscardedEvent("p1", "t2", "upload"),
		NewPoolDestroyedEvent("p1", 1, 1),
	}
}

func TestBus_DeliversPoolLifecycleInOrder(t *testing.T) {
	bus := NewBus()
	var all recorder
	bus.Subscribe(all.handle)

	for _, e := range lifecycle() {
		bus.Publish(e)
	}

	want := []string{
		TypeWorkerStarted, TypePoolCreated,
		TypeTaskSubmitted, TypeTaskSubmitted,
		TypeTaskStarted, TypeTaskFinished,
		TypePoolShutdown, TypeWorkerStopped,
		TypeTaskDiscarded, TypePoolDestroyed,
	}
	if got := all.got(); !equalTypes(got, want) {
		t.Errorf("delivered %v, want %v", got, want)
	}
}

func TestBus_TypeFilter(t *testing.T) {
	bus := NewBus()
	var tasks, pool recorder
	bus.Subscribe(tasks.handle, TypeTaskStarted, TypeTaskFinished, TypeTaskDiscarded)
	bus.Subscribe(pool.handle, TypePoolCreated, TypePoolDestroyed)

	for _, e := range lifecycle() {
		bus.Publish(e)
	}

	if got, want := tasks.got(), []string{TypeTaskStarted, TypeTaskFinished, TypeTaskDiscarded}; !equalTypes(got, want) {
		t.Errorf("task subscriber got %v, want %v", got, want)
	}
	if got, want := pool.got(), []string{TypePoolCreated, TypePoolDestroyed}; !equalTypes(got, want) {
		t.Errorf("pool subscriber got %v, want %v", got, want)
	}
}

func TestBus_SubscriptionOrder(t *testing.T) {
	bus := NewBus()
	var order []string
	bus.Subscribe(func(Event) { order = append(order, "all") })
	bus.Subscribe(func(Event) { order = append(order, "finished") }, TypeTaskFinished)
	bus.Subscribe(func(Event) { order = append(order, "all-2") })

	bus.Publish(NewTaskFinishedEvent("p1", "t1", "resize", 0, 0, false))

	if want := []string{"all", "finished", "all-2"}; !equalTypes(order, want) {
		t.Errorf("handlers ran in order %v, want %v", order, want)
	}
}

func TestBus_Cancel(t *testing.T) {
	bus := NewBus()
	var r recorder
	sub := bus.Subscribe(r.handle, TypeTaskSubmitted)

	bus.Publish(NewTaskSubmittedEvent("p1", "t1", "resize"))
	if !sub.Cancel() {
		t.Error("first Cancel should report an active subscription")
	}
	if sub.Cancel() {
		t.Error("second Cancel should be a no-op")
	}
	bus.Publish(NewTaskSubmittedEvent("p1", "t2", "resize"))

	if got := len(r.got()); got != 1 {
		t.Errorf("handler ran %d times, want 1", got)
	}

	var zero Subscription
	if zero.Cancel() {
		t.Error("zero Subscription should not cancel anything")
	}
}

func TestBus_CancelDuringPublish(t *testing.T) {
	bus := NewBus()

	var later recorder
	var laterSub Subscription
	var selfCalls int
	var selfSub Subscription

	bus.Subscribe(func(Event) { laterSub.Cancel() }, TypePoolShutdown)
	selfSub = bus.Subscribe(func(Event) {
		selfCalls++
		selfSub.Cancel()
	})
	laterSub = bus.Subscribe(later.handle)

	bus.Publish(NewPoolShutdownEvent("p1", 3))
	bus.Publish(NewPoolDestroyedEvent("p1", 1, 3))

	if len(later.got()) != 0 {
		t.Errorf("handler cancelled earlier in the same Publish still ran: %v", later.got())
	}
	if selfCalls != 1 {
		t.Errorf("self-cancelling handler ran %d times, want 1", selfCalls)
	}
}

func TestBus_SubscribeDuringPublish(t *testing.T) {
	bus := NewBus()
	var added recorder

	bus.Subscribe(func(Event) {
		bus.Subscribe(added.handle)
	}, TypePoolCreated)

	bus.Publish(NewPoolCreatedEvent("p1", 2))
	if len(added.got()) != 0 {
		t.Error("a handler added during Publish should start with the next event")
	}

	bus.Publish(NewPoolDestroyedEvent("p1", 2, 0))
	if got := added.got(); !equalTypes(got, []string{TypePoolDestroyed}) {
		t.Errorf("added handler got %v", got)
	}
}

func TestBus_HandlerPanicReportedToSink(t *testing.T) {
	bus := NewBus()

	var (
		level     logging.Level
		component string
		msg       string
	)
	bus.SetSink(logging.SinkFunc(func(l logging.Level, c, m string) {
		level, component, msg = l, c, m
	}))

	var after recorder
	bus.Subscribe(func(Event) { panic("boom") }, TypeTaskFinished)
	bus.Subscribe(after.handle, TypeTaskFinished)

	bus.Publish(NewTaskFinishedEvent("p1", "t1", "resize", 0, 0, false))

	if level != logging.LevelError || component != "event" {
		t.Errorf("reported at %v/%q, want ERROR/event", level, component)
	}
	if !strings.Contains(msg, "task.finished") || !strings.Contains(msg, "boom") {
		t.Errorf("message %q should name the event and the panic value", msg)
	}
	if len(after.got()) != 1 {
		t.Error("handlers after a panicking one should still run")
	}

	// A nil sink falls back to discarding.
	bus.SetSink(nil)
	bus.Publish(NewTaskFinishedEvent("p1", "t2", "resize", 0, 0, true))
}

func TestBus_ConcurrentPublishAndSubscribe(t *testing.T) {
	bus := NewBus()
	var base recorder
	bus.Subscribe(base.handle, TypeTaskStarted)

	const publishers, perPublisher = 8, 100
	var wg sync.WaitGroup
	for range publishers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perPublisher {
				bus.Publish(NewTaskStartedEvent("p1", "t", "resize", 0))
			}
		}()
	}
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Subscribe(func(Event) {}, TypeTaskStarted).Cancel()
		}()
	}
	wg.Wait()

	if got := len(base.got()); got != publishers*perPublisher {
		t.Errorf("long-lived subscriber got %d events, want %d", got, publishers*perPublisher)
	}
}
