package event

import (
	"fmt"
	"runtime/debug"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/Iron-Ham/taskpool/internal/logging"
)

// Handler is a function that handles an event.
type Handler func(Event)

type subscriber struct {
	types   []string // empty: every event type
	handler Handler
	active  atomic.Bool
}

func (s *subscriber) wants(eventType string) bool {
	return len(s.types) == 0 || slices.Contains(s.types, eventType)
}

// Subscription is a registered handler. The zero value is inert.
type Subscription struct {
	bus *Bus
	sub *subscriber
}

// Cancel stops delivery to the handler, including for a Publish already in
// progress that has not reached it yet. It reports whether the subscription
// was still active.
func (s Subscription) Cancel() bool {
	if s.sub == nil || !s.sub.active.CompareAndSwap(true, false) {
		return false
	}
	s.bus.remove(s.sub)
	return true
}

// Bus delivers events synchronously to subscribers in the order they
// subscribed. The subscriber list is copy-on-write: Publish takes no lock,
// and handlers may subscribe or cancel while an event is being delivered.
type Bus struct {
	mu   sync.Mutex // serializes writers of subs
	subs atomic.Pointer[[]*subscriber]
	sink atomic.Pointer[logging.Sink]
}

// NewBus creates an empty bus. Handler panics are dropped until SetSink is
// called.
func NewBus() *Bus {
	return &Bus{}
}

// SetSink sets where recovered handler panics are reported.
func (b *Bus) SetSink(sink logging.Sink) {
	if sink == nil {
		sink = logging.NopSink
	}
	b.sink.Store(&sink)
}

func (b *Bus) errorSink() logging.Sink {
	if s := b.sink.Load(); s != nil {
		return *s
	}
	return logging.NopSink
}

// Subscribe registers handler for the given event types, or for every event
// when no type is given.
func (b *Bus) Subscribe(handler Handler, types ...string) Subscription {
	sub := &subscriber{types: slices.Clone(types), handler: handler}
	sub.active.Store(true)

	b.mu.Lock()
	defer b.mu.Unlock()
	next := append(slices.Clone(b.snapshot()), sub)
	b.subs.Store(&next)
	return Subscription{bus: b, sub: sub}
}

func (b *Bus) remove(sub *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	next := slices.DeleteFunc(slices.Clone(b.snapshot()), func(s *subscriber) bool { return s == sub })
	b.subs.Store(&next)
}

func (b *Bus) snapshot() []*subscriber {
	if p := b.subs.Load(); p != nil {
		return *p
	}
	return nil
}

// Publish calls every active handler interested in e, in subscription
// order. A panicking handler is reported to the sink and the remaining
// handlers still run.
func (b *Bus) Publish(e Event) {
	typ := e.EventType()
	for _, sub := range b.snapshot() {
		if !sub.active.Load() || !sub.wants(typ) {
			continue
		}
		b.deliver(sub.handler, e)
	}
}

func (b *Bus) deliver(handler Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.errorSink().Emit(logging.LevelError, "event",
				fmt.Sprintf("handler for %s panicked: %v\n%s", e.EventType(), r, debug.Stack()))
		}
	}()
	handler(e)
}
