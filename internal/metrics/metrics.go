package metrics

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Iron-Ham/taskpool/internal/event"
)

// Outcome label values for TasksCompleted.
const (
	OutcomeOK    = "ok"
	OutcomePanic = "panic"
)

// Metrics holds the Prometheus collectors fed by pool events.
type Metrics struct {
	TasksSubmitted prometheus.Counter
	TasksRejected  prometheus.Counter
	TasksCompleted *prometheus.CounterVec
	TasksDiscarded prometheus.Counter
	TaskDuration   prometheus.Histogram

	Workers     prometheus.Gauge
	WorkersBusy prometheus.Gauge
	QueueDepth  prometheus.Gauge

	queued atomic.Int64 // backs QueueDepth; may dip below zero transiently

	mu   sync.Mutex
	subs map[*event.Bus][]event.Subscription
}

// NewRegistry returns a registry preloaded with the Go runtime and process
// collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// New creates the pool metrics and registers them with registerer.
func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}
	f := promauto.With(registerer)

	return &Metrics{
		TasksSubmitted: f.NewCounter(prometheus.CounterOpts{
			Name: "taskpool_tasks_submitted_total",
			Help: "Tasks accepted into a pool queue.",
		}),
		TasksRejected: f.NewCounter(prometheus.CounterOpts{
			Name: "taskpool_tasks_rejected_total",
			Help: "Submissions refused because of a nil action or shutdown.",
		}),
		TasksCompleted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "taskpool_tasks_completed_total",
			Help: "Tasks whose action returned or panicked.",
		}, []string{"outcome"}),
		TasksDiscarded: f.NewCounter(prometheus.CounterOpts{
			Name: "taskpool_tasks_discarded_total",
			Help: "Queued tasks dropped without running by pool shutdown.",
		}),
		TaskDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "taskpool_task_duration_seconds",
			Help:    "Time spent running a task's action.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		Workers: f.NewGauge(prometheus.GaugeOpts{
			Name: "taskpool_workers",
			Help: "Workers in live pools.",
		}),
		WorkersBusy: f.NewGauge(prometheus.GaugeOpts{
			Name: "taskpool_workers_busy",
			Help: "Workers currently running a task.",
		}),
		QueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "taskpool_queue_depth",
			Help: "Tasks waiting for a worker.",
		}),
		subs: make(map[*event.Bus][]event.Subscription),
	}
}

// Attach subscribes m to the pool events published on bus.
func (m *Metrics) Attach(bus *event.Bus) {
	types := []string{
		event.TypePoolCreated,
		event.TypePoolDestroyed,
		event.TypeTaskSubmitted,
		event.TypeTaskRejected,
		event.TypeTaskStarted,
		event.TypeTaskFinished,
		event.TypeTaskDiscarded,
	}

	sub := bus.Subscribe(m.Handle, types...)

	m.mu.Lock()
	m.subs[bus] = append(m.subs[bus], sub)
	m.mu.Unlock()
}

// Detach removes the subscriptions made by Attach.
func (m *Metrics) Detach(bus *event.Bus) {
	m.mu.Lock()
	subs := m.subs[bus]
	delete(m.subs, bus)
	m.mu.Unlock()

	for _, sub := range subs {
		sub.Cancel()
	}
}

// Handle updates the collectors for one event. Gauges are derived from
// event deltas, so they are exact once a pool has been destroyed and
// eventually consistent while it runs. Events are published outside the
// pool lock, so a worker's task.started can arrive before the matching
// task.submitted; QueueDepth is clamped at zero while that settles.
func (m *Metrics) Handle(e event.Event) {
	switch ev := e.(type) {
	case event.PoolCreatedEvent:
		m.Workers.Add(float64(ev.Workers))
	case event.PoolDestroyedEvent:
		m.Workers.Sub(float64(ev.Workers))
	case event.TaskSubmittedEvent:
		m.TasksSubmitted.Inc()
		m.addQueued(1)
	case event.TaskRejectedEvent:
		m.TasksRejected.Inc()
	case event.TaskStartedEvent:
		m.addQueued(-1)
		m.WorkersBusy.Inc()
	case event.TaskFinishedEvent:
		m.WorkersBusy.Dec()
		outcome := OutcomeOK
		if ev.Panicked {
			outcome = OutcomePanic
		}
		m.TasksCompleted.WithLabelValues(outcome).Inc()
		m.TaskDuration.Observe(ev.Duration.Seconds())
	case event.TaskDiscardedEvent:
		m.TasksDiscarded.Inc()
		m.addQueued(-1)
	}
}

func (m *Metrics) addQueued(delta int64) {
	m.QueueDepth.Set(float64(max(m.queued.Add(delta), 0)))
}
