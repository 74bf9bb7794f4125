package metrics

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/valyala/fasthttp"

	"github.com/Iron-Ham/taskpool/internal/event"
	"github.com/Iron-Ham/taskpool/internal/taskpool"
)

func TestHandle(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Handle(event.NewPoolCreatedEvent("p", 3))
	m.Handle(event.NewTaskSubmittedEvent("p", "a", "a"))
	m.Handle(event.NewTaskSubmittedEvent("p", "b", "b"))
	m.Handle(event.NewTaskStartedEvent("p", "a", "a", 0))

	if got := testutil.ToFloat64(m.Workers); got != 3 {
		t.Errorf("workers = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.QueueDepth); got != 1 {
		t.Errorf("queue depth = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.WorkersBusy); got != 1 {
		t.Errorf("busy = %v, want 1", got)
	}

	m.Handle(event.NewTaskFinishedEvent("p", "a", "a", 0, 10*time.Millisecond, true))
	m.Handle(event.NewTaskDiscardedEvent("p", "b", "b"))
	m.Handle(event.NewTaskRejectedEvent("p", "c", "shutdown"))
	m.Handle(event.NewPoolDestroyedEvent("p", 3, 1))

	tests := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"submitted", m.TasksSubmitted, 2},
		{"rejected", m.TasksRejected, 1},
		{"discarded", m.TasksDiscarded, 1},
		{"panicked", m.TasksCompleted.WithLabelValues(OutcomePanic), 1},
		{"ok", m.TasksCompleted.WithLabelValues(OutcomeOK), 0},
		{"workers", m.Workers, 0},
		{"busy", m.WorkersBusy, 0},
		{"queue", m.QueueDepth, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := testutil.ToFloat64(tt.c); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	if n := testutil.CollectAndCount(m.TaskDuration); n != 1 {
		t.Errorf("duration histogram collected %d series, want 1", n)
	}
}

func TestAttach_PoolLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	bus := event.NewBus()
	m.Attach(bus)

	pool, err := taskpool.New(2, taskpool.WithEventBus(bus))
	if err != nil {
		t.Fatal(err)
	}

	var ran atomic.Int32
	for range 10 {
		_ = pool.Submit(func(any) { ran.Add(1) }, nil, "count")
	}
	_ = pool.Submit(func(any) { panic("x") }, nil, "bad")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.WaitIdle(ctx); err != nil {
		t.Fatal(err)
	}
	_ = pool.Destroy()
	_ = pool.Submit(func(any) {}, nil, "late")

	if got := testutil.ToFloat64(m.TasksSubmitted); got != 11 {
		t.Errorf("submitted = %v, want 11", got)
	}
	if got := testutil.ToFloat64(m.TasksCompleted.WithLabelValues(OutcomeOK)); got != 10 {
		t.Errorf("ok = %v, want 10", got)
	}
	if got := testutil.ToFloat64(m.TasksCompleted.WithLabelValues(OutcomePanic)); got != 1 {
		t.Errorf("panic = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.TasksRejected); got != 1 {
		t.Errorf("rejected = %v, want 1", got)
	}
	for name, g := range map[string]prometheus.Gauge{"workers": m.Workers, "busy": m.WorkersBusy, "queue": m.QueueDepth} {
		if got := testutil.ToFloat64(g); got != 0 {
			t.Errorf("%s = %v after destroy, want 0", name, got)
		}
	}

	expected := `
# HELP taskpool_tasks_discarded_total Queued tasks dropped without running by pool shutdown.
# TYPE taskpool_tasks_discarded_total counter
taskpool_tasks_discarded_total 0
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "taskpool_tasks_discarded_total"); err != nil {
		t.Error(err)
	}

	m.Detach(bus)
	before := testutil.ToFloat64(m.TasksSubmitted)
	bus.Publish(event.NewTaskSubmittedEvent("p", "x", "x"))
	if got := testutil.ToFloat64(m.TasksSubmitted); got != before {
		t.Errorf("submitted moved from %v to %v after Detach", before, got)
	}
}

func TestHandle_QueueDepthOutOfOrder(t *testing.T) {
	m := New(prometheus.NewRegistry())

	// A worker can report task.started before the submitter's
	// task.submitted reaches the bus.
	m.Handle(event.NewTaskStartedEvent("p", "a", "a", 0))
	if got := testutil.ToFloat64(m.QueueDepth); got != 0 {
		t.Errorf("queue depth = %v, want it clamped at 0", got)
	}

	m.Handle(event.NewTaskSubmittedEvent("p", "a", "a"))
	if got := testutil.ToFloat64(m.QueueDepth); got != 0 {
		t.Errorf("queue depth = %v after the late submit, want 0", got)
	}

	m.Handle(event.NewTaskSubmittedEvent("p", "b", "b"))
	if got := testutil.ToFloat64(m.QueueDepth); got != 1 {
		t.Errorf("queue depth = %v, want 1", got)
	}
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()
	New(reg)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	var sawRuntime bool
	for _, mf := range families {
		if strings.HasPrefix(mf.GetName(), "go_") {
			sawRuntime = true
		}
	}
	if !sawRuntime {
		t.Error("registry should include Go runtime metrics")
	}
}

func serve(t *testing.T, h fasthttp.RequestHandler, path string) *fasthttp.RequestCtx {
	t.Helper()

	var req fasthttp.Request
	req.SetRequestURI(path)
	var ctx fasthttp.RequestCtx
	ctx.Init(&req, nil, nil)
	h(&ctx)
	return &ctx
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.TasksSubmitted.Add(5)
	h := Handler(reg)

	ctx := serve(t, h, "/metrics")
	if code := ctx.Response.StatusCode(); code != fasthttp.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if body := string(ctx.Response.Body()); !strings.Contains(body, "taskpool_tasks_submitted_total 5") {
		t.Errorf("body missing counter:\n%s", body)
	}

	ctx = serve(t, h, "/healthz")
	if string(ctx.Response.Body()) != "ok\n" {
		t.Errorf("healthz body = %q", ctx.Response.Body())
	}

	ctx = serve(t, h, "/nope")
	if code := ctx.Response.StatusCode(); code != fasthttp.StatusNotFound {
		t.Errorf("status = %d, want 404", code)
	}
}

func TestServer(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)

	srv, err := Listen("127.0.0.1:0", reg, nil)
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	var (
		status int
		body   []byte
	)
	deadline := time.Now().Add(5 * time.Second)
	for {
		status, body, err = fasthttp.Get(nil, "http://"+srv.Addr()+"/metrics")
		if err == nil || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	if status != fasthttp.StatusOK || !strings.Contains(string(body), "taskpool_workers") {
		t.Errorf("status %d body:\n%s", status, body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not stop after cancel")
	}
}
