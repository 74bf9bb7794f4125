// Package metrics exports pool activity as Prometheus metrics.
//
// [Metrics] subscribes to the pool's event bus and keeps counters for
// submitted, rejected, completed and discarded tasks, a task duration
// histogram, and gauges for workers, busy workers and queue depth. [Listen]
// serves them on /metrics using fasthttp.
//
//	reg := metrics.NewRegistry()
//	m := metrics.New(reg)
//	m.Attach(bus)
//
//	srv, err := metrics.Listen(":9090", reg, logger)
//	go srv.Serve(ctx)
package metrics
