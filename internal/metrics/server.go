package metrics

import (
	"context"
	"fmt"
	"net"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/Iron-Ham/taskpool/internal/logging"
)

// Handler serves /metrics from gatherer and a trivial /healthz.
func Handler(gatherer prometheus.Gatherer) fasthttp.RequestHandler {
	metrics := fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return func(ctx *fasthttp.RequestCtx) {
		switch string(ctx.Path()) {
		case "/metrics":
			metrics(ctx)
		case "/healthz":
			ctx.SetContentType("text/plain; charset=utf-8")
			ctx.SetBodyString("ok\n")
		default:
			ctx.NotFound()
		}
	}
}

// Server exposes a gatherer over HTTP.
type Server struct {
	srv  *fasthttp.Server
	ln   net.Listener
	sink logging.Sink
}

// Listen binds addr and prepares a server for gatherer. Use ":0" for an
// ephemeral port and Addr to discover it.
func Listen(addr string, gatherer prometheus.Gatherer, sink logging.Sink) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	if sink == nil {
		sink = logging.NopSink
	}
	return &Server{
		srv: &fasthttp.Server{
			Handler:               Handler(gatherer),
			Name:                  "taskpool",
			NoDefaultServerHeader: true,
		},
		ln:   ln,
		sink: sink,
	}, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Serve blocks serving requests until ctx is done, then shuts down.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.Serve(s.ln)
	}()
	s.sink.Emit(logging.LevelInfo, "metrics", fmt.Sprintf("serving metrics on http://%s/metrics", s.Addr()))

	select {
	case err := <-errCh:
		if err != nil {
			s.sink.Emit(logging.LevelError, "metrics", fmt.Sprintf("metrics server failed: %v", err))
		}
		return err
	case <-ctx.Done():
	}

	if err := s.srv.Shutdown(); err != nil {
		return fmt.Errorf("failed to shut down metrics server: %w", err)
	}
	<-errCh
	s.sink.Emit(logging.LevelDebug, "metrics", "metrics server stopped")
	return nil
}
