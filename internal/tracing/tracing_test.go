package tracing

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestSetup_Disabled(t *testing.T) {
	p, err := Setup(Config{})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	_, span := p.Tracer("test").Start(context.Background(), "op")
	if span.SpanContext().IsValid() {
		t.Error("disabled tracing should produce non-recording spans")
	}
	span.End()

	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown = %v", err)
	}
}

func TestSetup_ExportsToWriter(t *testing.T) {
	var buf bytes.Buffer
	p, err := Setup(Config{Enabled: true, Writer: &buf, Version: "test"})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	if otel.GetTracerProvider() == nil {
		t.Fatal("global provider should be installed")
	}

	_, span := otel.Tracer("test").Start(context.Background(), "taskpool.task")
	if !span.SpanContext().IsValid() {
		t.Error("enabled tracing should produce recording spans")
	}
	span.End()

	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, `"Name":"taskpool.task"`) {
		t.Fatalf("exported output missing span: %s", out)
	}

	var decoded map[string]any
	line := strings.SplitN(strings.TrimSpace(out), "\n", 2)[0]
	if err := json.Unmarshal([]byte(line), &decoded); err != nil {
		t.Fatalf("exported span is not JSON: %v", err)
	}
	if !strings.Contains(out, ServiceName) {
		t.Error("resource should carry the service name")
	}
}
