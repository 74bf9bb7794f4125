package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid JSON line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
		ok   bool
	}{
		{"fatal", LevelFatal, true},
		{"ERROR", LevelError, true},
		{"warn", LevelWarn, true},
		{"warning", LevelWarn, true},
		{" info ", LevelInfo, true},
		{"debug", LevelDebug, true},
		{"TRACE", LevelTrace, true},
		{"verbose", LevelInfo, false},
		{"", LevelInfo, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseLevel(tt.in)
			if got != tt.want || ok != tt.ok {
				t.Errorf("ParseLevel(%q) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestLevel_Enabled(t *testing.T) {
	if !LevelError.Enabled(LevelInfo) {
		t.Error("ERROR should pass an INFO minimum")
	}
	if LevelDebug.Enabled(LevelInfo) {
		t.Error("DEBUG should not pass an INFO minimum")
	}
	if !LevelTrace.Enabled(LevelTrace) {
		t.Error("TRACE should pass a TRACE minimum")
	}
}

func TestLogger_EmitAllLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, LevelTrace)

	for _, lvl := range []Level{LevelFatal, LevelError, LevelWarn, LevelInfo, LevelDebug, LevelTrace} {
		logger.Emit(lvl, "pool", "message at "+lvl.String())
	}

	lines := decodeLines(t, &buf)
	if len(lines) != 6 {
		t.Fatalf("expected 6 lines, got %d", len(lines))
	}

	want := []string{"FATAL", "ERROR", "WARN", "INFO", "DEBUG", "TRACE"}
	for i, line := range lines {
		if line["level"] != want[i] {
			t.Errorf("line %d level = %v, want %s", i, line["level"], want[i])
		}
		if line["component"] != "pool" {
			t.Errorf("line %d component = %v, want pool", i, line["component"])
		}
	}
}

func TestLogger_MinimumLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, LevelWarn)

	logger.Info("dropped")
	logger.Debug("dropped")
	logger.Warn("kept")
	logger.Error("kept")

	if got := len(decodeLines(t, &buf)); got != 2 {
		t.Fatalf("expected 2 lines at WARN, got %d", got)
	}

	buf.Reset()
	logger.SetLevel(LevelTrace)
	logger.Trace("now visible")
	if got := len(decodeLines(t, &buf)); got != 1 {
		t.Fatalf("expected TRACE to be written after SetLevel, got %d lines", got)
	}
}

func TestLogger_ComponentFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, LevelTrace)

	logger.SetComponentLevel("pool", LevelWarn)
	logger.SetComponentEnabled("noisy", false)

	logger.Emit(LevelInfo, "pool", "filtered by component level")
	logger.Emit(LevelError, "pool", "kept")
	logger.Emit(LevelError, "noisy", "disabled component")
	logger.Emit(LevelTrace, "other", "kept")

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %s", len(lines), buf.String())
	}

	if logger.IsEnabled("noisy", LevelFatal) {
		t.Error("disabled component should report not enabled")
	}
	logger.SetComponentEnabled("noisy", true)
	if !logger.IsEnabled("noisy", LevelFatal) {
		t.Error("re-enabled component should report enabled")
	}
}

func TestLogger_WithAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, LevelInfo)

	child := logger.WithComponent("cli").With("run", 7, 42, "ignored-non-string-key")
	child.Info("hello", "extra", "x")

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	line := lines[0]
	if line["component"] != "cli" {
		t.Errorf("component = %v, want cli", line["component"])
	}
	if line["run"] != float64(7) {
		t.Errorf("run = %v, want 7", line["run"])
	}
	if line["extra"] != "x" {
		t.Errorf("extra = %v, want x", line["extra"])
	}

	// The parent must not have picked up the child's attributes.
	buf.Reset()
	logger.Info("parent")
	parent := decodeLines(t, &buf)[0]
	if _, ok := parent["component"]; ok {
		t.Error("parent logger should not carry child attributes")
	}
}

func TestLogger_EmitOverridesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, LevelInfo).WithComponent("cli")

	logger.Emit(LevelInfo, "pool", "from the pool")

	line := decodeLines(t, &buf)[0]
	if line["component"] != "pool" {
		t.Errorf("component = %v, want pool", line["component"])
	}
}

func TestNewLoggerWithRotation_Dir(t *testing.T) {
	t.Run("creates log file in directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested")

		logger, err := NewLoggerWithRotation(dir, LevelDebug, DefaultRotationConfig())
		if err != nil {
			t.Fatalf("NewLoggerWithRotation failed: %v", err)
		}
		logger.Info("written")

		child := logger.WithComponent("x")
		if err := child.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
		if err := logger.Close(); err != nil {
			t.Fatalf("second Close should be a no-op, got %v", err)
		}

		data, err := os.ReadFile(filepath.Join(dir, LogFileName))
		if err != nil {
			t.Fatalf("failed to read log file: %v", err)
		}
		if !strings.Contains(string(data), `"msg":"written"`) {
			t.Errorf("log file missing entry: %s", data)
		}
	})

	t.Run("writes to stderr when dir is empty", func(t *testing.T) {
		logger, err := NewLoggerWithRotation("", LevelInfo, DefaultRotationConfig())
		if err != nil {
			t.Fatalf("NewLoggerWithRotation failed: %v", err)
		}
		if logger.out.closer != nil {
			t.Error("expected no owned file when dir is empty")
		}
		if err := logger.Close(); err != nil {
			t.Errorf("Close on stderr logger = %v, want nil", err)
		}
	})
}

func TestNopLogger(t *testing.T) {
	logger := NopLogger()
	logger.Fatal("discarded")
	logger.Emit(LevelError, "pool", "discarded")
	if err := logger.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}
