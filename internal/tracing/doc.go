// Package tracing configures OpenTelemetry for the taskpool binary.
//
// The pool creates one span per executed task through the global tracer
// provider. [Setup] installs either a no-op provider or an SDK provider
// exporting spans as JSON through the stdout exporter.
package tracing
