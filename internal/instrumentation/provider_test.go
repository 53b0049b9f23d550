package instrumentation

import (
	"context"
	"os"
	"testing"
	"time"

	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

func TestNewProvider_Disabled(t *testing.T) {
	config := Config{
		ServiceName:    "test-service",
		ServiceVersion: "1.0.0",
		Enabled:        false,
	}

	provider, err := NewProvider(context.Background(), config)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if provider.Enabled() {
		t.Error("expected provider to be disabled")
	}

	if provider.Metrics() == nil {
		t.Error("expected metrics to be non-nil even when disabled")
	}

	if provider.HasPrometheusExporter() {
		t.Error("disabled provider should not report a prometheus exporter")
	}

	// recording on the disabled recorder is a no-op
	provider.Metrics().RecordRefresh(context.Background(), StatusSuccess, 3)

	if err := provider.Shutdown(context.Background()); err != nil {
		t.Errorf("expected no error on shutdown, got %v", err)
	}
}

func TestNewProvider_PrometheusExporter(t *testing.T) {
	config := Config{
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: ExporterPrometheus,
		TracingExporter: ExporterNone,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider, err := NewProvider(ctx, config)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer func() { _ = provider.Shutdown(ctx) }()

	if !provider.Enabled() {
		t.Error("expected provider to be enabled")
	}
	if !provider.HasPrometheusExporter() {
		t.Error("expected prometheus exporter")
	}
	if provider.Tracer("test") == nil {
		t.Error("expected tracer to be non-nil")
	}
}

func TestNewProvider_StdoutExporter(t *testing.T) {
	config := Config{
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: ExporterStdout,
		TracingExporter: ExporterStdout,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider, err := NewProvider(ctx, config)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer func() { _ = provider.Shutdown(ctx) }()

	if provider.HasPrometheusExporter() {
		t.Error("stdout exporter should not report a prometheus exporter")
	}
}

func TestNewProvider_UnsupportedExporter(t *testing.T) {
	config := Config{
		ServiceName:     "test-service",
		Enabled:         true,
		MetricsExporter: "carrier-pigeon",
		TracingExporter: ExporterNone,
	}

	if _, err := NewProvider(context.Background(), config); err == nil {
		t.Error("expected error for unsupported metrics exporter")
	}
}

func TestNewProvider_OTLPWithoutEndpoint(t *testing.T) {
	config := Config{
		ServiceName:     "test-service",
		Enabled:         true,
		MetricsExporter: ExporterOTLP,
		TracingExporter: ExporterNone,
	}

	if _, err := NewProvider(context.Background(), config); err == nil {
		t.Error("expected error for OTLP exporter without endpoint")
	}
}

func TestNewResource_InstanceID(t *testing.T) {
	ctx := context.Background()

	res, err := newResource(ctx, Config{ServiceName: "groupcal", ServiceVersion: "1.2.3", ServiceInstanceID: "desk-42"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if v, ok := res.Set().Value(semconv.ServiceInstanceIDKey); !ok || v.AsString() != "desk-42" {
		t.Errorf("expected instance id desk-42, got %q", v.AsString())
	}
	if v, ok := res.Set().Value(semconv.ServiceNameKey); !ok || v.AsString() != "groupcal" {
		t.Errorf("expected service name groupcal, got %q", v.AsString())
	}
	if _, ok := res.Set().Value(semconv.HostNameKey); !ok {
		t.Error("expected host.name from the host detector")
	}

	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		t.Skip("no hostname available")
	}
	res, err = newResource(ctx, Config{ServiceName: "groupcal"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if v, _ := res.Set().Value(semconv.ServiceInstanceIDKey); v.AsString() != hostname {
		t.Errorf("expected instance id to default to %q, got %q", hostname, v.AsString())
	}
}

func TestNewSpanExporter(t *testing.T) {
	ctx := context.Background()

	exporter, err := newSpanExporter(ctx, Config{TracingExporter: ExporterNone})
	if err != nil || exporter != nil {
		t.Errorf("expected no exporter for %q, got %v (%v)", ExporterNone, exporter, err)
	}

	if _, err := newSpanExporter(ctx, Config{TracingExporter: ExporterOTLP}); err == nil {
		t.Error("expected error for OTLP tracing without endpoint")
	}
	if _, err := newSpanExporter(ctx, Config{TracingExporter: "jaeger"}); err == nil {
		t.Error("expected error for unsupported tracing exporter")
	}
}

func TestNewMetricReader_PrometheusIsItsOwnReader(t *testing.T) {
	reader, promExporter, err := newMetricReader(context.Background(), Config{MetricsExporter: ExporterPrometheus})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if promExporter == nil {
		t.Fatal("expected prometheus exporter")
	}
	if reader != promExporter {
		t.Error("expected the prometheus exporter to be used as the reader")
	}
	_ = reader.Shutdown(context.Background())
}

func TestNewProvider_TracingWithoutEndpointCleansUp(t *testing.T) {
	config := Config{
		ServiceName:     "test-service",
		Enabled:         true,
		MetricsExporter: ExporterStdout,
		TracingExporter: ExporterOTLP,
	}

	if _, err := NewProvider(context.Background(), config); err == nil {
		t.Error("expected error for OTLP tracing without endpoint")
	}
}
