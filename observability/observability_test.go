package observability

import (
	"context"
	"testing"
	"time"
)

func TestDisabledMetricsAreInert(t *testing.T) {
	ctx := context.Background()

	m, err := InitMetrics(MetricsConfig{Enabled: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// None of these may panic on an inert set.
	m.RecordRequest(ctx, "/query", "ru", "ok", 120*time.Millisecond)
	m.RecordCache(ctx, "translation", true)
	m.RecordError(ctx, "timeout")
	m.RecordSearch(ctx, 5)
	m.RecordAnswer(ctx, 900, 400, 200)
	done := m.RequestStarted(ctx)
	done()

	t.Log("✅ inert metrics recorded safely")
}

func TestNilMetricsAreSafe(t *testing.T) {
	ctx := context.Background()
	var m *Metrics

	m.RecordRequest(ctx, "/query", "en", "ok", time.Second)
	m.RecordCache(ctx, "enrichment", false)
	m.RequestStarted(ctx)()
}

func TestNilTracerProducesUsableSpans(t *testing.T) {
	var tr *Tracer
	ctx := context.Background()

	ctx, span := tr.StartAnswer(ctx, "ka")
	tr.AddResultCount(span, 3)
	tr.RecordError(span, nil)
	span.End()

	_, span = tr.StartStage(ctx, SpanPrefilter)
	span.End()

	if err := tr.Shutdown(ctx); err != nil {
		t.Errorf("nil tracer shutdown returned error: %v", err)
	}
}

func TestTracingConfigDefaults(t *testing.T) {
	cfg := TracingConfig{Enabled: true}
	cfg.SetDefaults()

	if cfg.ServiceName != "tamada" {
		t.Errorf("service name = %q, want tamada", cfg.ServiceName)
	}
	if cfg.Exporter != "otlp" {
		t.Errorf("exporter = %q, want otlp", cfg.Exporter)
	}
	if cfg.Endpoint != "localhost:4317" {
		t.Errorf("endpoint = %q, want localhost:4317", cfg.Endpoint)
	}
	if cfg.SamplingRate != 1.0 {
		t.Errorf("sampling rate = %v, want 1.0", cfg.SamplingRate)
	}
	if !cfg.IsInsecure() {
		t.Error("expected insecure default for local collectors")
	}
}

func TestTracingConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     TracingConfig
		wantErr bool
	}{
		{"disabled_always_valid", TracingConfig{}, false},
		{"bad_sampling", TracingConfig{Enabled: true, Exporter: "otlp", Endpoint: "x:1", SamplingRate: 2}, true},
		{"bad_exporter", TracingConfig{Enabled: true, Exporter: "jaeger", SamplingRate: 1}, true},
		{"stdout_ok", TracingConfig{Enabled: true, Exporter: "stdout", SamplingRate: 0.5}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
