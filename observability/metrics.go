package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics records service-level measurements. Instruments are exported
// through the default Prometheus registry, so promhttp serves them without
// further wiring. A nil or zero Metrics silently records nothing.
type Metrics struct {
	requestsTotal   metric.Int64Counter
	requestDuration metric.Float64Histogram
	cacheHits       metric.Int64Counter
	cacheMisses     metric.Int64Counter
	activeRequests  metric.Int64UpDownCounter
	errorsTotal     metric.Int64Counter
	searchResults   metric.Int64Histogram
	responseLength  metric.Int64Histogram
	llmInputTokens  metric.Int64Counter
	llmOutputTokens metric.Int64Counter
}

// InitMetrics builds the metric set. Disabled config yields an inert
// Metrics value.
func InitMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{}, nil
	}
	cfg.SetDefaults()

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter(cfg.Namespace)

	name := func(s string) string { return cfg.Namespace + "_" + s }
	m := &Metrics{}

	if m.requestsTotal, err = meter.Int64Counter(
		name("requests_total"),
		metric.WithDescription("Answered requests by endpoint, language and status"),
	); err != nil {
		return nil, fmt.Errorf("failed to create requests counter: %w", err)
	}

	if m.requestDuration, err = meter.Float64Histogram(
		name("request_duration_seconds"),
		metric.WithDescription("Request duration in seconds"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2, 5, 10, 30),
	); err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	if m.cacheHits, err = meter.Int64Counter(
		name("cache_hits_total"),
		metric.WithDescription("Cache hits by cache type"),
	); err != nil {
		return nil, fmt.Errorf("failed to create cache hits counter: %w", err)
	}

	if m.cacheMisses, err = meter.Int64Counter(
		name("cache_misses_total"),
		metric.WithDescription("Cache misses by cache type"),
	); err != nil {
		return nil, fmt.Errorf("failed to create cache misses counter: %w", err)
	}

	if m.activeRequests, err = meter.Int64UpDownCounter(
		name("active_requests"),
		metric.WithDescription("Requests currently in flight"),
	); err != nil {
		return nil, fmt.Errorf("failed to create active requests gauge: %w", err)
	}

	if m.errorsTotal, err = meter.Int64Counter(
		name("errors_total"),
		metric.WithDescription("Errors by type"),
	); err != nil {
		return nil, fmt.Errorf("failed to create errors counter: %w", err)
	}

	if m.searchResults, err = meter.Int64Histogram(
		name("search_results"),
		metric.WithDescription("Result count per search"),
		metric.WithExplicitBucketBoundaries(0, 1, 3, 5, 10, 20),
	); err != nil {
		return nil, fmt.Errorf("failed to create search results histogram: %w", err)
	}

	if m.responseLength, err = meter.Int64Histogram(
		name("response_length_chars"),
		metric.WithDescription("Answer length in characters"),
		metric.WithExplicitBucketBoundaries(100, 500, 1000, 2000, 5000, 10000),
	); err != nil {
		return nil, fmt.Errorf("failed to create response length histogram: %w", err)
	}

	if m.llmInputTokens, err = meter.Int64Counter(
		name("llm_tokens_input_total"),
		metric.WithDescription("Input tokens sent to the generator"),
	); err != nil {
		return nil, fmt.Errorf("failed to create input token counter: %w", err)
	}

	if m.llmOutputTokens, err = meter.Int64Counter(
		name("llm_tokens_output_total"),
		metric.WithDescription("Output tokens received from the generator"),
	); err != nil {
		return nil, fmt.Errorf("failed to create output token counter: %w", err)
	}

	return m, nil
}

// RecordRequest records one completed request.
func (m *Metrics) RecordRequest(ctx context.Context, endpoint, language, status string, duration time.Duration) {
	if m == nil || m.requestsTotal == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.String("language", language),
		attribute.String("status", status),
	)
	m.requestsTotal.Add(ctx, 1, attrs)
	m.requestDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(attribute.String("endpoint", endpoint)))
}

// RecordCache records a cache lookup outcome for one cache type.
func (m *Metrics) RecordCache(ctx context.Context, cacheType string, hit bool) {
	if m == nil || m.cacheHits == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("cache_type", cacheType))
	if hit {
		m.cacheHits.Add(ctx, 1, attrs)
	} else {
		m.cacheMisses.Add(ctx, 1, attrs)
	}
}

// RequestStarted marks a request in flight; the returned func ends it.
func (m *Metrics) RequestStarted(ctx context.Context) func() {
	if m == nil || m.activeRequests == nil {
		return func() {}
	}
	m.activeRequests.Add(ctx, 1)
	return func() { m.activeRequests.Add(ctx, -1) }
}

// RecordError counts an error by type.
func (m *Metrics) RecordError(ctx context.Context, errorType string) {
	if m == nil || m.errorsTotal == nil {
		return
	}
	m.errorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("error_type", errorType)))
}

// RecordSearch records the fused result count of one search.
func (m *Metrics) RecordSearch(ctx context.Context, results int) {
	if m == nil || m.searchResults == nil {
		return
	}
	m.searchResults.Record(ctx, int64(results))
}

// RecordAnswer records the answer size and token usage.
func (m *Metrics) RecordAnswer(ctx context.Context, chars, inputTokens, outputTokens int) {
	if m == nil || m.responseLength == nil {
		return
	}
	m.responseLength.Record(ctx, int64(chars))
	if inputTokens > 0 {
		m.llmInputTokens.Add(ctx, int64(inputTokens))
	}
	if outputTokens > 0 {
		m.llmOutputTokens.Add(ctx, int64(outputTokens))
	}
}

