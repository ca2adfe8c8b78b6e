package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Span names for the answer pipeline stages.
const (
	SpanHTTPRequest = "http.request"
	SpanAnswer      = "rag.answer"
	SpanDetect      = "rag.detect_language"
	SpanTranslate   = "rag.translate"
	SpanAnalyze     = "rag.analyze"
	SpanPrefilter   = "rag.prefilter"
	SpanBM25        = "rag.bm25"
	SpanDense       = "rag.dense"
	SpanFuse        = "rag.fuse"
	SpanEnrich      = "rag.enrich"
	SpanGenerate    = "rag.generate"
)

// Attribute keys; GenAI keys follow the OpenTelemetry GenAI conventions.
const (
	AttrQueryLanguage  = "rag.query.language"
	AttrQueryIntent    = "rag.query.intent"
	AttrResultCount    = "rag.result_count"
	AttrStrategy       = "rag.prefilter.strategy"
	AttrGenAIModel     = "gen_ai.request.model"
	AttrGenAIMaxTokens = "gen_ai.request.max_tokens"
	AttrGenAIInTokens  = "gen_ai.usage.input_tokens"
	AttrGenAIOutTokens = "gen_ai.usage.output_tokens"
)

// Tracer wraps the OpenTelemetry tracer with pipeline-specific helpers.
// A nil *Tracer is valid and produces no-op spans, so call sites never
// branch on whether tracing is configured.
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// NewTracer builds a Tracer from configuration. Returns (nil, nil) when
// tracing is disabled.
func NewTracer(ctx context.Context, cfg *TracingConfig) (*Tracer, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}
	cfg.SetDefaults()

	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SamplingRate)),
		sdktrace.WithBatcher(exporter),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Tracer{
		provider: provider,
		tracer:   provider.Tracer(cfg.ServiceName),
	}, nil
}

func newExporter(ctx context.Context, cfg *TracingConfig) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case "stdout":
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	default:
		return newOTLPExporter(ctx, cfg)
	}
}

func newOTLPExporter(ctx context.Context, cfg *TracingConfig) (*otlptrace.Exporter, error) {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithTimeout(cfg.Timeout),
	}
	if cfg.IsInsecure() {
		opts = append(opts,
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
			otlptracegrpc.WithInsecure(),
		)
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(cfg.Headers))
	}
	return otlptracegrpc.New(ctx, opts...)
}

// Start begins a new span with the given name.
func (t *Tracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if t == nil || t.tracer == nil {
		return ctx, noopSpan()
	}
	return t.tracer.Start(ctx, name, opts...)
}

// StartAnswer begins the root span for one answered query.
func (t *Tracer) StartAnswer(ctx context.Context, language string) (context.Context, trace.Span) {
	return t.Start(ctx, SpanAnswer,
		trace.WithAttributes(attribute.String(AttrQueryLanguage, language)))
}

// StartStage begins a span for a named pipeline stage.
func (t *Tracer) StartStage(ctx context.Context, name string) (context.Context, trace.Span) {
	return t.Start(ctx, name)
}

// StartLLMCall begins a span for an LLM request.
func (t *Tracer) StartLLMCall(ctx context.Context, model string, maxTokens int) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String(AttrGenAIModel, model)}
	if maxTokens > 0 {
		attrs = append(attrs, attribute.Int(AttrGenAIMaxTokens, maxTokens))
	}
	return t.Start(ctx, SpanGenerate, trace.WithAttributes(attrs...))
}

// AddLLMUsage records token usage on a span.
func (t *Tracer) AddLLMUsage(span trace.Span, inputTokens, outputTokens int) {
	if span == nil {
		return
	}
	span.SetAttributes(
		attribute.Int(AttrGenAIInTokens, inputTokens),
		attribute.Int(AttrGenAIOutTokens, outputTokens),
	)
}

// AddResultCount records how many results a stage produced.
func (t *Tracer) AddResultCount(span trace.Span, n int) {
	if span == nil {
		return
	}
	span.SetAttributes(attribute.Int(AttrResultCount, n))
}

// RecordError records an error on a span.
func (t *Tracer) RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetAttributes(attribute.String("error.message", err.Error()))
}

// Shutdown flushes and stops the tracer provider.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t == nil || t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

func noopSpan() trace.Span {
	_, span := noop.NewTracerProvider().Tracer("noop").Start(context.Background(), "noop")
	return span
}
