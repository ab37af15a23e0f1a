// Package telemetry provides OpenTelemetry distributed tracing for Recourse.
// It instruments the recommendation pipeline with spans for each stage,
// supports W3C Trace Context propagation, and exports to OTLP or stdout.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/Siddhant-K-code/recourse"

// Config holds tracing configuration.
type Config struct {
	// Enabled turns tracing on/off.
	Enabled bool

	// Exporter selects the trace exporter: "otlp", "stdout", or "none".
	Exporter string

	// Endpoint is the OTLP collector address (e.g., "localhost:4317").
	Endpoint string

	// SampleRate controls the sampling ratio (0.0 to 1.0).
	// 1.0 = sample everything, 0.1 = sample 10%.
	SampleRate float64

	// ServiceName overrides the default service name.
	ServiceName string

	// Insecure disables TLS for the OTLP exporter.
	Insecure bool
}

// DefaultConfig returns tracing defaults (disabled).
func DefaultConfig() Config {
	return Config{
		Enabled:     false,
		Exporter:    "otlp",
		Endpoint:    "localhost:4317",
		SampleRate:  1.0,
		ServiceName: "recourse",
		Insecure:    true,
	}
}

// Provider wraps the OTEL TracerProvider and exposes Recourse-specific helpers.
type Provider struct {
	tp     *sdktrace.TracerProvider
	tracer trace.Tracer
}

// Noop returns a provider whose spans are never recorded or exported.
// It lets pipeline code trace unconditionally.
func Noop() *Provider {
	return &Provider{
		tracer: trace.NewNoopTracerProvider().Tracer(tracerName),
	}
}

// Init sets up the global TracerProvider based on the config.
// Returns a Provider that must be shut down with Shutdown().
func Init(ctx context.Context, cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return Noop(), nil
	}

	var exporter sdktrace.SpanExporter
	var err error

	switch cfg.Exporter {
	case "otlp":
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(cfg.Endpoint),
		}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err = otlptracegrpc.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
		}
	case "none", "":
		return Noop(), nil
	default:
		return nil, fmt.Errorf("unsupported exporter: %q (supported: otlp, stdout, none)", cfg.Exporter)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion("0.1.0"),
		),
		resource.WithProcessRuntimeDescription(),
		resource.WithHost(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	sampler := sdktrace.AlwaysSample()
	if cfg.SampleRate < 1.0 {
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	// Set global provider and propagator
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Provider{
		tp:     tp,
		tracer: tp.Tracer(tracerName),
	}, nil
}

// Shutdown flushes pending spans and shuts down the provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tp == nil {
		return nil
	}
	return p.tp.Shutdown(ctx)
}

// Tracer returns the Recourse tracer for creating spans.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// --- Span helpers for pipeline stages ---

// StartRequest creates a root span for an incoming HTTP request.
func (p *Provider) StartRequest(ctx context.Context, endpoint string) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "recourse.request",
		trace.WithAttributes(attribute.String("recourse.endpoint", endpoint)),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// StartProfile creates a span for the user profile synthesis stage.
func (p *Provider) StartProfile(ctx context.Context, likedCount int, difficulty string) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "recourse.profile",
		trace.WithAttributes(
			attribute.Int("recourse.profile.liked_count", likedCount),
			attribute.String("recourse.profile.difficulty", difficulty),
		),
	)
}

// StartRanking creates a span for the scoring and ranking stage.
func (p *Provider) StartRanking(ctx context.Context, candidateCount, limit int) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "recourse.ranking",
		trace.WithAttributes(
			attribute.Int("recourse.ranking.candidate_count", candidateCount),
			attribute.Int("recourse.ranking.limit", limit),
		),
	)
}

// StartTraining creates a span for a full model training run.
func (p *Provider) StartTraining(ctx context.Context, courseCount int) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "recourse.training",
		trace.WithAttributes(attribute.Int("recourse.training.course_count", courseCount)),
	)
}

// StartElbow creates a span for the cluster-count sweep.
func (p *Provider) StartElbow(ctx context.Context, kMin, kMax int) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "recourse.elbow",
		trace.WithAttributes(
			attribute.Int("recourse.elbow.k_min", kMin),
			attribute.Int("recourse.elbow.k_max", kMax),
		),
	)
}

// StartCacheLookup creates a span for a cache lookup.
func (p *Provider) StartCacheLookup(ctx context.Context, key string) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "recourse.cache.lookup",
		trace.WithAttributes(attribute.String("recourse.cache.key", key)),
	)
}

// RecordResult adds recommendation result attributes to a span.
func RecordResult(span trace.Span, served, userCluster int, topScore float64, latency time.Duration) {
	span.SetAttributes(
		attribute.Int("recourse.result.served", served),
		attribute.Int("recourse.result.user_cluster", userCluster),
		attribute.Int64("recourse.result.latency_ms", latency.Milliseconds()),
	)
	if served > 0 {
		span.SetAttributes(attribute.Float64("recourse.result.top_score", topScore))
	}
}

// RecordError records an error on a span.
func RecordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetAttributes(attribute.Bool("error", true))
}
