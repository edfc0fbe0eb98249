// Package otelhelper provides distributed tracing for pipeline executions.
package otelhelper

import (
	"context"
	"fmt"

	"github.com/dukex/blitz/pkg/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otlptracehttp "go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	WorkflowIDKey  = "blitz.workflow.id"
	BusinessIDKey  = "blitz.business.id"
	ExecutionIDKey = "blitz.execution.id"
	NodeIDKey      = "blitz.node.id"
	NodeRoleKey    = "blitz.node.role"
	IntentKey      = "blitz.intent"
	MethodKey      = "blitz.method"
	ModuleTypeKey  = "blitz.module.type"
	ErrorCodeKey   = "blitz.error.code"
	SuccessKey     = "blitz.success"
)

// ShutdownFunc flushes and stops a tracer provider.
type ShutdownFunc func(ctx context.Context) error

// Option tunes the tracer provider created by NewTracer.
type Option func(*settings)

type settings struct {
	sampleRatio float64
	version     string
}

// WithSampleRatio samples the given fraction of new traces. Child spans follow their parent.
func WithSampleRatio(ratio float64) Option {
	return func(s *settings) {
		s.sampleRatio = ratio
	}
}

// WithServiceVersion adds service.version to the exported resource.
func WithServiceVersion(version string) Option {
	return func(s *settings) {
		s.version = version
	}
}

// NewTracer exports spans over OTLP/HTTP. The exporter reads the standard OTEL_EXPORTER_OTLP_*
// environment variables.
//
// nolint:ireturn // Returning interface is intentional for OpenTelemetry tracing
func NewTracer(ctx context.Context, serviceName string, opts ...Option) (trace.Tracer, ShutdownFunc, error) {
	s := settings{sampleRatio: 1}
	for _, opt := range opts {
		opt(&s)
	}

	res, err := serviceResource(serviceName, s.version)
	if err != nil {
		return nil, nil, fmt.Errorf("tracing resource: %w", err)
	}

	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("otlp exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(s.sampleRatio))),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return provider.Tracer(serviceName), provider.Shutdown, nil
}

func serviceResource(serviceName, version string) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{semconv.ServiceName(serviceName)}
	if version != "" {
		attrs = append(attrs, semconv.ServiceVersion(version))
	}

	return resource.Merge(resource.Default(), resource.NewWithAttributes(semconv.SchemaURL, attrs...))
}

// NoopTracer returns a tracer that records nothing.
//
// nolint:ireturn // Returning interface is intentional for OpenTelemetry tracing
func NoopTracer() trace.Tracer {
	return noop.NewTracerProvider().Tracer("blitz")
}

// nolint:ireturn,spancheck // Returning interface is intentional for OpenTelemetry tracing
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// ExecutionAttributes identifies the run of execCtx against workflowID.
func ExecutionAttributes(execCtx *models.ExecutionContext, workflowID string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(ExecutionIDKey, execCtx.ExecutionID()),
		attribute.String(WorkflowIDKey, workflowID),
		attribute.String(BusinessIDKey, execCtx.BusinessID()),
	}
}

func NodeAttributes(nodeID string, role models.NodeRole) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(NodeIDKey, nodeID),
		attribute.String(NodeRoleKey, string(role)),
	}
}
