// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"log/slog"

	"github.com/dukex/blitz/pkg/credentials"
	"github.com/dukex/blitz/pkg/otelhelper"
	"github.com/dukex/blitz/pkg/registry"
	"go.opentelemetry.io/otel/trace"
)

// NewRegistry returns a registry holding the four pipeline role descriptors.
func NewRegistry(log *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(log)
	reg.RegisterDefaultNodes()

	return reg
}

// NewCredentialStore creates the AES credential store keyed by secret.
func NewCredentialStore(secret string) (*credentials.AESStore, error) {
	return credentials.NewAESStore(secret)
}

// NewTracer exports sampleRatio of the traces over OTLP when enabled and returns a no-op
// tracer otherwise.
//
// nolint:ireturn // Returning interface is intentional for OpenTelemetry tracing
func NewTracer(ctx context.Context, enabled bool, serviceName string, sampleRatio float64) (trace.Tracer, otelhelper.ShutdownFunc, error) {
	if !enabled {
		return otelhelper.NoopTracer(), func(context.Context) error { return nil }, nil
	}

	return otelhelper.NewTracer(ctx, serviceName, otelhelper.WithSampleRatio(sampleRatio))
}
