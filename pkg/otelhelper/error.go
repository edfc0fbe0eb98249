package otelhelper

import (
	"errors"

	"github.com/dukex/blitz/pkg/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SetError marks span as failed. An ExecutionError also tags the span with its code and the
// node that raised it.
func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	var execErr *models.ExecutionError
	if errors.As(err, &execErr) {
		code := attribute.String(ErrorCodeKey, string(execErr.Code))
		span.SetAttributes(code)
		attrs = append(attrs, code)

		if execErr.NodeID != "" {
			attrs = append(attrs, NodeAttributes(execErr.NodeID, execErr.NodeType)...)
		}
	}

	span.RecordError(err, trace.WithAttributes(attrs...))
	span.SetStatus(codes.Error, err.Error())
}
