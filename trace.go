package fetchq

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// startSpan opens a span on the scheduler's tracer. With the default
// noop tracer this keeps call sites uniform at no cost.
func (s *Scheduler) startSpan(ctx context.Context, spanName string, keyValues ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, spanName)
	span.SetAttributes(keyValues...)

	return ctx, span
}
