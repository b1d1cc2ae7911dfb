package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "frankie"

// StartTaskSpan starts a span covering one orchestrator drive of a task.
func StartTaskSpan(ctx context.Context, taskID, pluginID, event string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "task.drive",
		trace.WithAttributes(
			attribute.String("task.id", taskID),
			attribute.String("task.plugin", pluginID),
			attribute.String("task.event", event),
		),
	)
}

// StartHandlerSpan starts a span for one plugin handler invocation.
func StartHandlerSpan(ctx context.Context, taskID, status string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "plugin.handle",
		trace.WithAttributes(
			attribute.String("task.id", taskID),
			attribute.String("task.status", status),
		),
	)
}
