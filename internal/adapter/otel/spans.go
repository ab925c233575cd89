package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "nurtura"

// StartPipelineSpan starts a span for one full pipeline run.
func StartPipelineSpan(ctx context.Context, taskID, userID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "pipeline",
		trace.WithAttributes(
			attribute.String("task.id", taskID),
			attribute.String("user.id", userID),
		),
	)
}

// StartStageSpan starts a span for a single pipeline stage.
func StartStageSpan(ctx context.Context, taskID, stage string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "stage",
		trace.WithAttributes(
			attribute.String("task.id", taskID),
			attribute.String("stage.name", stage),
		),
	)
}
