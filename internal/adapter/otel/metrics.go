package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "nurtura"

// Metrics holds all pipeline metric instruments.
type Metrics struct {
	TasksStarted   metric.Int64Counter
	TasksCompleted metric.Int64Counter
	TasksFailed    metric.Int64Counter
	StageDuration  metric.Float64Histogram
	TaskCostCents  metric.Int64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.TasksStarted, err = meter.Int64Counter("nurtura.tasks.started",
		metric.WithDescription("Number of pipeline tasks started"))
	if err != nil {
		return nil, err
	}

	m.TasksCompleted, err = meter.Int64Counter("nurtura.tasks.completed",
		metric.WithDescription("Number of pipeline tasks completed"))
	if err != nil {
		return nil, err
	}

	m.TasksFailed, err = meter.Int64Counter("nurtura.tasks.failed",
		metric.WithDescription("Number of pipeline tasks failed"))
	if err != nil {
		return nil, err
	}

	m.StageDuration, err = meter.Float64Histogram("nurtura.stage.duration_seconds",
		metric.WithDescription("Stage execution time in seconds"))
	if err != nil {
		return nil, err
	}

	m.TaskCostCents, err = meter.Int64Histogram("nurtura.task.cost_cents",
		metric.WithDescription("Total task cost in cents"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
