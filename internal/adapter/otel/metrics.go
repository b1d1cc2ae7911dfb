package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "frankie"

// Metrics holds all orchestrator metric instruments.
type Metrics struct {
	TasksCreated   metric.Int64Counter
	TasksApplied   metric.Int64Counter
	TasksRejected  metric.Int64Counter
	TasksFailed    metric.Int64Counter
	Decisions      metric.Int64Counter
	HandlerSeconds metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.TasksCreated, err = meter.Int64Counter("frankie.tasks.created",
		metric.WithDescription("Number of tasks created"))
	if err != nil {
		return nil, err
	}

	m.TasksApplied, err = meter.Int64Counter("frankie.tasks.applied",
		metric.WithDescription("Number of tasks approved and applied"))
	if err != nil {
		return nil, err
	}

	m.TasksRejected, err = meter.Int64Counter("frankie.tasks.rejected",
		metric.WithDescription("Number of tasks rejected at review"))
	if err != nil {
		return nil, err
	}

	m.TasksFailed, err = meter.Int64Counter("frankie.tasks.failed",
		metric.WithDescription("Number of tasks that ended in error"))
	if err != nil {
		return nil, err
	}

	m.Decisions, err = meter.Int64Counter("frankie.decisions",
		metric.WithDescription("Number of review decisions received"))
	if err != nil {
		return nil, err
	}

	m.HandlerSeconds, err = meter.Float64Histogram("frankie.handler.duration_seconds",
		metric.WithDescription("Plugin handler duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
