package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcomes recorded on auth counters.
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeThrottled = "throttled"
	OutcomeError     = "error"
)

// AuthMetrics counts auth operations by outcome. The zero value and nil are no-ops.
type AuthMetrics struct {
	ops metric.Int64Counter
}

// NewAuthMetrics registers the ats.auth.operations counter on meter. A nil meter uses the global MeterProvider.
func NewAuthMetrics(meter metric.Meter) (*AuthMetrics, error) {
	if meter == nil {
		meter = otel.Meter("vyre/auth")
	}
	c, err := meter.Int64Counter("ats.auth.operations",
		metric.WithDescription("Auth operations by name and outcome"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}
	return &AuthMetrics{ops: c}, nil
}

// Record adds one to the counter for operation with the given outcome.
func (m *AuthMetrics) Record(ctx context.Context, operation, outcome string) {
	if m == nil || m.ops == nil {
		return
	}
	m.ops.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}
