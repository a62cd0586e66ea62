package license

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName identifies this package's meter.
const MeterName = "license"

// Metrics holds the license-specific OpenTelemetry instruments.
type Metrics struct {
	IssueAttempts      metric.Int64Counter
	IssueFailures      metric.Int64Counter
	ValidationAttempts metric.Int64Counter
	ValidationGrants   metric.Int64Counter
	ValidationDenials  metric.Int64Counter
	ValidationDuration metric.Float64Histogram
	DeviceBindings     metric.Int64Counter
}

// InitializeMetrics creates the license instruments on the given meter.
func InitializeMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.IssueAttempts, err = meter.Int64Counter(
		"license_issue_attempts_total",
		metric.WithDescription("Total license issuance attempts"),
	); err != nil {
		return nil, err
	}

	if m.IssueFailures, err = meter.Int64Counter(
		"license_issue_failures_total",
		metric.WithDescription("License issuance attempts that failed"),
	); err != nil {
		return nil, err
	}

	if m.ValidationAttempts, err = meter.Int64Counter(
		"license_validation_attempts_total",
		metric.WithDescription("Total license validation requests"),
	); err != nil {
		return nil, err
	}

	if m.ValidationGrants, err = meter.Int64Counter(
		"license_validation_grants_total",
		metric.WithDescription("Validation requests that were granted"),
	); err != nil {
		return nil, err
	}

	if m.ValidationDenials, err = meter.Int64Counter(
		"license_validation_denials_total",
		metric.WithDescription("Validation requests denied, labeled by reason"),
	); err != nil {
		return nil, err
	}

	if m.ValidationDuration, err = meter.Float64Histogram(
		"license_validation_duration_seconds",
		metric.WithDescription("Validation request duration"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.DeviceBindings, err = meter.Int64Counter(
		"license_device_bindings_total",
		metric.WithDescription("New device bindings persisted"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordDecision records the outcome counters for one validation decision.
func (m *Metrics) RecordDecision(ctx context.Context, d Decision, seconds float64) {
	if m == nil {
		return
	}
	m.ValidationAttempts.Add(ctx, 1)
	m.ValidationDuration.Record(ctx, seconds)
	if d.Valid {
		m.ValidationGrants.Add(ctx, 1)
		if d.NewBinding {
			m.DeviceBindings.Add(ctx, 1)
		}
		return
	}
	m.ValidationDenials.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", d.Reason),
	))
}
