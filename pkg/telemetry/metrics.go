// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/openquant/quorum/pkg/core"
)

// BatchMetrics tracks invocation outcomes for production monitoring. It
// implements the dispatcher's Observer interface.
type BatchMetrics struct {
	// outcomeCounter counts terminal outcomes by agent and kind.
	outcomeCounter metric.Int64Counter

	// denialCounter counts policy-violation outcomes by agent and tool.
	denialCounter metric.Int64Counter

	// durationHistogram tracks invocation wall time in milliseconds.
	durationHistogram metric.Float64Histogram
}

// NewBatchMetrics creates the invocation metrics instruments.
func NewBatchMetrics() (*BatchMetrics, error) {
	meter := otel.Meter("quorum/dispatch")

	outcomeCounter, err := meter.Int64Counter(
		"quorum.invocations.total",
		metric.WithDescription("Terminal invocation outcomes by agent and kind"),
	)
	if err != nil {
		return nil, err
	}

	denialCounter, err := meter.Int64Counter(
		"quorum.denials.total",
		metric.WithDescription("Policy-violation outcomes by agent and denied tool"),
	)
	if err != nil {
		return nil, err
	}

	durationHistogram, err := meter.Float64Histogram(
		"quorum.invocation.duration",
		metric.WithDescription("Invocation wall time"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &BatchMetrics{
		outcomeCounter:    outcomeCounter,
		denialCounter:     denialCounter,
		durationHistogram: durationHistogram,
	}, nil
}

// InvocationStarted is a no-op; only terminal outcomes are recorded.
func (m *BatchMetrics) InvocationStarted(context.Context, core.InvocationRequest) {}

// InvocationFinished records the terminal outcome.
func (m *BatchMetrics) InvocationFinished(ctx context.Context, outcome core.InvocationOutcome) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("agent", outcome.AgentName),
		attribute.String("kind", string(outcome.Kind)),
	)
	m.outcomeCounter.Add(ctx, 1, attrs)
	m.durationHistogram.Record(ctx, float64(outcome.Duration.Milliseconds()), attrs)

	if outcome.Kind == core.OutcomePolicyViolation {
		m.denialCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("agent", outcome.AgentName),
			attribute.String("tool", outcome.ToolName),
		))
	}
}
