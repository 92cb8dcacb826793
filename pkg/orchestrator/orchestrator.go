// Copyright 2026 © The Quorum Authors
// SPDX-License-Identifier: Apache-2.0

// Package orchestrator is the caller-facing surface: submit a batch of
// agent invocations, get back one composite signal plus the full outcome
// record. Everything below it (dispatch, governance, aggregation, audit)
// is wired here.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/openquant/quorum/pkg/aggregate"
	"github.com/openquant/quorum/pkg/audit"
	"github.com/openquant/quorum/pkg/core"
	"github.com/openquant/quorum/pkg/dispatch"
)

// BatchRequest describes one batch submission.
type BatchRequest struct {
	Requests []core.InvocationRequest

	// ConcurrencyLimit caps in-flight invocations for this batch. Zero
	// falls back to the dispatcher's configured limit.
	ConcurrencyLimit int

	// Deadline bounds the whole batch. Zero means no batch deadline;
	// per-invocation deadlines from the profiles still apply.
	Deadline time.Duration
}

// Summary aggregates counts for one finished batch.
type Summary struct {
	Total     int
	ByKind    map[core.OutcomeKind]int
	Agents    []string
	Elapsed   time.Duration
	Denials   int
	Abstained int
}

// BatchResult is the full record of one finished batch.
type BatchResult struct {
	BatchID  string
	Signal   aggregate.CompositeSignal
	Outcomes []core.InvocationOutcome
	Summary  Summary
}

// Orchestrator ties the dispatcher, aggregator, and audit store together.
type Orchestrator struct {
	dispatcher *dispatch.Dispatcher
	store      audit.Store
	logger     *slog.Logger
	tracer     trace.Tracer
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithAuditStore sets the outcome store. Defaults to in-memory.
func WithAuditStore(store audit.Store) Option {
	return func(o *Orchestrator) {
		if store != nil {
			o.store = store
		}
	}
}

// WithLogger sets the orchestrator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// New creates an orchestrator over the given dispatcher.
func New(dispatcher *dispatch.Dispatcher, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		dispatcher: dispatcher,
		store:      audit.NewMemoryStore(),
		logger:     slog.Default(),
		tracer:     otel.Tracer("quorum/orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SubmitBatch runs the batch to completion and aggregates the outcomes.
// Validation failures (unknown agents, duplicate ids, empty batch) return
// an error before anything runs; after dispatch starts the batch always
// completes with one outcome per request.
func (o *Orchestrator) SubmitBatch(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	ctx, batchID := core.EnsureBatchID(ctx)
	if req.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Deadline)
		defer cancel()
	}

	ctx, span := o.tracer.Start(ctx, "quorum.batch", trace.WithAttributes(
		attribute.String("batch.id", batchID),
		attribute.Int("batch.requests", len(req.Requests)),
	))
	defer span.End()

	started := time.Now()
	outcomes, err := o.dispatcher.RunBatch(ctx, req.Requests, req.ConcurrencyLimit)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	elapsed := time.Since(started)

	signal := aggregate.Aggregate(outcomes)
	o.recordOutcomes(ctx, batchID, outcomes)

	result := &BatchResult{
		BatchID:  batchID,
		Signal:   signal,
		Outcomes: outcomes,
		Summary:  summarize(outcomes, signal, elapsed),
	}

	o.logger.InfoContext(ctx, "batch complete",
		"batch_id", batchID,
		"sentiment", string(signal.Sentiment),
		"confidence", signal.Confidence,
		"contributions", len(signal.Contributions),
		"abstentions", len(signal.Abstentions),
		"elapsed", elapsed)
	return result, nil
}

// Audit exposes the outcome store for post-hoc queries.
func (o *Orchestrator) Audit() audit.Store { return o.store }

// recordOutcomes persists the batch. Audit failures are logged, never
// surfaced: the batch result is already final.
func (o *Orchestrator) recordOutcomes(ctx context.Context, batchID string, outcomes []core.InvocationOutcome) {
	for _, outcome := range outcomes {
		if err := o.store.Record(ctx, audit.FromOutcome(batchID, outcome)); err != nil {
			o.logger.WarnContext(ctx, "audit record failed",
				"batch_id", batchID,
				"request_id", outcome.RequestID,
				"error", err)
		}
	}
}

func summarize(outcomes []core.InvocationOutcome, signal aggregate.CompositeSignal, elapsed time.Duration) Summary {
	summary := Summary{
		Total:     len(outcomes),
		ByKind:    make(map[core.OutcomeKind]int, 4),
		Elapsed:   elapsed,
		Abstained: len(signal.Abstentions),
	}
	seen := make(map[string]bool, len(outcomes))
	for _, outcome := range outcomes {
		summary.ByKind[outcome.Kind]++
		if outcome.Kind == core.OutcomePolicyViolation {
			summary.Denials++
		}
		if !seen[outcome.AgentName] {
			seen[outcome.AgentName] = true
			summary.Agents = append(summary.Agents, outcome.AgentName)
		}
	}
	return summary
}
