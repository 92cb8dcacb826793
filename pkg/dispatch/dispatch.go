// Copyright 2026 © The Quorum Authors
// SPDX-License-Identifier: Apache-2.0

// Package dispatch fans a batch of invocation requests out to agents under
// a concurrency limit and a batch deadline, and collects exactly one
// terminal outcome per request.
package dispatch

import (
	"context"
	"log/slog"

	"github.com/openquant/quorum/pkg/core"
	"github.com/openquant/quorum/pkg/errors"
	"github.com/openquant/quorum/pkg/profile"
)

// Dispatcher runs batches of invocations.
type Dispatcher struct {
	invoker  *Invoker
	profiles *profile.Store
	limit    int
	observer Observer
	logger   *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithConcurrencyLimit caps how many invocations run at once.
func WithConcurrencyLimit(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.limit = n
		}
	}
}

// WithObserver attaches a lifecycle observer.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) {
		if o != nil {
			d.observer = o
		}
	}
}

// WithLogger sets the dispatcher logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// DefaultConcurrencyLimit applies when no limit is configured.
const DefaultConcurrencyLimit = 3

// New creates a dispatcher over the given invoker and profile store.
func New(invoker *Invoker, profiles *profile.Store, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		invoker:  invoker,
		profiles: profiles,
		limit:    DefaultConcurrencyLimit,
		observer: NoopObserver{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// RunBatch executes all requests under the given concurrency limit and
// returns one outcome per request, in submission order. A limit of zero
// falls back to the configured default. Unknown agent names and duplicate
// request ids fail the whole batch before anything runs. Once dispatch
// starts, nothing fails: every request ends in exactly one terminal
// outcome, and when ctx expires mid-batch the requests still pending
// become Timeout outcomes while already-collected outcomes stand.
func (d *Dispatcher) RunBatch(ctx context.Context, requests []core.InvocationRequest, limit int) ([]core.InvocationOutcome, error) {
	if len(requests) == 0 {
		return nil, errors.New(errors.CodeInvalidInput, "batch contains no requests", nil)
	}
	if limit <= 0 {
		limit = d.limit
	}

	resolved := make([]*profile.Profile, len(requests))
	seen := make(map[string]bool, len(requests))
	for i, req := range requests {
		if req.RequestID == "" {
			return nil, errors.Newf(errors.CodeInvalidInput, "request %d has no id", i)
		}
		if seen[req.RequestID] {
			return nil, errors.Newf(errors.CodeInvalidInput, "duplicate request id %q", req.RequestID)
		}
		seen[req.RequestID] = true

		p, err := d.profiles.Get(req.AgentName)
		if err != nil {
			return nil, err
		}
		resolved[i] = p
	}

	batchID, _ := core.BatchID(ctx)
	d.logger.InfoContext(ctx, "dispatching batch",
		"batch_id", batchID,
		"requests", len(requests),
		"concurrency_limit", limit)

	results := make(chan core.InvocationOutcome, len(requests))
	sem := make(chan struct{}, limit)

	for i := range requests {
		req, p := requests[i], resolved[i]
		go func() {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				// Never started. The worker owns its request's terminal
				// outcome either way, so the collector never has to
				// synthesize one and can never displace a delivered result.
				results <- core.InvocationOutcome{
					RequestID: req.RequestID,
					AgentName: req.AgentName,
					Kind:      core.OutcomeTimeout,
					Message:   "batch deadline exceeded",
				}
				return
			}
			defer func() { <-sem }()

			d.observer.InvocationStarted(ctx, req)
			results <- d.invoker.Run(ctx, req, p)
		}()
	}

	return d.collect(ctx, requests, results), nil
}

// collect gathers exactly one outcome per request. Every worker sends one
// terminal outcome, already-running invocations are unblocked promptly by
// the invoker's timeout boundary when ctx expires, so this loop is bounded
// without watching ctx itself.
func (d *Dispatcher) collect(ctx context.Context, requests []core.InvocationRequest, results <-chan core.InvocationOutcome) []core.InvocationOutcome {
	byID := make(map[string]core.InvocationOutcome, len(requests))
	for range requests {
		outcome := <-results
		byID[outcome.RequestID] = outcome
		d.observer.InvocationFinished(ctx, outcome)
	}

	ordered := make([]core.InvocationOutcome, len(requests))
	for i, req := range requests {
		ordered[i] = byID[req.RequestID]
	}
	return ordered
}
