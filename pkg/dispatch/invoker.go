// Copyright 2026 © The Quorum Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/openquant/quorum/pkg/agent"
	"github.com/openquant/quorum/pkg/core"
	"github.com/openquant/quorum/pkg/errors"
	"github.com/openquant/quorum/pkg/governance"
	"github.com/openquant/quorum/pkg/profile"
	"github.com/openquant/quorum/pkg/resilience"
	"github.com/openquant/quorum/pkg/tools"
)

// Invoker runs single invocations to terminal outcomes. Each run gets a
// fresh toolbox scoped to the agent's profile, so call and denial records
// never leak between invocations.
type Invoker struct {
	executor agent.Executor
	enforcer *governance.Enforcer
	provider tools.Provider
}

// NewInvoker wires an executor to the governance and tool layers.
func NewInvoker(executor agent.Executor, enforcer *governance.Enforcer, provider tools.Provider) *Invoker {
	return &Invoker{executor: executor, enforcer: enforcer, provider: provider}
}

// Run executes one invocation under the profile's deadline and classifies
// the result. It always returns a terminal outcome; errors never escape.
func (iv *Invoker) Run(ctx context.Context, req core.InvocationRequest, p *profile.Profile) core.InvocationOutcome {
	toolbox := tools.NewToolbox(p, iv.enforcer, iv.provider)
	started := time.Now()

	payload, err := resilience.RunWithTimeout(ctx, p.MaxDuration, func(ctx context.Context) (map[string]any, error) {
		return iv.executor.Execute(ctx, agent.Invocation{
			Request: req,
			Profile: p,
			Toolbox: toolbox,
		})
	})
	duration := time.Since(started)

	if err != nil {
		return classifyFailure(req, toolbox, err, duration)
	}

	result, err := agent.ValidateAndParse(p, payload)
	if err != nil {
		// A payload that fails the output contract is an executor fault,
		// not a partial success.
		return core.InvocationOutcome{
			RequestID: req.RequestID,
			AgentName: req.AgentName,
			Kind:      core.OutcomeExecutorError,
			Duration:  duration,
			Message:   err.Error(),
		}
	}

	return core.InvocationOutcome{
		RequestID: req.RequestID,
		AgentName: req.AgentName,
		Kind:      core.OutcomeSuccess,
		Result:    result,
		Duration:  duration,
	}
}

// classifyFailure folds a terminal executor error into an outcome variant.
// A policy violation outcome requires the terminal error to carry the
// denial; a denial the agent recovered from stays a tool-level event.
func classifyFailure(req core.InvocationRequest, toolbox *tools.Toolbox, err error, duration time.Duration) core.InvocationOutcome {
	out := core.InvocationOutcome{
		RequestID: req.RequestID,
		AgentName: req.AgentName,
		Duration:  duration,
		Message:   err.Error(),
	}

	switch {
	case errors.HasCode(err, errors.CodeTimeout),
		stderrors.Is(err, context.DeadlineExceeded),
		stderrors.Is(err, context.Canceled):
		// Deadline expiry is a timeout whether the boundary fired or the
		// executor noticed the cancelled context itself.
		out.Kind = core.OutcomeTimeout
	case errors.HasCode(err, errors.CodePolicyViolation):
		out.Kind = core.OutcomePolicyViolation
		if tool, ok := errors.Attribute(err, "tool"); ok {
			out.ToolName = tool
		} else if denial, ok := toolbox.LastDenial(); ok {
			out.ToolName = denial.Tool
		}
	default:
		out.Kind = core.OutcomeExecutorError
	}
	return out
}
