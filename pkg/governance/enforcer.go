// Copyright 2026 © The Quorum Authors
// SPDX-License-Identifier: Apache-2.0

// Package governance decides whether a subagent may call a tool. The check
// runs on every attempted call, not once per invocation: which tools an
// agent will reach for is not known ahead of execution, so the enforcer
// behaves like a capability-scoped sandbox rather than a precondition.
package governance

import (
	"context"
	"fmt"

	"github.com/openquant/quorum/pkg/errors"
	"github.com/openquant/quorum/pkg/profile"
	"github.com/openquant/quorum/pkg/registry"
)

// Decision captures the outcome of authorizing one tool call.
type Decision struct {
	Allowed    bool
	Reason     string
	Capability registry.Capability
}

// Enforcer authorizes tool calls against agent profiles.
type Enforcer struct {
	registry *registry.Registry
}

// NewEnforcer creates an enforcer backed by the given tool registry.
func NewEnforcer(reg *registry.Registry) *Enforcer {
	return &Enforcer{registry: reg}
}

// Authorize evaluates one tool call for one agent. Precedence:
//
//  1. Unregistered tool: deny.
//  2. Capability in the profile's denied set: deny, even when an allow
//     pattern matches the tool name.
//  3. Tool name matches an allow pattern: allow.
//  4. Otherwise: deny.
//
// A denial is terminal for the call, never for the invocation: the caller
// surfaces it to the executing agent as a failed tool call.
func (e *Enforcer) Authorize(_ context.Context, p *profile.Profile, toolName string) Decision {
	capability, err := e.registry.Resolve(toolName)
	if err != nil {
		return Decision{Reason: fmt.Sprintf("tool %q is not registered", toolName)}
	}
	if p.DeniesCapability(capability) {
		return Decision{
			Capability: capability,
			Reason:     fmt.Sprintf("capability %s is denied for agent %s", capability, p.Name),
		}
	}
	if p.MatchesTool(toolName) {
		return Decision{Allowed: true, Capability: capability}
	}
	return Decision{
		Capability: capability,
		Reason:     fmt.Sprintf("tool %q is not in the allow-list of agent %s", toolName, p.Name),
	}
}

// Err converts a denial into a typed policy error for the named tool.
// Calling Err on an allowed decision is a programming error.
func (d Decision) Err(toolName string) error {
	return errors.New(errors.CodePolicyViolation, d.Reason, nil).
		WithAttribute("tool", toolName).
		WithAttribute("capability", string(d.Capability))
}
