package tools

import (
	"context"
	"sync"

	"github.com/openquant/quorum/pkg/governance"
	"github.com/openquant/quorum/pkg/profile"
	"github.com/openquant/quorum/pkg/registry"
	"github.com/openquant/quorum/pkg/resilience"
)

// Denial records one denied tool call.
type Denial struct {
	Tool       string
	Capability registry.Capability
	Reason     string
}

// Toolbox is the capability-scoped tool surface handed to one invocation.
// Every call is authorized against the owning profile before dispatch, so
// policy holds regardless of what the executing agent attempts. A Toolbox
// is created fresh per invocation and never shared.
type Toolbox struct {
	profile  *profile.Profile
	enforcer *governance.Enforcer
	provider Provider
	retry    resilience.RetryConfig

	mu      sync.Mutex
	calls   int
	denials []Denial
}

// ToolboxOption configures a Toolbox.
type ToolboxOption func(*Toolbox)

// WithRetry overrides the retry policy for provider calls.
func WithRetry(rc resilience.RetryConfig) ToolboxOption {
	return func(tb *Toolbox) { tb.retry = rc }
}

// NewToolbox scopes a provider to one agent profile.
func NewToolbox(p *profile.Profile, enforcer *governance.Enforcer, provider Provider, opts ...ToolboxOption) *Toolbox {
	tb := &Toolbox{
		profile:  p,
		enforcer: enforcer,
		provider: provider,
		retry:    resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(tb)
	}
	return tb
}

// Call authorizes and executes one tool call. A denial returns a policy
// error the agent can observe and route around; it never aborts the
// invocation by itself and is never retried. Transient provider failures
// are retried under the toolbox retry policy before surfacing.
func (tb *Toolbox) Call(ctx context.Context, name string, args map[string]any) (any, error) {
	tb.mu.Lock()
	tb.calls++
	tb.mu.Unlock()

	decision := tb.enforcer.Authorize(ctx, tb.profile, name)
	if !decision.Allowed {
		tb.mu.Lock()
		tb.denials = append(tb.denials, Denial{
			Tool:       name,
			Capability: decision.Capability,
			Reason:     decision.Reason,
		})
		tb.mu.Unlock()
		return nil, decision.Err(name)
	}

	tool, ok := tb.provider.Get(name)
	if !ok {
		return nil, ErrNotFound(name)
	}

	var out any
	err := tb.retry.Do(ctx, func() error {
		var callErr error
		out, callErr = tool.Call(ctx, args)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Visible returns the provider tools this profile could be allowed to
// call, for advertising a tool surface to the executor. Visibility is
// advisory only: Call re-authorizes every attempt.
func (tb *Toolbox) Visible(ctx context.Context) []Tool {
	var visible []Tool
	for _, name := range tb.provider.Names() {
		if !tb.enforcer.Authorize(ctx, tb.profile, name).Allowed {
			continue
		}
		if tool, ok := tb.provider.Get(name); ok {
			visible = append(visible, tool)
		}
	}
	return visible
}

// Calls returns how many tool calls were attempted.
func (tb *Toolbox) Calls() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.calls
}

// Denials returns the denied calls in attempt order.
func (tb *Toolbox) Denials() []Denial {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	out := make([]Denial, len(tb.denials))
	copy(out, tb.denials)
	return out
}

// LastDenial returns the most recent denial, if any.
func (tb *Toolbox) LastDenial() (Denial, bool) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	if len(tb.denials) == 0 {
		return Denial{}, false
	}
	return tb.denials[len(tb.denials)-1], true
}
