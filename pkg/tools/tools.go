// Package tools defines the tool surface agents execute against. Providers
// hold concrete tools; a Toolbox scopes a provider to one agent's profile
// and authorizes every call through the policy enforcer.
package tools

import (
	"context"
	"sort"
	"sync"

	"github.com/openquant/quorum/pkg/errors"
)

// Tool is a concrete callable capability, typically backed by MCP.
type Tool interface {
	Name() string
	Description() string
	Call(ctx context.Context, args map[string]any) (any, error)
}

// Provider exposes a set of tools by name.
type Provider interface {
	Get(name string) (Tool, bool)
	Names() []string
}

// Func adapts a plain function to the Tool interface.
type Func struct {
	ToolName string
	Desc     string
	Fn       func(ctx context.Context, args map[string]any) (any, error)
}

func (f Func) Name() string        { return f.ToolName }
func (f Func) Description() string { return f.Desc }

func (f Func) Call(ctx context.Context, args map[string]any) (any, error) {
	return f.Fn(ctx, args)
}

// StaticProvider is a fixed in-memory tool set.
type StaticProvider struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewStatic creates a provider from the given tools.
func NewStatic(ts ...Tool) *StaticProvider {
	p := &StaticProvider{tools: make(map[string]Tool, len(ts))}
	for _, t := range ts {
		p.tools[t.Name()] = t
	}
	return p
}

// Register adds or replaces a tool.
func (p *StaticProvider) Register(t Tool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tools[t.Name()] = t
}

// Get returns the named tool.
func (p *StaticProvider) Get(name string) (Tool, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	t, ok := p.tools[name]
	return t, ok
}

// Names returns all tool names, sorted.
func (p *StaticProvider) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.tools))
	for name := range p.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ErrNotFound builds the error returned when a provider has no such tool.
// Provider-side gaps surface to the agent as ordinary tool failures, not
// orchestrator faults.
func ErrNotFound(name string) error {
	return errors.Newf(errors.CodeToolFailure, "tool %q is not available from the provider", name).
		WithAttribute("tool", name)
}
