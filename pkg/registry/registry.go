// Package registry maps tool names to coarse capability tags used for
// policy decisions. The mapping is built once at startup and read-only
// afterwards, so lookups need no locking.
package registry

import (
	"sort"

	"github.com/openquant/quorum/pkg/errors"
)

// Capability classifies what a tool permits, independent of its exact name.
type Capability string

const (
	CapabilityReadMarketData Capability = "read-market-data"
	CapabilityReadAccount    Capability = "read-account"
	CapabilityExecuteTrade   Capability = "execute-trade"
	CapabilityResearch       Capability = "research"
	CapabilityCompute        Capability = "compute"
)

// KnownCapabilities returns the set of capability tags the registry accepts.
func KnownCapabilities() map[Capability]bool {
	return map[Capability]bool{
		CapabilityReadMarketData: true,
		CapabilityReadAccount:    true,
		CapabilityExecuteTrade:   true,
		CapabilityResearch:       true,
		CapabilityCompute:        true,
	}
}

// Registry resolves tool names to capability tags.
type Registry struct {
	tools map[string]Capability
}

// New builds a registry from a tool-to-capability mapping. Unknown
// capability tags are a configuration error.
func New(tools map[string]Capability) (*Registry, error) {
	known := KnownCapabilities()
	out := make(map[string]Capability, len(tools))
	for name, capability := range tools {
		if name == "" {
			return nil, errors.New(errors.CodeInvalidInput, "tool name must not be empty", nil)
		}
		if !known[capability] {
			return nil, errors.Newf(errors.CodeInvalidInput, "tool %s has unknown capability %q", name, capability)
		}
		out[name] = capability
	}
	return &Registry{tools: out}, nil
}

// Resolve returns the capability tag for a tool name.
func (r *Registry) Resolve(toolName string) (Capability, error) {
	capability, ok := r.tools[toolName]
	if !ok {
		return "", errors.Newf(errors.CodeUnknownTool, "tool %q is not registered", toolName).
			WithAttribute("tool", toolName)
	}
	return capability, nil
}

// Has reports whether the tool name is registered.
func (r *Registry) Has(toolName string) bool {
	_, ok := r.tools[toolName]
	return ok
}

// ToolNames returns all registered tool names, sorted.
func (r *Registry) ToolNames() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.tools) }
