// SPDX-License-Identifier: Apache-2.0

// Package profile holds the declarative subagent definitions: which tools an
// agent may touch, which capabilities it can never use, and the shape of the
// payload it must produce. Profiles are loaded once at startup, validated
// against the tool registry, and shared read-only across invocations.
package profile

import (
	"path"
	"sort"
	"time"

	"github.com/kaptinlin/jsonschema"

	"github.com/openquant/quorum/pkg/errors"
	"github.com/openquant/quorum/pkg/registry"
)

// Profile describes one subagent. Immutable after load.
type Profile struct {
	Name         string
	Description  string
	SystemPrompt string

	// AllowedToolPatterns are glob patterns matched against tool names.
	AllowedToolPatterns []string

	// DeniedCapabilities are capability tags this agent can never use,
	// enforced even when a tool pattern would otherwise match.
	DeniedCapabilities []registry.Capability

	// MaxDuration is the hard per-invocation deadline.
	MaxDuration time.Duration

	// MaxContextTokens bounds the prompt budget handed to the executor.
	MaxContextTokens int

	// Schema validates the terminal payload of a successful invocation.
	Schema *jsonschema.Schema
}

// DeniesCapability reports whether the profile forbids the capability.
func (p *Profile) DeniesCapability(capability registry.Capability) bool {
	for _, denied := range p.DeniedCapabilities {
		if denied == capability {
			return true
		}
	}
	return false
}

// MatchesTool reports whether the tool name matches any allow pattern.
func (p *Profile) MatchesTool(toolName string) bool {
	for _, pattern := range p.AllowedToolPatterns {
		if ok, err := path.Match(pattern, toolName); err == nil && ok {
			return true
		}
		if pattern == toolName {
			return true
		}
	}
	return false
}

// Store resolves agent names to profiles. Read-only after NewStore.
type Store struct {
	profiles map[string]*Profile
}

// NewStore validates profiles against the registry's capability set and
// builds the lookup store. Validation failures are configuration errors
// and abort the load; they are never deferred to call time.
func NewStore(profiles []Profile) (*Store, error) {
	known := registry.KnownCapabilities()
	out := make(map[string]*Profile, len(profiles))
	for i := range profiles {
		p := profiles[i]
		if p.Name == "" {
			return nil, errors.New(errors.CodeInvalidInput, "agent profile requires a name", nil)
		}
		if _, exists := out[p.Name]; exists {
			return nil, errors.Newf(errors.CodeInvalidInput, "duplicate agent profile %q", p.Name)
		}
		// An agent with zero usable tools is a deployment defect.
		if len(p.AllowedToolPatterns) == 0 {
			return nil, errors.Newf(errors.CodeInvalidInput, "agent %q has no allowed tool patterns", p.Name)
		}
		for _, pattern := range p.AllowedToolPatterns {
			if _, err := path.Match(pattern, "probe"); err != nil {
				return nil, errors.Newf(errors.CodeInvalidInput, "agent %q has malformed tool pattern %q", p.Name, pattern)
			}
		}
		for _, capability := range p.DeniedCapabilities {
			if !known[capability] {
				return nil, errors.Newf(errors.CodeInvalidInput, "agent %q denies unknown capability %q", p.Name, capability)
			}
		}
		if p.MaxDuration <= 0 {
			p.MaxDuration = DefaultMaxDuration
		}
		if p.MaxContextTokens <= 0 {
			p.MaxContextTokens = DefaultMaxContextTokens
		}
		if p.Schema == nil {
			p.Schema = DefaultOutputSchema()
		}
		out[p.Name] = &p
	}
	return &Store{profiles: out}, nil
}

// Get returns the profile for an agent name.
func (s *Store) Get(agentName string) (*Profile, error) {
	p, ok := s.profiles[agentName]
	if !ok {
		return nil, errors.Newf(errors.CodeUnknownAgent, "no profile for agent %q", agentName).
			WithAttribute("agent", agentName)
	}
	return p, nil
}

// Names returns all agent names, sorted.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.profiles))
	for name := range s.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of profiles in the store.
func (s *Store) Len() int { return len(s.profiles) }

const (
	// DefaultMaxDuration applies when a profile declares no deadline.
	DefaultMaxDuration = 90 * time.Second

	// DefaultMaxContextTokens applies when a profile declares no budget.
	DefaultMaxContextTokens = 32_000
)
