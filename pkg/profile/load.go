package profile

import (
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/openquant/quorum/pkg/errors"
	"github.com/openquant/quorum/pkg/registry"
)

// Definitions is the on-disk shape of a profile definitions document:
// a tool catalog plus one record per agent.
type Definitions struct {
	Tools  map[string]string `koanf:"tools"`
	Agents []AgentDefinition `koanf:"agents"`
}

// AgentDefinition is one external agent profile record.
type AgentDefinition struct {
	Name               string         `koanf:"name"`
	Description        string         `koanf:"description"`
	SystemPrompt       string         `koanf:"system_prompt"`
	AllowedTools       []string       `koanf:"allowed_tools"`
	DeniedCapabilities []string       `koanf:"denied_capabilities"`
	MaxDurationMs      int            `koanf:"max_duration_ms"`
	MaxContextTokens   int            `koanf:"max_context_tokens"`
	OutputSchema       map[string]any `koanf:"output_schema"`
}

// LoadFile reads a YAML profile definitions document.
func LoadFile(path string) (*Definitions, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, errors.New(errors.CodeInvalidInput, "cannot read profile definitions", err).
			WithContext("path", path)
	}
	var defs Definitions
	if err := k.Unmarshal("", &defs); err != nil {
		return nil, errors.New(errors.CodeInvalidInput, "cannot decode profile definitions", err).
			WithContext("path", path)
	}
	return &defs, nil
}

// Build turns loaded definitions into a tool registry and a profile store.
// An empty tool section falls back to the built-in catalog.
func Build(defs *Definitions) (*registry.Registry, *Store, error) {
	reg, err := buildRegistry(defs.Tools)
	if err != nil {
		return nil, nil, err
	}

	profiles := make([]Profile, 0, len(defs.Agents))
	for _, def := range defs.Agents {
		p := Profile{
			Name:                def.Name,
			Description:         def.Description,
			SystemPrompt:        def.SystemPrompt,
			AllowedToolPatterns: def.AllowedTools,
			MaxDuration:         time.Duration(def.MaxDurationMs) * time.Millisecond,
			MaxContextTokens:    def.MaxContextTokens,
		}
		for _, capability := range def.DeniedCapabilities {
			p.DeniedCapabilities = append(p.DeniedCapabilities, registry.Capability(capability))
		}
		if len(def.OutputSchema) > 0 {
			schema, err := CompileSchemaValue(def.OutputSchema)
			if err != nil {
				return nil, nil, errors.AsQuorumError(err).WithContext("agent", def.Name)
			}
			p.Schema = schema
		}
		profiles = append(profiles, p)
	}

	store, err := NewStore(profiles)
	if err != nil {
		return nil, nil, err
	}
	return reg, store, nil
}

func buildRegistry(tools map[string]string) (*registry.Registry, error) {
	if len(tools) == 0 {
		return registry.Default(), nil
	}
	mapped := make(map[string]registry.Capability, len(tools))
	for name, capability := range tools {
		mapped[name] = registry.Capability(capability)
	}
	return registry.New(mapped)
}
