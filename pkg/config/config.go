// Package config loads orchestrator configuration from YAML files and the
// environment.
package config

import (
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Log          LogConfig          `koanf:"log"`
	Telemetry    TelemetryConfig    `koanf:"telemetry"`
	LLM          LLMConfig          `koanf:"llm"`
	Orchestrator OrchestratorConfig `koanf:"orchestrator"`
	Audit        AuditConfig        `koanf:"audit"`
	MCP          MCPConfig          `koanf:"mcp"`

	// Profiles is the path to the agent/tool definitions document.
	Profiles string `koanf:"profiles"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type TelemetryConfig struct {
	Exporter     string `koanf:"exporter"` // stdout, otlp
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	OTLPInsecure bool   `koanf:"otlp_insecure"`
}

type LLMConfig struct {
	Provider    string  `koanf:"provider"` // ollama, mock
	Model       string  `koanf:"model"`
	BaseURL     string  `koanf:"base_url"`
	Temperature float64 `koanf:"temperature"`
	MaxTurns    int     `koanf:"max_turns"`
}

type OrchestratorConfig struct {
	ConcurrencyLimit int `koanf:"concurrency_limit"`
	BatchDeadlineMs  int `koanf:"batch_deadline_ms"`
}

type AuditConfig struct {
	Driver string `koanf:"driver"` // sqlite, memory
	Path   string `koanf:"path"`
}

// MCPConfig points at an MCP server subprocess providing the tool surface.
// Empty command means no external tools are wired.
type MCPConfig struct {
	Command string   `koanf:"command"`
	Args    []string `koanf:"args"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Defaults
	k.Set("log.level", "info")
	k.Set("log.format", "text")
	k.Set("telemetry.exporter", "stdout")
	k.Set("llm.provider", "ollama")
	k.Set("llm.model", "qwen2.5:14b-instruct")
	k.Set("llm.base_url", "http://localhost:11434")
	k.Set("llm.max_turns", 10)
	k.Set("orchestrator.concurrency_limit", 3)
	k.Set("orchestrator.batch_deadline_ms", 300_000)
	k.Set("audit.driver", "sqlite")
	k.Set("audit.path", "quorum-audit.db")

	// 1. Load from file
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// 2. Load from ENV (QUORUM_AUDIT_DRIVER -> audit.driver)
	if err := k.Load(env.Provider("QUORUM_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "QUORUM_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
