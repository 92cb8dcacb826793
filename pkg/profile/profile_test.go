package profile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/openquant/quorum/pkg/errors"
	"github.com/openquant/quorum/pkg/registry"
)

func TestNewStoreValidation(t *testing.T) {
	t.Run("empty allow list rejected", func(t *testing.T) {
		_, err := NewStore([]Profile{{Name: "idle-agent"}})
		if err == nil {
			t.Fatalf("expected load-time rejection of agent with no usable tools")
		}
		if !errors.HasCode(err, errors.CodeInvalidInput) {
			t.Fatalf("expected INVALID_INPUT, got %v", err)
		}
	})

	t.Run("unknown denied capability rejected", func(t *testing.T) {
		_, err := NewStore([]Profile{{
			Name:                "bad-agent",
			AllowedToolPatterns: []string{"polygon_*"},
			DeniedCapabilities:  []registry.Capability{"fly"},
		}})
		if err == nil {
			t.Fatalf("expected rejection of unknown capability")
		}
	})

	t.Run("malformed glob rejected", func(t *testing.T) {
		_, err := NewStore([]Profile{{
			Name:                "glob-agent",
			AllowedToolPatterns: []string{"[unclosed"},
		}})
		if err == nil {
			t.Fatalf("expected rejection of malformed pattern")
		}
	})

	t.Run("duplicate names rejected", func(t *testing.T) {
		p := Profile{Name: "twin", AllowedToolPatterns: []string{"*"}}
		_, err := NewStore([]Profile{p, p})
		if err == nil {
			t.Fatalf("expected rejection of duplicate profile")
		}
	})
}

func TestStoreDefaults(t *testing.T) {
	store, err := NewStore([]Profile{{
		Name:                "minimal",
		AllowedToolPatterns: []string{"polygon_*"},
	}})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	p, err := store.Get("minimal")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.MaxDuration != DefaultMaxDuration {
		t.Fatalf("expected default deadline, got %v", p.MaxDuration)
	}
	if p.MaxContextTokens != DefaultMaxContextTokens {
		t.Fatalf("expected default token budget, got %d", p.MaxContextTokens)
	}
	if p.Schema == nil {
		t.Fatalf("expected default output schema")
	}

	if _, err := store.Get("nobody"); !errors.HasCode(err, errors.CodeUnknownAgent) {
		t.Fatalf("expected UNKNOWN_AGENT, got %v", err)
	}
}

func TestProfileMatching(t *testing.T) {
	p := &Profile{
		Name:                "risk-manager",
		AllowedToolPatterns: []string{"binance_get_*", "py_eval"},
		DeniedCapabilities:  []registry.Capability{registry.CapabilityExecuteTrade},
	}
	if !p.MatchesTool("binance_get_account") {
		t.Fatalf("glob pattern should match")
	}
	if !p.MatchesTool("py_eval") {
		t.Fatalf("exact pattern should match")
	}
	if p.MatchesTool("polygon_news") {
		t.Fatalf("unlisted tool should not match")
	}
	if !p.DeniesCapability(registry.CapabilityExecuteTrade) {
		t.Fatalf("expected execute-trade denial")
	}
	if p.DeniesCapability(registry.CapabilityCompute) {
		t.Fatalf("compute should not be denied")
	}
}

func TestLoadFileAndBuild(t *testing.T) {
	doc := `
tools:
  polygon_news: read-market-data
  binance_spot_market_order: execute-trade
agents:
  - name: news-analyst
    system_prompt: "Score the news."
    allowed_tools: ["polygon_*"]
    denied_capabilities: ["execute-trade"]
    max_duration_ms: 45000
    max_context_tokens: 16000
  - name: trader
    allowed_tools: ["binance_*"]
`
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	defs, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	reg, store, err := Build(defs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if reg.Len() != 2 {
		t.Fatalf("expected 2 tools, got %d", reg.Len())
	}
	p, err := store.Get("news-analyst")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.MaxDuration != 45*time.Second {
		t.Fatalf("unexpected deadline: %v", p.MaxDuration)
	}
	if !p.DeniesCapability(registry.CapabilityExecuteTrade) {
		t.Fatalf("expected execute-trade denial from document")
	}
	if len(store.Names()) != 2 {
		t.Fatalf("expected 2 agents, got %v", store.Names())
	}
}

func TestDefaultProfilesLoad(t *testing.T) {
	store, err := NewStore(DefaultProfiles())
	if err != nil {
		t.Fatalf("default roster failed validation: %v", err)
	}
	for _, name := range store.Names() {
		p, err := store.Get(name)
		if err != nil {
			t.Fatalf("Get(%s): %v", name, err)
		}
		if !p.DeniesCapability(registry.CapabilityExecuteTrade) {
			t.Fatalf("analyst %s must deny execute-trade", name)
		}
	}
}
