package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/openquant/quorum/pkg/core"
)

func sampleEvents() []Event {
	return []Event{
		{
			BatchID:    "batch-1",
			RequestID:  "req-1",
			AgentName:  "technical-analyst",
			Kind:       core.OutcomeSuccess,
			Sentiment:  core.SentimentBullish,
			Confidence: 0.8,
			Duration:   250 * time.Millisecond,
		},
		{
			BatchID:    "batch-1",
			RequestID:  "req-2",
			AgentName:  "risk-manager",
			Kind:       core.OutcomePolicyViolation,
			DeniedTool: "binance_spot_market_order",
			Detail:     "capability execute-trade is denied for agent risk-manager",
		},
		{
			BatchID:   "batch-2",
			RequestID: "req-3",
			AgentName: "technical-analyst",
			Kind:      core.OutcomeTimeout,
		},
	}
}

func runStoreTests(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	for _, event := range sampleEvents() {
		if err := store.Record(ctx, event); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	byBatch, err := store.List(ctx, Filter{BatchID: "batch-1"})
	if err != nil {
		t.Fatalf("List by batch: %v", err)
	}
	if len(byBatch) != 2 {
		t.Fatalf("expected 2 events for batch-1, got %d", len(byBatch))
	}

	byAgent, err := store.List(ctx, Filter{AgentName: "technical-analyst"})
	if err != nil {
		t.Fatalf("List by agent: %v", err)
	}
	if len(byAgent) != 2 {
		t.Fatalf("expected 2 events for technical-analyst, got %d", len(byAgent))
	}

	denials, err := store.List(ctx, Filter{Kind: core.OutcomePolicyViolation})
	if err != nil {
		t.Fatalf("List by kind: %v", err)
	}
	if len(denials) != 1 {
		t.Fatalf("expected 1 policy violation, got %d", len(denials))
	}
	if denials[0].DeniedTool != "binance_spot_market_order" {
		t.Fatalf("expected the denied tool to persist, got %q", denials[0].DeniedTool)
	}

	limited, err := store.List(ctx, Filter{Limit: 1})
	if err != nil {
		t.Fatalf("List with limit: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected 1 event with limit, got %d", len(limited))
	}
}

func TestMemoryStore(t *testing.T) {
	runStoreTests(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer store.Close()
	runStoreTests(t, store)
}

func TestFromOutcome(t *testing.T) {
	outcome := core.InvocationOutcome{
		RequestID: "req-9",
		AgentName: "news-analyst",
		Kind:      core.OutcomeSuccess,
		Result: &core.AgentResult{
			Sentiment:  core.SentimentBearish,
			Confidence: 0.7,
		},
		Duration: time.Second,
	}
	event := FromOutcome("batch-9", outcome)
	if event.BatchID != "batch-9" || event.RequestID != "req-9" {
		t.Fatalf("unexpected event identity %+v", event)
	}
	if event.Sentiment != core.SentimentBearish || event.Confidence != 0.7 {
		t.Fatalf("result fields not carried over: %+v", event)
	}
	if event.CreatedAt.IsZero() {
		t.Fatal("expected a creation timestamp")
	}
}
