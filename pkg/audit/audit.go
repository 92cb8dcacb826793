// SPDX-License-Identifier: Apache-2.0

// Package audit persists the terminal record of every invocation. The
// store is append-only; outcomes are written once by the orchestrator and
// queried by batch for post-hoc review.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/openquant/quorum/pkg/core"
)

// Event is one persisted invocation outcome.
type Event struct {
	BatchID    string
	RequestID  string
	AgentName  string
	Kind       core.OutcomeKind
	Sentiment  core.Sentiment
	Confidence float64
	DeniedTool string
	Detail     string
	Duration   time.Duration
	CreatedAt  time.Time
}

// Filter narrows a List query. Zero values match everything.
type Filter struct {
	BatchID   string
	AgentName string
	Kind      core.OutcomeKind
	Limit     int
}

// Store persists and queries audit events.
type Store interface {
	Record(ctx context.Context, event Event) error
	List(ctx context.Context, filter Filter) ([]Event, error)
}

// FromOutcome builds an audit event from a terminal outcome.
func FromOutcome(batchID string, outcome core.InvocationOutcome) Event {
	event := Event{
		BatchID:    batchID,
		RequestID:  outcome.RequestID,
		AgentName:  outcome.AgentName,
		Kind:       outcome.Kind,
		DeniedTool: outcome.ToolName,
		Detail:     outcome.Message,
		Duration:   outcome.Duration,
		CreatedAt:  time.Now().UTC(),
	}
	if outcome.Result != nil {
		event.Sentiment = outcome.Result.Sentiment
		event.Confidence = outcome.Result.Confidence
	}
	return event
}

// MemoryStore keeps events in memory, for tests and ephemeral runs.
type MemoryStore struct {
	mu     sync.Mutex
	events []Event
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Record appends one event.
func (m *MemoryStore) Record(_ context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// List returns events matching the filter in insertion order.
func (m *MemoryStore) List(_ context.Context, filter Filter) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Event
	for _, event := range m.events {
		if !matches(event, filter) {
			continue
		}
		out = append(out, event)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func matches(event Event, filter Filter) bool {
	if filter.BatchID != "" && event.BatchID != filter.BatchID {
		return false
	}
	if filter.AgentName != "" && event.AgentName != filter.AgentName {
		return false
	}
	if filter.Kind != "" && event.Kind != filter.Kind {
		return false
	}
	return true
}
