package llm

import (
	"context"
	"errors"
	"sync"
)

// MockProvider is a testing implementation of Provider.
type MockProvider struct {
	Response string
	Err      error
	ChatFunc func(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

func (m *MockProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, req)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return &ChatResponse{
		Content: m.Response,
		Usage:   Usage{PromptTokens: 10, CompletionTokens: 10, TotalTokens: 20},
	}, nil
}

// ScriptedProvider returns a pre-defined sequence of responses. Useful for
// exercising multi-turn tool loops deterministically.
type ScriptedProvider struct {
	mu        sync.Mutex
	Responses []*ChatResponse
	Err       error
	CallCount int
}

// NewScriptedProvider creates a provider that pops one response per call.
func NewScriptedProvider(responses ...*ChatResponse) *ScriptedProvider {
	return &ScriptedProvider{Responses: responses}
}

// Chat pops the next scripted response or returns the configured error.
func (s *ScriptedProvider) Chat(_ context.Context, _ ChatRequest) (*ChatResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.CallCount++
	if s.Err != nil {
		return nil, s.Err
	}
	if len(s.Responses) == 0 {
		return nil, errors.New("scripted provider: no more responses available")
	}
	next := s.Responses[0]
	s.Responses = s.Responses[1:]
	return next, nil
}
