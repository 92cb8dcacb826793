package agent

import (
	"context"
	"sync"
)

// MockExecutor is a testing implementation of Executor.
type MockExecutor struct {
	Payload map[string]any
	Err     error
	Fn      func(ctx context.Context, inv Invocation) (map[string]any, error)

	mu    sync.Mutex
	calls int
}

// Execute returns the configured payload, error, or delegates to Fn.
func (m *MockExecutor) Execute(ctx context.Context, inv Invocation) (map[string]any, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.Fn != nil {
		return m.Fn(ctx, inv)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Payload, nil
}

// Calls returns how many invocations were executed.
func (m *MockExecutor) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// ToolScriptExecutor attempts a fixed sequence of tool calls through the
// toolbox before producing its payload. Useful for exercising governance
// paths without an LLM in the loop.
type ToolScriptExecutor struct {
	ToolCalls []ScriptedCall
	Payload   map[string]any

	// AbortOnDenial makes the executor give up on the first denied call,
	// returning that denial as its terminal error.
	AbortOnDenial bool
}

// ScriptedCall is one pre-planned tool call.
type ScriptedCall struct {
	Tool string
	Args map[string]any
}

// Execute runs the scripted calls and returns the configured payload.
func (s *ToolScriptExecutor) Execute(ctx context.Context, inv Invocation) (map[string]any, error) {
	for _, call := range s.ToolCalls {
		if _, err := inv.Toolbox.Call(ctx, call.Tool, call.Args); err != nil && s.AbortOnDenial {
			return nil, err
		}
	}
	return s.Payload, nil
}
