// Copyright 2026 © The Quorum Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/openquant/quorum/pkg/errors"
	"github.com/openquant/quorum/pkg/llm"
)

// LLMExecutor drives one invocation through a chat-with-tools loop. Tool
// calls requested by the model go through the invocation's toolbox, so a
// denied call comes back to the model as a failed tool result rather than
// aborting the run. The loop ends when the model answers without tool
// calls; that answer is the terminal payload.
type LLMExecutor struct {
	provider    llm.Provider
	model       string
	temperature float64
	maxTurns    int
	logger      *slog.Logger
}

// ExecOption configures an LLMExecutor.
type ExecOption func(*LLMExecutor)

// WithModel sets the model name sent to the provider.
func WithModel(model string) ExecOption {
	return func(e *LLMExecutor) { e.model = model }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) ExecOption {
	return func(e *LLMExecutor) { e.temperature = t }
}

// WithMaxTurns caps the number of chat rounds per invocation. Values
// below one keep the default.
func WithMaxTurns(n int) ExecOption {
	return func(e *LLMExecutor) {
		if n > 0 {
			e.maxTurns = n
		}
	}
}

// WithLogger sets the executor logger.
func WithLogger(logger *slog.Logger) ExecOption {
	return func(e *LLMExecutor) { e.logger = logger }
}

// NewLLMExecutor creates an executor over the given provider.
func NewLLMExecutor(provider llm.Provider, opts ...ExecOption) *LLMExecutor {
	e := &LLMExecutor{
		provider: provider,
		maxTurns: 10,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs the chat loop to a terminal JSON payload.
func (e *LLMExecutor) Execute(ctx context.Context, inv Invocation) (map[string]any, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: inv.Profile.SystemPrompt},
		{Role: llm.RoleUser, Content: inv.Request.TaskPrompt},
	}
	toolDefs := e.toolDefs(ctx, inv)

	// A coarse budget over provider-reported usage. The executor stops the
	// loop when the running total passes the profile limit.
	var totalTokens int

	for turn := 0; turn < e.maxTurns; turn++ {
		resp, err := e.provider.Chat(ctx, llm.ChatRequest{
			Model:       e.model,
			Messages:    messages,
			Tools:       toolDefs,
			Temperature: e.temperature,
		})
		if err != nil {
			return nil, errors.New(errors.CodeLLMError, "chat turn failed", err).
				WithAttribute("agent", inv.Profile.Name)
		}
		totalTokens += resp.Usage.TotalTokens
		if totalTokens > inv.Profile.MaxContextTokens {
			return nil, errors.Newf(errors.CodeExecutorError, "agent %s exhausted its context budget after %d tokens", inv.Profile.Name, totalTokens)
		}

		if len(resp.ToolCalls) == 0 {
			return parseTerminalPayload(resp.Content)
		}

		messages = append(messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, call := range resp.ToolCalls {
			messages = append(messages, e.runToolCall(ctx, inv, call))
		}
	}
	return nil, errors.Newf(errors.CodeExecutorError, "agent %s did not produce a terminal answer within %d turns", inv.Profile.Name, e.maxTurns)
}

// runToolCall executes one requested tool call and folds the result, or the
// failure, into a tool message the model can react to.
func (e *LLMExecutor) runToolCall(ctx context.Context, inv Invocation, call llm.ToolCall) llm.Message {
	var args map[string]any
	if call.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			return toolMessage(call, fmt.Sprintf("error: malformed tool arguments: %v", err))
		}
	}

	out, err := inv.Toolbox.Call(ctx, call.Function.Name, args)
	if err != nil {
		e.logger.DebugContext(ctx, "tool call failed",
			"agent", inv.Profile.Name,
			"tool", call.Function.Name,
			"error", err)
		return toolMessage(call, "error: "+err.Error())
	}

	encoded, err := json.Marshal(out)
	if err != nil {
		return toolMessage(call, fmt.Sprintf("%v", out))
	}
	return toolMessage(call, string(encoded))
}

func (e *LLMExecutor) toolDefs(ctx context.Context, inv Invocation) []llm.Tool {
	visible := inv.Toolbox.Visible(ctx)
	defs := make([]llm.Tool, 0, len(visible))
	for _, tool := range visible {
		defs = append(defs, llm.NewFunctionTool(tool.Name(), tool.Description(), map[string]any{
			"type":                 "object",
			"additionalProperties": true,
		}))
	}
	return defs
}

func toolMessage(call llm.ToolCall, content string) llm.Message {
	return llm.Message{
		Role:       llm.RoleTool,
		Content:    content,
		ToolCallID: call.ID,
	}
}

var codeFenceRe = regexp.MustCompile("(?si)^```(?:json)?\\s*(.*?)\\s*```$")

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if m := codeFenceRe.FindStringSubmatch(s); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return s
}

func parseTerminalPayload(content string) (map[string]any, error) {
	var payload map[string]any
	if err := json.Unmarshal([]byte(stripCodeFences(content)), &payload); err != nil {
		return nil, errors.New(errors.CodeExecutorError, "terminal answer is not a JSON object", err)
	}
	return payload, nil
}
