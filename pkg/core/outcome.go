package core

import (
	"fmt"
	"time"
)

// OutcomeKind identifies the terminal state of one invocation.
type OutcomeKind string

const (
	OutcomeSuccess         OutcomeKind = "success"
	OutcomeTimeout         OutcomeKind = "timeout"
	OutcomePolicyViolation OutcomeKind = "policy_violation"
	OutcomeExecutorError   OutcomeKind = "executor_error"
)

// AgentResult is the validated payload of a successful invocation.
// A Success outcome always carries a result that passed the owning
// profile's output schema.
type AgentResult struct {
	Sentiment  Sentiment
	Confidence float64
	Summary    string
	Factors    []string
	Raw        map[string]any
}

// InvocationOutcome is the terminal record of one invocation. Exactly one
// outcome exists per submitted request; only OutcomeSuccess carries a Result.
type InvocationOutcome struct {
	RequestID string
	AgentName string
	Kind      OutcomeKind
	Result    *AgentResult
	Duration  time.Duration

	// ToolName is the denied tool, set for policy violations.
	ToolName string

	// Message holds failure detail for non-success outcomes.
	Message string
}

// AbstentionReason renders a human-readable reason for outcomes that
// contribute no vote. Success outcomes return an empty string.
func (o InvocationOutcome) AbstentionReason() string {
	switch o.Kind {
	case OutcomeSuccess:
		return ""
	case OutcomeTimeout:
		return "invocation timed out"
	case OutcomePolicyViolation:
		if o.ToolName != "" {
			return fmt.Sprintf("denied tool %s", o.ToolName)
		}
		return "denied by policy"
	case OutcomeExecutorError:
		if o.Message != "" {
			return "executor error: " + o.Message
		}
		return "executor error"
	}
	return string(o.Kind)
}
