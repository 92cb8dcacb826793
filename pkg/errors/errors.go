// SPDX-License-Identifier: Apache-2.0

// Package errors provides typed error handling for the Quorum orchestrator.
// Invocation failures travel as outcome variants, not errors; the codes here
// classify everything that does surface as an error, plus the failure causes
// the dispatcher folds into outcomes.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorCode classifies Quorum errors for monitoring and outcome mapping.
type ErrorCode string

const (
	// CodeInternal indicates an internal system error.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeInvalidInput indicates the input was invalid.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeUnknownAgent indicates a request named an agent with no profile.
	CodeUnknownAgent ErrorCode = "UNKNOWN_AGENT"

	// CodeUnknownTool indicates a tool name with no registry mapping.
	CodeUnknownTool ErrorCode = "UNKNOWN_TOOL"

	// CodePolicyViolation indicates a tool call denied by the enforcer.
	CodePolicyViolation ErrorCode = "POLICY_VIOLATION"

	// CodeTimeout indicates an operation exceeded its deadline.
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeExecutorError indicates the opaque agent executor failed.
	CodeExecutorError ErrorCode = "EXECUTOR_ERROR"

	// CodeSchemaViolation indicates a terminal payload failed schema validation.
	CodeSchemaViolation ErrorCode = "SCHEMA_VIOLATION"

	// CodeToolFailure indicates a tool provider returned an error.
	CodeToolFailure ErrorCode = "TOOL_FAILURE"

	// CodeLLMError indicates an LLM provider error.
	CodeLLMError ErrorCode = "LLM_ERROR"
)

// QuorumError is a typed error with context for observability.
// It implements the error interface and can be unwrapped with errors.As().
type QuorumError struct {
	Code        ErrorCode
	Message     string
	Err         error
	Context     map[string]any
	Attributes  map[string]string
	Recoverable bool
}

// Error implements the error interface.
func (e *QuorumError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap for error chain traversal.
func (e *QuorumError) Unwrap() error {
	return e.Err
}

// MarshalJSON implements json.Marshaler for structured logging.
func (e *QuorumError) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"code":        string(e.Code),
		"message":     e.Message,
		"recoverable": e.Recoverable,
	}
	if e.Err != nil {
		out["cause"] = e.Err.Error()
	}
	if len(e.Context) > 0 {
		out["context"] = e.Context
	}
	return json.Marshal(out)
}

// New creates a QuorumError with the given code, message, and cause.
func New(code ErrorCode, msg string, cause error) *QuorumError {
	return &QuorumError{
		Code:    code,
		Message: msg,
		Err:     cause,
	}
}

// Newf creates a QuorumError with a formatted message and no cause.
func Newf(code ErrorCode, format string, args ...any) *QuorumError {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// WithContext adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *QuorumError) WithContext(key string, value any) *QuorumError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithAttribute adds a string attribute for OTEL traces.
// Returns the error for method chaining.
func (e *QuorumError) WithAttribute(key, value string) *QuorumError {
	if e.Attributes == nil {
		e.Attributes = make(map[string]string)
	}
	e.Attributes[key] = value
	return e
}

// WithRecoverable sets whether the error can be recovered from.
func (e *QuorumError) WithRecoverable(recoverable bool) *QuorumError {
	e.Recoverable = recoverable
	return e
}

// AsQuorumError converts err to a QuorumError, wrapping unknown errors
// under CodeInternal. Returns nil for nil.
func AsQuorumError(err error) *QuorumError {
	if err == nil {
		return nil
	}
	var qe *QuorumError
	if errors.As(err, &qe) {
		return qe
	}
	return New(CodeInternal, "wrapped error", err)
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code ErrorCode) bool {
	var qe *QuorumError
	if !errors.As(err, &qe) {
		return false
	}
	if qe.Code == code {
		return true
	}
	return HasCode(qe.Err, code)
}

// Attribute returns the named attribute from the outermost QuorumError in
// the chain that carries it.
func Attribute(err error, key string) (string, bool) {
	for err != nil {
		var qe *QuorumError
		if !errors.As(err, &qe) {
			return "", false
		}
		if v, ok := qe.Attributes[key]; ok {
			return v, true
		}
		err = qe.Err
	}
	return "", false
}
