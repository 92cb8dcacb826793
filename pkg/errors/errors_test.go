package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	cause := errors.New("connection refused")
	err := New(CodeToolFailure, "tool call failed", cause)

	msg := err.Error()
	if !strings.Contains(msg, "TOOL_FAILURE") {
		t.Fatalf("expected code in message, got %q", msg)
	}
	if !strings.Contains(msg, "connection refused") {
		t.Fatalf("expected cause in message, got %q", msg)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be unwrappable")
	}
}

func TestHasCode(t *testing.T) {
	inner := New(CodePolicyViolation, "denied", nil)
	outer := New(CodeExecutorError, "executor gave up", inner)
	wrapped := fmt.Errorf("run failed: %w", outer)

	if !HasCode(wrapped, CodeExecutorError) {
		t.Fatalf("expected outer code to be found")
	}
	if !HasCode(wrapped, CodePolicyViolation) {
		t.Fatalf("expected inner code to be found through chain")
	}
	if HasCode(wrapped, CodeTimeout) {
		t.Fatalf("did not expect TIMEOUT in chain")
	}
	if HasCode(errors.New("plain"), CodeInternal) {
		t.Fatalf("plain error should carry no code")
	}
}

func TestAttributeLookup(t *testing.T) {
	inner := New(CodePolicyViolation, "denied", nil).WithAttribute("tool", "binance_spot_market_order")
	outer := New(CodeExecutorError, "terminal failure", inner)

	tool, ok := Attribute(outer, "tool")
	if !ok || tool != "binance_spot_market_order" {
		t.Fatalf("expected tool attribute through chain, got %q ok=%v", tool, ok)
	}
	if _, ok := Attribute(outer, "missing"); ok {
		t.Fatalf("unexpected attribute hit")
	}
}

func TestAsQuorumError(t *testing.T) {
	if AsQuorumError(nil) != nil {
		t.Fatalf("nil should stay nil")
	}
	qe := AsQuorumError(errors.New("boom"))
	if qe.Code != CodeInternal {
		t.Fatalf("expected INTERNAL_ERROR wrap, got %s", qe.Code)
	}
	same := New(CodeTimeout, "late", nil)
	if AsQuorumError(same) != same {
		t.Fatalf("expected identity for typed errors")
	}
}

func TestMarshalJSON(t *testing.T) {
	err := New(CodeSchemaViolation, "missing confidence", nil).
		WithContext("agent", "risk-manager").
		WithRecoverable(true)
	raw, jsonErr := json.Marshal(err)
	if jsonErr != nil {
		t.Fatalf("marshal: %v", jsonErr)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["code"] != "SCHEMA_VIOLATION" {
		t.Fatalf("unexpected code: %v", decoded["code"])
	}
	if decoded["recoverable"] != true {
		t.Fatalf("expected recoverable flag")
	}
}
