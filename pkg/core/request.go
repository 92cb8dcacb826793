package core

import (
	"time"

	"github.com/google/uuid"
)

// InvocationRequest is one unit of work submitted to the dispatcher.
// Requests are immutable once created; the dispatcher consumes them and
// correlates outcomes by RequestID.
type InvocationRequest struct {
	RequestID   string
	AgentName   string
	TaskPrompt  string
	SubmittedAt time.Time
}

// NewRequest creates a request with a generated id.
func NewRequest(agentName, taskPrompt string) InvocationRequest {
	return InvocationRequest{
		RequestID:   uuid.NewString(),
		AgentName:   agentName,
		TaskPrompt:  taskPrompt,
		SubmittedAt: time.Now().UTC(),
	}
}
