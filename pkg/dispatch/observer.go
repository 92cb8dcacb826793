package dispatch

import (
	"context"

	"github.com/openquant/quorum/pkg/core"
)

// Observer receives invocation lifecycle events. Implementations must be
// safe for concurrent use; the dispatcher calls InvocationFinished from its
// collector goroutine and InvocationStarted from workers.
type Observer interface {
	InvocationStarted(ctx context.Context, req core.InvocationRequest)
	InvocationFinished(ctx context.Context, outcome core.InvocationOutcome)
}

// NoopObserver ignores all events.
type NoopObserver struct{}

func (NoopObserver) InvocationStarted(context.Context, core.InvocationRequest) {}
func (NoopObserver) InvocationFinished(context.Context, core.InvocationOutcome) {}
