// SPDX-License-Identifier: Apache-2.0

// Package resilience provides the timeout and retry boundaries the
// dispatcher wraps around executors and providers.
package resilience

import (
	"context"
	"time"

	"github.com/openquant/quorum/pkg/errors"
)

// RunWithTimeout executes fn under a hard deadline. The child context is
// cancelled when the deadline fires, but fn runs in its own goroutine: a
// function that ignores cancellation cannot stall the caller, it is simply
// abandoned. A result that is already complete when the deadline fires is
// returned, not discarded.
func RunWithTimeout(ctx context.Context, d time.Duration, fn func(ctx context.Context) (map[string]any, error)) (map[string]any, error) {
	if d <= 0 {
		return fn(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		value map[string]any
		err   error
	}

	done := make(chan result, 1)
	go func() {
		value, err := fn(ctx)
		done <- result{value, err}
	}()

	select {
	case <-ctx.Done():
		select {
		case res := <-done:
			return res.value, res.err
		default:
		}
		return nil, errors.New(errors.CodeTimeout, "operation exceeded timeout", ctx.Err()).
			WithContext("timeout", d.String()).
			WithRecoverable(true)
	case res := <-done:
		return res.value, res.err
	}
}
