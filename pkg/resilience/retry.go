// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/openquant/quorum/pkg/errors"
)

// RetryConfig controls retry behavior with exponential backoff.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (must be >= 1).
	MaxAttempts int

	// InitialDelay is the initial backoff delay.
	InitialDelay time.Duration

	// MaxDelay caps the exponential backoff delay.
	MaxDelay time.Duration

	// Multiplier for exponential backoff (default 2.0).
	Multiplier float64

	// IsRecoverable determines if an error should be retried.
	// If nil, only errors marked recoverable are retried.
	IsRecoverable func(error) bool

	// Jitter adds randomness to backoff; 0.1 means ±10%.
	Jitter float64
}

// DefaultRetryConfig returns the retry policy used for provider calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		Multiplier:    2.0,
		Jitter:        0.1,
		IsRecoverable: isRecoverableDefault,
	}
}

// WithMaxAttempts returns a new config with MaxAttempts set.
func (rc RetryConfig) WithMaxAttempts(max int) RetryConfig {
	rc.MaxAttempts = max
	return rc
}

// WithIsRecoverable returns a new config with IsRecoverable set.
func (rc RetryConfig) WithIsRecoverable(fn func(error) bool) RetryConfig {
	rc.IsRecoverable = fn
	return rc
}

// Do executes fn with retries, returning the last error if all attempts fail.
// Policy denials and schema violations are never retried: repeating them
// cannot change the decision.
func (rc RetryConfig) Do(ctx context.Context, fn func() error) error {
	if rc.MaxAttempts < 1 {
		rc.MaxAttempts = 1
	}
	if rc.IsRecoverable == nil {
		rc.IsRecoverable = isRecoverableDefault
	}

	var lastErr error
	for attempt := 0; attempt < rc.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := calculateBackoff(attempt, rc)
			select {
			case <-ctx.Done():
				return errors.New(errors.CodeTimeout, "context canceled during retry", ctx.Err()).
					WithContext("attempt", attempt)
			case <-time.After(delay):
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !rc.IsRecoverable(err) {
			return err
		}
	}
	return lastErr
}

func isRecoverableDefault(err error) bool {
	if errors.HasCode(err, errors.CodePolicyViolation) || errors.HasCode(err, errors.CodeSchemaViolation) {
		return false
	}
	if qe := errors.AsQuorumError(err); qe != nil {
		return qe.Recoverable || qe.Code == errors.CodeLLMError || qe.Code == errors.CodeToolFailure
	}
	return true
}

func calculateBackoff(attempt int, rc RetryConfig) time.Duration {
	multiplier := rc.Multiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}
	delay := float64(rc.InitialDelay) * math.Pow(multiplier, float64(attempt-1))
	if rc.Jitter > 0 {
		delay += delay * rc.Jitter * (2*rand.Float64() - 1)
	}
	if max := float64(rc.MaxDelay); rc.MaxDelay > 0 && delay > max {
		delay = max
	}
	return time.Duration(delay)
}
