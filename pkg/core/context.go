package core

import (
	"context"
	"crypto/rand"
	"encoding/hex"
)

type batchIDKey struct{}

// WithBatchID attaches a batch id to the context.
func WithBatchID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, batchIDKey{}, id)
}

// BatchID returns the batch id if present.
func BatchID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(batchIDKey{}).(string)
	return id, ok
}

// EnsureBatchID ensures a batch id exists in the context.
func EnsureBatchID(ctx context.Context) (context.Context, string) {
	if id, ok := BatchID(ctx); ok {
		return ctx, id
	}
	id := newBatchID()
	return WithBatchID(ctx, id), id
}

func newBatchID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "batch-unknown"
	}
	return "batch-" + hex.EncodeToString(buf)
}
