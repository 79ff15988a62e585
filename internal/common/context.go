package common

import (
	"context"
	"time"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRunID  contextKey = "run_id"
	ContextKeyPairID contextKey = "pair_id"
)

// WithRunID adds a batch run ID to the context
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, ContextKeyRunID, runID)
}

// RunIDFromContext extracts the batch run ID from context
func RunIDFromContext(ctx context.Context) string {
	if runID, ok := ctx.Value(ContextKeyRunID).(string); ok {
		return runID
	}
	return ""
}

// WithPairID adds a pair ID to the context
func WithPairID(ctx context.Context, pairID string) context.Context {
	return context.WithValue(ctx, ContextKeyPairID, pairID)
}

// PairIDFromContext extracts the pair ID from context
func PairIDFromContext(ctx context.Context) string {
	if pairID, ok := ctx.Value(ContextKeyPairID).(string); ok {
		return pairID
	}
	return ""
}

// WithTimeout creates a context with the specified timeout
func WithTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, timeout)
}
