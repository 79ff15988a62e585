package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunIDRoundTrip(t *testing.T) {
	ctx := WithRunID(context.Background(), "run-1")
	assert.Equal(t, "run-1", RunIDFromContext(ctx))
	assert.Empty(t, RunIDFromContext(context.Background()))
}

func TestPairIDRoundTrip(t *testing.T) {
	ctx := WithPairID(context.Background(), "pair-1")
	assert.Equal(t, "pair-1", PairIDFromContext(ctx))
	assert.Empty(t, PairIDFromContext(context.Background()))
}

func TestWithTimeoutExpires(t *testing.T) {
	ctx, cancel := WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	<-ctx.Done()
	assert.ErrorIs(t, ctx.Err(), context.DeadlineExceeded)
}

func TestWrapErrorKeepsChain(t *testing.T) {
	assert.NoError(t, WrapError(nil, "noop"))

	wrapped := WrapError(ParseError("no document number", nil), "parse history")
	require.Error(t, wrapped)
	assert.True(t, IsCode(wrapped, CodeParseFailed))
	assert.Contains(t, wrapped.Error(), "parse history")

	var ae *AppError
	assert.True(t, errors.As(wrapped, &ae))
}
