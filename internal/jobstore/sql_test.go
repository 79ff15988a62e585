package jobstore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YasminGarcia1210/ripsgen/constants"
	"github.com/YasminGarcia1210/ripsgen/internal/common"
	"github.com/YasminGarcia1210/ripsgen/internal/config"
)

func openMemoryStore(t *testing.T) *SQLStore {
	t.Helper()
	store, err := Open(context.Background(), config.StoreConfig{
		Driver: "sqlite",
		DSN:    "file:jobstore_test?mode=memory&cache=shared",
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openMemoryStore(t)

	run := &Run{
		ID:        uuid.NewString(),
		InputDir:  "/data/in",
		OutputDir: "/data/out",
		StartedAt: time.Now().UTC(),
	}
	require.NoError(t, store.CreateRun(ctx, run))

	pair := &PairRow{
		ID:        uuid.NewString(),
		RunID:     run.ID,
		PairID:    "FERO306500",
		InvoiceID: "FERO306500",
		Status:    constants.PairStatusCompleted,
		Errors:    0,
		Warnings:  2,
		Detail:    `{"status":"COMPLETED"}`,
	}
	require.NoError(t, store.RecordPair(ctx, pair))
	require.NoError(t, store.RecordPair(ctx, &PairRow{
		ID:     uuid.NewString(),
		RunID:  run.ID,
		PairID: "FERO306501",
		Status: constants.PairStatusPending,
		Reason: constants.ReasonHistoryNotFound,
	}))

	run.Total, run.Completed, run.Pending = 2, 1, 1
	require.NoError(t, store.FinishRun(ctx, run))

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
	assert.Equal(t, 2, runs[0].Total)
	assert.Equal(t, 1, runs[0].Completed)
	assert.Equal(t, 1, runs[0].Pending)
	assert.NotNil(t, runs[0].FinishedAt)

	pairs, err := store.ListPairs(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.Equal(t, constants.PairStatusCompleted, pairs[0].Status)
	assert.Equal(t, `{"status":"COMPLETED"}`, pairs[0].Detail)
	assert.Equal(t, constants.ReasonHistoryNotFound, pairs[1].Reason)
}

func TestListRunsDefaultLimit(t *testing.T) {
	ctx := context.Background()
	store := openMemoryStore(t)

	runs, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.StoreConfig{Driver: "oracle"}, nil)
	require.Error(t, err)
	assert.True(t, common.IsCode(err, common.CodeInvalidArgument))
}

func TestSchemaIsIdempotent(t *testing.T) {
	ctx := context.Background()
	cfg := config.StoreConfig{Driver: "sqlite", DSN: "file:jobstore_idem?mode=memory&cache=shared"}

	first, err := Open(ctx, cfg, nil)
	require.NoError(t, err)
	second, err := Open(ctx, cfg, nil)
	require.NoError(t, err)
	require.NoError(t, second.Close())
	require.NoError(t, first.Close())
}
