package batch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YasminGarcia1210/ripsgen/constants"
	"github.com/YasminGarcia1210/ripsgen/internal/config"
	"github.com/YasminGarcia1210/ripsgen/internal/jobstore"
	"github.com/YasminGarcia1210/ripsgen/internal/pipeline"
)

func testRunner(t *testing.T, opts ...Option) *Runner {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	proc := pipeline.NewProcessor(cfg, nil)
	r := NewRunner(proc, nil, opts...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		r.Shutdown(ctx)
	})
	return r
}

// The PDFs here are placeholders, so every processable pair fails
// extraction; what matters is that the run finishes, counts add up and
// non-processable pairs stay pending with their discovery reason.
func TestRunProducesSummary(t *testing.T) {
	root := t.TempDir()
	out := t.TempDir()

	touch(t, filepath.Join(root, "FERO1", "FERO1.pdf"))
	writeAnnex(t, filepath.Join(root, "FERO1", "FERO1_Rips.json"), "11")
	touch(t, filepath.Join(root, "FERO1", "HEV11.pdf"))

	// missing history: stays pending, sibling still processed
	touch(t, filepath.Join(root, "FERO2", "FERO2.pdf"))
	writeAnnex(t, filepath.Join(root, "FERO2", "FERO2_Rips.json"), "22")

	r := testRunner(t, WithWorkers(2))
	summary, err := r.Run(context.Background(), RunOptions{
		InputDir:  root,
		OutputDir: out,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Totals.Total)
	assert.Zero(t, summary.Totals.Completed)
	assert.Equal(t, 1, summary.Totals.Pending)
	assert.Equal(t, 1, summary.Totals.Failed)
	assert.Equal(t,
		summary.Totals.Completed+summary.Totals.Pending+summary.Totals.Failed,
		summary.Totals.Total)

	byName := map[string]PairEntry{}
	for _, e := range summary.Entries {
		byName[e.Package] = e
	}
	assert.Equal(t, constants.PairStatusPending, byName["FERO2"].Status)
	assert.Equal(t, constants.ReasonHistoryNotFound, byName["FERO2"].Reason)
	assert.Equal(t, constants.PairStatusFailed, byName["FERO1"].Status)

	b, err := os.ReadFile(filepath.Join(out, constants.SummaryFile))
	require.NoError(t, err)
	var onDisk Summary
	require.NoError(t, json.Unmarshal(b, &onDisk))
	assert.Equal(t, summary.RunID, onDisk.RunID)
	assert.Len(t, onDisk.Entries, 2)
}

func TestRunPersistsToStore(t *testing.T) {
	ctx := context.Background()
	store, err := jobstore.Open(ctx, config.StoreConfig{
		Driver: "sqlite",
		DSN:    "file:batch_runner_test?mode=memory&cache=shared",
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	root := t.TempDir()
	touch(t, filepath.Join(root, "FERO9", "FERO9.pdf"))
	writeAnnex(t, filepath.Join(root, "FERO9", "FERO9_Rips.json"), "99")
	touch(t, filepath.Join(root, "FERO9", "HEV99.pdf"))

	r := testRunner(t, WithWorkers(1), WithStore(store))
	summary, err := r.Run(ctx, RunOptions{InputDir: root, OutputDir: t.TempDir()})
	require.NoError(t, err)

	runs, err := store.ListRuns(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, summary.RunID, runs[0].ID)
	assert.NotNil(t, runs[0].FinishedAt)
	assert.Equal(t, 1, runs[0].Total)

	pairs, err := store.ListPairs(ctx, summary.RunID)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "FERO9", pairs[0].PairID)
	assert.NotEmpty(t, pairs[0].Detail)
}

func TestRunEmptyInputDir(t *testing.T) {
	r := testRunner(t)
	summary, err := r.Run(context.Background(), RunOptions{
		InputDir:  t.TempDir(),
		OutputDir: t.TempDir(),
	})
	require.NoError(t, err)
	assert.Zero(t, summary.Totals.Total)
}

func TestShutdownIsIdempotent(t *testing.T) {
	r := testRunner(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	r.Shutdown(ctx)
	r.Shutdown(ctx)
}
