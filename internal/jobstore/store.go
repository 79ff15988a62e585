package jobstore

import (
	"context"
	"time"

	"github.com/YasminGarcia1210/ripsgen/constants"
)

// Run is one persisted batch execution.
type Run struct {
	ID         string
	InputDir   string
	OutputDir  string
	StartedAt  time.Time
	FinishedAt *time.Time
	Total      int
	Completed  int
	Pending    int
	Failed     int
}

// PairRow is one persisted pair outcome within a run.
type PairRow struct {
	ID        string
	RunID     string
	PairID    string
	InvoiceID string
	Status    constants.PairStatus
	Reason    string
	Errors    int
	Warnings  int
	Detail    string // goccy-encoded PairResult
	CreatedAt time.Time
}

// Store persists batch runs and their per-pair outcomes. The single-pair
// generate path runs storeless; only batch requires one.
type Store interface {
	CreateRun(ctx context.Context, run *Run) error
	FinishRun(ctx context.Context, run *Run) error
	RecordPair(ctx context.Context, row *PairRow) error
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	ListPairs(ctx context.Context, runID string) ([]PairRow, error)
	Close() error
}
