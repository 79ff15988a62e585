package batch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"log/slog"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/YasminGarcia1210/ripsgen/constants"
	"github.com/YasminGarcia1210/ripsgen/internal/common"
	"github.com/YasminGarcia1210/ripsgen/internal/jobstore"
	"github.com/YasminGarcia1210/ripsgen/internal/pipeline"
)

// PairEntry is one line of the batch summary: the discovered pair plus
// its processing outcome.
type PairEntry struct {
	Pair
	Status     constants.PairStatus `json:"status"`
	InvoiceID  string               `json:"invoice_id,omitempty"`
	Errors     int                  `json:"errors"`
	Warnings   int                  `json:"warnings"`
	OutputPath string               `json:"output_path,omitempty"`
	ElapsedMS  int64                `json:"elapsed_ms"`
}

// Summary aggregates a whole batch run.
type Summary struct {
	RunID     string      `json:"run_id"`
	StartedAt time.Time   `json:"started_at"`
	Entries   []PairEntry `json:"entries"`
	Totals    Totals      `json:"totals"`
}

type Totals struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
	Failed    int `json:"failed"`
}

// Runner pushes discovered pairs through a fixed worker pool. One pair's
// failure never aborts the run; results flow through a channel to a
// single aggregator, so there is no shared mutable accumulator.
type Runner struct {
	proc    *pipeline.Processor
	store   jobstore.Store // optional
	logger  *slog.Logger
	workers int
	queue   int

	tasks   chan task
	results chan PairEntry
	wg      sync.WaitGroup
	once    sync.Once

	mu     sync.Mutex
	closed bool
}

type task struct {
	pair Pair
	in   pipeline.PairInput
}

type Option func(*Runner)

func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.queue = n
		}
	}
}

func WithStore(store jobstore.Store) Option {
	return func(r *Runner) { r.store = store }
}

func NewRunner(proc *pipeline.Processor, logger *slog.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		proc:    proc,
		logger:  logger,
		workers: 4,
		queue:   64,
	}
	for _, o := range opts {
		o(r)
	}
	r.tasks = make(chan task, r.queue)
	r.results = make(chan PairEntry, r.queue)
	return r
}

// RunOptions names the directories of one batch execution.
type RunOptions struct {
	InputDir     string
	HistoriesDir string
	OutputDir    string
	FlatFiles    bool
	XLSX         bool
	ReportXLSX   bool
}

// Run discovers, processes and summarizes one batch. It writes
// batch_summary.json under OutputDir and, when a store is configured,
// persists the run and its pairs.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (*Summary, error) {
	pairs, err := Discover(opts.InputDir, opts.HistoriesDir, r.logger)
	if err != nil {
		return nil, common.WrapError(err, "discover batch packages")
	}

	summary := &Summary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	ctx = common.WithRunID(ctx, summary.RunID)

	run := &jobstore.Run{
		ID:        summary.RunID,
		InputDir:  opts.InputDir,
		OutputDir: opts.OutputDir,
		StartedAt: summary.StartedAt,
		Total:     len(pairs),
	}
	if r.store != nil {
		if err := r.store.CreateRun(ctx, run); err != nil {
			return nil, err
		}
	}

	r.start(ctx)

	// aggregate on the calling goroutine while workers drain the queue
	expected := 0
	go func() {
		for _, p := range pairs {
			if !p.Processable() {
				continue
			}
			r.enqueue(task{
				pair: p,
				in: pipeline.PairInput{
					PairID:      p.Package,
					InvoicePath: p.InvoicePath,
					HistoryPath: p.HistoryPath,
					AnnexPath:   p.AnnexPath,
					OutputDir:   filepath.Join(opts.OutputDir, p.Package),
					FlatFiles:   opts.FlatFiles,
					XLSX:        opts.XLSX,
				},
			})
		}
	}()

	for _, p := range pairs {
		if !p.Processable() {
			summary.Entries = append(summary.Entries, PairEntry{
				Pair:   p,
				Status: constants.PairStatusPending,
			})
			continue
		}
		expected++
	}
	for i := 0; i < expected; i++ {
		entry := <-r.results
		summary.Entries = append(summary.Entries, entry)
	}

	for _, e := range summary.Entries {
		summary.Totals.Total++
		switch e.Status {
		case constants.PairStatusCompleted:
			summary.Totals.Completed++
		case constants.PairStatusPending:
			summary.Totals.Pending++
		default:
			summary.Totals.Failed++
		}
	}

	if r.store != nil {
		for _, e := range summary.Entries {
			detail, _ := json.Marshal(e)
			if err := r.store.RecordPair(ctx, &jobstore.PairRow{
				ID:        uuid.NewString(),
				RunID:     summary.RunID,
				PairID:    e.Package,
				InvoiceID: e.InvoiceID,
				Status:    e.Status,
				Reason:    e.Reason,
				Errors:    e.Errors,
				Warnings:  e.Warnings,
				Detail:    string(detail),
			}); err != nil {
				r.logger.Error("batch.store.pair_failed", "pair", e.Package, "err", err)
			}
		}
		run.Total = summary.Totals.Total
		run.Completed = summary.Totals.Completed
		run.Pending = summary.Totals.Pending
		run.Failed = summary.Totals.Failed
		if err := r.store.FinishRun(ctx, run); err != nil {
			r.logger.Error("batch.store.finish_failed", "run_id", summary.RunID, "err", err)
		}
	}

	if err := writeSummary(summary, opts.OutputDir); err != nil {
		return summary, err
	}
	if opts.ReportXLSX {
		if err := writeSummaryWorkbook(summary, filepath.Join(opts.OutputDir, "batch_summary.xlsx")); err != nil {
			r.logger.Error("batch.report_xlsx.failed", "err", err)
		}
	}
	r.logger.Info("batch.run.done",
		"run_id", summary.RunID,
		"total", summary.Totals.Total,
		"completed", summary.Totals.Completed,
		"pending", summary.Totals.Pending,
		"failed", summary.Totals.Failed,
	)
	return summary, nil
}

func (r *Runner) start(ctx context.Context) {
	r.once.Do(func() {
		runID := common.RunIDFromContext(ctx)
		for i := 0; i < r.workers; i++ {
			r.wg.Add(1)
			go func(workerID int) {
				defer r.wg.Done()
				r.logger.Debug("batch.worker.started", "run_id", runID, "worker_id", workerID)
				for t := range r.tasks {
					res, _ := r.proc.Run(ctx, t.in)
					t.pair.Reason = res.Reason
					r.logger.Debug("batch.worker.pair_done",
						"run_id", runID,
						"worker_id", workerID,
						"pair", t.pair.Package,
						"status", string(res.Status),
					)
					r.results <- PairEntry{
						Pair:       t.pair,
						Status:     res.Status,
						InvoiceID:  res.InvoiceID,
						Errors:     res.Errors,
						Warnings:   res.Warnings,
						OutputPath: res.OutputPath,
						ElapsedMS:  res.Elapsed.Milliseconds(),
					}
				}
				r.logger.Debug("batch.worker.stopped", "run_id", runID, "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (r *Runner) enqueue(t task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		r.logger.Warn("batch.enqueue.rejected", "pair", t.pair.Package)
		return
	}
	r.tasks <- t
}

// Shutdown stops accepting work and waits for in-flight pairs, bounded by
// ctx.
func (r *Runner) Shutdown(ctx context.Context) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.tasks)
	r.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); r.wg.Wait() }()

	select {
	case <-ctx.Done():
		r.logger.Warn("batch.shutdown.interrupted")
	case <-done:
		r.logger.Info("batch.shutdown.complete")
	}
}

func writeSummary(summary *Summary, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return common.InternalError("create batch output dir", err)
	}
	b, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return common.InternalError("encode batch summary", err)
	}
	path := filepath.Join(dir, constants.SummaryFile)
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return common.InternalError("write batch summary", err)
	}
	return nil
}
