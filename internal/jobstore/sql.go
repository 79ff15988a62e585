package jobstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/YasminGarcia1210/ripsgen/constants"
	"github.com/YasminGarcia1210/ripsgen/internal/common"
	"github.com/YasminGarcia1210/ripsgen/internal/config"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	input_dir   TEXT NOT NULL,
	output_dir  TEXT NOT NULL,
	started_at  TIMESTAMP NOT NULL,
	finished_at TIMESTAMP,
	total       INTEGER NOT NULL DEFAULT 0,
	completed   INTEGER NOT NULL DEFAULT 0,
	pending     INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS run_pairs (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	pair_id    TEXT NOT NULL,
	invoice_id TEXT,
	status     TEXT NOT NULL,
	reason     TEXT,
	errors     INTEGER NOT NULL DEFAULT 0,
	warnings   INTEGER NOT NULL DEFAULT 0,
	detail     TEXT,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_run_pairs_run ON run_pairs(run_id);
`

// SQLStore is the database/sql implementation of Store. It speaks SQLite
// for local runs and PostgreSQL for shared deployments; the SQL stays in
// the portable subset both support.
type SQLStore struct {
	db     *sql.DB
	pool   *pgxpool.Pool // nil for sqlite
	logger *slog.Logger
}

// Open connects per cfg, creates the schema idempotently and pings before
// returning.
func Open(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		db   *sql.DB
		pool *pgxpool.Pool
	)
	switch cfg.Driver {
	case "sqlite":
		var err error
		db, err = sql.Open("sqlite", cfg.DSN)
		if err != nil {
			return nil, common.InternalError("open sqlite store", err)
		}
		// modernc sqlite serializes internally; one writer avoids SQLITE_BUSY
		db.SetMaxOpenConns(1)
	case "postgres":
		pc, err := pgxpool.ParseConfig(cfg.DSN)
		if err != nil {
			return nil, common.InternalError("parse postgres dsn", err)
		}
		if cfg.MaxConns > 0 {
			pc.MaxConns = cfg.MaxConns
		}
		pc.ConnConfig.RuntimeParams["application_name"] = "ripsgen"
		pool, err = pgxpool.NewWithConfig(ctx, pc)
		if err != nil {
			return nil, common.InternalError("connect postgres store", err)
		}
		db = stdlib.OpenDBFromPool(pool)
	default:
		return nil, common.InvalidArgumentErrorf("store driver %q is not one of sqlite, postgres", cfg.Driver)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, common.InternalError("ping job store", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, common.InternalError("create job store schema", err)
	}

	logger.Info("jobstore.open", "driver", cfg.Driver)
	return &SQLStore{db: db, pool: pool, logger: logger}, nil
}

func (s *SQLStore) CreateRun(ctx context.Context, run *Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, input_dir, output_dir, started_at, total, completed, pending, failed)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.ID, run.InputDir, run.OutputDir, run.StartedAt.UTC(),
		run.Total, run.Completed, run.Pending, run.Failed,
	)
	if err != nil {
		return common.InternalError("insert run", err)
	}
	return nil
}

func (s *SQLStore) FinishRun(ctx context.Context, run *Run) error {
	finished := time.Now().UTC()
	run.FinishedAt = &finished
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = $1, total = $2, completed = $3, pending = $4, failed = $5 WHERE id = $6`,
		finished, run.Total, run.Completed, run.Pending, run.Failed, run.ID,
	)
	if err != nil {
		return common.InternalError("finish run", err)
	}
	return nil
}

func (s *SQLStore) RecordPair(ctx context.Context, row *PairRow) error {
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_pairs (id, run_id, pair_id, invoice_id, status, reason, errors, warnings, detail, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		row.ID, row.RunID, row.PairID, row.InvoiceID, string(row.Status), row.Reason,
		row.Errors, row.Warnings, row.Detail, row.CreatedAt,
	)
	if err != nil {
		return common.InternalError("insert run pair", err)
	}
	return nil
}

func (s *SQLStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, input_dir, output_dir, started_at, finished_at, total, completed, pending, failed
		 FROM runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, common.InternalError("list runs", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.InputDir, &r.OutputDir, &r.StartedAt, &finished,
			&r.Total, &r.Completed, &r.Pending, &r.Failed); err != nil {
			return nil, common.InternalError("scan run", err)
		}
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) ListPairs(ctx context.Context, runID string) ([]PairRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, pair_id, invoice_id, status, reason, errors, warnings, detail, created_at
		 FROM run_pairs WHERE run_id = $1 ORDER BY created_at`, runID)
	if err != nil {
		return nil, common.InternalError("list run pairs", err)
	}
	defer rows.Close()

	var out []PairRow
	for rows.Next() {
		var r PairRow
		var status string
		if err := rows.Scan(&r.ID, &r.RunID, &r.PairID, &r.InvoiceID, &status, &r.Reason,
			&r.Errors, &r.Warnings, &r.Detail, &r.CreatedAt); err != nil {
			return nil, common.InternalError("scan run pair", err)
		}
		r.Status = constants.PairStatus(status)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close releases the underlying connections.
func (s *SQLStore) Close() error {
	err := s.db.Close()
	if s.pool != nil {
		s.pool.Close()
	}
	if err != nil {
		return fmt.Errorf("close job store: %w", err)
	}
	return nil
}
