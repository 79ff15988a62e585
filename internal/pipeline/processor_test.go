package pipeline

import (
	"context"
	"io/fs"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YasminGarcia1210/ripsgen/constants"
	"github.com/YasminGarcia1210/ripsgen/internal/common"
	"github.com/YasminGarcia1210/ripsgen/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func TestRunMissingInvoiceIsPending(t *testing.T) {
	p := NewProcessor(testConfig(t), nil)

	res, err := p.Run(context.Background(), PairInput{
		InvoicePath: filepath.Join(t.TempDir(), "no-such.pdf"),
		HistoryPath: filepath.Join(t.TempDir(), "no-such-either.pdf"),
		OutputDir:   t.TempDir(),
	})

	// an absent input file is retriable, not terminal
	require.NoError(t, err)
	assert.Equal(t, constants.PairStatusPending, res.Status)
	assert.Equal(t, constants.ReasonInvoiceMissing, res.Reason)
	assert.NotEmpty(t, res.PairID)
	assert.Positive(t, res.Elapsed)
}

func TestClassify(t *testing.T) {
	p := NewProcessor(testConfig(t), nil)

	notExist := func(path string) error {
		return &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}

	cases := []struct {
		name    string
		err     error
		missing string
		status  constants.PairStatus
		reason  string
	}{
		{
			name:    "deadline exceeded is pending timeout",
			err:     context.DeadlineExceeded,
			missing: constants.ReasonInvoiceMissing,
			status:  constants.PairStatusPending,
			reason:  constants.ReasonTimeout,
		},
		{
			name:    "timeout code is pending timeout",
			err:     common.NewAppError(common.CodeTimeout, "pdf extraction canceled", nil),
			missing: constants.ReasonInvoiceMissing,
			status:  constants.PairStatusPending,
			reason:  constants.ReasonTimeout,
		},
		{
			name:    "missing invoice wrapped by extraction is pending",
			err:     common.ExtractionError("read invoice.pdf", notExist("invoice.pdf")),
			missing: constants.ReasonInvoiceMissing,
			status:  constants.PairStatusPending,
			reason:  constants.ReasonInvoiceMissing,
		},
		{
			name:    "missing history wrapped by extraction is pending",
			err:     common.ExtractionError("read history.pdf", notExist("history.pdf")),
			missing: constants.ReasonHistoryNotFound,
			status:  constants.PairStatusPending,
			reason:  constants.ReasonHistoryNotFound,
		},
		{
			name:    "parse failure is terminal",
			err:     common.ParseError("document number missing", nil),
			missing: constants.ReasonHistoryNotFound,
			status:  constants.PairStatusFailed,
			reason:  constants.ReasonParseFailed,
		},
		{
			name:    "extraction failure is terminal",
			err:     common.ExtractionError("no invoice header", nil),
			missing: constants.ReasonInvoiceMissing,
			status:  constants.PairStatusFailed,
			reason:  constants.ReasonExtractionFailed,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := p.classify(tc.err, constants.ReasonExtractionFailed, tc.missing)
			assert.Equal(t, tc.status, res.Status)
			assert.Equal(t, tc.reason, res.Reason)
		})
	}
}

func TestRunAssignsPairIDAndBudget(t *testing.T) {
	cfg := testConfig(t)
	cfg.Batch.PairTimeout = 50 * time.Millisecond
	p := NewProcessor(cfg, nil)

	res, _ := p.Run(context.Background(), PairInput{
		PairID:      "pair-42",
		InvoicePath: filepath.Join(t.TempDir(), "missing.pdf"),
		HistoryPath: filepath.Join(t.TempDir(), "missing.pdf"),
		OutputDir:   t.TempDir(),
	})
	assert.Equal(t, "pair-42", res.PairID)
}
