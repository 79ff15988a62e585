package pipeline

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/YasminGarcia1210/ripsgen/constants"
	"github.com/YasminGarcia1210/ripsgen/internal/annex"
	"github.com/YasminGarcia1210/ripsgen/internal/builder"
	"github.com/YasminGarcia1210/ripsgen/internal/clinical"
	"github.com/YasminGarcia1210/ripsgen/internal/common"
	"github.com/YasminGarcia1210/ripsgen/internal/config"
	"github.com/YasminGarcia1210/ripsgen/internal/entity"
	"github.com/YasminGarcia1210/ripsgen/internal/export"
	"github.com/YasminGarcia1210/ripsgen/internal/history"
	"github.com/YasminGarcia1210/ripsgen/internal/invoice"
	"github.com/YasminGarcia1210/ripsgen/internal/pdftext"
	"github.com/YasminGarcia1210/ripsgen/internal/validate"
)

// PairInput names the documents of one invoice/history pair.
type PairInput struct {
	PairID      string
	InvoicePath string
	HistoryPath string
	AnnexPath   string // optional
	OutputDir   string
	FlatFiles   bool
	XLSX        bool
	NLPDetails  bool
}

// PairResult is the outcome of processing one pair. Status semantics:
// pending pairs are retriable by a later run, failed pairs are terminal.
type PairResult struct {
	PairID     string               `json:"pair_id"`
	Status     constants.PairStatus `json:"status"`
	Reason     string               `json:"reason,omitempty"`
	InvoiceID  string               `json:"invoice_id,omitempty"`
	Errors     int                  `json:"errors"`
	Warnings   int                  `json:"warnings"`
	OutputPath string               `json:"output_path,omitempty"`
	Elapsed    time.Duration        `json:"elapsed"`
}

// Processor runs the full extraction chain for a single pair: text
// extraction, invoice and history parsing, annex normalization, record
// building, validation and exports.
type Processor struct {
	cfg       *config.Config
	invoices  *invoice.Parser
	histories *history.Parser
	annexes   *annex.Normalizer
	builder   *builder.Builder
	engine    *validate.Engine
	clinical  *clinical.Extractor
	logger    *slog.Logger
}

func NewProcessor(cfg *config.Config, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	pdf := pdftext.NewExtractor(logger)
	clin := clinical.NewExtractor(cfg, logger)
	return &Processor{
		cfg:       cfg,
		invoices:  invoice.NewParser(pdf, logger),
		histories: history.NewParser(pdf, clin, logger),
		annexes:   annex.NewNormalizer(logger),
		builder:   builder.NewBuilder(logger),
		engine:    validate.NewEngine(cfg.Tolerance(), logger),
		clinical:  clin,
		logger:    logger,
	}
}

// Run processes one pair within the configured per-pair budget. It always
// returns a result; the error mirrors terminal failures for callers that
// want to propagate them.
func (p *Processor) Run(ctx context.Context, in PairInput) (PairResult, error) {
	start := time.Now()
	if in.PairID == "" {
		in.PairID = uuid.NewString()
	}
	ctx = common.WithPairID(ctx, in.PairID)
	ctx, cancel := common.WithTimeout(ctx, p.cfg.Batch.PairTimeout)
	defer cancel()

	res := p.run(ctx, in)
	res.PairID = in.PairID
	res.Elapsed = time.Since(start)

	p.logger.Info("pipeline.pair.done",
		"pair_id", in.PairID,
		"status", string(res.Status),
		"reason", res.Reason,
		"invoice_id", res.InvoiceID,
		"elapsed_ms", res.Elapsed.Milliseconds(),
	)
	if res.Status == constants.PairStatusFailed {
		return res, common.NewAppError(common.CodeExtractionFailed, res.Reason, nil)
	}
	return res, nil
}

func (p *Processor) run(ctx context.Context, in PairInput) PairResult {
	inv, err := p.invoices.ParseFile(ctx, in.InvoicePath)
	if err != nil {
		return p.classify(err, constants.ReasonExtractionFailed, constants.ReasonInvoiceMissing)
	}

	hist, err := p.histories.ParseFile(ctx, in.HistoryPath)
	if err != nil {
		return p.classify(err, constants.ReasonParseFailed, constants.ReasonHistoryNotFound)
	}

	var ann *entity.AnnexInfo
	if in.AnnexPath != "" {
		ann, err = p.annexes.ParseFile(in.AnnexPath)
		if err != nil {
			// a broken annex degrades to no-annex processing
			p.logger.Warn("pipeline.annex.dropped",
				"pair_id", common.PairIDFromContext(ctx),
				"path", in.AnnexPath,
				"err", err,
			)
			ann = nil
		}
	}

	set := p.builder.Build(inv, hist, ann)
	report := p.engine.Run(&set)

	meta := export.DocumentMeta{
		Invoice:   inv,
		History:   hist,
		Annex:     ann,
		OutputDir: in.OutputDir,
	}
	if in.NLPDetails {
		meta.NLPSupport = p.nlpSupport(ctx, in.HistoryPath)
	}

	outPath := filepath.Join(in.OutputDir, inv.InvoiceID+"_rips.json")
	doc := export.BuildDocument(&set, &report, meta)
	if err := export.WriteDocument(doc, outPath); err != nil {
		return PairResult{Status: constants.PairStatusFailed, Reason: "write_result_document", InvoiceID: inv.InvoiceID}
	}
	if in.FlatFiles {
		opts := export.FlatFileOptions{Delimiter: p.cfg.Export.Delimiter}
		if err := export.WriteFlatFiles(&set, in.OutputDir, opts, p.logger); err != nil {
			return PairResult{Status: constants.PairStatusFailed, Reason: "write_flat_files", InvoiceID: inv.InvoiceID}
		}
	}
	if in.XLSX {
		xlsxPath := filepath.Join(in.OutputDir, inv.InvoiceID+"_rips.xlsx")
		if err := export.WriteWorkbook(&set, &report, xlsxPath, p.logger); err != nil {
			return PairResult{Status: constants.PairStatusFailed, Reason: "write_xlsx", InvoiceID: inv.InvoiceID}
		}
	}

	return PairResult{
		Status:     constants.PairStatusCompleted,
		InvoiceID:  inv.InvoiceID,
		Errors:     report.Errors,
		Warnings:   report.Warnings,
		OutputPath: outPath,
	}
}

// classify turns an extraction error into a pair status. Deadline
// overruns and absent input files are pending (retriable); everything
// else is terminal for the pair. The missing-file check runs before the
// code checks because extraction wraps read errors into its own code.
func (p *Processor) classify(err error, fallback, missing string) PairResult {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || common.IsCode(err, common.CodeTimeout):
		return PairResult{Status: constants.PairStatusPending, Reason: constants.ReasonTimeout}
	case errors.Is(err, fs.ErrNotExist):
		return PairResult{Status: constants.PairStatusPending, Reason: missing}
	case common.IsCode(err, common.CodeParseFailed):
		return PairResult{Status: constants.PairStatusFailed, Reason: constants.ReasonParseFailed}
	case common.IsCode(err, common.CodeExtractionFailed):
		return PairResult{Status: constants.PairStatusFailed, Reason: constants.ReasonExtractionFailed}
	default:
		return PairResult{Status: constants.PairStatusFailed, Reason: fallback}
	}
}

// nlpSupport re-runs the clinical extractor over the history text so the
// result document can show what the fallback would contribute.
func (p *Processor) nlpSupport(ctx context.Context, historyPath string) *export.NLPSupport {
	pdf := pdftext.NewExtractor(p.logger)
	res, err := pdf.Extract(ctx, historyPath)
	if err != nil {
		return nil
	}
	ents := p.clinical.Extract(ctx, res.Text)
	support := &export.NLPSupport{Strategy: p.clinical.ActiveStrategy()}
	for _, e := range ents {
		d := export.EntityDetail{Code: e.Code, Text: e.Text, Score: e.Confidence}
		if e.Kind == entity.EntityDiagnosis {
			support.Diagnoses = append(support.Diagnoses, d)
		} else {
			support.Procedures = append(support.Procedures, d)
		}
	}
	return support
}
