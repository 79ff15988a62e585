package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"log/slog"

	"github.com/ledongthuc/pdf"

	"github.com/YasminGarcia1210/ripsgen/internal/common"
)

// Result carries extracted text plus basic diagnostics.
type Result struct {
	Text       string
	Pages      int
	Confidence float32
	Duration   time.Duration
	Warnings   []string
}

// Extractor pulls embedded text out of PDF files. Scanned images are out
// of scope: a PDF with no text layer yields an empty result, not OCR.
type Extractor struct {
	logger *slog.Logger
}

func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// Extract reads path and returns its normalized embedded text.
func (e *Extractor) Extract(ctx context.Context, path string) (Result, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Result{}, common.ExtractionError(fmt.Sprintf("read %s", path), err)
	}
	return e.FromBytes(ctx, b)
}

// FromBytes extracts embedded text from raw PDF bytes, row by row so that
// label/value pairs stay on one line for the downstream parsers.
func (e *Extractor) FromBytes(ctx context.Context, b []byte) (Result, error) {
	start := time.Now()

	r, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return Result{}, common.ExtractionError("open pdf", err)
	}

	var sb strings.Builder
	var warnings []string
	pages := r.NumPage()
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return Result{}, common.NewAppError(common.CodeTimeout, "pdf extraction canceled", err)
		}
		page := r.Page(i)
		if page.V.IsNull() {
			warnings = append(warnings, fmt.Sprintf("page %d: null object", i))
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("page %d: %v", i, err))
			continue
		}
		for _, row := range rows {
			for j, word := range row.Content {
				if j > 0 {
					sb.WriteString(" ")
				}
				sb.WriteString(word.S)
			}
			sb.WriteString("\n")
		}
	}

	text := Normalize(sb.String())
	res := Result{
		Text:       text,
		Pages:      pages,
		Confidence: Confidence(text),
		Duration:   time.Since(start),
		Warnings:   warnings,
	}
	e.logger.Debug("pdftext.extract.ok",
		"pages", res.Pages,
		"text_len", len(res.Text),
		"confidence", res.Confidence,
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}
