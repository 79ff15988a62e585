package invoice

import (
	"context"
	"regexp"
	"strings"
	"time"

	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/YasminGarcia1210/ripsgen/internal/common"
	"github.com/YasminGarcia1210/ripsgen/internal/entity"
	"github.com/YasminGarcia1210/ripsgen/internal/pdftext"
)

var (
	reInvoiceID   = regexp.MustCompile(`(?i)\bNo[.: ]+([A-Za-z0-9-]+)`)
	reInvoiceFE   = regexp.MustCompile(`\b(FE[A-Z]{1,3}[0-9]{3,})\b`)
	reSupplierNIT = regexp.MustCompile(`([0-9]{3,}-[0-9])`)
	reNITLabel    = regexp.MustCompile(`(?i)\bNIT[:. ]+([0-9-]+)`)
	reNITLine     = regexp.MustCompile(`(?i)^nit[.: ]`)
	reAmountInLn  = regexp.MustCompile(`\$\s*[0-9.,]+`)
	reDigits      = regexp.MustCompile(`^[0-9]+$`)
	reItemLine    = regexp.MustCompile(`^([0-9]{4,7})\s*-\s*(.+)$`)
)

var datePatterns = []struct {
	layout string
	re     *regexp.Regexp
}{
	{"02/01/2006", regexp.MustCompile(`(\d{2}/\d{2}/\d{4})`)},
	{"02-01-2006", regexp.MustCompile(`(\d{2}-\d{2}-\d{4})`)},
	{"2006-01-02", regexp.MustCompile(`(\d{4}-\d{2}-\d{2})`)},
	{"2/1/06", regexp.MustCompile(`(\d{1,2}/\d{1,2}/\d{2})\b`)},
}

// Parser extracts invoice fields from embedded PDF text.
type Parser struct {
	pdf    *pdftext.Extractor
	logger *slog.Logger
}

func NewParser(pdf *pdftext.Extractor, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{pdf: pdf, logger: logger}
}

// ParseFile extracts text from the PDF at path and parses it.
func (p *Parser) ParseFile(ctx context.Context, path string) (*entity.InvoiceInfo, error) {
	res, err := p.pdf.Extract(ctx, path)
	if err != nil {
		return nil, err
	}
	info, err := p.Parse(res.Text)
	if err != nil {
		return nil, err
	}
	p.logger.Info("invoice.parse.ok",
		"invoice_id", info.InvoiceID,
		"lines", len(info.Lines),
		"total", info.Total.String(),
		"text_confidence", res.Confidence,
	)
	return info, nil
}

// Parse is a pure transform from normalized invoice text to InvoiceInfo.
// It fails only when no recognizable invoice header is present.
func (p *Parser) Parse(text string) (*entity.InvoiceInfo, error) {
	lines := pdftext.Lines(text)
	if len(lines) == 0 {
		return nil, common.ExtractionError("empty invoice text", nil)
	}

	invoiceID := extractInvoiceID(lines, text)
	if invoiceID == "" {
		return nil, common.ExtractionError("no invoice number found", nil)
	}
	issueDate := extractDate(text)
	if issueDate == nil {
		return nil, common.ExtractionError("no issue date found", nil)
	}

	info := &entity.InvoiceInfo{
		InvoiceID:    invoiceID,
		IssueDate:    issueDate,
		SupplierName: lines[0],
		SupplierNIT:  extractSupplierNIT(lines),
		CustomerName: extractCustomerName(lines),
		CustomerNIT:  extractCustomerNIT(lines),
	}

	info.Lines = extractTableLines(lines)
	if len(info.Lines) == 0 {
		// free-text layout: "993520 - VACUNACION ..." item lines
		info.Lines = extractItemLines(lines)
	}

	if total := extractTotal(lines); total != nil {
		info.Total = *total
	} else {
		info.Total = info.LinesTotal()
		info.TotalFromLines = true
	}
	return info, nil
}

func extractInvoiceID(lines []string, fullText string) string {
	for _, line := range lines {
		if m := reInvoiceID.FindStringSubmatch(line); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	if m := reInvoiceFE.FindStringSubmatch(fullText); m != nil {
		return m[1]
	}
	return ""
}

func extractDate(text string) *time.Time {
	for _, dp := range datePatterns {
		if m := dp.re.FindStringSubmatch(text); m != nil {
			if t, err := time.Parse(dp.layout, m[1]); err == nil {
				return &t
			}
		}
	}
	return nil
}

func extractSupplierNIT(lines []string) string {
	for _, line := range lines {
		if !reNITLine.MatchString(line) {
			continue
		}
		if m := reSupplierNIT.FindStringSubmatch(line); m != nil {
			return m[1]
		}
	}
	return ""
}

func extractCustomerName(lines []string) string {
	for i, line := range lines {
		if strings.ToLower(line) != "cliente" {
			continue
		}
		for _, cand := range window(lines, i+1, 4) {
			if cand != "" && strings.ToLower(cand) != "cliente" {
				return cand
			}
		}
	}
	return ""
}

func extractCustomerNIT(lines []string) string {
	for i, line := range lines {
		if strings.ToLower(line) != "cliente" {
			continue
		}
		for _, cand := range window(lines, i+1, 10) {
			if m := reNITLabel.FindStringSubmatch(cand); m != nil {
				return m[1]
			}
		}
		break
	}
	// fallback: first NIT label anywhere
	for _, line := range lines {
		if m := reNITLabel.FindStringSubmatch(line); m != nil {
			return m[1]
		}
	}
	return ""
}

// extractTableLines parses the table layout: a header row naming the code
// and name columns, then one row per service line with quantity, unit
// value and line total as the trailing columns.
func extractTableLines(lines []string) []entity.ServiceLine {
	header := -1
	for i, line := range lines {
		lower := strings.ToLower(line)
		if (strings.Contains(lower, "codigo") || strings.Contains(lower, "código")) &&
			strings.Contains(lower, "nombre") {
			header = i
			break
		}
	}
	if header < 0 {
		return nil
	}

	var out []entity.ServiceLine
	for _, row := range lines[header+1:] {
		upper := strings.ToUpper(row)
		if strings.HasPrefix(upper, "SUBTOTAL") || strings.HasPrefix(upper, "TOTAL") {
			continue
		}
		tokens := strings.Fields(row)
		if len(tokens) < 5 || !reDigits.MatchString(tokens[0]) {
			continue
		}
		quantity := ParseAmount(tokens[len(tokens)-3])
		unit := ParseAmount(tokens[len(tokens)-2])
		total := ParseAmount(tokens[len(tokens)-1])
		if total.IsZero() && !unit.IsZero() && !quantity.IsZero() {
			total = unit.Mul(quantity)
		}
		out = append(out, entity.ServiceLine{
			LineID:      tokens[0],
			Code:        tokens[1],
			Description: strings.Join(tokens[2:len(tokens)-3], " "),
			Quantity:    quantity,
			UnitValue:   unit,
			Total:       total,
		})
	}
	return out
}

// extractItemLines is the fallback for invoices without a service table:
// free-text "CODE - description" items. Values come later from the annex,
// so quantity defaults to one and the amounts to zero.
func extractItemLines(lines []string) []entity.ServiceLine {
	var out []entity.ServiceLine
	for _, line := range lines {
		m := reItemLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		out = append(out, entity.ServiceLine{
			LineID:      m[1],
			Code:        m[1],
			Description: strings.TrimSpace(m[2]),
			Quantity:    decimal.NewFromInt(1),
		})
	}
	return out
}

func extractTotal(lines []string) *decimal.Decimal {
	for _, label := range []string{"total", "subtotal"} {
		if d := amountAfterLabel(lines, label); d != nil {
			return d
		}
	}
	return nil
}

func amountAfterLabel(lines []string, label string) *decimal.Decimal {
	for i, line := range lines {
		if !strings.HasPrefix(strings.ToLower(line), label) {
			continue
		}
		if d := amountInLine(line); d != nil {
			return d
		}
		for _, cand := range window(lines, i+1, 3) {
			if d := amountInLine(cand); d != nil {
				return d
			}
		}
	}
	return nil
}

func amountInLine(line string) *decimal.Decimal {
	matches := reAmountInLn.FindAllString(line, -1)
	if len(matches) == 0 {
		return nil
	}
	d := ParseAmount(matches[len(matches)-1])
	return &d
}

func window(lines []string, start, n int) []string {
	end := start + n
	if start > len(lines) {
		return nil
	}
	if end > len(lines) {
		end = len(lines)
	}
	return lines[start:end]
}
