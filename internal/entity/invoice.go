package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ServiceLine is one itemized service on an invoice.
type ServiceLine struct {
	LineID      string          `json:"line_id"`
	Code        string          `json:"code"` // CUPS or internal service code
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitValue   decimal.Decimal `json:"unit_value"`
	Total       decimal.Decimal `json:"total"`
}

// InvoiceInfo holds the fields extracted from an invoice PDF.
type InvoiceInfo struct {
	InvoiceID      string          `json:"invoice_id"`
	IssueDate      *time.Time      `json:"issue_date,omitempty"`
	SupplierName   string          `json:"supplier_name"`
	SupplierNIT    string          `json:"supplier_nit"`
	CustomerName   string          `json:"customer_name"`
	CustomerNIT    string          `json:"customer_nit"`
	Total          decimal.Decimal `json:"total"`
	TotalFromLines bool            `json:"total_from_lines"` // no printed total; summed from lines
	Lines          []ServiceLine   `json:"lines"`
}

// LinesTotal returns the sum of line totals.
func (inv *InvoiceInfo) LinesTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range inv.Lines {
		sum = sum.Add(l.Total)
	}
	return sum
}
