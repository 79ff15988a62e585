package constants

// PairStatus is the canonical status for a processed invoice/history pair.
type PairStatus string

// Stable values (store these exact strings in DB and summaries).
const (
	PairStatusCompleted PairStatus = "COMPLETED" // record set built and exported
	PairStatusPending   PairStatus = "PENDING"   // missing input or budget exceeded; retriable by a later run
	PairStatusFailed    PairStatus = "FAILED"    // terminal failure for this pair
)

// Reason codes for pending/failed pairs. Reasons are data, not errors.
const (
	ReasonInvoiceMissing   = "invoice_pdf_missing"
	ReasonAnnexMissing     = "annex_missing"
	ReasonAnnexReadError   = "annex_read_error"
	ReasonHistoryNotFound  = "history_not_found"
	ReasonTimeout          = "timeout"
	ReasonExtractionFailed = "extraction_failed"
	ReasonParseFailed      = "parse_failed"
)
