package validate

import (
	"fmt"
	"regexp"

	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/YasminGarcia1210/ripsgen/internal/entity"
)

// Severity levels for validation findings.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// Rule codes, in report order.
const (
	RuleIdentity  = "RIPS-DOC-001"
	RuleTotals    = "RIPS-TOT-001"
	RuleExtras    = "RIPS-TOT-002"
	RuleDiagnosis = "RIPS-DX-001"
	RuleCUPS      = "RIPS-CUPS-001"
	RuleClean     = "RIPS-OK-000"
)

// Finding is one validation observation about a record set.
type Finding struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	RecordID string `json:"record_id,omitempty"`
}

// ValidationReport aggregates the findings of one engine run.
type ValidationReport struct {
	Findings []Finding `json:"findings"`
	Errors   int       `json:"errors"`
	Warnings int       `json:"warnings"`
}

// HasErrors reports whether any error-severity finding was produced.
func (r *ValidationReport) HasErrors() bool { return r.Errors > 0 }

type rule func(e *Engine, set *entity.RipsRecordSet) []Finding

// Engine runs the fixed rule list over a record set. Rules are independent
// and the engine never aborts early: a complete report beats a fast one.
type Engine struct {
	tolerance decimal.Decimal
	logger    *slog.Logger
	rules     []rule
}

func NewEngine(tolerance decimal.Decimal, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		tolerance: tolerance,
		logger:    logger,
		rules: []rule{
			checkIdentity,
			checkTotals,
			checkExtras,
			checkDiagnosis,
			checkProcedureCodes,
		},
	}
}

// Run executes every rule in order and returns the aggregated report.
// Findings are ordered by rule, then by record order within a rule.
func (e *Engine) Run(set *entity.RipsRecordSet) ValidationReport {
	var report ValidationReport
	for _, r := range e.rules {
		report.Findings = append(report.Findings, r(e, set)...)
	}
	if len(report.Findings) == 0 {
		report.Findings = append(report.Findings, Finding{
			Rule:     RuleClean,
			Severity: SeverityInfo,
			Message:  "sin hallazgos: el conjunto de registros es consistente",
		})
	}
	for _, f := range report.Findings {
		switch f.Severity {
		case SeverityError:
			report.Errors++
		case SeverityWarning:
			report.Warnings++
		}
	}
	e.logger.Info("validate.run",
		"findings", len(report.Findings),
		"errors", report.Errors,
		"warnings", report.Warnings,
	)
	return report
}

// checkIdentity verifies that every record carries the same patient
// identity. An entirely missing identity is a data-quality warning, not an
// error: downstream review can still use the financial records.
func checkIdentity(_ *Engine, set *entity.RipsRecordSet) []Finding {
	docType := set.Identity.DocumentType.Value
	docNumber := set.Identity.DocumentNumber.Value

	if docNumber == "" {
		return []Finding{{
			Rule:     RuleIdentity,
			Severity: SeverityWarning,
			Message:  "no se pudo resolver la identidad del paciente en ninguna fuente",
		}}
	}

	var out []Finding
	mismatch := func(id, recType, recNumber string) {
		if (recNumber != "" && recNumber != docNumber) || (recType != "" && recType != docType) {
			out = append(out, Finding{
				Rule:     RuleIdentity,
				Severity: SeverityError,
				Message:  fmt.Sprintf("identidad inconsistente: %s/%s difiere de %s/%s", recType, recNumber, docType, docNumber),
				RecordID: id,
			})
		}
	}

	mismatch(set.Invoice.ID, set.Invoice.DocumentType, set.Invoice.DocumentNumber)
	if set.User != nil {
		mismatch(set.User.ID, set.User.DocumentType, set.User.DocumentNumber)
	}
	for _, r := range set.Procedures {
		mismatch(r.ID, r.DocumentType, r.DocumentNumber)
	}
	for _, r := range set.Consultations {
		mismatch(r.ID, r.DocumentType, r.DocumentNumber)
	}
	for _, r := range set.Medications {
		mismatch(r.ID, r.DocumentType, r.DocumentNumber)
	}
	for _, r := range set.OtherServices {
		mismatch(r.ID, r.DocumentType, r.DocumentNumber)
	}
	return out
}

// checkTotals reconciles the AP sum against the invoice total. The invoice
// is the financial authority, so a drift beyond tolerance is flagged for a
// human rather than corrected.
func checkTotals(e *Engine, set *entity.RipsRecordSet) []Finding {
	if len(set.Procedures) == 0 {
		return nil
	}
	sum := set.ProceduresTotal()
	diff := sum.Sub(set.Invoice.TotalValue).Abs()
	if diff.LessThanOrEqual(e.tolerance) {
		return nil
	}
	return []Finding{{
		Rule:     RuleTotals,
		Severity: SeverityWarning,
		Message: fmt.Sprintf("suma de procedimientos %s difiere del total facturado %s (diferencia %s)",
			sum.StringFixed(2), set.Invoice.TotalValue.StringFixed(2), diff.StringFixed(2)),
	}}
}

// checkExtras reports AM/AT/AC values riding alongside the procedures.
// Informational only: those values are never added to the invoice total.
func checkExtras(_ *Engine, set *entity.RipsRecordSet) []Finding {
	if len(set.Procedures) == 0 {
		return nil
	}
	extras := set.ExtrasTotal()
	if extras.IsZero() {
		return nil
	}
	return []Finding{{
		Rule:     RuleExtras,
		Severity: SeverityInfo,
		Message: fmt.Sprintf("valores adicionales (AC/AM/AT) por %s no sumados al total autoritativo",
			extras.StringFixed(2)),
	}}
}

func checkDiagnosis(_ *Engine, set *entity.RipsRecordSet) []Finding {
	for _, r := range set.Procedures {
		if r.DiagnosisCode != nil && *r.DiagnosisCode != "" {
			return nil
		}
	}
	for _, r := range set.Consultations {
		if r.PrincipalDiagnosis != nil && *r.PrincipalDiagnosis != "" {
			return nil
		}
	}
	return []Finding{{
		Rule:     RuleDiagnosis,
		Severity: SeverityWarning,
		Message:  "sin diagnóstico principal en la historia clínica",
	}}
}

var reCUPSShape = regexp.MustCompile(`^[0-9A-Z][0-9A-Z-]{2,}$`)

// checkProcedureCodes validates CUPS code presence and shape on AP records.
func checkProcedureCodes(_ *Engine, set *entity.RipsRecordSet) []Finding {
	var out []Finding
	any := false
	for _, r := range set.Procedures {
		if r.CUPSCode == "" {
			continue
		}
		any = true
		if !reCUPSShape.MatchString(r.CUPSCode) {
			out = append(out, Finding{
				Rule:     RuleCUPS,
				Severity: SeverityError,
				Message:  fmt.Sprintf("código de procedimiento con formato inválido: %q", r.CUPSCode),
				RecordID: r.ID,
			})
		}
	}
	if !any {
		out = append(out, Finding{
			Rule:     RuleCUPS,
			Severity: SeverityWarning,
			Message:  "ningún registro de procedimiento tiene código CUPS",
		})
	}
	return out
}
