package export

import (
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/YasminGarcia1210/ripsgen/internal/common"
	"github.com/YasminGarcia1210/ripsgen/internal/entity"
	"github.com/YasminGarcia1210/ripsgen/internal/validate"
)

// DocumentMeta carries context the record set itself does not know.
type DocumentMeta struct {
	Invoice    *entity.InvoiceInfo
	History    *entity.HistoryInfo
	Annex      *entity.AnnexInfo
	NLPSupport *NLPSupport
	OutputDir  string
}

// NLPSupport lists the clinical entities the fallback extractor produced,
// included only on request.
type NLPSupport struct {
	Strategy   string         `json:"strategy"`
	Diagnoses  []EntityDetail `json:"diagnoses"`
	Procedures []EntityDetail `json:"procedures"`
}

type EntityDetail struct {
	Code  string  `json:"code"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// SourceField is the provenance triple for a reconciled identity scalar.
type SourceField struct {
	History       *string `json:"history"`
	AnnexOriginal *string `json:"annex_original"`
	Resolved      *string `json:"resolved"`
}

// ResultDocument is the JSON summary written for every processed pair.
type ResultDocument struct {
	GeneratedAt string `json:"generated_at"`
	Invoice     struct {
		InvoiceID    string  `json:"invoice_id"`
		IssueDate    *string `json:"issue_date"`
		CustomerName string  `json:"customer_name,omitempty"`
		TotalAmount  string  `json:"total_amount"`
		LineCount    int     `json:"line_count"`
	} `json:"invoice"`
	Patient struct {
		DocumentType           *string     `json:"document_type"`
		DocumentNumber         *string     `json:"document_number"`
		FullName               *string     `json:"full_name"`
		PrincipalDiagnosisCode *string     `json:"principal_diagnosis_code"`
		SourceDocumentType     SourceField `json:"source_document_type"`
		SourceDocumentNumber   SourceField `json:"source_document_number"`
	} `json:"patient"`
	Procedures    []entity.ProcedureRecord    `json:"rips_procedures"`
	Consultations []entity.ConsultationRecord `json:"rips_consultations"`
	Medications   []entity.MedicationRecord   `json:"rips_medications"`
	OtherServices []entity.OtherServiceRecord `json:"rips_other_services"`
	InvoiceRecord struct {
		InvoiceNumber string `json:"invoice_number"`
		TotalValue    string `json:"total_value"`
	} `json:"rips_invoice"`
	UserRecord         *entity.UserRecord `json:"rips_user,omitempty"`
	ValidationMessages []validate.Finding `json:"validation_messages"`
	NLPSupport         *NLPSupport        `json:"nlp_support"`
	OutputDir          *string            `json:"output_dir"`
}

// BuildDocument assembles the result document for one pair. It is a pure
// transform; WriteDocument does the I/O.
func BuildDocument(set *entity.RipsRecordSet, report *validate.ValidationReport, meta DocumentMeta) *ResultDocument {
	doc := &ResultDocument{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}

	if meta.Invoice != nil {
		doc.Invoice.InvoiceID = meta.Invoice.InvoiceID
		if meta.Invoice.IssueDate != nil {
			s := meta.Invoice.IssueDate.Format("2006-01-02")
			doc.Invoice.IssueDate = &s
		}
		doc.Invoice.CustomerName = meta.Invoice.CustomerName
		doc.Invoice.TotalAmount = meta.Invoice.Total.StringFixed(2)
		doc.Invoice.LineCount = len(meta.Invoice.Lines)
	}

	doc.Patient.DocumentType = nilIfEmpty(set.Identity.DocumentType.Value)
	doc.Patient.DocumentNumber = nilIfEmpty(set.Identity.DocumentNumber.Value)
	doc.Patient.FullName = nilIfEmpty(set.Identity.FullName.Value)
	if meta.History != nil && meta.History.PrincipalDiagnosis != nil {
		doc.Patient.PrincipalDiagnosisCode = nilIfEmpty(meta.History.PrincipalDiagnosis.Code)
	}
	doc.Patient.SourceDocumentType = SourceField{
		History:  historyField(meta.History, func(h *entity.HistoryInfo) string { return h.DocumentType }),
		Resolved: nilIfEmpty(set.Identity.DocumentType.Value),
	}
	doc.Patient.SourceDocumentNumber = SourceField{
		History:  historyField(meta.History, func(h *entity.HistoryInfo) string { return h.DocumentNumber }),
		Resolved: nilIfEmpty(set.Identity.DocumentNumber.Value),
	}
	if meta.Annex != nil {
		doc.Patient.SourceDocumentType.AnnexOriginal = meta.Annex.DocumentType
		doc.Patient.SourceDocumentNumber.AnnexOriginal = meta.Annex.DocumentNumber
	}

	doc.Procedures = set.Procedures
	doc.Consultations = set.Consultations
	doc.Medications = set.Medications
	doc.OtherServices = set.OtherServices
	doc.InvoiceRecord.InvoiceNumber = set.Invoice.InvoiceNumber
	doc.InvoiceRecord.TotalValue = set.Invoice.TotalValue.StringFixed(2)
	doc.UserRecord = set.User
	if report != nil {
		doc.ValidationMessages = report.Findings
	}
	doc.NLPSupport = meta.NLPSupport
	doc.OutputDir = nilIfEmpty(meta.OutputDir)
	return doc
}

// WriteDocument serializes the document to path, creating parent
// directories as needed.
func WriteDocument(doc *ResultDocument, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return common.InternalError("create output dir", err)
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return common.InternalError("encode result document", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return common.InternalError("write result document", err)
	}
	return nil
}

func historyField(h *entity.HistoryInfo, get func(*entity.HistoryInfo) string) *string {
	if h == nil {
		return nil
	}
	return nilIfEmpty(get(h))
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
