package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Merge sources for identity fields.
const (
	MergeSourceAnnex   = "annex"
	MergeSourceHistory = "history"
	MergeSourceInvoice = "invoice"
	MergeSourceDefault = "default"
)

// FieldCandidate is a value one source offered for a merged field.
type FieldCandidate struct {
	Value  string `json:"value"`
	Source string `json:"source"`
}

// MergedField is a reconciled scalar plus its audit trail: the winning
// value, which source supplied it, and every conflicting value that lost
// the merge. Discarded alternatives are never dropped silently.
type MergedField struct {
	Value     string           `json:"value"`
	Source    string           `json:"source,omitempty"`
	Discarded []FieldCandidate `json:"discarded,omitempty"`
}

// IsEmpty reports whether no source supplied a value.
func (f MergedField) IsEmpty() bool { return f.Value == "" }

// ResolvedIdentity is the patient identity after source reconciliation.
type ResolvedIdentity struct {
	DocumentType   MergedField `json:"document_type"`
	DocumentNumber MergedField `json:"document_number"`
	FullName       MergedField `json:"full_name"`
	Sex            MergedField `json:"sex"`
	Municipality   MergedField `json:"municipality"`
	Zone           MergedField `json:"zone"`
	BirthDate      *time.Time  `json:"birth_date,omitempty"`
	BirthDateFrom  string      `json:"birth_date_from,omitempty"`
}

// InvoiceRecord is the AF record.
type InvoiceRecord struct {
	ID             string          `json:"id"`
	ProviderCode   string          `json:"provider_code"`
	ProviderName   string          `json:"provider_name,omitempty"`
	InvoiceNumber  string          `json:"invoice_number"`
	InvoiceDate    *time.Time      `json:"invoice_date,omitempty"`
	TotalValue     decimal.Decimal `json:"total_value"`
	DocumentType   string          `json:"document_type"`
	DocumentNumber string          `json:"document_number"`
	ContractNumber *string         `json:"contract_number,omitempty"`
	PolicyNumber   *string         `json:"policy_number,omitempty"`
	Copayment      decimal.Decimal `json:"copayment"`
	Commission     decimal.Decimal `json:"commission"`
	Discount       decimal.Decimal `json:"discount"`
	Sources        []string        `json:"sources,omitempty"`
}

// UserRecord is the US record. Built only when a document number resolved.
type UserRecord struct {
	ID             string   `json:"id"`
	DocumentType   string   `json:"document_type"`
	DocumentNumber string   `json:"document_number"`
	LastName       *string  `json:"last_name,omitempty"`
	SecondLastName *string  `json:"second_last_name,omitempty"`
	FirstName      *string  `json:"first_name,omitempty"`
	SecondName     *string  `json:"second_name,omitempty"`
	Age            *int     `json:"age,omitempty"`
	AgeUnit        *string  `json:"age_unit,omitempty"` // "A" years
	Sex            *string  `json:"sex,omitempty"`
	DepartmentCode *string  `json:"department_code,omitempty"`
	Municipality   *string  `json:"municipality,omitempty"`
	ResidenceZone  *string  `json:"residence_zone,omitempty"`
	Sources        []string `json:"sources,omitempty"`
}

// ProcedureRecord is one AP record, built from one invoice service line.
type ProcedureRecord struct {
	ID               string          `json:"id"`
	ProviderCode     string          `json:"provider_code"`
	InvoiceNumber    string          `json:"invoice_number"`
	DocumentType     string          `json:"document_type"`
	DocumentNumber   string          `json:"document_number"`
	ServiceDate      *time.Time      `json:"service_date,omitempty"`
	Authorization    *string         `json:"authorization,omitempty"`
	ServiceID        string          `json:"service_id"`
	CUPSCode         string          `json:"cups_code"`
	DiagnosisCode    *string         `json:"diagnosis_code,omitempty"`
	RelatedDiagnosis *string         `json:"related_diagnosis,omitempty"`
	PurposeCode      *string         `json:"purpose_code,omitempty"`
	AttentionCode    *string         `json:"attention_code,omitempty"`
	Copayment        decimal.Decimal `json:"copayment"`
	NetValue         decimal.Decimal `json:"net_value"`
	ModalityCode     *string         `json:"modality_code,omitempty"`
	Tags             []string        `json:"tags,omitempty"` // e.g. "unenriched"
	Sources          []string        `json:"sources,omitempty"`
}

// ConsultationRecord is one AC record, built from a history encounter.
type ConsultationRecord struct {
	ID                 string          `json:"id"`
	ProviderCode       string          `json:"provider_code"`
	InvoiceNumber      string          `json:"invoice_number"`
	DocumentType       string          `json:"document_type"`
	DocumentNumber     string          `json:"document_number"`
	ConsultationDate   *time.Time      `json:"consultation_date,omitempty"`
	Authorization      *string         `json:"authorization,omitempty"`
	ConsultationCode   string          `json:"consultation_code"`
	PurposeCode        *string         `json:"purpose_code,omitempty"`
	ExternalCause      *string         `json:"external_cause,omitempty"`
	PrincipalDiagnosis *string         `json:"principal_diagnosis,omitempty"`
	RelatedDiagnosis1  *string         `json:"related_diagnosis1,omitempty"`
	RelatedDiagnosis2  *string         `json:"related_diagnosis2,omitempty"`
	RelatedDiagnosis3  *string         `json:"related_diagnosis3,omitempty"`
	DiagnosisType      string          `json:"diagnosis_type"`
	ConsultationValue  decimal.Decimal `json:"consultation_value"`
	Copayment          decimal.Decimal `json:"copayment"`
	NetValue           decimal.Decimal `json:"net_value"`
	Tags               []string        `json:"tags,omitempty"`
	Sources            []string        `json:"sources,omitempty"`
}

// MedicationRecord is one AM record, built from an annex medication line.
type MedicationRecord struct {
	ID                 string          `json:"id"`
	ProviderCode       string          `json:"provider_code"`
	InvoiceNumber      string          `json:"invoice_number"`
	DocumentType       string          `json:"document_type"`
	DocumentNumber     string          `json:"document_number"`
	Authorization      *string         `json:"authorization,omitempty"`
	MedicationCode     string          `json:"medication_code"`
	MipresID           *string         `json:"mipres_id,omitempty"`
	MedicationType     *string         `json:"medication_type,omitempty"`
	MedicationName     *string         `json:"medication_name,omitempty"`
	PharmaceuticalForm *string         `json:"pharmaceutical_form,omitempty"`
	Concentration      *string         `json:"concentration,omitempty"`
	UnitMeasure        *string         `json:"unit_measure,omitempty"`
	TreatmentDays      *int            `json:"treatment_days,omitempty"`
	Quantity           decimal.Decimal `json:"quantity"`
	UnitValue          decimal.Decimal `json:"unit_value"`
	TotalValue         decimal.Decimal `json:"total_value"`
	PrincipalDiagnosis *string         `json:"principal_diagnosis,omitempty"`
	RelatedDiagnosis   *string         `json:"related_diagnosis,omitempty"`
	AdministeredAt     *time.Time      `json:"administered_at,omitempty"`
	Tags               []string        `json:"tags,omitempty"`
	Sources            []string        `json:"sources,omitempty"`
}

// OtherServiceRecord is one AT record, built from an annex other-service line.
type OtherServiceRecord struct {
	ID                 string          `json:"id"`
	ProviderCode       string          `json:"provider_code"`
	InvoiceNumber      string          `json:"invoice_number"`
	DocumentType       string          `json:"document_type"`
	DocumentNumber     string          `json:"document_number"`
	Authorization      *string         `json:"authorization,omitempty"`
	ServiceType        *string         `json:"service_type,omitempty"`
	ServiceCode        string          `json:"service_code"`
	ServiceName        *string         `json:"service_name,omitempty"`
	ServiceDate        *time.Time      `json:"service_date,omitempty"`
	Quantity           decimal.Decimal `json:"quantity"`
	UnitValue          decimal.Decimal `json:"unit_value"`
	TotalValue         decimal.Decimal `json:"total_value"`
	MipresID           *string         `json:"mipres_id,omitempty"`
	PrincipalDiagnosis *string         `json:"principal_diagnosis,omitempty"`
	RelatedDiagnosis   *string         `json:"related_diagnosis,omitempty"`
	Tags               []string        `json:"tags,omitempty"`
	Sources            []string        `json:"sources,omitempty"`
}

// RipsRecordSet is the builder's output: one patient, one invoice, and the
// record arrays for every RIPS category. Created fresh per build and not
// mutated after construction.
type RipsRecordSet struct {
	Invoice       InvoiceRecord        `json:"invoice"`
	User          *UserRecord          `json:"user,omitempty"`
	Procedures    []ProcedureRecord    `json:"procedures"`
	Consultations []ConsultationRecord `json:"consultations"`
	Medications   []MedicationRecord   `json:"medications"`
	OtherServices []OtherServiceRecord `json:"other_services"`
	Identity      ResolvedIdentity     `json:"identity"`
}

// ProceduresTotal sums the net value of all AP records.
func (s *RipsRecordSet) ProceduresTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, r := range s.Procedures {
		sum = sum.Add(r.NetValue)
	}
	return sum
}

// ExtrasTotal sums AC, AM and AT values. Informational only: extras are
// never added to the authoritative procedure total during reconciliation.
func (s *RipsRecordSet) ExtrasTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, r := range s.Consultations {
		sum = sum.Add(r.NetValue)
	}
	for _, r := range s.Medications {
		sum = sum.Add(r.TotalValue)
	}
	for _, r := range s.OtherServices {
		sum = sum.Add(r.TotalValue)
	}
	return sum
}
