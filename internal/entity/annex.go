package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// AnnexInfo holds the normalized content of the optional third-party annex.
// Pointer fields are nil when the payload omitted them; the annex itself is
// optional enrichment, so a nil *AnnexInfo is a valid processing state.
type AnnexInfo struct {
	DocumentType   *string    `json:"document_type,omitempty"`
	DocumentNumber *string    `json:"document_number,omitempty"`
	FullName       *string    `json:"full_name,omitempty"`
	Sex            *string    `json:"sex,omitempty"`
	BirthDate      *time.Time `json:"birth_date,omitempty"`
	Municipality   *string    `json:"municipality,omitempty"`
	Zone           *string    `json:"zone,omitempty"`

	Medications   []MedicationLine   `json:"medications,omitempty"`
	OtherServices []OtherServiceLine `json:"other_services,omitempty"`
}

// MedicationLine mirrors one entry of the annex medication array.
type MedicationLine struct {
	ProviderCode       string          `json:"provider_code"`
	DocumentType       *string         `json:"document_type,omitempty"`
	DocumentNumber     *string         `json:"document_number,omitempty"`
	Authorization      *string         `json:"authorization,omitempty"`
	Code               string          `json:"code"`
	Name               *string         `json:"name,omitempty"`
	Type               *string         `json:"type,omitempty"`
	PharmaceuticalForm *string         `json:"pharmaceutical_form,omitempty"`
	Concentration      *string         `json:"concentration,omitempty"`
	UnitMeasure        *string         `json:"unit_measure,omitempty"`
	TreatmentDays      *int            `json:"treatment_days,omitempty"`
	Quantity           decimal.Decimal `json:"quantity"`
	UnitValue          decimal.Decimal `json:"unit_value"`
	TotalValue         decimal.Decimal `json:"total_value"`
	DiagnosisCode      *string         `json:"diagnosis_code,omitempty"`
	RelatedDiagnosis   *string         `json:"related_diagnosis,omitempty"`
	MipresID           *string         `json:"mipres_id,omitempty"`
	AdministeredAt     *time.Time      `json:"administered_at,omitempty"`
}

// OtherServiceLine mirrors one entry of the annex other-services array.
type OtherServiceLine struct {
	ProviderCode     string          `json:"provider_code"`
	DocumentType     *string         `json:"document_type,omitempty"`
	DocumentNumber   *string         `json:"document_number,omitempty"`
	Authorization    *string         `json:"authorization,omitempty"`
	Code             string          `json:"code"`
	Name             *string         `json:"name,omitempty"`
	Type             *string         `json:"type,omitempty"`
	ServiceDate      *time.Time      `json:"service_date,omitempty"`
	Quantity         decimal.Decimal `json:"quantity"`
	UnitValue        decimal.Decimal `json:"unit_value"`
	TotalValue       decimal.Decimal `json:"total_value"`
	DiagnosisCode    *string         `json:"diagnosis_code,omitempty"`
	RelatedDiagnosis *string         `json:"related_diagnosis,omitempty"`
	MipresID         *string         `json:"mipres_id,omitempty"`
}
