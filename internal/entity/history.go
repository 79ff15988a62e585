package entity

import "time"

// Provenance values for clinically extracted codes.
const (
	SourceDeterministic     = "deterministic"
	SourceHeuristicFallback = "heuristic-fallback"
	SourceModelFallback     = "model-fallback"
)

// CodeValue is a clinical code together with how it was obtained.
type CodeValue struct {
	Code   string `json:"code"`
	Source string `json:"source"`
}

// ConsultationInfo is one clinical encounter found in a history.
type ConsultationInfo struct {
	Date          *time.Time `json:"date,omitempty"`
	Code          string     `json:"code"` // CUPS consultation/procedure code
	Name          string     `json:"name"`
	Authorization string     `json:"authorization,omitempty"`
	Purpose       string     `json:"purpose,omitempty"`
	Note          string     `json:"note,omitempty"`
	Source        string     `json:"source"`
}

// HistoryInfo holds the fields extracted from a clinical-history PDF.
// DocumentNumber is the only mandatory field; everything else degrades
// to its zero value when the history does not carry it.
type HistoryInfo struct {
	DocumentType     string     `json:"document_type"`
	DocumentNumber   string     `json:"document_number"`
	PatientName      string     `json:"patient_name,omitempty"`
	Sex              string     `json:"sex,omitempty"` // F | M
	BirthDate        *time.Time `json:"birth_date,omitempty"`
	AttentionType    string     `json:"attention_type,omitempty"` // urgencias, consulta externa, ...
	AdmissionAt      *time.Time `json:"admission_at,omitempty"`
	DischargeAt      *time.Time `json:"discharge_at,omitempty"` // nil while still admitted
	AdmissionService string     `json:"admission_service,omitempty"`
	Purpose          string     `json:"purpose,omitempty"`
	TriageLevel      string     `json:"triage_level,omitempty"`
	ProviderCode     string     `json:"provider_code,omitempty"`

	PrincipalDiagnosis *CodeValue         `json:"principal_diagnosis,omitempty"`
	SecondaryDiagnoses []CodeValue        `json:"secondary_diagnoses,omitempty"`
	Consultations      []ConsultationInfo `json:"consultations,omitempty"`
	Attended           *bool              `json:"attended,omitempty"` // nil when the narrative does not say
}

// HasProcedureCodes reports whether any consultation carries a code.
func (h *HistoryInfo) HasProcedureCodes() bool {
	for _, c := range h.Consultations {
		if c.Code != "" {
			return true
		}
	}
	return false
}
