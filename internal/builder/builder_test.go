package builder

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YasminGarcia1210/ripsgen/internal/entity"
)

func date(value string) *time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return &t
}

func str(s string) *string { return &s }

func sampleInvoice() *entity.InvoiceInfo {
	return &entity.InvoiceInfo{
		InvoiceID:    "FERO306500",
		IssueDate:    date("2024-03-15"),
		SupplierName: "CLINICA DEL NORTE SAS",
		SupplierNIT:  "800433101",
		Total:        decimal.RequireFromString("93200.00"),
		Lines: []entity.ServiceLine{
			{LineID: "1", Code: "993520", Description: "VACUNACION COMBINADA", Quantity: decimal.NewFromInt(1), UnitValue: decimal.RequireFromString("58200.00"), Total: decimal.RequireFromString("58200.00")},
			{LineID: "2", Code: "993510", Description: "VACUNACION TRIPLE VIRAL", Quantity: decimal.NewFromInt(1), UnitValue: decimal.RequireFromString("35000.00"), Total: decimal.RequireFromString("35000.00")},
		},
	}
}

func sampleHistory() *entity.HistoryInfo {
	return &entity.HistoryInfo{
		DocumentType:   "cc",
		DocumentNumber: "1232835680",
		PatientName:    "ANA MARIA PEREZ GOMEZ",
		Sex:            "F",
		BirthDate:      date("1995-02-14"),
		AttentionType:  "Consulta Externa",
		AdmissionAt:    date("2024-03-15"),
		Purpose:        "Vacunación",
		ProviderCode:   "080043310101",
		PrincipalDiagnosis: &entity.CodeValue{
			Code:   "Z001",
			Source: entity.SourceDeterministic,
		},
		Consultations: []entity.ConsultationInfo{
			{Date: date("2024-03-15"), Code: "993520", Name: "VACUNACION COMBINADA", Source: entity.SourceDeterministic},
		},
	}
}

func sampleAnnex() *entity.AnnexInfo {
	return &entity.AnnexInfo{
		DocumentType:   str("CC"),
		DocumentNumber: str("1232835680"),
		FullName:       str("ANA MARIA PEREZ GOMEZ"),
		Sex:            str("F"),
		BirthDate:      date("1995-02-14"),
		Municipality:   str("08433"),
		Zone:           str("01"),
	}
}

func TestBuildWithAnnex(t *testing.T) {
	b := NewBuilder(nil)
	set := b.Build(sampleInvoice(), sampleHistory(), sampleAnnex())

	assert.Equal(t, "CC", set.Identity.DocumentType.Value)
	assert.Equal(t, entity.MergeSourceAnnex, set.Identity.DocumentType.Source)
	assert.Equal(t, "1232835680", set.Identity.DocumentNumber.Value)
	assert.Equal(t, entity.MergeSourceAnnex, set.Identity.DocumentNumber.Source)
	assert.Equal(t, entity.MergeSourceAnnex, set.Identity.BirthDateFrom)

	// identical history values must not show up as discarded conflicts
	assert.Empty(t, set.Identity.DocumentNumber.Discarded)

	require.NotNil(t, set.User)
	assert.Equal(t, "1232835680", set.User.DocumentNumber)
	require.NotNil(t, set.User.FirstName)
	assert.Equal(t, "ANA", *set.User.FirstName)
	require.NotNil(t, set.User.SecondName)
	assert.Equal(t, "MARIA", *set.User.SecondName)
	require.NotNil(t, set.User.LastName)
	assert.Equal(t, "PEREZ", *set.User.LastName)
	require.NotNil(t, set.User.SecondLastName)
	assert.Equal(t, "GOMEZ", *set.User.SecondLastName)
	require.NotNil(t, set.User.Age)
	assert.Equal(t, 29, *set.User.Age)
	require.NotNil(t, set.User.DepartmentCode)
	assert.Equal(t, "08", *set.User.DepartmentCode)

	assert.Equal(t, "FERO306500", set.Invoice.InvoiceNumber)
	assert.True(t, decimal.RequireFromString("93200.00").Equal(set.Invoice.TotalValue))
	assert.Equal(t, "080043310101", set.Invoice.ProviderCode)

	require.Len(t, set.Procedures, 2)
	assert.Equal(t, "AP-1", set.Procedures[0].ID)
	assert.Equal(t, "993520", set.Procedures[0].CUPSCode)
	require.NotNil(t, set.Procedures[0].DiagnosisCode)
	assert.Equal(t, "Z001", *set.Procedures[0].DiagnosisCode)
	require.NotNil(t, set.Procedures[0].PurposeCode)
	assert.Equal(t, "14", *set.Procedures[0].PurposeCode)
	require.NotNil(t, set.Procedures[0].AttentionCode)
	assert.Equal(t, "01", *set.Procedures[0].AttentionCode)
	assert.Empty(t, set.Procedures[0].Tags)

	// the second line matches nothing in the history or annex
	assert.Contains(t, set.Procedures[1].Tags, "unenriched")

	require.Len(t, set.Consultations, 1)
	assert.Equal(t, "AC-1", set.Consultations[0].ID)
	assert.True(t, decimal.RequireFromString("58200.00").Equal(set.Consultations[0].ConsultationValue))
	assert.Equal(t, "1", set.Consultations[0].DiagnosisType)
}

func TestBuildWithoutAnnexFallsBackToHistory(t *testing.T) {
	b := NewBuilder(nil)
	set := b.Build(sampleInvoice(), sampleHistory(), nil)

	assert.Equal(t, "1232835680", set.Identity.DocumentNumber.Value)
	assert.Equal(t, entity.MergeSourceHistory, set.Identity.DocumentNumber.Source)
	assert.Equal(t, entity.MergeSourceHistory, set.Identity.BirthDateFrom)
	assert.Empty(t, set.Medications)
	assert.Empty(t, set.OtherServices)

	require.NotNil(t, set.User)
	// the annex supplies residence data; without it the columns stay empty
	assert.Nil(t, set.User.Municipality)
	assert.Nil(t, set.User.DepartmentCode)
}

func TestBuildAnnexWinsConflictAndKeepsDiscarded(t *testing.T) {
	hist := sampleHistory()
	hist.DocumentNumber = "999999"

	b := NewBuilder(nil)
	set := b.Build(sampleInvoice(), hist, sampleAnnex())

	assert.Equal(t, "1232835680", set.Identity.DocumentNumber.Value)
	assert.Equal(t, entity.MergeSourceAnnex, set.Identity.DocumentNumber.Source)
	require.Len(t, set.Identity.DocumentNumber.Discarded, 1)
	assert.Equal(t, "999999", set.Identity.DocumentNumber.Discarded[0].Value)
	assert.Equal(t, entity.MergeSourceHistory, set.Identity.DocumentNumber.Discarded[0].Source)
}

func TestBuildDefaultDocumentType(t *testing.T) {
	hist := sampleHistory()
	hist.DocumentType = ""

	b := NewBuilder(nil)
	set := b.Build(sampleInvoice(), hist, nil)

	assert.Equal(t, "CC", set.Identity.DocumentType.Value)
	assert.Equal(t, entity.MergeSourceDefault, set.Identity.DocumentType.Source)
}

func TestBuildWithoutIdentityHasNoUserRecord(t *testing.T) {
	b := NewBuilder(nil)
	set := b.Build(sampleInvoice(), &entity.HistoryInfo{}, nil)

	assert.Nil(t, set.User)
	assert.True(t, set.Identity.DocumentType.IsEmpty())
	require.Len(t, set.Procedures, 2)
	assert.Empty(t, set.Procedures[0].DocumentNumber)
}

func TestBuildNeverFailsOnNilInputs(t *testing.T) {
	b := NewBuilder(nil)
	set := b.Build(nil, nil, nil)

	assert.Nil(t, set.User)
	assert.Empty(t, set.Procedures)
	assert.Empty(t, set.Consultations)
	assert.True(t, set.Invoice.TotalValue.IsZero())
}

func TestBuildMedicationsAndOtherServices(t *testing.T) {
	ann := sampleAnnex()
	ann.Medications = []entity.MedicationLine{
		{
			Code:       "19903001",
			Name:       str("AMOXICILINA 500MG"),
			Quantity:   decimal.NewFromInt(3),
			UnitValue:  decimal.RequireFromString("1500.50"),
			TotalValue: decimal.RequireFromString("4501.50"),
		},
	}
	ann.OtherServices = []entity.OtherServiceLine{
		{
			Code:          "S11102",
			Name:          str("SUERO ORAL"),
			Quantity:      decimal.NewFromInt(1),
			UnitValue:     decimal.NewFromInt(8000),
			TotalValue:    decimal.NewFromInt(8000),
			DiagnosisCode: str("J030"),
		},
	}

	b := NewBuilder(nil)
	set := b.Build(sampleInvoice(), sampleHistory(), ann)

	require.Len(t, set.Medications, 1)
	med := set.Medications[0]
	assert.Equal(t, "AM-1", med.ID)
	assert.Equal(t, "1232835680", med.DocumentNumber)
	// no line-level provider falls back to the resolved one
	assert.Equal(t, "080043310101", med.ProviderCode)
	// no line-level diagnosis inherits the principal one
	require.NotNil(t, med.PrincipalDiagnosis)
	assert.Equal(t, "Z001", *med.PrincipalDiagnosis)

	require.Len(t, set.OtherServices, 1)
	os := set.OtherServices[0]
	assert.Equal(t, "AT-1", os.ID)
	require.NotNil(t, os.PrincipalDiagnosis)
	assert.Equal(t, "J030", *os.PrincipalDiagnosis)

	assert.True(t, decimal.RequireFromString("93200.00").Equal(set.ProceduresTotal()))
}

func TestBuildTagsFallbackConsultations(t *testing.T) {
	hist := sampleHistory()
	hist.Consultations = []entity.ConsultationInfo{
		{Code: "993520", Name: "VACUNACION", Source: entity.SourceHeuristicFallback},
	}

	b := NewBuilder(nil)
	set := b.Build(sampleInvoice(), hist, nil)

	require.Len(t, set.Consultations, 1)
	assert.Contains(t, set.Consultations[0].Tags, entity.SourceHeuristicFallback)
	// undated fallback encounters inherit the service date
	require.NotNil(t, set.Consultations[0].ConsultationDate)
	assert.Equal(t, "2024-03-15", set.Consultations[0].ConsultationDate.Format("2006-01-02"))
}

func TestBuildWithServiceDateOverride(t *testing.T) {
	b := NewBuilder(nil)
	set := b.BuildWithOptions(sampleInvoice(), sampleHistory(), nil, Options{
		ServiceDate: date("2024-04-01"),
	})

	require.NotEmpty(t, set.Procedures)
	require.NotNil(t, set.Procedures[0].ServiceDate)
	assert.Equal(t, "2024-04-01", set.Procedures[0].ServiceDate.Format("2006-01-02"))
	// age is computed against the effective service date
	require.NotNil(t, set.User)
	require.NotNil(t, set.User.Age)
	assert.Equal(t, 29, *set.User.Age)
}

func TestMapVocabularies(t *testing.T) {
	cases := []struct {
		raw  string
		want *string
		fn   func(string) *string
	}{
		{"URGENCIAS", str("02"), MapAttentionType},
		{"Consulta Externa", str("01"), MapAttentionType},
		{"algo desconocido", nil, MapAttentionType},
		{"", nil, MapAttentionType},
		{"Consulta de primera vez", str("01"), MapServicePurpose},
		{"Vacunación", str("14"), MapServicePurpose},
		{"Consulta de Urgencias", str("10"), MapServicePurpose},
		{"otra cosa", nil, MapServicePurpose},
	}
	for _, tc := range cases {
		got := tc.fn(tc.raw)
		if tc.want == nil {
			assert.Nil(t, got, tc.raw)
			continue
		}
		require.NotNil(t, got, tc.raw)
		assert.Equal(t, *tc.want, *got, tc.raw)
	}
}
