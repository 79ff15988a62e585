package builder

import (
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/YasminGarcia1210/ripsgen/constants"
	"github.com/YasminGarcia1210/ripsgen/internal/entity"
)

// Builder merges invoice, history and optional annex data into the
// canonical RIPS record set. It never fails: quality issues are left for
// the validation engine, because a partial record set is more useful to a
// biller than a hard failure.
//
// Field precedence: the annex is EPS-validated demographic truth, the
// history is the best source for clinical codes, and the invoice is
// authoritative for monetary values.
type Builder struct {
	logger *slog.Logger
}

func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{logger: logger}
}

// Options overrides values the builder would otherwise derive.
type Options struct {
	// ServiceDate replaces the admission-else-issue-date derivation.
	ServiceDate *time.Time
}

// Build assembles a fresh RipsRecordSet from the three read-only inputs.
// annex may be nil; invoice and history may be nil when their extraction
// failed upstream and the caller still wants a best-effort set.
func (b *Builder) Build(invoice *entity.InvoiceInfo, history *entity.HistoryInfo, annex *entity.AnnexInfo) entity.RipsRecordSet {
	return b.BuildWithOptions(invoice, history, annex, Options{})
}

func (b *Builder) BuildWithOptions(invoice *entity.InvoiceInfo, history *entity.HistoryInfo, annex *entity.AnnexInfo, opts Options) entity.RipsRecordSet {
	if invoice == nil {
		invoice = &entity.InvoiceInfo{}
	}
	if history == nil {
		history = &entity.HistoryInfo{}
	}

	identity := resolveIdentity(history, annex)
	providerCode := resolveProviderCode(history, invoice)
	serviceDate := opts.ServiceDate
	if serviceDate == nil {
		serviceDate = resolveServiceDate(history, invoice)
	}

	set := entity.RipsRecordSet{Identity: identity}
	set.Invoice = buildInvoiceRecord(invoice, identity, providerCode)
	set.User = buildUserRecord(identity, serviceDate)
	set.Procedures = b.buildProcedures(invoice, history, annex, identity, providerCode, serviceDate)
	set.Consultations = b.buildConsultations(invoice, history, identity, providerCode, serviceDate)
	set.Medications = buildMedications(invoice, history, annex, identity, providerCode)
	set.OtherServices = buildOtherServices(invoice, history, annex, identity, providerCode)

	b.logger.Info("builder.merge",
		"invoice_id", invoice.InvoiceID,
		"document_number", identity.DocumentNumber.Value,
		"identity_source", identity.DocumentNumber.Source,
		"ap", len(set.Procedures),
		"ac", len(set.Consultations),
		"am", len(set.Medications),
		"at", len(set.OtherServices),
	)
	return set
}

// resolveIdentity merges patient identity with precedence Annex > History
// > Invoice. Conflicting non-null values lose the merge but stay on the
// field as discarded alternatives for audit.
func resolveIdentity(history *entity.HistoryInfo, annex *entity.AnnexInfo) entity.ResolvedIdentity {
	var annexType, annexNumber, annexName, annexSex, annexMuni, annexZone string
	var annexBirth *time.Time
	if annex != nil {
		annexType = deref(annex.DocumentType)
		annexNumber = deref(annex.DocumentNumber)
		annexName = deref(annex.FullName)
		annexSex = deref(annex.Sex)
		annexMuni = deref(annex.Municipality)
		annexZone = deref(annex.Zone)
		annexBirth = annex.BirthDate
	}

	id := entity.ResolvedIdentity{
		DocumentType: merge(
			candidate(annexType, entity.MergeSourceAnnex),
			candidate(strings.ToUpper(history.DocumentType), entity.MergeSourceHistory),
		),
		DocumentNumber: merge(
			candidate(strings.ReplaceAll(annexNumber, " ", ""), entity.MergeSourceAnnex),
			candidate(strings.ReplaceAll(history.DocumentNumber, " ", ""), entity.MergeSourceHistory),
		),
		FullName: merge(
			candidate(annexName, entity.MergeSourceAnnex),
			candidate(history.PatientName, entity.MergeSourceHistory),
		),
		Sex: merge(
			candidate(annexSex, entity.MergeSourceAnnex),
			candidate(history.Sex, entity.MergeSourceHistory),
		),
		Municipality: merge(candidate(annexMuni, entity.MergeSourceAnnex)),
		Zone:         merge(candidate(annexZone, entity.MergeSourceAnnex)),
	}

	switch {
	case annexBirth != nil:
		id.BirthDate = annexBirth
		id.BirthDateFrom = entity.MergeSourceAnnex
	case history.BirthDate != nil:
		id.BirthDate = history.BirthDate
		id.BirthDateFrom = entity.MergeSourceHistory
	}

	// a resolved document number without a type gets the customary default
	if !id.DocumentNumber.IsEmpty() && id.DocumentType.IsEmpty() {
		id.DocumentType = entity.MergedField{
			Value:  constants.DocumentTypeDefault,
			Source: entity.MergeSourceDefault,
		}
	}
	return id
}

func candidate(value, source string) entity.FieldCandidate {
	return entity.FieldCandidate{Value: value, Source: source}
}

// merge picks the first non-empty candidate and retains every later,
// different non-empty value as a discarded alternative.
func merge(candidates ...entity.FieldCandidate) entity.MergedField {
	var out entity.MergedField
	for _, c := range candidates {
		if c.Value == "" {
			continue
		}
		if out.Value == "" {
			out.Value = c.Value
			out.Source = c.Source
			continue
		}
		if c.Value != out.Value {
			out.Discarded = append(out.Discarded, c)
		}
	}
	return out
}

func resolveProviderCode(history *entity.HistoryInfo, invoice *entity.InvoiceInfo) string {
	if history.ProviderCode != "" {
		return history.ProviderCode
	}
	return invoice.SupplierNIT
}

func resolveServiceDate(history *entity.HistoryInfo, invoice *entity.InvoiceInfo) *time.Time {
	if history.AdmissionAt != nil {
		return history.AdmissionAt
	}
	return invoice.IssueDate
}

func buildInvoiceRecord(invoice *entity.InvoiceInfo, id entity.ResolvedIdentity, providerCode string) entity.InvoiceRecord {
	return entity.InvoiceRecord{
		ID:             "AF-1",
		ProviderCode:   providerCode,
		ProviderName:   invoice.SupplierName,
		InvoiceNumber:  invoice.InvoiceID,
		InvoiceDate:    invoice.IssueDate,
		TotalValue:     invoice.Total,
		DocumentType:   id.DocumentType.Value,
		DocumentNumber: id.DocumentNumber.Value,
		Copayment:      decimal.Zero,
		Commission:     decimal.Zero,
		Discount:       decimal.Zero,
		Sources:        []string{entity.MergeSourceInvoice},
	}
}

// buildUserRecord assembles the US record. Without a resolved document
// number there is no user to report, so the record is nil — explicitly
// distinguishable from an empty-but-present one.
func buildUserRecord(id entity.ResolvedIdentity, serviceDate *time.Time) *entity.UserRecord {
	if id.DocumentNumber.IsEmpty() {
		return nil
	}

	rec := &entity.UserRecord{
		ID:             "US-1",
		DocumentType:   id.DocumentType.Value,
		DocumentNumber: id.DocumentNumber.Value,
		Sex:            optional(id.Sex.Value),
		Municipality:   optional(id.Municipality.Value),
		ResidenceZone:  optional(id.Zone.Value),
		Sources:        fieldSources(id.DocumentNumber, id.FullName, id.Sex, id.Municipality),
	}

	firstLast, secondLast, firstName, secondName := splitFullName(id.FullName.Value)
	rec.LastName = firstLast
	rec.SecondLastName = secondLast
	rec.FirstName = firstName
	rec.SecondName = secondName

	if id.BirthDate != nil && serviceDate != nil {
		if age := yearsBetween(*id.BirthDate, *serviceDate); age != nil {
			rec.Age = age
			unit := "A"
			rec.AgeUnit = &unit
		}
	}
	if muni := id.Municipality.Value; len(muni) >= 2 {
		dep := muni[:2]
		rec.DepartmentCode = &dep
	}
	return rec
}

func (b *Builder) buildProcedures(invoice *entity.InvoiceInfo, history *entity.HistoryInfo, annex *entity.AnnexInfo,
	id entity.ResolvedIdentity, providerCode string, serviceDate *time.Time) []entity.ProcedureRecord {

	var diagnosis *string
	sources := []string{entity.MergeSourceInvoice}
	if history.PrincipalDiagnosis != nil {
		diagnosis = optional(history.PrincipalDiagnosis.Code)
		sources = append(sources, entity.MergeSourceHistory)
	}
	purpose := MapServicePurpose(history.Purpose)
	attention := MapAttentionType(history.AttentionType)

	known := knownCodes(history, annex)

	var out []entity.ProcedureRecord
	for i, line := range invoice.Lines {
		rec := entity.ProcedureRecord{
			ID:             fmt.Sprintf("AP-%d", i+1),
			ProviderCode:   providerCode,
			InvoiceNumber:  invoice.InvoiceID,
			DocumentType:   id.DocumentType.Value,
			DocumentNumber: id.DocumentNumber.Value,
			ServiceDate:    serviceDate,
			ServiceID:      nonEmpty(line.LineID, fmt.Sprintf("%d", i+1)),
			CUPSCode:       line.Code,
			DiagnosisCode:  diagnosis,
			PurposeCode:    purpose,
			AttentionCode:  attention,
			Copayment:      decimal.Zero,
			NetValue:       lineValue(line),
			Sources:        sources,
		}
		// a line no other source knows about still becomes a record so the
		// financial totals reconcile, but it is flagged for review
		if !known[line.Code] {
			rec.Tags = append(rec.Tags, "unenriched")
		}
		out = append(out, rec)
	}
	return out
}

func (b *Builder) buildConsultations(invoice *entity.InvoiceInfo, history *entity.HistoryInfo,
	id entity.ResolvedIdentity, providerCode string, serviceDate *time.Time) []entity.ConsultationRecord {

	var diagnosis *string
	if history.PrincipalDiagnosis != nil {
		diagnosis = optional(history.PrincipalDiagnosis.Code)
	}

	var out []entity.ConsultationRecord
	for i, c := range history.Consultations {
		date := c.Date
		if date == nil {
			date = serviceDate
		}
		purpose := MapServicePurpose(nonEmpty(c.Purpose, history.Purpose))
		value := matchLineValue(invoice, c.Code)

		rec := entity.ConsultationRecord{
			ID:                 fmt.Sprintf("AC-%d", i+1),
			ProviderCode:       providerCode,
			InvoiceNumber:      invoice.InvoiceID,
			DocumentType:       id.DocumentType.Value,
			DocumentNumber:     id.DocumentNumber.Value,
			ConsultationDate:   date,
			Authorization:      optional(c.Authorization),
			ConsultationCode:   c.Code,
			PurposeCode:        purpose,
			PrincipalDiagnosis: diagnosis,
			DiagnosisType:      "1",
			ConsultationValue:  value,
			Copayment:          decimal.Zero,
			NetValue:           value,
			Sources:            []string{entity.MergeSourceHistory, entity.MergeSourceInvoice},
		}
		if c.Source != entity.SourceDeterministic && c.Source != "" {
			rec.Tags = append(rec.Tags, c.Source)
		}
		out = append(out, rec)
	}
	return out
}

func buildMedications(invoice *entity.InvoiceInfo, history *entity.HistoryInfo, annex *entity.AnnexInfo,
	id entity.ResolvedIdentity, providerCode string) []entity.MedicationRecord {
	if annex == nil {
		return nil
	}

	var out []entity.MedicationRecord
	for i, m := range annex.Medications {
		rec := entity.MedicationRecord{
			ID:                 fmt.Sprintf("AM-%d", i+1),
			ProviderCode:       nonEmpty(m.ProviderCode, providerCode),
			InvoiceNumber:      invoice.InvoiceID,
			DocumentType:       id.DocumentType.Value,
			DocumentNumber:     id.DocumentNumber.Value,
			Authorization:      m.Authorization,
			MedicationCode:     m.Code,
			MipresID:           m.MipresID,
			MedicationType:     m.Type,
			MedicationName:     m.Name,
			PharmaceuticalForm: m.PharmaceuticalForm,
			Concentration:      m.Concentration,
			UnitMeasure:        m.UnitMeasure,
			TreatmentDays:      m.TreatmentDays,
			Quantity:           m.Quantity,
			UnitValue:          m.UnitValue,
			TotalValue:         m.TotalValue,
			PrincipalDiagnosis: medicationDiagnosis(m.DiagnosisCode, history),
			RelatedDiagnosis:   m.RelatedDiagnosis,
			AdministeredAt:     m.AdministeredAt,
			Sources:            []string{entity.MergeSourceAnnex},
		}
		out = append(out, rec)
	}
	return out
}

func buildOtherServices(invoice *entity.InvoiceInfo, history *entity.HistoryInfo, annex *entity.AnnexInfo,
	id entity.ResolvedIdentity, providerCode string) []entity.OtherServiceRecord {
	if annex == nil {
		return nil
	}

	var out []entity.OtherServiceRecord
	for i, o := range annex.OtherServices {
		rec := entity.OtherServiceRecord{
			ID:                 fmt.Sprintf("AT-%d", i+1),
			ProviderCode:       nonEmpty(o.ProviderCode, providerCode),
			InvoiceNumber:      invoice.InvoiceID,
			DocumentType:       id.DocumentType.Value,
			DocumentNumber:     id.DocumentNumber.Value,
			Authorization:      o.Authorization,
			ServiceType:        o.Type,
			ServiceCode:        o.Code,
			ServiceName:        o.Name,
			ServiceDate:        o.ServiceDate,
			Quantity:           o.Quantity,
			UnitValue:          o.UnitValue,
			TotalValue:         o.TotalValue,
			MipresID:           o.MipresID,
			PrincipalDiagnosis: medicationDiagnosis(o.DiagnosisCode, history),
			RelatedDiagnosis:   o.RelatedDiagnosis,
			Sources:            []string{entity.MergeSourceAnnex},
		}
		out = append(out, rec)
	}
	return out
}

func medicationDiagnosis(own *string, history *entity.HistoryInfo) *string {
	if own != nil && *own != "" {
		return own
	}
	if history.PrincipalDiagnosis != nil {
		return optional(history.PrincipalDiagnosis.Code)
	}
	return nil
}

// knownCodes indexes every code the history or annex mention, for the
// unenriched check on invoice lines.
func knownCodes(history *entity.HistoryInfo, annex *entity.AnnexInfo) map[string]bool {
	known := map[string]bool{}
	for _, c := range history.Consultations {
		if c.Code != "" {
			known[c.Code] = true
		}
	}
	if annex != nil {
		for _, m := range annex.Medications {
			if m.Code != "" {
				known[m.Code] = true
			}
		}
		for _, o := range annex.OtherServices {
			if o.Code != "" {
				known[o.Code] = true
			}
		}
	}
	return known
}

func matchLineValue(invoice *entity.InvoiceInfo, code string) decimal.Decimal {
	if code == "" {
		return decimal.Zero
	}
	for _, line := range invoice.Lines {
		if strings.TrimSpace(line.Code) == code {
			if !line.Total.IsZero() {
				return line.Total
			}
			return line.UnitValue
		}
	}
	return decimal.Zero
}

func lineValue(line entity.ServiceLine) decimal.Decimal {
	if !line.Total.IsZero() {
		return line.Total
	}
	return line.UnitValue
}

// splitFullName separates a printed full name into the four RIPS name
// columns by token count: surnames come last in the printed order.
func splitFullName(full string) (firstLast, secondLast, firstName, secondName *string) {
	tokens := strings.Fields(full)
	switch len(tokens) {
	case 0:
		return nil, nil, nil, nil
	case 1:
		return nil, nil, optional(tokens[0]), nil
	case 2:
		return optional(tokens[1]), nil, optional(tokens[0]), nil
	case 3:
		return optional(tokens[2]), optional(tokens[1]), optional(tokens[0]), nil
	case 4:
		return optional(tokens[2]), optional(tokens[3]), optional(tokens[0]), optional(tokens[1])
	default:
		return optional(tokens[len(tokens)-2]), optional(tokens[len(tokens)-1]),
			optional(tokens[0]), optional(strings.Join(tokens[1:len(tokens)-2], " "))
	}
}

func yearsBetween(birth, ref time.Time) *int {
	if birth.After(ref) {
		return nil
	}
	years := ref.Year() - birth.Year()
	if ref.Month() < birth.Month() || (ref.Month() == birth.Month() && ref.Day() < birth.Day()) {
		years--
	}
	return &years
}

func fieldSources(fields ...entity.MergedField) []string {
	var out []string
	seen := map[string]bool{}
	for _, f := range fields {
		if f.Source == "" || seen[f.Source] {
			continue
		}
		seen[f.Source] = true
		out = append(out, f.Source)
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
