package export

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/YasminGarcia1210/ripsgen/constants"
	"github.com/YasminGarcia1210/ripsgen/internal/common"
	"github.com/YasminGarcia1210/ripsgen/internal/entity"
)

// FlatFileOptions tunes the plain-text RIPS output.
type FlatFileOptions struct {
	Delimiter string
}

func (o FlatFileOptions) delimiter() string {
	if o.Delimiter == "" {
		return ","
	}
	return o.Delimiter
}

// WriteFlatFiles emits the per-category RIPS text files into dir. Empty
// categories produce no file at all. Column orders follow the governmental
// flat-file layout and are owned here, not by the record types.
func WriteFlatFiles(set *entity.RipsRecordSet, dir string, opts FlatFileOptions, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return common.InternalError("create output dir", err)
	}
	delim := opts.delimiter()

	if err := writeRows(filepath.Join(dir, constants.FileAF), [][]string{afRow(&set.Invoice)}, delim); err != nil {
		return err
	}
	if set.User != nil {
		if err := writeRows(filepath.Join(dir, constants.FileUS), [][]string{usRow(set.User)}, delim); err != nil {
			return err
		}
	}

	var ap [][]string
	for i := range set.Procedures {
		ap = append(ap, apRow(&set.Procedures[i]))
	}
	if err := writeRows(filepath.Join(dir, constants.FileAP), ap, delim); err != nil {
		return err
	}

	var ac [][]string
	for i := range set.Consultations {
		ac = append(ac, acRow(&set.Consultations[i]))
	}
	if err := writeRows(filepath.Join(dir, constants.FileAC), ac, delim); err != nil {
		return err
	}

	var am [][]string
	for i := range set.Medications {
		am = append(am, amRow(&set.Medications[i]))
	}
	if err := writeRows(filepath.Join(dir, constants.FileAM), am, delim); err != nil {
		return err
	}

	var at [][]string
	for i := range set.OtherServices {
		at = append(at, atRow(&set.OtherServices[i]))
	}
	if err := writeRows(filepath.Join(dir, constants.FileAT), at, delim); err != nil {
		return err
	}

	logger.Info("export.flatfiles.ok",
		"dir", dir,
		"ap", len(ap), "ac", len(ac), "am", len(am), "at", len(at),
	)
	return nil
}

func writeRows(path string, rows [][]string, delim string) error {
	if len(rows) == 0 {
		return nil
	}
	var sb strings.Builder
	for _, row := range rows {
		sb.WriteString(strings.Join(row, delim))
		sb.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return common.InternalError("write flat file", err)
	}
	return nil
}

func afRow(r *entity.InvoiceRecord) []string {
	return []string{
		r.ProviderCode,
		r.InvoiceNumber,
		fmtDate(r.InvoiceDate),
		money(r.TotalValue),
		r.DocumentType,
		r.DocumentNumber,
		fromPtr(r.ContractNumber),
		fromPtr(r.PolicyNumber),
		money(r.Copayment),
		money(r.Commission),
		money(r.Discount),
	}
}

func usRow(r *entity.UserRecord) []string {
	return []string{
		r.DocumentType,
		r.DocumentNumber,
		fromPtr(r.LastName),
		fromPtr(r.SecondLastName),
		fromPtr(r.FirstName),
		fromPtr(r.SecondName),
		intPtr(r.Age),
		fromPtr(r.AgeUnit),
		fromPtr(r.Sex),
		fromPtr(r.DepartmentCode),
		fromPtr(r.Municipality),
		fromPtr(r.ResidenceZone),
	}
}

func apRow(r *entity.ProcedureRecord) []string {
	return []string{
		r.ProviderCode,
		r.InvoiceNumber,
		r.DocumentType,
		r.DocumentNumber,
		fmtDate(r.ServiceDate),
		fromPtr(r.Authorization),
		r.ServiceID,
		r.CUPSCode,
		fromPtr(r.DiagnosisCode),
		fromPtr(r.RelatedDiagnosis),
		fromPtr(r.PurposeCode),
		fromPtr(r.AttentionCode),
		money(r.Copayment),
		money(r.NetValue),
		fromPtr(r.ModalityCode),
	}
}

func acRow(r *entity.ConsultationRecord) []string {
	return []string{
		r.ProviderCode,
		r.InvoiceNumber,
		r.DocumentType,
		r.DocumentNumber,
		fmtDate(r.ConsultationDate),
		fromPtr(r.Authorization),
		r.ConsultationCode,
		fromPtr(r.PurposeCode),
		fromPtr(r.ExternalCause),
		fromPtr(r.PrincipalDiagnosis),
		fromPtr(r.RelatedDiagnosis1),
		fromPtr(r.RelatedDiagnosis2),
		fromPtr(r.RelatedDiagnosis3),
		r.DiagnosisType,
		money(r.ConsultationValue),
		money(r.Copayment),
		money(r.NetValue),
	}
}

func amRow(r *entity.MedicationRecord) []string {
	return []string{
		r.ProviderCode,
		r.InvoiceNumber,
		r.DocumentType,
		r.DocumentNumber,
		fromPtr(r.Authorization),
		r.MedicationCode,
		fromPtr(r.MipresID),
		fromPtr(r.MedicationType),
		fromPtr(r.MedicationName),
		fromPtr(r.PharmaceuticalForm),
		fromPtr(r.Concentration),
		fromPtr(r.UnitMeasure),
		intPtr(r.TreatmentDays),
		money(r.Quantity),
		money(r.UnitValue),
		money(r.TotalValue),
		fromPtr(r.PrincipalDiagnosis),
		fromPtr(r.RelatedDiagnosis),
		fmtDate(r.AdministeredAt),
	}
}

func atRow(r *entity.OtherServiceRecord) []string {
	return []string{
		r.ProviderCode,
		r.InvoiceNumber,
		r.DocumentType,
		r.DocumentNumber,
		fromPtr(r.Authorization),
		fromPtr(r.ServiceType),
		r.ServiceCode,
		fromPtr(r.ServiceName),
		fmtDate(r.ServiceDate),
		money(r.Quantity),
		money(r.UnitValue),
		money(r.TotalValue),
		fromPtr(r.MipresID),
		fromPtr(r.PrincipalDiagnosis),
		fromPtr(r.RelatedDiagnosis),
	}
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func fmtDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func fromPtr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intPtr(i *int) string {
	if i == nil {
		return ""
	}
	return strconv.Itoa(*i)
}
