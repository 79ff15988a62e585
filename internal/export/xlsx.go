package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/YasminGarcia1210/ripsgen/internal/common"
	"github.com/YasminGarcia1210/ripsgen/internal/entity"
	"github.com/YasminGarcia1210/ripsgen/internal/validate"
)

// WriteWorkbook writes a human-review XLSX for one record set: a summary
// sheet, one sheet per non-empty record category and a findings sheet.
func WriteWorkbook(set *entity.RipsRecordSet, report *validate.ValidationReport, path string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	f := excelize.NewFile()
	defer f.Close()

	if err := writeSummarySheet(f, set, report); err != nil {
		return common.InternalError("xlsx summary sheet", err)
	}
	if err := writeCategorySheets(f, set); err != nil {
		return common.InternalError("xlsx category sheets", err)
	}
	if report != nil {
		if err := writeFindingsSheet(f, report); err != nil {
			return common.InternalError("xlsx findings sheet", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return common.InternalError("create output dir", err)
	}
	if err := f.SaveAs(path); err != nil {
		return common.InternalError("xlsx write", err)
	}

	logger.Info("export.xlsx.ok",
		"path", path,
		"ap", len(set.Procedures),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func writeSummarySheet(f *excelize.File, set *entity.RipsRecordSet, report *validate.ValidationReport) error {
	const sheet = "Resumen"
	// excelize starts with "Sheet1"; rename it so the workbook has no stub
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	rows := [][]any{
		{"Factura", set.Invoice.InvoiceNumber},
		{"Prestador", set.Invoice.ProviderCode},
		{"Tipo documento", set.Identity.DocumentType.Value},
		{"Número documento", set.Identity.DocumentNumber.Value},
		{"Nombre", set.Identity.FullName.Value},
		{"Total facturado", set.Invoice.TotalValue.StringFixed(2)},
		{"Total procedimientos", set.ProceduresTotal().StringFixed(2)},
		{"Total adicionales", set.ExtrasTotal().StringFixed(2)},
		{"Registros AP", len(set.Procedures)},
		{"Registros AC", len(set.Consultations)},
		{"Registros AM", len(set.Medications)},
		{"Registros AT", len(set.OtherServices)},
	}
	if report != nil {
		rows = append(rows,
			[]any{"Errores", report.Errors},
			[]any{"Advertencias", report.Warnings},
		)
	}
	for i, row := range rows {
		if err := setRow(f, sheet, i+1, row); err != nil {
			return err
		}
	}

	style, err := headerStyle(f)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", fmt.Sprintf("A%d", len(rows)), style); err != nil {
		return err
	}
	_ = f.SetColWidth(sheet, "A", "A", 24)
	_ = f.SetColWidth(sheet, "B", "B", 32)
	return nil
}

func writeCategorySheets(f *excelize.File, set *entity.RipsRecordSet) error {
	if len(set.Procedures) > 0 {
		rows := make([][]any, 0, len(set.Procedures))
		for i := range set.Procedures {
			r := &set.Procedures[i]
			rows = append(rows, []any{
				r.ID, r.CUPSCode, fmtDate(r.ServiceDate), fromPtr(r.DiagnosisCode),
				fromPtr(r.PurposeCode), fromPtr(r.AttentionCode), r.NetValue.StringFixed(2),
			})
		}
		if err := writeSheet(f, "AP", []string{"ID", "CUPS", "Fecha", "Diagnóstico", "Finalidad", "Atención", "Valor"}, rows); err != nil {
			return err
		}
	}
	if len(set.Consultations) > 0 {
		rows := make([][]any, 0, len(set.Consultations))
		for i := range set.Consultations {
			r := &set.Consultations[i]
			rows = append(rows, []any{
				r.ID, r.ConsultationCode, fmtDate(r.ConsultationDate),
				fromPtr(r.PrincipalDiagnosis), r.NetValue.StringFixed(2),
			})
		}
		if err := writeSheet(f, "AC", []string{"ID", "Código", "Fecha", "Diagnóstico", "Valor"}, rows); err != nil {
			return err
		}
	}
	if len(set.Medications) > 0 {
		rows := make([][]any, 0, len(set.Medications))
		for i := range set.Medications {
			r := &set.Medications[i]
			rows = append(rows, []any{
				r.ID, r.MedicationCode, fromPtr(r.MedicationName),
				r.Quantity.StringFixed(2), r.TotalValue.StringFixed(2),
			})
		}
		if err := writeSheet(f, "AM", []string{"ID", "Código", "Nombre", "Cantidad", "Valor"}, rows); err != nil {
			return err
		}
	}
	if len(set.OtherServices) > 0 {
		rows := make([][]any, 0, len(set.OtherServices))
		for i := range set.OtherServices {
			r := &set.OtherServices[i]
			rows = append(rows, []any{
				r.ID, r.ServiceCode, fromPtr(r.ServiceName),
				r.Quantity.StringFixed(2), r.TotalValue.StringFixed(2),
			})
		}
		if err := writeSheet(f, "AT", []string{"ID", "Código", "Nombre", "Cantidad", "Valor"}, rows); err != nil {
			return err
		}
	}
	return nil
}

func writeFindingsSheet(f *excelize.File, report *validate.ValidationReport) error {
	rows := make([][]any, 0, len(report.Findings))
	for _, finding := range report.Findings {
		rows = append(rows, []any{finding.Rule, finding.Severity, finding.RecordID, finding.Message})
	}
	if err := writeSheet(f, "Validacion", []string{"Regla", "Severidad", "Registro", "Mensaje"}, rows); err != nil {
		return err
	}
	return f.SetColWidth("Validacion", "D", "D", 72)
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]any) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	hdr := make([]any, len(headers))
	for i, h := range headers {
		hdr[i] = h
	}
	if err := setRow(f, sheet, 1, hdr); err != nil {
		return err
	}
	style, err := headerStyle(f)
	if err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return err
	}
	for i, row := range rows {
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(sheet, "A", "A", 10)
	_ = f.SetColWidth(sheet, "B", "C", 18)
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}

func headerStyle(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
	})
}
