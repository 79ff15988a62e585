package batch

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/YasminGarcia1210/ripsgen/internal/common"
)

// writeSummaryWorkbook renders the batch summary as a one-sheet XLSX for
// reviewers who live in spreadsheets.
func writeSummaryWorkbook(summary *Summary, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Lote"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return common.InternalError("xlsx summary sheet", err)
	}

	headers := []string{"Factura", "Estado", "Motivo", "Errores", "Advertencias", "Salida", "Duración (ms)"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return common.InternalError("xlsx summary header", err)
		}
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		last, _ := excelize.CoordinatesToCellName(len(headers), 1)
		_ = f.SetCellStyle(sheet, "A1", last, style)
	}

	for i, e := range summary.Entries {
		row := i + 2
		values := []any{e.Package, string(e.Status), e.Reason, e.Errors, e.Warnings, e.OutputPath, e.ElapsedMS}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return common.InternalError("xlsx summary row", err)
			}
		}
	}

	totalsRow := len(summary.Entries) + 3
	_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", totalsRow),
		fmt.Sprintf("Total %d | Completadas %d | Pendientes %d | Fallidas %d",
			summary.Totals.Total, summary.Totals.Completed, summary.Totals.Pending, summary.Totals.Failed))

	_ = f.SetColWidth(sheet, "A", "A", 16)
	_ = f.SetColWidth(sheet, "C", "C", 24)
	_ = f.SetColWidth(sheet, "F", "F", 48)

	if err := f.SaveAs(path); err != nil {
		return common.InternalError("xlsx summary write", err)
	}
	return nil
}
