package constants

import "strings"

// RIPS flat-file names, one per record category.
const (
	FileAF = "AF.txt" // invoice
	FileUS = "US.txt" // user
	FileAP = "AP.txt" // procedures
	FileAC = "AC.txt" // consultations
	FileAM = "AM.txt" // medications
	FileAT = "AT.txt" // other services
)

// Input naming conventions used by the billing system.
const (
	PackagePrefix  = "FERO" // electronic invoice package directory
	HistoryPrefix  = "HEV"  // clinical history PDF
	AnnexSuffix    = "_Rips.json"
	SummaryFile    = "batch_summary.json"
	InvoiceAltGlob = "FDE*.pdf"
)

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
