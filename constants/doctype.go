package constants

// DocumentTypes holds the identity document type codes recognized in
// clinical histories and annex payloads.
var DocumentTypes = []string{"CC", "TI", "RC", "CE", "PA", "NUIP", "MS"}

// DocumentTypeDefault is assumed when a document number resolves without a type.
const DocumentTypeDefault = "CC"

// IsDocumentType reports whether s is a known identity document type code.
func IsDocumentType(s string) bool {
	for _, t := range DocumentTypes {
		if s == t {
			return true
		}
	}
	return false
}
