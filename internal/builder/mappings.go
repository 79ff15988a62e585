package builder

import "strings"

// attentionTypeMap maps attention wordings from histories to the standard
// RIPS attention type codes.
var attentionTypeMap = []struct {
	key  string
	code string
}{
	{"urgencias", "02"},
	{"consulta externa", "01"},
	{"consulta", "01"},
	{"hospitalización", "04"},
	{"hospitalizacion", "04"},
	{"vacunacion", "13"},
	{"vacunación", "13"},
}

// servicePurposeMap maps purpose wordings to the standard purpose codes.
var servicePurposeMap = []struct {
	key  string
	code string
}{
	{"consulta de primera vez", "01"},
	{"primera vez", "01"},
	{"consulta de control", "02"},
	{"control", "02"},
	{"programa pf", "03"},
	{"planificación", "03"},
	{"planificacion", "03"},
	{"detección", "04"},
	{"deteccion", "04"},
	{"consulta de urgencias", "10"},
	{"urgencias", "10"},
	{"terapia", "07"},
	{"no aplica", "14"},
	{"vacunacion", "14"},
	{"vacunación", "14"},
}

// MapAttentionType returns the RIPS attention type code for raw, or nil
// when the wording is unknown.
func MapAttentionType(raw string) *string {
	return lookup(attentionTypeMap, raw)
}

// MapServicePurpose returns the RIPS purpose code for raw, or nil when the
// wording is unknown.
func MapServicePurpose(raw string) *string {
	return lookup(servicePurposeMap, raw)
}

func lookup(table []struct{ key, code string }, raw string) *string {
	if raw == "" {
		return nil
	}
	lower := strings.ToLower(raw)
	for _, e := range table {
		if strings.Contains(lower, e.key) {
			code := e.code
			return &code
		}
	}
	return nil
}
