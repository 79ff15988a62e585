package clinical

import (
	"context"
	"regexp"
	"strings"

	"github.com/YasminGarcia1210/ripsgen/internal/entity"
)

var (
	// CIE-10-like diagnosis codes: letter (U excluded), two digits, optional subcode.
	reCIE = regexp.MustCompile(`\b([A-TV-Z][0-9]{2}(?:\.[0-9A-Z])?)\b`)
	// CUPS-like procedure codes.
	reCUPS = regexp.MustCompile(`\b([0-9]{4,7}(?:-[0-9])?)\b`)
)

// procedureKeywords gate CUPS-like numbers: a bare number only counts as a
// procedure when its surrounding context talks about one.
var procedureKeywords = []string{
	"procedimiento",
	"sutura",
	"curación",
	"curacion",
	"infiltración",
	"infiltracion",
	"aplicación",
	"aplicacion",
	"vacunación",
	"vacunacion",
	"consulta",
	"terapia",
}

const contextWindow = 80

// HeuristicStrategy matches curated diagnosis and procedure code patterns.
// Every match carries the same fixed confidence, configured strictly below
// the model floor so heuristic provenance is recognizable by score alone.
type HeuristicStrategy struct {
	confidence float64
}

func NewHeuristicStrategy(confidence float64) *HeuristicStrategy {
	return &HeuristicStrategy{confidence: confidence}
}

func (s *HeuristicStrategy) Name() string { return "heuristic" }

func (s *HeuristicStrategy) Extract(_ context.Context, text string) ([]entity.ClinicalEntity, error) {
	var out []entity.ClinicalEntity

	seen := map[string]bool{}
	for _, m := range reCIE.FindAllStringSubmatchIndex(text, -1) {
		code := text[m[2]:m[3]]
		if seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, entity.ClinicalEntity{
			Kind:       entity.EntityDiagnosis,
			Code:       code,
			Text:       code,
			Confidence: s.confidence,
			Source:     entity.EntitySourceHeuristic,
			Span:       [2]int{m[2], m[3]},
		})
	}

	for _, m := range reCUPS.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[2], m[3]
		ctxStart := start - contextWindow
		if ctxStart < 0 {
			ctxStart = 0
		}
		ctxEnd := end + contextWindow
		if ctxEnd > len(text) {
			ctxEnd = len(text)
		}
		window := text[ctxStart:ctxEnd]
		if !looksLikeProcedure(window) {
			continue
		}
		out = append(out, entity.ClinicalEntity{
			Kind:       entity.EntityProcedure,
			Code:       text[start:end],
			Text:       strings.TrimSpace(window),
			Confidence: s.confidence,
			Source:     entity.EntitySourceHeuristic,
			Span:       [2]int{start, end},
		})
	}
	return out, nil
}

func looksLikeProcedure(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range procedureKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// MatchCIE returns the first CIE-10-like code in text, if any.
func MatchCIE(text string) string {
	if m := reCIE.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// MatchCUPS returns the first CUPS-like code in text, if any.
func MatchCUPS(text string) string {
	if m := reCUPS.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}
