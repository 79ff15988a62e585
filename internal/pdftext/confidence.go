package pdftext

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	reDateHit   = regexp.MustCompile(`\b\d{2}[/-]\d{2}[/-]\d{4}\b|\b\d{4}-\d{2}-\d{2}\b`)
	reCurrHit   = regexp.MustCompile(`\bcop\b|\$`)
	reAmountHit = regexp.MustCompile(`\b\d{1,3}([.,]\d{3})*([.,]\d{2})\b`)
)

// Confidence scores text quality for the needs-review flag on extraction
// results. Invoices and histories reliably carry dates, currency marks and
// amounts; each hit adds to a low base score.
func Confidence(txt string) float32 {
	if txt == "" {
		return 0
	}
	lower := strings.ToLower(txt)
	score := float32(0.2) // base
	if reDateHit.MatchString(lower) {
		score += 0.2
	}
	if reCurrHit.MatchString(lower) {
		score += 0.15
	}
	if reAmountHit.MatchString(lower) {
		score += 0.15
	}
	if len(txt) > 120 {
		score += 0.1
	}
	if alphaRatio(txt) > 0.5 {
		score += 0.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func alphaRatio(s string) float64 {
	if s == "" {
		return 0
	}
	var alpha, total int
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			alpha++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(alpha) / float64(total)
}
