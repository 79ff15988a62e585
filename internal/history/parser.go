package history

import (
	"context"
	"regexp"
	"strings"
	"time"

	"log/slog"

	"github.com/YasminGarcia1210/ripsgen/constants"
	"github.com/YasminGarcia1210/ripsgen/internal/clinical"
	"github.com/YasminGarcia1210/ripsgen/internal/common"
	"github.com/YasminGarcia1210/ripsgen/internal/entity"
	"github.com/YasminGarcia1210/ripsgen/internal/pdftext"
)

var (
	reIdentLabel = regexp.MustCompile(`Identificación:\s*([A-Z]{1,4})\s*-?\s*([0-9A-Za-z-]+)`)
	reIdentTop   = regexp.MustCompile(`\b(CC|TI|RC|CE|PA|NUIP|MS)\s*-?\s*([0-9A-Za-z-]{4,})\s*-\s*[A-ZÁÉÍÓÚÑ]`)
	reIdentAny   = regexp.MustCompile(`\b(CC|TI|RC|CE|PA|NUIP|MS)\s*-?\s*([0-9]{4,})\b`)
	reName       = regexp.MustCompile(`Nombre:\s*([A-ZÁÉÍÓÚÑ0-9 .,'?-]+)`)
	reSex        = regexp.MustCompile(`(?i)Género:\s*(Femenino|Masculino)`)
	reBirthDate  = regexp.MustCompile(`(?i)Fecha de Nacimiento y Edad:\s*(\d{2}/\d{2}/\d{4})`)
	reProvider   = regexp.MustCompile(`(?i)Código prestador de servicio:\s*([0-9]{10})`)
	reAttention  = regexp.MustCompile(`Atención:\s*([A-Za-zÁÉÍÓÚÑ/ ]+)`)
	reService    = regexp.MustCompile(`Servicio de ingreso:\s*([A-Za-zÁÉÍÓÚÑ/ ]+)`)
	rePurpose    = regexp.MustCompile(`Finalidad:\s*([A-Za-zÁÉÍÓÚÑ ]+)`)
	reTriage     = regexp.MustCompile(`Triage\s*(I{1,3}|IV|V)\b`)
	reAdmission  = regexp.MustCompile(`(?i)Fecha y Hora de Ingreso:\s*([0-9/: -]+)`)
	reDischarge  = regexp.MustCompile(`(?i)Cierre Historia\s*\n?\s*Fecha y Hora:\s*([0-9/: -]+)`)
	reDXP        = regexp.MustCompile(`DXP:\s*([A-Z][0-9]{2,3}[0-9A-Z]?)`)
	reDXSection  = regexp.MustCompile(`DX DIAGNOSTICOS:`)
	reSectionDT  = regexp.MustCompile(`(?i)Fecha y Hora:\s*([0-9/: -]+)`)
	reAuth       = regexp.MustCompile(`(?i)Autorizaci[oó]n:\s*([A-Za-z0-9-]+)`)
	reConsulta   = regexp.MustCompile(`Tipo de Consulta:\s*\(([0-9A-Za-z]+)\)\s*([^\n]+)`)
	reCodNomb    = regexp.MustCompile(`(?s)Cod:\s*([A-Z0-9]+)\s+Nomb:\s*(.+?)(?:\s+Cant:|\s+DXP:|\s+DXR:|\s+Descripción:)`)
)

var datetimeLayouts = []string{
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02-01-2006 15:04:05",
	"02/01/06 15:04:05",
}

var dateLayouts = []string{
	"02/01/2006",
	"02-01-2006",
	"2006-01-02",
}

var noShowPhrases = []string{"no asistió", "no asistio", "no se presentó", "no se presento", "inasistencia"}
var attendedPhrases = []string{"asistió", "asistio", "se realiza", "acude"}

// Parser extracts clinical fields from a history PDF's embedded text.
// Deterministic label matching runs first; the clinical extractor fills
// in a principal diagnosis or procedure codes when labels are missing.
type Parser struct {
	pdf      *pdftext.Extractor
	clinical *clinical.Extractor
	logger   *slog.Logger
}

func NewParser(pdf *pdftext.Extractor, clin *clinical.Extractor, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{pdf: pdf, clinical: clin, logger: logger}
}

// ParseFile extracts text from the PDF at path and parses it.
func (p *Parser) ParseFile(ctx context.Context, path string) (*entity.HistoryInfo, error) {
	res, err := p.pdf.Extract(ctx, path)
	if err != nil {
		return nil, err
	}
	info, err := p.Parse(ctx, res.Text)
	if err != nil {
		return nil, err
	}
	p.logger.Info("history.parse.ok",
		"document_number", info.DocumentNumber,
		"consultations", len(info.Consultations),
		"has_diagnosis", info.PrincipalDiagnosis != nil,
	)
	return info, nil
}

// Parse turns history text into HistoryInfo. The patient document number
// is the single mandatory field; its absence is a ParseError. Every other
// field degrades to its zero value, because downstream enrichment (annex,
// manual review) is expected to fill gaps.
func (p *Parser) Parse(ctx context.Context, text string) (*entity.HistoryInfo, error) {
	lines := pdftext.Lines(text)
	normalized := strings.Join(lines, "\n")

	docType, docNumber := extractDocument(normalized)
	if docNumber == "" {
		return nil, common.ParseError("no patient document number in history", nil)
	}

	info := &entity.HistoryInfo{
		DocumentType:     docType,
		DocumentNumber:   docNumber,
		PatientName:      extractName(lines, normalized),
		Sex:              extractSex(normalized),
		BirthDate:        extractDateOnly(normalized, reBirthDate),
		AttentionType:    extractAttentionType(normalized),
		AdmissionAt:      extractDatetime(normalized, reAdmission),
		DischargeAt:      extractDatetime(normalized, reDischarge),
		AdmissionService: extractAdmissionService(lines, firstMatch(normalized, reService)),
		Purpose:          firstMatch(normalized, rePurpose),
		TriageLevel:      firstMatch(normalized, reTriage),
		ProviderCode:     extractProviderCode(normalized),
		Attended:         extractAttendance(normalized),
	}
	// a discharge before admission is an artifact of layout noise; drop it
	if info.AdmissionAt != nil && info.DischargeAt != nil && info.DischargeAt.Before(*info.AdmissionAt) {
		info.DischargeAt = nil
	}

	if m := reDXP.FindStringSubmatch(normalized); m != nil {
		info.PrincipalDiagnosis = &entity.CodeValue{Code: m[1], Source: entity.SourceDeterministic}
	}
	info.SecondaryDiagnoses = extractSecondaryDiagnoses(normalized, info.PrincipalDiagnosis)
	info.Consultations = extractConsultations(normalized)

	p.applyClinicalFallback(ctx, text, info)
	return info, nil
}

// applyClinicalFallback runs the clinical extractor over the narrative when
// deterministic parsing found no principal diagnosis or no procedure codes,
// and merges the highest-confidence candidates with fallback provenance.
func (p *Parser) applyClinicalFallback(ctx context.Context, text string, info *entity.HistoryInfo) {
	if p.clinical == nil {
		return
	}
	needDiagnosis := info.PrincipalDiagnosis == nil
	needProcedures := !info.HasProcedureCodes()
	if !needDiagnosis && !needProcedures {
		return
	}

	entities := p.clinical.Extract(ctx, text)
	if len(entities) == 0 {
		return
	}

	if needDiagnosis {
		if diag, ok := clinical.BestDiagnosis(entities); ok && diag.Code != "" {
			info.PrincipalDiagnosis = &entity.CodeValue{
				Code:   diag.Code,
				Source: fallbackSource(diag.Source),
			}
			p.logger.Info("history.fallback.diagnosis",
				"code", diag.Code, "source", diag.Source, "confidence", diag.Confidence)
		}
	}

	if needProcedures {
		seen := map[string]bool{}
		for _, c := range info.Consultations {
			seen[c.Code] = true
		}
		for _, proc := range clinical.Procedures(entities) {
			if proc.Code == "" || seen[proc.Code] {
				continue
			}
			seen[proc.Code] = true
			info.Consultations = append(info.Consultations, entity.ConsultationInfo{
				Code:   proc.Code,
				Name:   proc.Text,
				Source: fallbackSource(proc.Source),
			})
		}
	}
}

func fallbackSource(s entity.EntitySource) string {
	if s == entity.EntitySourceModel {
		return entity.SourceModelFallback
	}
	return entity.SourceHeuristicFallback
}

func extractDocument(text string) (string, string) {
	if m := reIdentLabel.FindStringSubmatch(text); m != nil {
		// the label form admits arbitrary letters; unknown codes drop
		// to an empty type so the default applies downstream
		if !constants.IsDocumentType(m[1]) {
			return "", m[2]
		}
		return m[1], m[2]
	}
	if m := reIdentTop.FindStringSubmatch(text); m != nil {
		return m[1], m[2]
	}
	if m := reIdentAny.FindStringSubmatch(text); m != nil {
		return m[1], m[2]
	}
	return "", ""
}

func extractName(lines []string, text string) string {
	if m := reName.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	// lines like "CC 1232835680 - PEREZ GOMEZ ANA MARIA"
	for _, line := range lines {
		for _, docType := range constants.DocumentTypes {
			if strings.HasPrefix(line, docType+" ") && strings.Contains(line, " - ") {
				return strings.TrimSpace(strings.SplitN(line, " - ", 2)[1])
			}
		}
	}
	return ""
}

func extractSex(text string) string {
	m := reSex.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	if strings.EqualFold(m[1], "Femenino") {
		return "F"
	}
	return "M"
}

func extractProviderCode(text string) string {
	if m := reProvider.FindStringSubmatch(text); m != nil {
		// ten-digit provider code plus the site suffix
		return m[1] + "01"
	}
	return ""
}

func extractAttentionType(text string) string {
	if v := firstMatch(text, reAttention); v != "" {
		return v
	}
	// older layouts only carry the admission service label
	return firstMatch(text, reService)
}

func extractAdmissionService(lines []string, fallback string) string {
	for i, line := range lines {
		if !strings.HasPrefix(strings.ToLower(line), "cierre historia") {
			continue
		}
		for j := i + 1; j < len(lines) && j <= i+4; j++ {
			cand := lines[j]
			if cand != "" && cand == strings.ToUpper(cand) && strings.ContainsAny(cand, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
				return cand
			}
		}
		break
	}
	return fallback
}

func extractSecondaryDiagnoses(text string, principal *entity.CodeValue) []entity.CodeValue {
	loc := reDXSection.FindStringIndex(text)
	if loc == nil {
		return nil
	}
	section := text[loc[1]:]
	if end := strings.Index(section, "\n\n"); end > 0 {
		section = section[:end]
	}

	var out []entity.CodeValue
	seen := map[string]bool{}
	if principal != nil {
		seen[principal.Code] = true
	}
	for _, m := range regexp.MustCompile(`\b([A-TV-Z][0-9]{2}[0-9A-Z]?)\b`).FindAllStringSubmatch(section, -1) {
		code := m[1]
		if seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, entity.CodeValue{Code: code, Source: entity.SourceDeterministic})
	}
	return out
}

// extractConsultations splits the narrative on bullet markers and collects
// the encounter blocks, deduplicating on (code, datetime).
func extractConsultations(text string) []entity.ConsultationInfo {
	var out []entity.ConsultationInfo
	type key struct {
		code string
		when string
	}
	seen := map[key]bool{}

	add := func(code, name string, when *time.Time, auth, purpose, note string) {
		k := key{code: code}
		if when != nil {
			k.when = when.Format(time.RFC3339)
		}
		if seen[k] {
			return
		}
		seen[k] = true
		out = append(out, entity.ConsultationInfo{
			Date:          when,
			Code:          code,
			Name:          strings.Join(strings.Fields(name), " "),
			Authorization: auth,
			Purpose:       purpose,
			Note:          note,
			Source:        entity.SourceDeterministic,
		})
	}

	for _, raw := range strings.Split(text, "• ") {
		section := strings.TrimSpace(raw)
		if section == "" {
			continue
		}
		when := extractDatetime(section, reSectionDT)
		purpose := firstMatch(section, rePurpose)
		auth := firstMatch(section, reAuth)

		for _, m := range reConsulta.FindAllStringSubmatch(section, -1) {
			add(m[1], m[2], when, auth, purpose, "")
		}
		for _, m := range reCodNomb.FindAllStringSubmatch(section, -1) {
			add(m[1], m[2], when, auth, purpose, "")
		}
	}
	return out
}

func extractAttendance(text string) *bool {
	lower := strings.ToLower(text)
	for _, phrase := range noShowPhrases {
		if strings.Contains(lower, phrase) {
			v := false
			return &v
		}
	}
	for _, phrase := range attendedPhrases {
		if strings.Contains(lower, phrase) {
			v := true
			return &v
		}
	}
	return nil
}

func firstMatch(text string, re *regexp.Regexp) string {
	if m := re.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func extractDatetime(text string, re *regexp.Regexp) *time.Time {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	candidate := strings.TrimSpace(m[1])
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, candidate); err == nil {
			return &t
		}
	}
	// date-only fallback: keep the day, zero the clock
	fields := strings.Fields(candidate)
	if len(fields) == 0 {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, fields[0]); err == nil {
			return &t
		}
	}
	return nil
}

func extractDateOnly(text string, re *regexp.Regexp) *time.Time {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, m[1]); err == nil {
			return &t
		}
	}
	return nil
}
