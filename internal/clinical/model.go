package clinical

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/goccy/go-json"

	"github.com/YasminGarcia1210/ripsgen/internal/config"
	"github.com/YasminGarcia1210/ripsgen/internal/entity"
)

// ModelStrategy calls a token-classification inference endpoint
// (HuggingFace-style): POST the text, get back labeled spans with scores.
// Spans below the configured confidence floor are dropped.
type ModelStrategy struct {
	cfg        config.ModelConfig
	httpClient *http.Client
	log        *slog.Logger
}

func NewModelStrategy(cfg config.ModelConfig, logger *slog.Logger) *ModelStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ModelStrategy{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		log:        logger,
	}
}

func (s *ModelStrategy) Name() string { return "model" }

// tokenSpan is the inference endpoint's response element.
type tokenSpan struct {
	EntityGroup string  `json:"entity_group"`
	Word        string  `json:"word"`
	Score       float64 `json:"score"`
	Start       int     `json:"start"`
	End         int     `json:"end"`
}

func (s *ModelStrategy) Extract(ctx context.Context, text string) ([]entity.ClinicalEntity, error) {
	start := time.Now()

	raw, err := s.post(ctx, map[string]any{"inputs": text})
	if err != nil {
		s.log.Error("clinical.model.http_error", "err", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}

	var spans []tokenSpan
	if err := json.Unmarshal(raw, &spans); err != nil {
		return nil, fmt.Errorf("decode inference response: %w", err)
	}

	var out []entity.ClinicalEntity
	for _, sp := range spans {
		if sp.Score < s.cfg.ConfidenceFloor {
			continue
		}
		ent, ok := classify(sp)
		if !ok {
			continue
		}
		out = append(out, ent)
	}
	s.log.Info("clinical.model.ok",
		"spans", len(spans),
		"entities", len(out),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// classify maps an inference label to an entity kind. Labels the model does
// not distinguish are classified by content: a CIE pattern means diagnosis,
// a CUPS pattern means procedure, anything else is dropped.
func classify(sp tokenSpan) (entity.ClinicalEntity, bool) {
	label := strings.ToUpper(sp.EntityGroup)
	base := entity.ClinicalEntity{
		Text:       sp.Word,
		Confidence: sp.Score,
		Source:     entity.EntitySourceModel,
		Span:       [2]int{sp.Start, sp.End},
	}
	switch {
	case strings.HasPrefix(label, "DIAG"):
		base.Kind = entity.EntityDiagnosis
		base.Code = MatchCIE(sp.Word)
		return base, true
	case strings.HasPrefix(label, "PRO") || strings.HasPrefix(label, "ACT"):
		base.Kind = entity.EntityProcedure
		base.Code = MatchCUPS(sp.Word)
		return base, true
	case MatchCIE(sp.Word) != "":
		base.Kind = entity.EntityDiagnosis
		base.Code = MatchCIE(sp.Word)
		return base, true
	case MatchCUPS(sp.Word) != "" && looksLikeProcedure(sp.Word):
		base.Kind = entity.EntityProcedure
		base.Code = MatchCUPS(sp.Word)
		return base, true
	}
	return entity.ClinicalEntity{}, false
}

func (s *ModelStrategy) post(ctx context.Context, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference http error: %w", err)
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			s.log.Warn("inference response body close error", "err", err)
		}
	}(resp.Body)

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("read inference response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("inference status %d: %s", resp.StatusCode, buf.String())
	}
	return buf.Bytes(), nil
}
