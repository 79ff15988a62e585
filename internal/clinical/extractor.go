package clinical

import (
	"context"
	"os"
	"sync"

	"log/slog"

	"github.com/YasminGarcia1210/ripsgen/internal/config"
	"github.com/YasminGarcia1210/ripsgen/internal/entity"
)

// Extractor selects between the model and heuristic strategies and shields
// its callers from every failure mode: a disabled model, unresolvable
// weights, or an inference error all degrade silently to heuristics. The
// worst case is an empty result, never an error.
//
// Strategy resolution happens once and the result is immutable afterward,
// so one Extractor is safe for concurrent Extract calls.
type Extractor struct {
	cfg       config.ModelConfig
	model     Strategy
	heuristic Strategy
	log       *slog.Logger

	once   sync.Once
	active Strategy
}

func NewExtractor(cfg *config.Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		cfg:       cfg.Model,
		model:     NewModelStrategy(cfg.Model, logger),
		heuristic: NewHeuristicStrategy(cfg.HeuristicConfidence),
		log:       logger,
	}
}

// resolve decides which strategy serves this process. Pure function of
// configuration and weight resolvability, computed at most once.
func (e *Extractor) resolve() Strategy {
	e.once.Do(func() {
		e.active = e.heuristic
		if !e.cfg.Enabled {
			return
		}
		if e.cfg.LocalFilesOnly {
			if e.cfg.Path == "" {
				e.log.Warn("clinical.model.unresolvable", "reason", "local_files_only with empty path")
				return
			}
			if _, err := os.Stat(e.cfg.Path); err != nil {
				e.log.Warn("clinical.model.unresolvable", "reason", "model path not found",
					"path", e.cfg.Path, "err", err)
				return
			}
		}
		if e.cfg.Endpoint == "" {
			e.log.Warn("clinical.model.unresolvable", "reason", "no inference endpoint configured")
			return
		}
		e.active = e.model
		e.log.Info("clinical.strategy.selected", "strategy", e.active.Name())
	})
	return e.active
}

// Extract returns every clinical entity the active strategy finds in text.
// It never fails the caller: a model error falls back to heuristics for
// that call with a single warning.
func (e *Extractor) Extract(ctx context.Context, text string) []entity.ClinicalEntity {
	if text == "" {
		return nil
	}
	strategy := e.resolve()
	entities, err := strategy.Extract(ctx, text)
	if err != nil && strategy != e.heuristic {
		e.log.Warn("clinical.model.fallback", "err", err)
		entities, err = e.heuristic.Extract(ctx, text)
	}
	if err != nil {
		// heuristics only fail on nothing; keep the contract anyway
		e.log.Warn("clinical.extract.empty", "err", err)
		return nil
	}
	return entities
}

// ActiveStrategy exposes which variant serves extraction, for diagnostics.
func (e *Extractor) ActiveStrategy() string {
	return e.resolve().Name()
}

// BestDiagnosis returns the highest-confidence diagnosis entity, if any.
func BestDiagnosis(entities []entity.ClinicalEntity) (entity.ClinicalEntity, bool) {
	return best(entities, entity.EntityDiagnosis)
}

// Procedures returns all procedure entities in input order.
func Procedures(entities []entity.ClinicalEntity) []entity.ClinicalEntity {
	var out []entity.ClinicalEntity
	for _, e := range entities {
		if e.Kind == entity.EntityProcedure {
			out = append(out, e)
		}
	}
	return out
}

func best(entities []entity.ClinicalEntity, kind entity.EntityKind) (entity.ClinicalEntity, bool) {
	var found bool
	var top entity.ClinicalEntity
	for _, e := range entities {
		if e.Kind != kind {
			continue
		}
		if !found || e.Confidence > top.Confidence {
			top = e
			found = true
		}
	}
	return top, found
}
