package clinical

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YasminGarcia1210/ripsgen/internal/config"
	"github.com/YasminGarcia1210/ripsgen/internal/entity"
)

const narrative = `Paciente consulta por cuadro febril. DX J03.0 amigdalitis aguda.
Se realiza procedimiento de vacunación código 993520 según esquema.`

func testConfig(model config.ModelConfig) *config.Config {
	return &config.Config{
		HeuristicConfidence: 0.4,
		Model:               model,
	}
}

func TestModelDisabledUsesHeuristics(t *testing.T) {
	e := NewExtractor(testConfig(config.ModelConfig{Enabled: false, ConfidenceFloor: 0.5}), nil)

	entities := e.Extract(context.Background(), narrative)
	require.NotEmpty(t, entities)
	assert.Equal(t, "heuristic", e.ActiveStrategy())
	for _, ent := range entities {
		assert.Equal(t, entity.EntitySourceHeuristic, ent.Source)
		assert.InDelta(t, 0.4, ent.Confidence, 1e-9)
	}

	diag, ok := BestDiagnosis(entities)
	require.True(t, ok)
	assert.Equal(t, "J03.0", diag.Code)

	procs := Procedures(entities)
	require.NotEmpty(t, procs)
	assert.Equal(t, "993520", procs[0].Code)
}

func TestModelEnabledUsesEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"entity_group":"DIAG","word":"J03.0","score":0.93,"start":40,"end":45},
			{"entity_group":"PROC","word":"993520","score":0.88,"start":110,"end":116},
			{"entity_group":"DIAG","word":"A09","score":0.31,"start":10,"end":13}
		]`))
	}))
	defer srv.Close()

	e := NewExtractor(testConfig(config.ModelConfig{
		Enabled:         true,
		Endpoint:        srv.URL,
		ConfidenceFloor: 0.5,
		Timeout:         5 * time.Second,
	}), nil)

	entities := e.Extract(context.Background(), narrative)
	require.Len(t, entities, 2) // the 0.31 span is below the floor
	assert.Equal(t, "model", e.ActiveStrategy())
	assert.Equal(t, entity.EntitySourceModel, entities[0].Source)
	assert.Equal(t, "J03.0", entities[0].Code)
	assert.Equal(t, entity.EntityProcedure, entities[1].Kind)
	assert.Equal(t, "993520", entities[1].Code)
}

func TestModelErrorFallsBackSilently(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	e := NewExtractor(testConfig(config.ModelConfig{
		Enabled:         true,
		Endpoint:        srv.URL,
		ConfidenceFloor: 0.5,
		Timeout:         5 * time.Second,
	}), nil)

	entities := e.Extract(context.Background(), narrative)
	require.NotEmpty(t, entities)
	for _, ent := range entities {
		assert.Equal(t, entity.EntitySourceHeuristic, ent.Source)
	}
}

func TestUnresolvableLocalWeightsFallBack(t *testing.T) {
	e := NewExtractor(testConfig(config.ModelConfig{
		Enabled:         true,
		Endpoint:        "http://localhost:1",
		Path:            "/nonexistent/model",
		LocalFilesOnly:  true,
		ConfidenceFloor: 0.5,
	}), nil)

	assert.Equal(t, "heuristic", e.ActiveStrategy())
	entities := e.Extract(context.Background(), narrative)
	assert.NotEmpty(t, entities)
}

func TestEmptyTextReturnsNoEntities(t *testing.T) {
	e := NewExtractor(testConfig(config.ModelConfig{ConfidenceFloor: 0.5}), nil)
	assert.Empty(t, e.Extract(context.Background(), ""))
}

func TestHeuristicCUPSNeedsProcedureContext(t *testing.T) {
	s := NewHeuristicStrategy(0.4)

	// a bare number with no procedure wording is not a procedure
	entities, err := s.Extract(context.Background(), "radicado 123456 sin contexto relevante")
	require.NoError(t, err)
	assert.Empty(t, Procedures(entities))

	entities, err = s.Extract(context.Background(), "se realiza sutura simple codigo 869500")
	require.NoError(t, err)
	procs := Procedures(entities)
	require.Len(t, procs, 1)
	assert.Equal(t, "869500", procs[0].Code)
}
