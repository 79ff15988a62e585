package entity

// EntityKind classifies a clinical entity candidate.
type EntityKind string

const (
	EntityDiagnosis EntityKind = "diagnosis"
	EntityProcedure EntityKind = "procedure"
)

// EntitySource tells which strategy produced a candidate.
type EntitySource string

const (
	EntitySourceModel     EntitySource = "model"
	EntitySourceHeuristic EntitySource = "heuristic"
)

// ClinicalEntity is a candidate diagnosis or procedure mention extracted
// from free text. Entities are ephemeral: consumed immediately by the
// history extractor and never persisted on their own.
type ClinicalEntity struct {
	Kind       EntityKind   `json:"kind"`
	Code       string       `json:"code,omitempty"` // CIE-10 or CUPS when recognized
	Text       string       `json:"text"`
	Confidence float64      `json:"confidence"` // in [0,1]
	Source     EntitySource `json:"source"`
	Span       [2]int       `json:"span"` // character offsets into the source text
}
