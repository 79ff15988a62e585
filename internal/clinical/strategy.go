package clinical

import (
	"context"

	"github.com/YasminGarcia1210/ripsgen/internal/entity"
)

// Strategy is one interchangeable way of pulling clinical entities out of
// free text. Callers never branch on which strategy ran: both emit the
// same entity shape, distinguished only by provenance and score.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, text string) ([]entity.ClinicalEntity, error)
}
