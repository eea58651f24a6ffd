// Package enrichment fans out candidate enrichment calls to the
// configured external data sources, isolating every failure behind a
// per-call timeout and a tracker record.
package enrichment

import (
	"context"

	"carematch-engine/internal/models"
)

// SourceClient is the boundary to one external data provider. Fetch must
// be idempotent and safe to call repeatedly, and must honor the context
// deadline rather than blocking past it.
type SourceClient interface {
	Name() string
	Fetch(ctx context.Context, candidate models.Candidate) (models.SourcePayload, error)
}
