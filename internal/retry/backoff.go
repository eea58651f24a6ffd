// Package retry re-attempts missing enrichment data for partial jobs
// under an exponential backoff and a per-job deadline budget.
package retry

import (
	"math"
	"time"

	"carematch-engine/internal/models"
)

// Policy holds the backoff parameters for source retries.
type Policy struct {
	BaseDelay   time.Duration
	Multiplier  float64
	MaxAttempts int
}

// NextEligibleAt returns the earliest instant the outcome may be
// retried: base * multiplier^(attempts-1) after the last attempt.
func (p Policy) NextEligibleAt(o models.SourceOutcome) time.Time {
	if o.Attempts <= 0 {
		return o.LastAttemptAt
	}
	delay := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(o.Attempts-1))
	return o.LastAttemptAt.Add(time.Duration(delay))
}

// Eligible reports whether the outcome should be retried now. Outcomes
// at the attempt cap are never eligible again.
func (p Policy) Eligible(o models.SourceOutcome, now time.Time) bool {
	if o.Status == models.OutcomeSuccess {
		return false
	}
	if p.MaxAttempts > 0 && o.Attempts >= p.MaxAttempts {
		return false
	}
	return !now.Before(p.NextEligibleAt(o))
}
