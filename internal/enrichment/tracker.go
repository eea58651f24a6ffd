package enrichment

import (
	"sort"
	"sync"
	"time"

	"carematch-engine/internal/models"
)

// outcomeKey identifies one (candidate, source) pair.
type outcomeKey struct {
	candidateID string
	source      string
}

// Tracker records per-(candidate, source) fetch outcomes for one job.
// All writes overwrite a single key, so concurrent recording from the
// orchestrator's fan-out needs no cross-key coordination beyond the map
// lock.
type Tracker struct {
	mu       sync.Mutex
	outcomes map[outcomeKey]models.SourceOutcome
}

func NewTracker() *Tracker {
	return &Tracker{
		outcomes: make(map[outcomeKey]models.SourceOutcome),
	}
}

// Seed registers a pending outcome for every (candidate, source) pair so
// completeness accounting starts from the full denominator.
func (t *Tracker) Seed(candidateIDs []string, sources []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, cid := range candidateIDs {
		for _, src := range sources {
			key := outcomeKey{candidateID: cid, source: src}
			if _, exists := t.outcomes[key]; !exists {
				t.outcomes[key] = models.SourceOutcome{
					CandidateID: cid,
					Source:      src,
					Status:      models.OutcomePending,
				}
			}
		}
	}
}

// RecordSuccess marks a pair fetched, bumping the attempt counter.
func (t *Tracker) RecordSuccess(candidateID, source string, latency time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := outcomeKey{candidateID: candidateID, source: source}
	prev := t.outcomes[key]
	t.outcomes[key] = models.SourceOutcome{
		CandidateID:   candidateID,
		Source:        source,
		Status:        models.OutcomeSuccess,
		Attempts:      prev.Attempts + 1,
		LastAttemptAt: time.Now().UTC(),
		LatencyMS:     latency.Milliseconds(),
	}
}

// RecordFailure marks a pair failed with its reason, bumping the attempt
// counter.
func (t *Tracker) RecordFailure(candidateID, source string, reason string, latency time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := outcomeKey{candidateID: candidateID, source: source}
	prev := t.outcomes[key]
	t.outcomes[key] = models.SourceOutcome{
		CandidateID:   candidateID,
		Source:        source,
		Status:        models.OutcomeFailure,
		Attempts:      prev.Attempts + 1,
		LastError:     reason,
		LastAttemptAt: time.Now().UTC(),
		LatencyMS:     latency.Milliseconds(),
	}
}

// Import replays previously persisted outcomes, preserving attempt
// counts across retry sweeps.
func (t *Tracker) Import(outcomes []models.SourceOutcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, o := range outcomes {
		t.outcomes[outcomeKey{candidateID: o.CandidateID, source: o.Source}] = o
	}
}

// Completeness returns the fraction of pairs fetched successfully, in
// percent. An empty tracker reads as 100.
func (t *Tracker) Completeness() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.outcomes) == 0 {
		return 100
	}
	var succeeded int
	for _, o := range t.outcomes {
		if o.Status == models.OutcomeSuccess {
			succeeded++
		}
	}
	return float64(succeeded) / float64(len(t.outcomes)) * 100
}

// Missing returns the outcomes that are not successes, sorted for
// deterministic persistence.
func (t *Tracker) Missing() []models.SourceOutcome {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []models.SourceOutcome
	for _, o := range t.outcomes {
		if o.Status != models.OutcomeSuccess {
			out = append(out, o)
		}
	}
	sortOutcomes(out)
	return out
}

// Outcomes returns a snapshot of every recorded outcome.
func (t *Tracker) Outcomes() []models.SourceOutcome {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.SourceOutcome, 0, len(t.outcomes))
	for _, o := range t.outcomes {
		out = append(out, o)
	}
	sortOutcomes(out)
	return out
}

func sortOutcomes(outcomes []models.SourceOutcome) {
	sort.Slice(outcomes, func(i, j int) bool {
		return lessOutcome(outcomes[i], outcomes[j])
	})
}

func lessOutcome(a, b models.SourceOutcome) bool {
	if a.CandidateID != b.CandidateID {
		return a.CandidateID < b.CandidateID
	}
	return a.Source < b.Source
}
