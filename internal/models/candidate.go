package models

import "time"

// SourcePayload is one data source's contribution to a candidate's
// enrichment bundle. Missing marks an explicit placeholder left in place
// of data the source failed to deliver.
type SourcePayload struct {
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data,omitempty"`
	FetchedAt time.Time              `json:"fetchedAt,omitempty"`
	Missing   bool                   `json:"missing"`
}

// EnrichmentBundle collects per-source payloads for one candidate. Each
// source writes exactly once per attempt, so merges are commutative.
type EnrichmentBundle struct {
	Payloads map[string]SourcePayload `json:"payloads"`
}

// NewEnrichmentBundle creates a bundle with a neutral placeholder for
// every configured source, so downstream scoring never dereferences nil.
func NewEnrichmentBundle(sources []string) *EnrichmentBundle {
	b := &EnrichmentBundle{Payloads: make(map[string]SourcePayload, len(sources))}
	for _, s := range sources {
		b.Payloads[s] = SourcePayload{Source: s, Missing: true}
	}
	return b
}

// Merge overwrites the payload slot for the payload's source.
func (b *EnrichmentBundle) Merge(p SourcePayload) {
	if b.Payloads == nil {
		b.Payloads = make(map[string]SourcePayload)
	}
	b.Payloads[p.Source] = p
}

// Get returns the payload for a source; absent sources read as missing.
func (b *EnrichmentBundle) Get(source string) SourcePayload {
	if b == nil || b.Payloads == nil {
		return SourcePayload{Source: source, Missing: true}
	}
	if p, ok := b.Payloads[source]; ok {
		return p
	}
	return SourcePayload{Source: source, Missing: true}
}

// MissingSources lists sources whose slots still hold placeholders.
func (b *EnrichmentBundle) MissingSources() []string {
	if b == nil {
		return nil
	}
	var out []string
	for name, p := range b.Payloads {
		if p.Missing {
			out = append(out, name)
		}
	}
	return out
}

// Candidate is a facility being scored against an applicant profile.
// Static attributes come from the candidate pool; Enrichment is mutated
// only by the orchestrator and the retry path, never by the scorer.
type Candidate struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Location       Location          `json:"location"`
	WeeklyPrice    float64           `json:"weeklyPrice"`
	CareLevels     []string          `json:"careLevels"`
	RegistryRating string            `json:"registryRating,omitempty"`
	Enrichment     *EnrichmentBundle `json:"enrichment,omitempty"`
}

// SupportsCareLevel reports whether the facility offers the given care level.
func (c Candidate) SupportsCareLevel(level CareLevel) bool {
	for _, l := range c.CareLevels {
		if l == string(level) {
			return true
		}
	}
	return false
}
