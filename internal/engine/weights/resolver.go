package weights

import (
	"fmt"
	"sort"

	"carematch-engine/internal/common/errors"
	"carematch-engine/internal/models"
)

// Resolver turns an applicant profile into a normalized weight vector by
// evaluating its rule table in priority order. Resolution is a pure
// function of the profile and the table: no I/O, no side effects.
type Resolver struct {
	categories map[models.Category]CategoryConfig
	rules      []Rule
}

// NewResolver builds a resolver over the default category table and the
// given rules. The rules are copied and sorted by priority; the original
// declaration order is the tie-break within equal priorities.
func NewResolver(rules []Rule) *Resolver {
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})
	return &Resolver{
		categories: Baselines(),
		rules:      sorted,
	}
}

// NewDefaultResolver builds a resolver over the built-in rule table.
func NewDefaultResolver() *Resolver {
	return NewResolver(DefaultRules())
}

// Resolve evaluates the rule table against the profile and returns the
// renormalized weight vector with rule provenance.
func (r *Resolver) Resolve(profile models.ApplicantProfile) (models.WeightVector, error) {
	working := make(map[models.Category]float64, len(r.categories))
	for cat, cfg := range r.categories {
		working[cat] = cfg.Baseline
	}

	applied := []string{}
	suppressed := map[string]bool{}

	for _, rule := range r.rules {
		if suppressed[rule.ID] {
			continue
		}
		if rule.Applies == nil || !rule.Applies(profile) {
			continue
		}

		// Same-priority rules touching the same category sum their
		// deltas here before the final clamp.
		for cat, delta := range rule.Deltas {
			working[cat] += delta
		}
		applied = append(applied, rule.ID)
		for _, id := range rule.Supersedes {
			suppressed[id] = true
		}
	}

	for cat, w := range working {
		if w < 0 {
			working[cat] = 0
		}
	}

	var sum float64
	for _, w := range working {
		sum += w
	}
	if sum <= 0 {
		return models.WeightVector{}, errors.NewConfigurationInvalidError(
			fmt.Sprintf("all category weights clamped to zero after rules %v", applied))
	}

	// Proportional renormalization of every category, not just the
	// adjusted ones, so the vector sums to exactly 100.
	for cat, w := range working {
		working[cat] = w / sum * 100
	}

	return models.WeightVector{
		Weights:      working,
		AppliedRules: applied,
	}, nil
}

// Validate checks the rule table invariants at startup: baselines sum to
// 100 and every supersede target names a known rule.
func (r *Resolver) Validate() error {
	var sum float64
	for _, cfg := range r.categories {
		sum += cfg.Baseline
	}
	if sum < 99.999 || sum > 100.001 {
		return errors.NewConfigurationInvalidError(
			fmt.Sprintf("baseline weights sum to %.3f, want 100", sum))
	}

	known := map[string]bool{}
	for _, rule := range r.rules {
		known[rule.ID] = true
	}
	for _, rule := range r.rules {
		for _, id := range rule.Supersedes {
			if !known[id] {
				return errors.NewConfigurationInvalidError(
					fmt.Sprintf("rule %s supersedes unknown rule %s", rule.ID, id))
			}
		}
	}
	return nil
}
