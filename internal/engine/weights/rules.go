package weights

import "carematch-engine/internal/models"

// Rule is one priority-ordered weight adjustment: a pure predicate over
// the applicant profile plus per-category deltas. A fired rule suppresses
// only the rules named in its Supersedes set, not every lower-priority one.
type Rule struct {
	ID          string
	Priority    int // lower = higher priority
	Description string
	Applies     func(p models.ApplicantProfile) bool
	Deltas      map[models.Category]float64
	Supersedes  []string
}

// Rule ids. The exact supersede sets are product configuration; the
// defaults below can be overridden per deployment (config `rules.supersedes`).
const (
	RuleHighFallRisk    = "HighFallRisk"
	RuleDementiaCare    = "DementiaCare"
	RuleNursingRequired = "NursingRequired"
	RuleTightBudget     = "TightBudget"
	RuleUrgentPlacement = "UrgentPlacement"
	RuleHighSocialNeed  = "HighSocialNeed"
)

// tightBudgetWeekly is the weekly budget under which affordability
// dominates the ranking.
const tightBudgetWeekly = 900

// DefaultRules returns the built-in rule table, ordered by priority.
// Every rule's deltas are zero-sum so that firing a single rule shifts
// emphasis without changing the vector total.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:          RuleHighFallRisk,
			Priority:    1,
			Description: "high fall risk makes safety the dominant concern",
			Applies: func(p models.ApplicantProfile) bool {
				return p.FallRisk == models.RiskHigh
			},
			Deltas: map[models.Category]float64{
				models.CategorySafety:   +9,
				models.CategorySocial:   -4,
				models.CategoryLocation: -3,
				models.CategoryServices: -2,
			},
			Supersedes: []string{RuleUrgentPlacement},
		},
		{
			ID:          RuleDementiaCare,
			Priority:    2,
			Description: "dementia care shifts weight to medical and staffing quality",
			Applies: func(p models.ApplicantProfile) bool {
				return p.RequiredCareLevel == models.CareLevelDementia || p.HasCondition("dementia")
			},
			Deltas: map[models.Category]float64{
				models.CategoryMedical:   +6,
				models.CategoryStaff:     +4,
				models.CategorySocial:    -4,
				models.CategoryServices:  -3,
				models.CategoryFinancial: -3,
			},
		},
		{
			ID:          RuleNursingRequired,
			Priority:    3,
			Description: "nursing care requires clinical capability over amenities",
			Applies: func(p models.ApplicantProfile) bool {
				return p.RequiredCareLevel == models.CareLevelNursing
			},
			Deltas: map[models.Category]float64{
				models.CategoryMedical:  +5,
				models.CategoryStaff:    +3,
				models.CategorySocial:   -4,
				models.CategoryServices: -4,
			},
		},
		{
			ID:          RuleTightBudget,
			Priority:    4,
			Description: "constrained budgets weight affordability heavily",
			Applies: func(p models.ApplicantProfile) bool {
				return p.BudgetWeekly > 0 && p.BudgetWeekly < tightBudgetWeekly
			},
			Deltas: map[models.Category]float64{
				models.CategoryFinancial: +8,
				models.CategoryServices:  -3,
				models.CategorySocial:    -3,
				models.CategoryLocation:  -2,
			},
		},
		{
			ID:          RuleUrgentPlacement,
			Priority:    5,
			Description: "urgent placements favour nearby availability",
			Applies: func(p models.ApplicantProfile) bool {
				return p.UrgentPlacement
			},
			Deltas: map[models.Category]float64{
				models.CategoryLocation:  +6,
				models.CategoryFinancial: -3,
				models.CategorySocial:    -3,
			},
		},
		{
			ID:          RuleHighSocialNeed,
			Priority:    6,
			Description: "applicants with many social preferences value community life",
			Applies: func(p models.ApplicantProfile) bool {
				return len(p.SocialPreferences) >= 3
			},
			Deltas: map[models.Category]float64{
				models.CategorySocial:     +5,
				models.CategoryFinancial:  -3,
				models.CategoryCompliance: -2,
			},
		},
	}
}

// ApplySupersedeOverrides replaces rules' supersede sets with the
// configured ones. Rules not named keep their defaults.
func ApplySupersedeOverrides(rules []Rule, overrides map[string][]string) []Rule {
	if len(overrides) == 0 {
		return rules
	}
	out := make([]Rule, len(rules))
	copy(out, rules)
	for i := range out {
		if set, ok := overrides[out[i].ID]; ok {
			out[i].Supersedes = set
		}
	}
	return out
}
