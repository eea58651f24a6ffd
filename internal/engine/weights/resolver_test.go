package weights

import (
	"testing"

	"carematch-engine/internal/common/errors"
	"carematch-engine/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baselineProfile() models.ApplicantProfile {
	return models.ApplicantProfile{
		RequiredCareLevel: models.CareLevelResidential,
		BudgetWeekly:      1500,
		FallRisk:          models.RiskLow,
		Location:          models.Location{Postcode: "BS1 4DJ"},
	}
}

func TestResolve_NoRulesFired_ReturnsBaseline(t *testing.T) {
	resolver := NewDefaultResolver()

	wv, err := resolver.Resolve(baselineProfile())
	require.NoError(t, err)

	assert.Empty(t, wv.AppliedRules)
	for cat, cfg := range Baselines() {
		assert.InDelta(t, cfg.Baseline, wv.Get(cat), 1e-9, "category %s", cat)
	}
	assert.InDelta(t, 100, wv.Sum(), 1e-9)
}

func TestResolve_WeightsAlwaysSumTo100(t *testing.T) {
	resolver := NewDefaultResolver()

	profiles := []models.ApplicantProfile{
		baselineProfile(),
		{RequiredCareLevel: models.CareLevelDementia, BudgetWeekly: 800, FallRisk: models.RiskHigh, UrgentPlacement: true},
		{RequiredCareLevel: models.CareLevelNursing, BudgetWeekly: 700, FallRisk: models.RiskMedium},
		{RequiredCareLevel: models.CareLevelResidential, BudgetWeekly: 2000, UrgentPlacement: true,
			SocialPreferences: []string{"gardening", "music", "outings"}},
		{RequiredCareLevel: models.CareLevelDementia, BudgetWeekly: 850,
			MedicalConditions: []string{"dementia", "diabetes"}, FallRisk: models.RiskHigh},
	}

	for _, p := range profiles {
		wv, err := resolver.Resolve(p)
		require.NoError(t, err)
		assert.InDelta(t, 100, wv.Sum(), 1e-9)
	}
}

func TestResolve_HighFallRisk_RaisesSafetyTo25(t *testing.T) {
	resolver := NewDefaultResolver()

	profile := baselineProfile()
	profile.FallRisk = models.RiskHigh

	wv, err := resolver.Resolve(profile)
	require.NoError(t, err)

	assert.Contains(t, wv.AppliedRules, RuleHighFallRisk)
	assert.InDelta(t, 25, wv.Get(models.CategorySafety), 1e-9)
}

func TestResolve_HighFallRiskSupersedesUrgentPlacement(t *testing.T) {
	resolver := NewDefaultResolver()

	profile := baselineProfile()
	profile.FallRisk = models.RiskHigh
	profile.UrgentPlacement = true

	wv, err := resolver.Resolve(profile)
	require.NoError(t, err)

	assert.Contains(t, wv.AppliedRules, RuleHighFallRisk)
	assert.NotContains(t, wv.AppliedRules, RuleUrgentPlacement)

	// Urgent's Location boost must not be applied; Location carries only
	// the fall-risk adjustment (14 - 3 = 11).
	assert.InDelta(t, 11, wv.Get(models.CategoryLocation), 1e-9)
}

func TestResolve_UrgentAloneBoostsLocation(t *testing.T) {
	resolver := NewDefaultResolver()

	profile := baselineProfile()
	profile.UrgentPlacement = true

	wv, err := resolver.Resolve(profile)
	require.NoError(t, err)

	assert.Contains(t, wv.AppliedRules, RuleUrgentPlacement)
	assert.InDelta(t, 20, wv.Get(models.CategoryLocation), 1e-9)
}

func TestResolve_Deterministic(t *testing.T) {
	resolver := NewDefaultResolver()

	profile := models.ApplicantProfile{
		RequiredCareLevel: models.CareLevelDementia,
		BudgetWeekly:      800,
		FallRisk:          models.RiskHigh,
		UrgentPlacement:   true,
	}

	first, err := resolver.Resolve(profile)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := resolver.Resolve(profile)
		require.NoError(t, err)
		assert.Equal(t, first.AppliedRules, again.AppliedRules)
		assert.Equal(t, first.Weights, again.Weights)
	}
}

func TestResolve_SamePriorityDeltasSum(t *testing.T) {
	rules := []Rule{
		{
			ID:       "BoostA",
			Priority: 3,
			Applies:  func(models.ApplicantProfile) bool { return true },
			Deltas:   map[models.Category]float64{models.CategorySafety: +4},
		},
		{
			ID:       "BoostB",
			Priority: 3,
			Applies:  func(models.ApplicantProfile) bool { return true },
			Deltas:   map[models.Category]float64{models.CategorySafety: +5},
		},
	}
	resolver := NewResolver(rules)

	wv, err := resolver.Resolve(baselineProfile())
	require.NoError(t, err)

	// Both fire, deltas sum before clamping, table stays zero-sum free
	// so renormalization scales everything back to 100 total.
	assert.ElementsMatch(t, []string{"BoostA", "BoostB"}, wv.AppliedRules)
	assert.InDelta(t, 100, wv.Sum(), 1e-9)
	assert.InDelta(t, (16.0+9.0)/109.0*100, wv.Get(models.CategorySafety), 1e-9)
}

func TestResolve_AllWeightsClampedToZero_ConfigurationError(t *testing.T) {
	deltas := make(map[models.Category]float64)
	for cat, cfg := range Baselines() {
		deltas[cat] = -cfg.Baseline
	}
	resolver := NewResolver([]Rule{{
		ID:       "ZeroEverything",
		Priority: 1,
		Applies:  func(models.ApplicantProfile) bool { return true },
		Deltas:   deltas,
	}})

	_, err := resolver.Resolve(baselineProfile())
	require.Error(t, err)

	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeConfigurationInvalid, stdErr.Code)
}

func TestValidate_BaselinesAndSupersedes(t *testing.T) {
	require.NoError(t, NewDefaultResolver().Validate())

	bad := NewResolver([]Rule{{
		ID:         "Dangling",
		Priority:   1,
		Supersedes: []string{"NoSuchRule"},
	}})
	assert.Error(t, bad.Validate())
}

func TestApplySupersedeOverrides(t *testing.T) {
	rules := DefaultRules()
	overridden := ApplySupersedeOverrides(rules, map[string][]string{
		RuleHighFallRisk: {},
	})

	resolver := NewResolver(overridden)
	profile := baselineProfile()
	profile.FallRisk = models.RiskHigh
	profile.UrgentPlacement = true

	wv, err := resolver.Resolve(profile)
	require.NoError(t, err)

	// With the supersede set cleared, both rules fire.
	assert.Contains(t, wv.AppliedRules, RuleHighFallRisk)
	assert.Contains(t, wv.AppliedRules, RuleUrgentPlacement)
}
