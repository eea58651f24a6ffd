package scoring

import (
	"testing"
	"time"

	"carematch-engine/internal/engine/weights"
	"carematch-engine/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProfile() models.ApplicantProfile {
	return models.ApplicantProfile{
		MedicalConditions: []string{"dementia"},
		RequiredCareLevel: models.CareLevelDementia,
		BudgetWeekly:      1200,
		Location:          models.Location{Postcode: "BS1 4DJ", Lat: 51.4497, Lon: -2.5823},
		RadiusKM:          20,
	}
}

func baselineVector(t *testing.T) models.WeightVector {
	t.Helper()
	wv, err := weights.NewDefaultResolver().Resolve(models.ApplicantProfile{
		RequiredCareLevel: models.CareLevelResidential,
		BudgetWeekly:      5000,
		Location:          models.Location{Postcode: "BS1"},
	})
	require.NoError(t, err)
	return wv
}

func enrichedCandidate(id string) models.Candidate {
	bundle := models.NewEnrichmentBundle(models.KnownSources())
	bundle.Merge(models.SourcePayload{
		Source:    models.SourceCareRegistry,
		FetchedAt: time.Now(),
		Data: map[string]interface{}{
			"overallRating":  "Good",
			"safeRating":     "Good",
			"staffingRating": "Outstanding",
			"specialisms":    []interface{}{"dementia", "diabetes"},
		},
	})
	bundle.Merge(models.SourcePayload{
		Source:    models.SourceFoodHygiene,
		FetchedAt: time.Now(),
		Data:      map[string]interface{}{"hygieneScore": float64(5)},
	})
	bundle.Merge(models.SourcePayload{
		Source:    models.SourcePlaces,
		FetchedAt: time.Now(),
		Data:      map[string]interface{}{"rating": 4.5, "reviewCount": float64(120)},
	})
	bundle.Merge(models.SourcePayload{
		Source:    models.SourceCompanyFinance,
		FetchedAt: time.Now(),
		Data:      map[string]interface{}{"solvencyScore": 0.9, "filingOverdue": false},
	})
	bundle.Merge(models.SourcePayload{
		Source:    models.SourceWebContent,
		FetchedAt: time.Now(),
		Data: map[string]interface{}{
			"services":   []interface{}{"respite", "physiotherapy", "chiropody"},
			"activities": []interface{}{"gardening", "music", "outings", "crafts"},
		},
	})

	return models.Candidate{
		ID:          id,
		Name:        "Test House " + id,
		Location:    models.Location{Postcode: "BS2", Lat: 51.455, Lon: -2.59},
		WeeklyPrice: 950,
		CareLevels:  []string{"residential", "dementia"},
		Enrichment:  bundle,
	}
}

func unenrichedCandidate(id string) models.Candidate {
	return models.Candidate{
		ID:         id,
		Name:       "Bare House " + id,
		Enrichment: models.NewEnrichmentBundle(models.KnownSources()),
	}
}

func TestScore_FullyEnrichedCandidate(t *testing.T) {
	scorer := NewScorer(100)
	result := scorer.Score(enrichedCandidate("cand-1"), testProfile(), baselineVector(t))

	assert.Equal(t, "cand-1", result.CandidateID)
	assert.False(t, result.LowConfidence)
	assert.Zero(t, result.MissingSources)
	assert.Greater(t, result.TotalScore, 70.0)
	assert.LessOrEqual(t, result.TotalScore, 100.0)
	assert.Len(t, result.CategoryScores, 8)
}

func TestScore_UnenrichedCandidateNeverDropped(t *testing.T) {
	scorer := NewScorer(100)
	result := scorer.Score(unenrichedCandidate("cand-2"), testProfile(), baselineVector(t))

	assert.True(t, result.LowConfidence)
	assert.Equal(t, len(models.KnownSources()), result.MissingSources)

	// Neutral midpoints, not zeros: the total lands mid-range.
	assert.Greater(t, result.TotalScore, 30.0)
	assert.Less(t, result.TotalScore, 70.0)
}

func TestScore_MissingDataUsesMidpointNotZero(t *testing.T) {
	scorer := NewScorer(100)
	candidate := unenrichedCandidate("cand-3")

	result := scorer.Score(candidate, testProfile(), baselineVector(t))
	for _, cs := range result.CategoryScores {
		assert.Greater(t, cs.Points, 0.0, "category %s must not be zeroed by missing data", cs.Category)
	}
}

func TestScore_ConfigurableScale(t *testing.T) {
	base := NewScorer(100).Score(enrichedCandidate("cand-4"), testProfile(), baselineVector(t))
	scaled := NewScorer(156).Score(enrichedCandidate("cand-4"), testProfile(), baselineVector(t))

	assert.InDelta(t, base.TotalScore*1.56, scaled.TotalScore, 0.05)
}

func TestSelectTopK_OrderingAndTruncation(t *testing.T) {
	scorer := NewScorer(100)
	profile := testProfile()
	wv := baselineVector(t)

	candidates := []models.Candidate{
		unenrichedCandidate("z-bare"),
		enrichedCandidate("a-good"),
		enrichedCandidate("b-good"),
	}

	results := scorer.SelectTopK(candidates, profile, wv, 2)
	require.Len(t, results, 2)

	// Identical enriched candidates tie on score and missing count, so
	// lexicographic id decides.
	assert.Equal(t, "a-good", results[0].CandidateID)
	assert.Equal(t, "b-good", results[1].CandidateID)
}

func TestSelectTopK_TieBreakPrefersFewerMissingSources(t *testing.T) {
	scorer := NewScorer(100)
	profile := models.ApplicantProfile{RequiredCareLevel: models.CareLevelResidential}
	wv := baselineVector(t)

	// Two bare candidates; one has a single enriched source that yields
	// exactly neutral data so the scores stay equal.
	full := unenrichedCandidate("b-full-missing")
	partial := unenrichedCandidate("a-partial")
	partial.Enrichment.Merge(models.SourcePayload{
		Source: models.SourceWebContent,
		Data:   map[string]interface{}{"services": []interface{}{"a", "b", "c", "d", "e"}},
	})

	results := scorer.SelectTopK([]models.Candidate{full, partial}, profile, wv, 0)
	require.Len(t, results, 2)
	if results[0].TotalScore == results[1].TotalScore {
		assert.Equal(t, "a-partial", results[0].CandidateID)
	}
}

func TestSelectTopK_DeterministicAcrossRuns(t *testing.T) {
	scorer := NewScorer(100)
	profile := testProfile()
	wv := baselineVector(t)
	candidates := []models.Candidate{
		enrichedCandidate("c1"), unenrichedCandidate("c2"), enrichedCandidate("c3"),
	}

	first := scorer.SelectTopK(candidates, profile, wv, 3)
	for i := 0; i < 5; i++ {
		again := scorer.SelectTopK(candidates, profile, wv, 3)
		assert.Equal(t, first, again)
	}
}

func TestScoreLocation_DistanceBands(t *testing.T) {
	scorer := NewScorer(100)
	profile := testProfile()

	near := enrichedCandidate("near")
	near.Location = models.Location{Lat: 51.4497, Lon: -2.5823}

	far := enrichedCandidate("far")
	far.Location = models.Location{Lat: 53.48, Lon: -2.24} // Manchester, well outside radius

	nearSub := scorer.scoreLocation(near, profile)
	farSub := scorer.scoreLocation(far, profile)

	assert.Greater(t, nearSub.points, farSub.points)
	assert.True(t, nearSub.fromData)
	assert.True(t, farSub.fromData)
}

func TestRound2_OnlyFinalStep(t *testing.T) {
	scorer := NewScorer(100)
	result := scorer.Score(enrichedCandidate("r"), testProfile(), baselineVector(t))

	// Two decimal places on the published number.
	assert.Equal(t, round2(result.TotalScore), result.TotalScore)
}
