package scoring

import (
	"math"
	"sort"

	"carematch-engine/internal/engine/weights"
	"carematch-engine/internal/models"
)

// Scorer computes per-category sub-scores for a candidate and combines
// them under a weight vector. Scoring is synchronous and CPU-bound; the
// scorer never touches the enrichment bundle beyond reads.
type Scorer struct {
	categories map[models.Category]weights.CategoryConfig
	scale      float64
}

// NewScorer builds a scorer over the default category table. scale is
// the maximum of the final combined score (100 by default, domains may
// configure e.g. 156).
func NewScorer(scale float64) *Scorer {
	if scale <= 0 {
		scale = 100
	}
	return &Scorer{
		categories: weights.Baselines(),
		scale:      scale,
	}
}

// subScore is one category's raw result before weighting. fromData is
// false when the category fell back to its neutral midpoint because the
// relevant enrichment was missing.
type subScore struct {
	points   float64
	fromData bool
}

// Score computes the match result for one candidate under the given
// weight vector. Missing data points always degrade to the category
// midpoint, never to zero, so an incompletely enriched candidate loses
// confidence rather than rank fairness.
func (s *Scorer) Score(candidate models.Candidate, profile models.ApplicantProfile, wv models.WeightVector) models.MatchResult {
	subs := map[models.Category]subScore{
		models.CategoryMedical:    s.scoreMedical(candidate, profile),
		models.CategorySafety:     s.scoreSafety(candidate),
		models.CategoryLocation:   s.scoreLocation(candidate, profile),
		models.CategorySocial:     s.scoreSocial(candidate),
		models.CategoryFinancial:  s.scoreFinancial(candidate, profile),
		models.CategoryStaff:      s.scoreStaff(candidate),
		models.CategoryCompliance: s.scoreCompliance(candidate),
		models.CategoryServices:   s.scoreServices(candidate),
	}

	var total float64
	catScores := make([]models.CategoryScore, 0, len(subs))
	for _, cat := range models.Categories() {
		sub := subs[cat]
		maxPts := s.categories[cat].MaxPoints
		// Intermediate math stays in floating point; rounding happens
		// once at the end.
		total += sub.points / maxPts * wv.Get(cat)
		catScores = append(catScores, models.CategoryScore{
			Category:  cat,
			Points:    round2(sub.points),
			MaxPoints: maxPts,
			FromData:  sub.fromData,
		})
	}

	missing := len(candidate.Enrichment.MissingSources())
	enriched := 0
	if candidate.Enrichment != nil {
		for _, p := range candidate.Enrichment.Payloads {
			if !p.Missing {
				enriched++
			}
		}
	}

	return models.MatchResult{
		CandidateID:    candidate.ID,
		CandidateName:  candidate.Name,
		TotalScore:     round2(total / 100 * s.scale),
		CategoryScores: catScores,
		MissingSources: missing,
		LowConfidence:  enriched == 0,
	}
}

// SelectTopK scores every candidate and returns the best k, sorted
// descending by total score. Ties break on fewer missing sources, then
// lexicographic candidate id, so re-runs on unchanged input are
// byte-identical.
func (s *Scorer) SelectTopK(candidates []models.Candidate, profile models.ApplicantProfile, wv models.WeightVector, k int) []models.MatchResult {
	results := make([]models.MatchResult, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, s.Score(c, profile, wv))
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].TotalScore != results[j].TotalScore {
			return results[i].TotalScore > results[j].TotalScore
		}
		if results[i].MissingSources != results[j].MissingSources {
			return results[i].MissingSources < results[j].MissingSources
		}
		return results[i].CandidateID < results[j].CandidateID
	})

	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results
}

func (s *Scorer) scoreMedical(c models.Candidate, profile models.ApplicantProfile) subScore {
	maxPts := s.categories[models.CategoryMedical].MaxPoints
	registry := c.Enrichment.Get(models.SourceCareRegistry)

	specialisms, ok := payloadStrings(registry, "specialisms")
	if !ok {
		// Care level support from static attributes is still a real
		// signal when the registry payload is missing.
		if len(c.CareLevels) > 0 {
			if c.SupportsCareLevel(profile.RequiredCareLevel) {
				return subScore{points: maxPts * 0.7, fromData: true}
			}
			return subScore{points: maxPts * 0.3, fromData: true}
		}
		return subScore{points: maxPts / 2}
	}

	points := 0.0
	if c.SupportsCareLevel(profile.RequiredCareLevel) {
		points += maxPts * 0.5
	}

	matched := 0
	for _, cond := range profile.MedicalConditions {
		for _, sp := range specialisms {
			if cond == sp {
				matched++
				break
			}
		}
	}
	if len(profile.MedicalConditions) == 0 {
		points += maxPts * 0.5
	} else {
		points += maxPts * 0.5 * float64(matched) / float64(len(profile.MedicalConditions))
	}

	return subScore{points: points, fromData: true}
}

func (s *Scorer) scoreSafety(c models.Candidate) subScore {
	maxPts := s.categories[models.CategorySafety].MaxPoints
	registry := c.Enrichment.Get(models.SourceCareRegistry)
	hygiene := c.Enrichment.Get(models.SourceFoodHygiene)

	var points float64
	var parts int

	if rating, ok := payloadString(registry, "safeRating"); ok {
		if frac, known := ratingPoints(rating); known {
			points += frac * maxPts
			parts++
		}
	}
	if score, ok := payloadNumber(hygiene, "hygieneScore"); ok {
		// Food hygiene is rated 0-5.
		points += score / 5 * maxPts
		parts++
	}

	if parts == 0 {
		return subScore{points: maxPts / 2}
	}
	return subScore{points: points / float64(parts), fromData: true}
}

func (s *Scorer) scoreLocation(c models.Candidate, profile models.ApplicantProfile) subScore {
	maxPts := s.categories[models.CategoryLocation].MaxPoints

	if profile.Location.Lat == 0 && profile.Location.Lon == 0 {
		return subScore{points: maxPts / 2}
	}
	if c.Location.Lat == 0 && c.Location.Lon == 0 {
		return subScore{points: maxPts / 2}
	}

	dist := profile.Location.DistanceKM(c.Location)
	radius := profile.RadiusKM
	if radius <= 0 {
		radius = models.DefaultRadiusKM
	}

	switch {
	case dist <= radius*0.25:
		return subScore{points: maxPts, fromData: true}
	case dist <= radius*0.5:
		return subScore{points: maxPts * 0.8, fromData: true}
	case dist <= radius:
		return subScore{points: maxPts * 0.6, fromData: true}
	case dist <= radius*1.5:
		return subScore{points: maxPts * 0.3, fromData: true}
	default:
		return subScore{points: maxPts * 0.1, fromData: true}
	}
}

func (s *Scorer) scoreSocial(c models.Candidate) subScore {
	maxPts := s.categories[models.CategorySocial].MaxPoints
	places := c.Enrichment.Get(models.SourcePlaces)
	web := c.Enrichment.Get(models.SourceWebContent)

	var points float64
	var parts int

	if rating, ok := payloadNumber(places, "rating"); ok {
		// Review ratings are 0-5; thin review counts cap the signal.
		frac := rating / 5
		if count, ok := payloadNumber(places, "reviewCount"); ok && count < 10 {
			frac *= 0.7
		}
		points += frac * maxPts
		parts++
	}
	if activities, ok := payloadStrings(web, "activities"); ok {
		frac := float64(len(activities)) / 8
		if frac > 1 {
			frac = 1
		}
		points += frac * maxPts
		parts++
	}

	if parts == 0 {
		return subScore{points: maxPts / 2}
	}
	return subScore{points: points / float64(parts), fromData: true}
}

func (s *Scorer) scoreFinancial(c models.Candidate, profile models.ApplicantProfile) subScore {
	maxPts := s.categories[models.CategoryFinancial].MaxPoints
	finance := c.Enrichment.Get(models.SourceCompanyFinance)

	var points float64
	var parts int

	if c.WeeklyPrice > 0 && profile.BudgetWeekly > 0 {
		ratio := c.WeeklyPrice / profile.BudgetWeekly
		switch {
		case ratio <= 0.85:
			points += maxPts
		case ratio <= 1.0:
			points += maxPts * 0.8
		case ratio <= 1.1:
			points += maxPts * 0.4
		default:
			points += maxPts * 0.1
		}
		parts++
	}

	if solvency, ok := payloadNumber(finance, "solvencyScore"); ok {
		frac := solvency
		if overdue, ok := payloadBool(finance, "filingOverdue"); ok && overdue {
			frac *= 0.5
		}
		points += frac * maxPts
		parts++
	}

	if parts == 0 {
		return subScore{points: maxPts / 2}
	}
	return subScore{points: points / float64(parts), fromData: true}
}

func (s *Scorer) scoreStaff(c models.Candidate) subScore {
	maxPts := s.categories[models.CategoryStaff].MaxPoints
	registry := c.Enrichment.Get(models.SourceCareRegistry)

	if rating, ok := payloadString(registry, "staffingRating"); ok {
		if frac, known := ratingPoints(rating); known {
			return subScore{points: frac * maxPts, fromData: true}
		}
	}
	return subScore{points: maxPts / 2}
}

func (s *Scorer) scoreCompliance(c models.Candidate) subScore {
	maxPts := s.categories[models.CategoryCompliance].MaxPoints
	registry := c.Enrichment.Get(models.SourceCareRegistry)

	rating, ok := payloadString(registry, "overallRating")
	if !ok {
		if frac, known := ratingPoints(c.RegistryRating); known {
			return subScore{points: frac * maxPts, fromData: true}
		}
		return subScore{points: maxPts / 2}
	}

	frac, known := ratingPoints(rating)
	if !known {
		return subScore{points: maxPts / 2}
	}
	if enforcement, ok := payloadBool(registry, "enforcementAction"); ok && enforcement {
		frac *= 0.5
	}
	return subScore{points: frac * maxPts, fromData: true}
}

func (s *Scorer) scoreServices(c models.Candidate) subScore {
	maxPts := s.categories[models.CategoryServices].MaxPoints
	web := c.Enrichment.Get(models.SourceWebContent)

	services, ok := payloadStrings(web, "services")
	if !ok {
		return subScore{points: maxPts / 2}
	}
	frac := float64(len(services)) / 10
	if frac > 1 {
		frac = 1
	}
	return subScore{points: frac * maxPts, fromData: true}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
