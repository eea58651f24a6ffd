package models

import "math"

// CareLevel is the level of care an applicant requires.
type CareLevel string

const (
	CareLevelResidential CareLevel = "residential"
	CareLevelNursing     CareLevel = "nursing"
	CareLevelDementia    CareLevel = "dementia"
)

// RiskLevel grades mobility and fall risk answers.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// DefaultRadiusKM applies when a profile leaves the search radius unset.
const DefaultRadiusKM = 25.0

// Location is a point with its postcode as entered by the applicant.
type Location struct {
	Postcode string  `json:"postcode"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
}

// DistanceKM is the great-circle distance to another location. Both the
// pool filter and the location scorer measure with this, so the hard
// cutoff and the scoring bands cannot drift apart.
func (l Location) DistanceKM(other Location) float64 {
	const earthRadiusKM = 6371.0

	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(other.Lat - l.Lat)
	dLon := toRad(other.Lon - l.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(l.Lat))*math.Cos(toRad(other.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKM * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// ApplicantProfile holds the structured questionnaire answers for one request.
// It is created once at submission and read-only afterwards.
type ApplicantProfile struct {
	MedicalConditions []string  `json:"medicalConditions"`
	RequiredCareLevel CareLevel `json:"requiredCareLevel"`
	BudgetWeekly      float64   `json:"budgetWeekly"`
	UrgentPlacement   bool      `json:"urgentPlacement"`
	FallRisk          RiskLevel `json:"fallRisk"`
	MobilityImpaired  bool      `json:"mobilityImpaired"`
	SocialPreferences []string  `json:"socialPreferences"`
	Location          Location  `json:"location"`
	RadiusKM          float64   `json:"radiusKm"`
}

// HasCondition reports whether the applicant listed the given medical condition.
func (p ApplicantProfile) HasCondition(name string) bool {
	for _, c := range p.MedicalConditions {
		if c == name {
			return true
		}
	}
	return false
}

// ProfileSchema is the JSON schema an incoming profile must satisfy.
func ProfileSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"medicalConditions": map[string]interface{}{
				"type":  "array",
				"items": map[string]interface{}{"type": "string"},
			},
			"requiredCareLevel": map[string]interface{}{
				"type": "string",
				"enum": []string{"residential", "nursing", "dementia"},
			},
			"budgetWeekly": map[string]interface{}{
				"type":    "number",
				"minimum": 0,
			},
			"urgentPlacement": map[string]interface{}{"type": "boolean"},
			"fallRisk": map[string]interface{}{
				"type": "string",
				"enum": []string{"low", "medium", "high"},
			},
			"mobilityImpaired":  map[string]interface{}{"type": "boolean"},
			"socialPreferences": map[string]interface{}{"type": "array"},
			"location": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"postcode": map[string]interface{}{"type": "string", "minLength": 2},
					"lat":      map[string]interface{}{"type": "number"},
					"lon":      map[string]interface{}{"type": "number"},
				},
				"required": []string{"postcode"},
			},
			"radiusKm": map[string]interface{}{"type": "number", "minimum": 0},
		},
		"required": []string{"requiredCareLevel", "budgetWeekly", "location"},
	}
}
