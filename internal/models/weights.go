package models

// Category is one of the fixed scoring dimensions.
type Category string

const (
	CategoryMedical    Category = "medical"
	CategorySafety     Category = "safety"
	CategoryLocation   Category = "location"
	CategorySocial     Category = "social"
	CategoryFinancial  Category = "financial"
	CategoryStaff      Category = "staff"
	CategoryCompliance Category = "compliance"
	CategoryServices   Category = "services"
)

// Categories lists every scoring category in a fixed order so that
// iteration over weights is deterministic.
func Categories() []Category {
	return []Category{
		CategoryMedical,
		CategorySafety,
		CategoryLocation,
		CategorySocial,
		CategoryFinancial,
		CategoryStaff,
		CategoryCompliance,
		CategoryServices,
	}
}

// WeightVector is a normalized weight per category (summing to 100)
// plus the ids of the adjustment rules that produced it. Immutable once
// resolved.
type WeightVector struct {
	Weights      map[Category]float64 `json:"weights"`
	AppliedRules []string             `json:"appliedRules"`
}

// Get returns the weight for a category, zero if absent.
func (wv WeightVector) Get(c Category) float64 {
	return wv.Weights[c]
}

// Sum returns the total of all category weights.
func (wv WeightVector) Sum() float64 {
	var sum float64
	for _, w := range wv.Weights {
		sum += w
	}
	return sum
}
