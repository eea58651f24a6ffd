package weights

import "carematch-engine/internal/models"

// CategoryConfig holds the baseline weight and point cap for one category.
type CategoryConfig struct {
	Baseline  float64
	MaxPoints float64
}

// Baselines returns the default category table. Baseline weights sum to 100.
func Baselines() map[models.Category]CategoryConfig {
	return map[models.Category]CategoryConfig{
		models.CategoryMedical:    {Baseline: 20, MaxPoints: 30},
		models.CategorySafety:     {Baseline: 16, MaxPoints: 25},
		models.CategoryLocation:   {Baseline: 14, MaxPoints: 20},
		models.CategorySocial:     {Baseline: 10, MaxPoints: 15},
		models.CategoryFinancial:  {Baseline: 12, MaxPoints: 20},
		models.CategoryStaff:      {Baseline: 12, MaxPoints: 20},
		models.CategoryCompliance: {Baseline: 10, MaxPoints: 15},
		models.CategoryServices:   {Baseline: 6, MaxPoints: 10},
	}
}

// MaxPoints returns the point cap for a category under the default table.
func MaxPoints(c models.Category) float64 {
	return Baselines()[c].MaxPoints
}
