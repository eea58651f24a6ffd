package models

// Canonical data source names. Each source contributes enrichment data
// for one or more scoring categories.
const (
	SourceCareRegistry   = "care-registry"
	SourceFoodHygiene    = "food-hygiene"
	SourceCompanyFinance = "company-finance"
	SourcePlaces         = "places"
	SourceWebContent     = "web-content"
)

// KnownSources lists every source name in a fixed order.
func KnownSources() []string {
	return []string{
		SourceCareRegistry,
		SourceFoodHygiene,
		SourceCompanyFinance,
		SourcePlaces,
		SourceWebContent,
	}
}
