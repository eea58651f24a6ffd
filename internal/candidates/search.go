package candidates

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	stderrors "carematch-engine/internal/common/errors"
	"carematch-engine/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
)

// Search runs full-text facility lookups against the search index. It
// backs the facility search endpoint used to find a pool reference by
// name or area before submitting a report.
type Search struct {
	es    *elasticsearch.Client
	index string
}

func NewSearch(es *elasticsearch.Client, index string) *Search {
	return &Search{es: es, index: index}
}

type searchHit struct {
	Source struct {
		ID             string   `json:"id"`
		Name           string   `json:"name"`
		Postcode       string   `json:"postcode"`
		Lat            float64  `json:"lat"`
		Lon            float64  `json:"lon"`
		WeeklyPrice    float64  `json:"weeklyPrice"`
		CareLevels     []string `json:"careLevels"`
		RegistryRating string   `json:"registryRating"`
	} `json:"_source"`
}

type searchResponse struct {
	Hits struct {
		Hits []searchHit `json:"hits"`
	} `json:"hits"`
}

// Find returns facilities matching the free-text query, optionally
// narrowed to a care level. size caps the result count.
func (s *Search) Find(ctx context.Context, query string, careLevel models.CareLevel, size int) ([]models.Candidate, error) {
	if size <= 0 {
		size = 20
	}

	must := []map[string]interface{}{
		{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"name^2", "postcode", "description"},
			},
		},
	}
	var filter []map[string]interface{}
	if careLevel != "" {
		filter = append(filter, map[string]interface{}{
			"term": map[string]interface{}{"careLevels": string(careLevel)},
		})
	}

	body := map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must":   must,
				"filter": filter,
			},
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, stderrors.NewSearchQueryFailedError(err)
	}

	res, err := s.es.Search(
		s.es.Search.WithContext(ctx),
		s.es.Search.WithIndex(s.index),
		s.es.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, stderrors.NewSearchQueryFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, stderrors.NewSearchQueryFailedError(fmt.Errorf("search returned %s", res.Status()))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, stderrors.NewSearchQueryFailedError(err)
	}

	out := make([]models.Candidate, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		out = append(out, models.Candidate{
			ID:             hit.Source.ID,
			Name:           hit.Source.Name,
			Location:       models.Location{Postcode: hit.Source.Postcode, Lat: hit.Source.Lat, Lon: hit.Source.Lon},
			WeeklyPrice:    hit.Source.WeeklyPrice,
			CareLevels:     hit.Source.CareLevels,
			RegistryRating: hit.Source.RegistryRating,
		})
	}
	return out, nil
}
