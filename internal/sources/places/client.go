// Package places fetches public review ratings for a facility from a
// places search API.
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"carematch-engine/internal/common/config"
	commonhttp "carematch-engine/internal/common/http"
	"carematch-engine/internal/common/logger"
	"carematch-engine/internal/models"
)

type Client struct {
	cfg  config.SourceConfig
	http *commonhttp.Client
	log  logger.Logger
}

func NewClient(cfg config.SourceConfig, log logger.Logger) *Client {
	return &Client{
		cfg:  cfg,
		http: commonhttp.NewSourceClient(models.SourcePlaces, cfg, log),
		log:  log,
	}
}

func (c *Client) Name() string { return models.SourcePlaces }

type placesResponse struct {
	Results []struct {
		Name             string  `json:"name"`
		Rating           float64 `json:"rating"`
		UserRatingsTotal int     `json:"user_ratings_total"`
	} `json:"results"`
	Status string `json:"status"`
}

func (c *Client) Fetch(ctx context.Context, candidate models.Candidate) (models.SourcePayload, error) {
	q := url.Values{}
	q.Set("query", candidate.Name+" "+candidate.Location.Postcode)
	q.Set("key", c.cfg.APIKey)

	req, err := http.NewRequest(http.MethodGet, c.cfg.BaseURL+"/textsearch/json?"+q.Encode(), nil)
	if err != nil {
		return models.SourcePayload{}, err
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return models.SourcePayload{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.SourcePayload{}, fmt.Errorf("places API returned status %d", resp.StatusCode)
	}

	var body placesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return models.SourcePayload{}, fmt.Errorf("decoding places response: %w", err)
	}
	if body.Status != "OK" || len(body.Results) == 0 {
		return models.SourcePayload{}, fmt.Errorf("places lookup failed: status %s", body.Status)
	}

	return models.SourcePayload{
		Source: models.SourcePlaces,
		Data: map[string]interface{}{
			"rating":      body.Results[0].Rating,
			"reviewCount": float64(body.Results[0].UserRatingsTotal),
			"matchedName": body.Results[0].Name,
		},
	}, nil
}
