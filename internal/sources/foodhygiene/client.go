// Package foodhygiene fetches food hygiene inspection scores for a
// facility's kitchen by establishment search.
package foodhygiene

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
		http: commonhttp.NewSourceClient(models.SourceFoodHygiene, cfg, log),
		log:  log,
	}
}

func (c *Client) Name() string { return models.SourceFoodHygiene }

type searchResponse struct {
	Establishments []struct {
		BusinessName string `json:"BusinessName"`
		RatingValue  string `json:"RatingValue"`
	} `json:"establishments"`
}

func (c *Client) Fetch(ctx context.Context, candidate models.Candidate) (models.SourcePayload, error) {
	q := url.Values{}
	q.Set("name", candidate.Name)
	q.Set("address", candidate.Location.Postcode)
	q.Set("pageSize", "1")

	req, err := http.NewRequest(http.MethodGet, c.cfg.BaseURL+"/Establishments?"+q.Encode(), nil)
	if err != nil {
		return models.SourcePayload{}, err
	}
	// The hygiene API versions via this header, not the path.
	req.Header.Set("x-api-version", "2")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return models.SourcePayload{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.SourcePayload{}, fmt.Errorf("food hygiene API returned status %d", resp.StatusCode)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return models.SourcePayload{}, fmt.Errorf("decoding food hygiene response: %w", err)
	}
	if len(body.Establishments) == 0 {
		return models.SourcePayload{}, fmt.Errorf("no establishment matched %q at %s", candidate.Name, candidate.Location.Postcode)
	}

	// Ratings come back as strings; non-numeric values ("AwaitingInspection",
	// "Exempt") carry no score signal.
	var score float64
	if _, err := fmt.Sscanf(body.Establishments[0].RatingValue, "%f", &score); err != nil {
		return models.SourcePayload{}, fmt.Errorf("unscored establishment: rating %q", body.Establishments[0].RatingValue)
	}

	return models.SourcePayload{
		Source: models.SourceFoodHygiene,
		Data: map[string]interface{}{
			"hygieneScore": score,
			"businessName": body.Establishments[0].BusinessName,
		},
	}, nil
}
