// Package careregistry fetches inspection ratings from the national
// care regulator's location API.
package careregistry

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
		http: commonhttp.NewSourceClient(models.SourceCareRegistry, cfg, log),
		log:  log,
	}
}

func (c *Client) Name() string { return models.SourceCareRegistry }

// locationResponse mirrors the regulator's location detail payload,
// trimmed to the fields the scorer reads.
type locationResponse struct {
	CurrentRatings struct {
		Overall struct {
			Rating string `json:"rating"`
		} `json:"overall"`
		Safe struct {
			Rating string `json:"rating"`
		} `json:"safe"`
		Staffing struct {
			Rating string `json:"rating"`
		} `json:"staffing"`
	} `json:"currentRatings"`
	Specialisms       []struct{ Name string } `json:"specialisms"`
	EnforcementAction bool                    `json:"enforcementAction"`
}

func (c *Client) Fetch(ctx context.Context, candidate models.Candidate) (models.SourcePayload, error) {
	endpoint := fmt.Sprintf("%s/locations/%s", c.cfg.BaseURL, url.PathEscape(candidate.ID))
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return models.SourcePayload{}, err
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.APIKey)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return models.SourcePayload{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.SourcePayload{}, fmt.Errorf("care registry returned status %d", resp.StatusCode)
	}

	var body locationResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return models.SourcePayload{}, fmt.Errorf("decoding care registry response: %w", err)
	}

	specialisms := make([]string, 0, len(body.Specialisms))
	for _, s := range body.Specialisms {
		specialisms = append(specialisms, s.Name)
	}

	return models.SourcePayload{
		Source: models.SourceCareRegistry,
		Data: map[string]interface{}{
			"overallRating":     body.CurrentRatings.Overall.Rating,
			"safeRating":        body.CurrentRatings.Safe.Rating,
			"staffingRating":    body.CurrentRatings.Staffing.Rating,
			"specialisms":       specialisms,
			"enforcementAction": body.EnforcementAction,
		},
	}, nil
}
