// Package webcontent fetches structured service and activity listings
// from the facility content extraction service.
package webcontent

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
		http: commonhttp.NewSourceClient(models.SourceWebContent, cfg, log),
		log:  log,
	}
}

func (c *Client) Name() string { return models.SourceWebContent }

type extractResponse struct {
	Services   []string `json:"services"`
	Activities []string `json:"activities"`
	SourceURL  string   `json:"sourceUrl"`
}

func (c *Client) Fetch(ctx context.Context, candidate models.Candidate) (models.SourcePayload, error) {
	q := url.Values{}
	q.Set("facilityId", candidate.ID)

	req, err := http.NewRequest(http.MethodGet, c.cfg.BaseURL+"/extract?"+q.Encode(), nil)
	if err != nil {
		return models.SourcePayload{}, err
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return models.SourcePayload{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.SourcePayload{}, fmt.Errorf("web content service returned status %d", resp.StatusCode)
	}

	var body extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return models.SourcePayload{}, fmt.Errorf("decoding web content response: %w", err)
	}

	return models.SourcePayload{
		Source: models.SourceWebContent,
		Data: map[string]interface{}{
			"services":   body.Services,
			"activities": body.Activities,
			"sourceUrl":  body.SourceURL,
		},
	}, nil
}
