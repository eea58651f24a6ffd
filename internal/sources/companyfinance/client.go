// Package companyfinance fetches operator solvency signals from the
// companies registry.
package companyfinance

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
		http: commonhttp.NewSourceClient(models.SourceCompanyFinance, cfg, log),
		log:  log,
	}
}

func (c *Client) Name() string { return models.SourceCompanyFinance }

type companyResponse struct {
	CompanyName   string `json:"company_name"`
	CompanyStatus string `json:"company_status"`
	Accounts      struct {
		Overdue bool `json:"overdue"`
	} `json:"accounts"`
	ConfirmationStatement struct {
		Overdue bool `json:"overdue"`
	} `json:"confirmation_statement"`
	HasInsolvencyHistory bool `json:"has_insolvency_history"`
	HasCharges           bool `json:"has_charges"`
}

func (c *Client) Fetch(ctx context.Context, candidate models.Candidate) (models.SourcePayload, error) {
	endpoint := fmt.Sprintf("%s/company/%s", c.cfg.BaseURL, url.PathEscape(candidate.ID))
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return models.SourcePayload{}, err
	}
	// Companies registry uses basic auth with the key as username.
	req.SetBasicAuth(c.cfg.APIKey, "")

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return models.SourcePayload{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.SourcePayload{}, fmt.Errorf("companies registry returned status %d", resp.StatusCode)
	}

	var body companyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return models.SourcePayload{}, fmt.Errorf("decoding company response: %w", err)
	}

	return models.SourcePayload{
		Source: models.SourceCompanyFinance,
		Data: map[string]interface{}{
			"solvencyScore": solvencyScore(body),
			"filingOverdue": body.Accounts.Overdue || body.ConfirmationStatement.Overdue,
			"companyStatus": body.CompanyStatus,
		},
	}, nil
}

// solvencyScore condenses registry flags into a 0..1 health signal.
func solvencyScore(body companyResponse) float64 {
	score := 1.0
	if body.CompanyStatus != "active" {
		score -= 0.6
	}
	if body.HasInsolvencyHistory {
		score -= 0.3
	}
	if body.HasCharges {
		score -= 0.1
	}
	if score < 0 {
		score = 0
	}
	return score
}
