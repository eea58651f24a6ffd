// Package http carries the outbound plumbing shared by the enrichment
// source clients: one pooled client per source, capped at that source's
// configured timeout, with structured logging of every request.
package http

import (
	"context"
	"net/http"
	"time"

	"carematch-engine/internal/common/config"
	"carematch-engine/internal/common/logger"
)

// Client is the outbound HTTP client for one enrichment source.
type Client struct {
	source     string
	httpClient *http.Client
	log        logger.Logger
}

// NewSourceClient builds the client for one source. The configured
// timeout is a hard cap; per-fetch contexts may cut a request shorter.
func NewSourceClient(source string, cfg config.SourceConfig, log logger.Logger) *Client {
	return &Client{
		source: source,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Millisecond,
		},
		log: log,
	}
}

// Do sends the request under ctx and logs its outcome. API keys travel
// in headers or the query string depending on the source, so only the
// host and path are logged.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req.WithContext(ctx))
	elapsed := time.Since(start)

	fields := map[string]interface{}{
		"source":    c.source,
		"method":    req.Method,
		"host":      req.URL.Host,
		"path":      req.URL.Path,
		"elapsedMs": elapsed.Milliseconds(),
	}
	if err != nil {
		c.log.WithError(err).Warn("source request failed", fields)
		return nil, err
	}
	fields["status"] = resp.StatusCode
	c.log.Debug("source request finished", fields)
	return resp, nil
}
