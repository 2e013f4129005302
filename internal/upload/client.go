// Package upload talks to the remote survey collection endpoint.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ngmaloney/croak-counter/internal/models"
)

// ErrNoEndpoint is returned when no upload endpoint is configured
var ErrNoEndpoint = errors.New("no upload endpoint configured")

// Client sends observations to the collection service
type Client interface {
	// Upload posts the observations and returns the service's verdict.
	// Transport and protocol failures are returned as errors.
	Upload(ctx context.Context, obs []models.Observation) (models.UploadResult, error)

	// Ping reports whether the endpoint is reachable
	Ping(ctx context.Context) bool
}

// HTTPClient implements Client with a JSON POST
type HTTPClient struct {
	endpoint   string
	httpClient *http.Client
	userAgent  string
}

// NewHTTPClient creates a client for endpoint. An empty endpoint disables uploads.
func NewHTTPClient(endpoint string) *HTTPClient {
	return &HTTPClient{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		userAgent: "CroakCounter/1.0 (github.com/ngmaloney/croak-counter)",
	}
}

// Endpoint returns the configured URL
func (c *HTTPClient) Endpoint() string {
	return c.endpoint
}

// Upload posts obs as a JSON array
func (c *HTTPClient) Upload(ctx context.Context, obs []models.Observation) (models.UploadResult, error) {
	if c.endpoint == "" {
		return models.UploadResult{}, ErrNoEndpoint
	}

	body, err := json.Marshal(obs)
	if err != nil {
		return models.UploadResult{}, fmt.Errorf("failed to encode observations: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(body))
	if err != nil {
		return models.UploadResult{}, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.UploadResult{}, fmt.Errorf("failed to upload observations: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return models.UploadResult{}, fmt.Errorf("upload endpoint returned status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var result models.UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return models.UploadResult{}, fmt.Errorf("failed to decode response: %w", err)
	}

	return result, nil
}

// Ping issues a HEAD request; any response at all counts as online
func (c *HTTPClient) Ping(ctx context.Context) bool {
	if c.endpoint == "" {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, "HEAD", c.endpoint, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}
