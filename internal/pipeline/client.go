// Package pipeline drives the API's batch endpoints from outside the server
// process: price refresh, the daily snapshot sweep and the alert check.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// PriceRefresh is the outcome of a price refresh.
type PriceRefresh struct {
	Assets   int `json:"assets"`
	Priced   int `json:"priced"`
	Unpriced int `json:"unpriced"`
}

// SnapshotSweep is the outcome of a snapshot sweep.
type SnapshotSweep struct {
	Success int `json:"success"`
	Errors  int `json:"errors"`
}

// AlertCheck is the outcome of an alert check.
type AlertCheck struct {
	Checked   int `json:"checked"`
	Triggered int `json:"triggered"`
	Unpriced  int `json:"unpriced"`
}

// StatusError is returned when the API answers with a non-200 status.
type StatusError struct {
	Op         string
	StatusCode int
	Code       string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: unexpected status %d (%s)", e.Op, e.StatusCode, e.Code)
	}
	return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
}

// Client calls the /pipeline endpoints with the shared API key.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a pipeline API client.
func NewClient(baseURL, apiKey string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// RefreshPrices fetches current prices for every held asset.
func (c *Client) RefreshPrices(ctx context.Context) (*PriceRefresh, error) {
	var out PriceRefresh
	if err := c.post(ctx, "refreshing prices", "/pipeline/prices/refresh", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RecordSnapshots records today's snapshot for every portfolio.
func (c *Client) RecordSnapshots(ctx context.Context) (*SnapshotSweep, error) {
	var out SnapshotSweep
	if err := c.post(ctx, "recording snapshots", "/pipeline/snapshots", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CheckAlerts evaluates every active alert.
func (c *Client) CheckAlerts(ctx context.Context) (*AlertCheck, error) {
	var out AlertCheck
	if err := c.post(ctx, "checking alerts", "/pipeline/alerts/check", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, op, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Code: body.Error.Code}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", op, err)
	}
	return nil
}
