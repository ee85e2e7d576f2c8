// Package remote implements the booking-backend HTTP API consumed by the
// offline subsystem: tour graphs, progress upserts, and download-status
// mirroring.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tourcache/internal/config"
	"tourcache/internal/model"
	"tourcache/internal/offline"
)

// Client is an HTTP JSON client for the booking backend.
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

// NewClient creates a Client from configuration. A zero timeout defaults
// to 30 seconds.
func NewClient(cfg config.RemoteConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		authToken:  cfg.AuthToken,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// FetchTour returns the full denormalized tour graph for a tour.
// A 404 maps to offline.ErrTourNotFound.
func (c *Client) FetchTour(ctx context.Context, tourID string) (*model.TourGraph, error) {
	url := fmt.Sprintf("%s/api/tours/%s/offline", c.baseURL, tourID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching tour %s: %w", tourID, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", offline.ErrTourNotFound, tourID)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetching tour %s: unexpected status %d", tourID, resp.StatusCode)
	}

	var graph model.TourGraph
	if err := json.NewDecoder(resp.Body).Decode(&graph); err != nil {
		return nil, fmt.Errorf("decoding tour graph: %w", err)
	}
	return &graph, nil
}

// UpsertProgress writes a progress record to the remote backend, keyed by
// record ID. Safe to call repeatedly for the same record.
func (c *Client) UpsertProgress(ctx context.Context, rec *model.ProgressRecord) error {
	body := struct {
		ID      string          `json:"id"`
		TourID  string          `json:"tour_id"`
		Payload json.RawMessage `json:"payload"`
	}{ID: rec.ID, TourID: rec.TourID, Payload: rec.Payload}

	return c.put(ctx, fmt.Sprintf("%s/api/progress/%s", c.baseURL, rec.ID), body)
}

// UpsertDownloadStatus mirrors a download record to the remote backend.
func (c *Client) UpsertDownloadStatus(ctx context.Context, rec *model.DownloadRecord) error {
	return c.put(ctx, fmt.Sprintf("%s/api/downloads/%s", c.baseURL, rec.ID), rec)
}

// put JSON-encodes v and PUTs it to url, treating any non-2xx as an error.
func (c *Client) put(ctx context.Context, url string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("remote write: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("remote write: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
}

// Compile-time checks that Client implements the remote collaborator interfaces
var (
	_ offline.TourAPI     = (*Client)(nil)
	_ offline.ProgressAPI = (*Client)(nil)
	_ offline.StatusAPI   = (*Client)(nil)
)
