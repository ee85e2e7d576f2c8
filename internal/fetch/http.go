// Package fetch provides AssetFetcher backends: plain HTTP for public asset
// URLs and S3 for media published to a bucket.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"tourcache/internal/offline"
)

// HTTPFetcher downloads asset payloads over plain HTTP GET.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates an HTTPFetcher with the given per-request timeout.
// A zero timeout defaults to 30 seconds.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch retrieves the binary payload at url.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: unexpected status %d", url, resp.StatusCode)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	if len(payload) == 0 {
		return nil, fmt.Errorf("fetching %s: empty payload", url)
	}

	return payload, nil
}

// Compile-time check that HTTPFetcher implements offline.AssetFetcher
var _ offline.AssetFetcher = (*HTTPFetcher)(nil)
