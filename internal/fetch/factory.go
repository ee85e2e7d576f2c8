package fetch

import (
	"fmt"
	"time"

	"tourcache/internal/config"
	"tourcache/internal/offline"
)

// NewFetcherFromConfig creates an AssetFetcher based on the fetcher config type.
func NewFetcherFromConfig(cfg config.FetcherConfig) (offline.AssetFetcher, error) {
	switch cfg.Type {
	case "http", "":
		return NewHTTPFetcher(time.Duration(cfg.TimeoutSeconds) * time.Second), nil
	case "s3":
		return NewS3Fetcher(cfg)
	default:
		return nil, fmt.Errorf("unknown fetcher type: %s", cfg.Type)
	}
}
