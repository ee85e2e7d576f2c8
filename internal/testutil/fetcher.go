package testutil

import (
	"context"
	"fmt"
	"sync"

	"tourcache/internal/offline"
)

// FakeFetcher serves asset payloads from an in-memory map keyed by URL.
// URLs listed in Fail return an error instead.
type FakeFetcher struct {
	mu       sync.Mutex
	Payloads map[string][]byte
	Fail     map[string]error
	fetched  []string
}

func NewFakeFetcher() *FakeFetcher {
	return &FakeFetcher{
		Payloads: make(map[string][]byte),
		Fail:     make(map[string]error),
	}
}

func (f *FakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.Fail[url]; ok {
		return nil, err
	}
	payload, ok := f.Payloads[url]
	if !ok {
		return nil, fmt.Errorf("no payload registered for %s", url)
	}
	f.fetched = append(f.fetched, url)
	return payload, nil
}

// Fetched returns the URLs successfully fetched, in order.
func (f *FakeFetcher) Fetched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.fetched))
	copy(out, f.fetched)
	return out
}

var _ offline.AssetFetcher = (*FakeFetcher)(nil)
