package testutil

import (
	"context"
	"fmt"
	"sync"

	"tourcache/internal/model"
	"tourcache/internal/offline"
)

// FakeTourAPI serves tour graphs from an in-memory map.
type FakeTourAPI struct {
	mu     sync.Mutex
	Graphs map[string]*model.TourGraph
	Err    error // returned by every FetchTour when set
}

func NewFakeTourAPI() *FakeTourAPI {
	return &FakeTourAPI{Graphs: make(map[string]*model.TourGraph)}
}

func (f *FakeTourAPI) FetchTour(ctx context.Context, tourID string) (*model.TourGraph, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	g, ok := f.Graphs[tourID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", offline.ErrTourNotFound, tourID)
	}
	return g, nil
}

// FakeProgressAPI records every upserted progress record.
type FakeProgressAPI struct {
	mu       sync.Mutex
	Upserted []*model.ProgressRecord
	Err      error // returned by every UpsertProgress when set
}

func NewFakeProgressAPI() *FakeProgressAPI {
	return &FakeProgressAPI{}
}

func (f *FakeProgressAPI) UpsertProgress(ctx context.Context, rec *model.ProgressRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.Upserted = append(f.Upserted, rec)
	return nil
}

// Count returns the number of successful upserts.
func (f *FakeProgressAPI) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Upserted)
}

// FakeStatusAPI records every mirrored download record.
type FakeStatusAPI struct {
	mu      sync.Mutex
	Records []*model.DownloadRecord
	Err     error // returned by every UpsertDownloadStatus when set
}

func NewFakeStatusAPI() *FakeStatusAPI {
	return &FakeStatusAPI{}
}

func (f *FakeStatusAPI) UpsertDownloadStatus(ctx context.Context, rec *model.DownloadRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	copied := *rec
	f.Records = append(f.Records, &copied)
	return nil
}

// Last returns the most recently recorded status, or nil.
func (f *FakeStatusAPI) Last() *model.DownloadRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Records) == 0 {
		return nil
	}
	return f.Records[len(f.Records)-1]
}

// Compile-time checks
var _ offline.TourAPI = (*FakeTourAPI)(nil)
var _ offline.ProgressAPI = (*FakeProgressAPI)(nil)
var _ offline.StatusAPI = (*FakeStatusAPI)(nil)
