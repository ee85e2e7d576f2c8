package offline

import (
	"context"

	"tourcache/internal/model"
)

// TourAPI fetches the full denormalized tour graph from the booking backend.
type TourAPI interface {
	// FetchTour returns the tour graph, or ErrTourNotFound (wrapped) when
	// the tour does not exist remotely.
	FetchTour(ctx context.Context, tourID string) (*model.TourGraph, error)
}

// ProgressAPI upserts playback-progress records on the remote backend.
// Upserts are keyed by record ID and safe to repeat.
type ProgressAPI interface {
	UpsertProgress(ctx context.Context, rec *model.ProgressRecord) error
}

// StatusAPI mirrors download status to the remote backend for cross-device
// visibility. All writes through this interface are best-effort: failures
// are logged by the caller and never change local state.
type StatusAPI interface {
	UpsertDownloadStatus(ctx context.Context, rec *model.DownloadRecord) error
}

// AssetFetcher retrieves a binary asset payload by its source URL.
type AssetFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}
