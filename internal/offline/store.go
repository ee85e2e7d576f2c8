package offline

import (
	"context"
	"time"

	"tourcache/internal/model"
)

// Store provides durable local persistence for offline tour data, organized
// as four collections: tours, audio assets, image assets, and queued progress
// records. Lookups by owning tour, sync status, and last-accessed time are
// indexed. Each record write is independently atomic; cascading tour deletion
// happens inside a single transaction.
type Store interface {
	// Initialize creates collections and indexes if absent. Idempotent;
	// safe to call repeatedly. Returns ErrStorageUnavailable (wrapped) if
	// the host has no usable local persistence.
	Initialize(ctx context.Context) error

	// Tour operations

	// PutTour inserts or replaces a tour record.
	PutTour(ctx context.Context, tour *model.Tour) error

	// GetTour returns a tour by ID and bumps its last-accessed timestamp.
	// Returns nil, nil when the tour is not stored locally.
	GetTour(ctx context.Context, id string) (*model.Tour, error)

	// UpdateTourStatus updates a tour's download status. downloadedAt is
	// recorded when non-nil (set on completion).
	UpdateTourStatus(ctx context.Context, id string, status model.DownloadStatus, downloadedAt *time.Time) error

	// ListTours returns all locally stored tours ordered by last access,
	// most recent first.
	ListTours(ctx context.Context) ([]*model.Tour, error)

	// ToursLastAccessedBefore returns tours whose last access is at or
	// before the cutoff, oldest first.
	ToursLastAccessedBefore(ctx context.Context, cutoff time.Time) ([]*model.Tour, error)

	// DeleteTourCascade removes a tour and all of its audio assets, image
	// assets, and progress records in one transaction.
	DeleteTourCascade(ctx context.Context, id string) error

	// TourSizeBytes returns the stored size of a tour: graph plus all
	// asset payloads.
	TourSizeBytes(ctx context.Context, id string) (int64, error)

	// Asset operations

	PutAudioAsset(ctx context.Context, asset *model.AudioAsset) error
	GetAudioAsset(ctx context.Context, id string) (*model.AudioAsset, error)
	AudioAssetsByTour(ctx context.Context, tourID string) ([]*model.AudioAsset, error)

	PutImageAsset(ctx context.Context, asset *model.ImageAsset) error
	ImageAssetsByTour(ctx context.Context, tourID string) ([]*model.ImageAsset, error)

	// Progress queue operations

	// EnqueueProgress inserts or replaces a queued progress record.
	EnqueueProgress(ctx context.Context, rec *model.ProgressRecord) error

	// PendingProgress returns all records with sync status pending,
	// oldest first.
	PendingProgress(ctx context.Context) ([]*model.ProgressRecord, error)

	// ProgressByTour returns all progress records for a tour.
	ProgressByTour(ctx context.Context, tourID string) ([]*model.ProgressRecord, error)

	// MarkProgressSynced flips a record's sync status to synced.
	MarkProgressSynced(ctx context.Context, id string) error

	// Close closes the underlying database.
	Close() error
}
