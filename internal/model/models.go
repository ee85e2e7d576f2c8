package model

import "time"

// DownloadStatus tracks the lifecycle of a locally stored tour.
// Transitions are forward-only: pending -> downloading -> completed or failed.
// Deleted is reachable from any state via eviction or an explicit delete.
type DownloadStatus string

const (
	StatusPending     DownloadStatus = "pending"
	StatusDownloading DownloadStatus = "downloading"
	StatusCompleted   DownloadStatus = "completed"
	StatusFailed      DownloadStatus = "failed"
	StatusDeleted     DownloadStatus = "deleted"
)

// SyncStatus tracks whether a locally queued progress record has been
// reconciled with the remote backend.
type SyncStatus string

const (
	SyncPending SyncStatus = "pending"
	SyncSynced  SyncStatus = "synced"
)

// TourGraph is the full denormalized tour structure returned by the remote
// tour-data API. It is persisted verbatim (JSON-serialized) as the offline
// copy of the tour.
type TourGraph struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	PreviewImageURL string `json:"preview_image_url,omitempty"`
	Stops           []Stop `json:"stops"`
}

// Stop is a single stop within a tour, with its media references.
type Stop struct {
	ID               string       `json:"id"`
	Title            string       `json:"title"`
	Position         int          `json:"position"`
	PreviewImageURL  string       `json:"preview_image_url,omitempty"`
	GalleryImageURLs []string     `json:"gallery_image_urls,omitempty"`
	AudioTracks      []AudioTrack `json:"audio_tracks"`
}

// AudioTrack is a per-language narration track for a stop.
type AudioTrack struct {
	ID              string `json:"id"`
	Language        string `json:"language"`
	URL             string `json:"url"`
	DurationSeconds int    `json:"duration_seconds"`
}

// Tour is a locally stored offline copy of a tour.
type Tour struct {
	ID           string         // Tour identifier (matches remote)
	Graph        []byte         // JSON-serialized TourGraph
	Status       DownloadStatus
	DownloadedAt *time.Time     // Set when the download completes
	LastAccessed time.Time      // Bumped on every read; drives retention
}

// AudioAsset is a downloaded narration payload, owned by its tour.
type AudioAsset struct {
	ID              string // Matches the remote track ID
	TourID          string
	StopID          string
	Language        string
	DurationSeconds int
	Payload         []byte
	DownloadedAt    time.Time
}

// ImageAsset is a downloaded image payload, owned by its tour.
// The ID is a caller-assigned composite such as "stop_<id>_gallery_<n>".
type ImageAsset struct {
	ID           string
	TourID       string
	SourceURL    string // Kept for provenance and debugging
	Payload      []byte
	DownloadedAt time.Time
}

// ProgressRecord is a locally queued playback-progress write awaiting
// reconciliation with the remote backend. Records are never removed by the
// sync pass; they are retained as an audit trail until their tour is deleted.
type ProgressRecord struct {
	ID         string
	TourID     string
	SyncStatus SyncStatus
	Payload    []byte // Arbitrary progress payload (stop completion, position, ...)
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DownloadRecord mirrors a download's status to the remote backend for
// cross-device visibility. Writes are best-effort.
type DownloadRecord struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	TourID    string         `json:"tour_id"`
	Status    DownloadStatus `json:"download_status"`
	Progress  int            `json:"download_progress"` // 0-100
	UpdatedAt time.Time      `json:"updated_at"`
}
