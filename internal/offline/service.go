package offline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"tourcache/internal/model"
)

// Service is the orchestration layer for offline tour data: it drives tour
// downloads, queues and reconciles progress writes, and handles capacity and
// retention. All collaborators are injected; Service holds no global state
// beyond the in-flight download registry.
type Service struct {
	store     Store
	tours     TourAPI
	progress  ProgressAPI
	status    StatusAPI
	fetcher   AssetFetcher
	conn      ConnectivitySource
	quota     QuotaProbe
	encryptor Encryptor
	logger    Logger
	clock     Clock
	idgen     IDGenerator
	userID    string

	// inflight guards against duplicate concurrent downloads of the same
	// tour. Check-and-insert happens under mu as a single step.
	mu       sync.Mutex
	inflight map[string]struct{}
}

// Deps holds the collaborators a Service is constructed with.
// Quota and Encryptor are optional; the rest are required.
type Deps struct {
	Store        Store
	Tours        TourAPI
	Progress     ProgressAPI
	Status       StatusAPI
	Fetcher      AssetFetcher
	Connectivity ConnectivitySource
	Quota        QuotaProbe
	Encryptor    Encryptor
	Logger       Logger
	Clock        Clock
	IDGen        IDGenerator
	UserID       string
}

// NewService creates a new Service with the provided dependencies.
func NewService(d Deps) *Service {
	return &Service{
		store:     d.Store,
		tours:     d.Tours,
		progress:  d.Progress,
		status:    d.Status,
		fetcher:   d.Fetcher,
		conn:      d.Connectivity,
		quota:     d.Quota,
		encryptor: d.Encryptor,
		logger:    d.Logger,
		clock:     d.Clock,
		idgen:     d.IDGen,
		userID:    d.UserID,
		inflight:  make(map[string]struct{}),
	}
}

// acquire registers an in-flight download marker for the tour.
// Returns false if a download for this tour is already running.
func (s *Service) acquire(tourID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inflight[tourID]; ok {
		return false
	}
	s.inflight[tourID] = struct{}{}
	return true
}

// release clears the in-flight marker. Always runs, success or failure.
func (s *Service) release(tourID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, tourID)
}

// reportStatus mirrors a download record to the remote backend.
// Best-effort: failures are logged and never change local state.
func (s *Service) reportStatus(ctx context.Context, rec *model.DownloadRecord) {
	rec.UpdatedAt = s.clock.Now()
	if err := s.status.UpsertDownloadStatus(ctx, rec); err != nil {
		s.logger.Warn("remote status write failed", "tour", rec.TourID, "status", rec.Status, "error", err)
	}
}

// RecordProgress queues a playback-progress write locally. While offline the
// record simply stays queued; while online a remote upsert is attempted
// immediately, leaving the record pending on failure for a later sync pass.
func (s *Service) RecordProgress(ctx context.Context, tourID string, payload []byte) (*model.ProgressRecord, error) {
	now := s.clock.Now()
	rec := &model.ProgressRecord{
		ID:         s.idgen.New(),
		TourID:     tourID,
		SyncStatus: model.SyncPending,
		Payload:    payload,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.EnqueueProgress(ctx, rec); err != nil {
		return nil, fmt.Errorf("queueing progress record: %w", err)
	}

	if !s.conn.Online() {
		s.logger.Debug("progress queued offline", "tour", tourID, "record", rec.ID)
		return rec, nil
	}

	if err := s.progress.UpsertProgress(ctx, rec); err != nil {
		s.logger.Warn("progress upsert failed, left queued", "record", rec.ID, "error", err)
		return rec, nil
	}
	if err := s.store.MarkProgressSynced(ctx, rec.ID); err != nil {
		return nil, fmt.Errorf("marking progress synced: %w", err)
	}
	rec.SyncStatus = model.SyncSynced
	return rec, nil
}

// GetTour returns the locally stored tour, bumping its last-accessed time.
func (s *Service) GetTour(ctx context.Context, tourID string) (*model.Tour, error) {
	return s.store.GetTour(ctx, tourID)
}

// ListTours returns all locally stored tours.
func (s *Service) ListTours(ctx context.Context) ([]*model.Tour, error) {
	return s.store.ListTours(ctx)
}

// TourSizeBytes returns the stored size of a tour.
func (s *Service) TourSizeBytes(ctx context.Context, tourID string) (int64, error) {
	return s.store.TourSizeBytes(ctx, tourID)
}

// DeleteTour removes a tour and everything it owns, then mirrors the
// deletion to the remote backend (best-effort).
func (s *Service) DeleteTour(ctx context.Context, tourID string) error {
	if err := s.store.DeleteTourCascade(ctx, tourID); err != nil {
		return fmt.Errorf("deleting tour %s: %w", tourID, err)
	}
	s.reportStatus(ctx, &model.DownloadRecord{
		ID:     s.idgen.New(),
		UserID: s.userID,
		TourID: tourID,
		Status: model.StatusDeleted,
	})
	s.logger.Info("tour deleted", "tour", tourID)
	return nil
}

// ExportAudio decrypts a downloaded audio asset and writes the raw payload
// to w. When at-rest encryption is disabled the payload is copied as is.
func (s *Service) ExportAudio(ctx context.Context, trackID string, dec DecryptionContext, w io.Writer) error {
	asset, err := s.store.GetAudioAsset(ctx, trackID)
	if err != nil {
		return fmt.Errorf("loading audio asset: %w", err)
	}
	if asset == nil {
		return fmt.Errorf("audio asset not downloaded: %s", trackID)
	}

	if dec == nil {
		if _, err := w.Write(asset.Payload); err != nil {
			return fmt.Errorf("writing audio payload: %w", err)
		}
		return nil
	}

	if err := dec.Decrypt(bytes.NewReader(asset.Payload), w); err != nil {
		return fmt.Errorf("decrypting audio payload: %w", err)
	}
	return nil
}
