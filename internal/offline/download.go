package offline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"tourcache/internal/model"
)

// Byte estimates used to compute download percentages. The total is an
// estimate, never exact: audio is approximated from nominal track duration,
// images with a flat per-image figure.
const (
	audioBytesPerSecond = 16 * 1024
	imageEstimateBytes  = 500 * 1024
)

// ProgressFunc receives cumulative download progress. percent is 0-100 and
// non-decreasing within one download; rec is the download record mirrored to
// the remote backend. Invoked at least once at start and once on completion.
type ProgressFunc func(percent int, rec *model.DownloadRecord)

// progressMeter accumulates downloaded bytes across concurrent asset fetches
// and converts them to a monotonically non-decreasing percentage. The meter
// lock is held while the download record is updated and the callback runs,
// so concurrent fetches cannot race on the record or deliver reports out of
// order.
type progressMeter struct {
	mu         sync.Mutex
	downloaded int64
	estimate   int64
	percent    int
}

// report credits n downloaded bytes, folds the updated percentage into rec,
// and hands it to onProgress, all under the meter lock.
// The meter caps at 99; 100 is reported only after all assets resolve.
func (p *progressMeter) report(n int64, rec *model.DownloadRecord, onProgress ProgressFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.downloaded += n
	pct := p.percent
	if p.estimate > 0 {
		pct = int(p.downloaded * 100 / p.estimate)
	}
	if pct > 99 {
		pct = 99
	}
	if pct < p.percent {
		pct = p.percent
	}
	p.percent = pct
	rec.Progress = pct
	onProgress(pct, rec)
}

// DownloadTour materializes one tour for offline use: it fetches the tour
// graph, persists it, downloads every referenced audio and image asset
// concurrently, and reports cumulative progress. At most one download per
// tour ID may be in flight; a second request fails fast with
// ErrDownloadInProgress.
//
// Asset failures abort the whole download on the first error (sibling
// fetches are cancelled via the group context). Partially downloaded assets
// are left behind; a failed tour must be retried in full, or deleted first.
func (s *Service) DownloadTour(ctx context.Context, tourID string, onProgress ProgressFunc) error {
	if tourID == "" {
		return fmt.Errorf("tour id is empty")
	}
	if onProgress == nil {
		onProgress = func(int, *model.DownloadRecord) {}
	}

	if !s.acquire(tourID) {
		return fmt.Errorf("%w: %s", ErrDownloadInProgress, tourID)
	}
	defer s.release(tourID)

	rec := &model.DownloadRecord{
		ID:     s.idgen.New(),
		UserID: s.userID,
		TourID: tourID,
		Status: model.StatusDownloading,
	}
	s.reportStatus(ctx, rec)
	onProgress(0, rec)

	graph, err := s.tours.FetchTour(ctx, tourID)
	if err != nil {
		s.failDownload(ctx, tourID, rec)
		return fmt.Errorf("%w: %w", ErrTourFetchFailed, err)
	}

	graphJSON, err := json.Marshal(graph)
	if err != nil {
		s.failDownload(ctx, tourID, rec)
		return fmt.Errorf("%w: serializing tour graph: %w", ErrTourFetchFailed, err)
	}

	meter := &progressMeter{estimate: estimateBytes(graph, int64(len(graphJSON)))}
	s.logger.Info("tour download started", "tour", tourID, "estimate_bytes", meter.estimate)

	now := s.clock.Now()
	if err := s.store.PutTour(ctx, &model.Tour{
		ID:           tourID,
		Graph:        graphJSON,
		Status:       model.StatusDownloading,
		LastAccessed: now,
	}); err != nil {
		s.failDownload(ctx, tourID, rec)
		return fmt.Errorf("%w: persisting tour graph: %w", ErrDownloadFailed, err)
	}
	meter.report(int64(len(graphJSON)), rec, onProgress)

	g, gctx := errgroup.WithContext(ctx)

	for _, stop := range graph.Stops {
		for _, track := range stop.AudioTracks {
			g.Go(func() error {
				return s.downloadAudio(gctx, tourID, stop.ID, track, meter, rec, onProgress)
			})
		}
		if stop.PreviewImageURL != "" {
			id := fmt.Sprintf("stop_%s_preview", stop.ID)
			url := stop.PreviewImageURL
			g.Go(func() error {
				return s.downloadImage(gctx, tourID, id, url, meter, rec, onProgress)
			})
		}
		for n, url := range stop.GalleryImageURLs {
			id := fmt.Sprintf("stop_%s_gallery_%d", stop.ID, n)
			g.Go(func() error {
				return s.downloadImage(gctx, tourID, id, url, meter, rec, onProgress)
			})
		}
	}
	if graph.PreviewImageURL != "" {
		id := fmt.Sprintf("tour_%s_preview", tourID)
		g.Go(func() error {
			return s.downloadImage(gctx, tourID, id, graph.PreviewImageURL, meter, rec, onProgress)
		})
	}

	if err := g.Wait(); err != nil {
		s.failDownload(ctx, tourID, rec)
		return fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}

	downloadedAt := s.clock.Now()
	if err := s.store.UpdateTourStatus(ctx, tourID, model.StatusCompleted, &downloadedAt); err != nil {
		s.failDownload(ctx, tourID, rec)
		return fmt.Errorf("%w: marking tour completed: %w", ErrDownloadFailed, err)
	}

	rec.Status = model.StatusCompleted
	rec.Progress = 100
	s.reportStatus(ctx, rec)
	onProgress(100, rec)
	s.logger.Info("tour download completed", "tour", tourID, "bytes", meter.downloaded)
	return nil
}

// downloadAudio fetches one narration track and persists it, crediting its
// payload size to the progress meter.
func (s *Service) downloadAudio(ctx context.Context, tourID, stopID string, track model.AudioTrack, meter *progressMeter, rec *model.DownloadRecord, onProgress ProgressFunc) error {
	payload, err := s.fetcher.Fetch(ctx, track.URL)
	if err != nil {
		return fmt.Errorf("audio track %s: %w", track.ID, err)
	}

	stored, err := s.seal(payload)
	if err != nil {
		return fmt.Errorf("audio track %s: %w", track.ID, err)
	}

	if err := s.store.PutAudioAsset(ctx, &model.AudioAsset{
		ID:              track.ID,
		TourID:          tourID,
		StopID:          stopID,
		Language:        track.Language,
		DurationSeconds: track.DurationSeconds,
		Payload:         stored,
		DownloadedAt:    s.clock.Now(),
	}); err != nil {
		return fmt.Errorf("storing audio track %s: %w", track.ID, err)
	}

	meter.report(int64(len(payload)), rec, onProgress)
	return nil
}

// downloadImage fetches one image and persists it under its composite ID.
func (s *Service) downloadImage(ctx context.Context, tourID, id, url string, meter *progressMeter, rec *model.DownloadRecord, onProgress ProgressFunc) error {
	payload, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return fmt.Errorf("image %s: %w", id, err)
	}

	if err := s.store.PutImageAsset(ctx, &model.ImageAsset{
		ID:           id,
		TourID:       tourID,
		SourceURL:    url,
		Payload:      payload,
		DownloadedAt: s.clock.Now(),
	}); err != nil {
		return fmt.Errorf("storing image %s: %w", id, err)
	}

	meter.report(int64(len(payload)), rec, onProgress)
	return nil
}

// seal encrypts an audio payload when at-rest encryption is configured.
func (s *Service) seal(payload []byte) ([]byte, error) {
	if s.encryptor == nil {
		return payload, nil
	}
	var buf bytes.Buffer
	if err := s.encryptor.Encrypt(bytes.NewReader(payload), &buf); err != nil {
		return nil, fmt.Errorf("encrypting payload: %w", err)
	}
	return buf.Bytes(), nil
}

// failDownload marks the tour failed locally (if it was written) and mirrors
// the failure to the remote backend. Both writes are best-effort: the
// original error is what the caller reports.
func (s *Service) failDownload(ctx context.Context, tourID string, rec *model.DownloadRecord) {
	if err := s.store.UpdateTourStatus(ctx, tourID, model.StatusFailed, nil); err != nil {
		s.logger.Warn("marking tour failed", "tour", tourID, "error", err)
	}
	rec.Status = model.StatusFailed
	s.reportStatus(ctx, rec)
}

// estimateBytes computes the total byte estimate for a tour download:
// serialized graph size, nominal audio duration at 16KB/s, and a flat 500KB
// per referenced image.
func estimateBytes(graph *model.TourGraph, graphSize int64) int64 {
	total := graphSize
	images := 0
	if graph.PreviewImageURL != "" {
		images++
	}
	for _, stop := range graph.Stops {
		for _, track := range stop.AudioTracks {
			total += int64(track.DurationSeconds) * audioBytesPerSecond
		}
		if stop.PreviewImageURL != "" {
			images++
		}
		images += len(stop.GalleryImageURLs)
	}
	return total + int64(images)*imageEstimateBytes
}
