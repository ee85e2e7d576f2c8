package offline

import (
	"context"
	"fmt"

	"tourcache/internal/model"
)

// StorageStats reports aggregate local storage capacity.
type StorageStats struct {
	UsedBytes      int64
	AvailableBytes int64
	Percentage     int // Used capacity, 0-100
}

// StorageStats returns used/available capacity from the quota probe.
// Degrades to zero values rather than failing when the probe is absent,
// erroring, or reporting no quota.
func (s *Service) StorageStats(ctx context.Context) StorageStats {
	if s.quota == nil {
		return StorageStats{}
	}

	usage, quota, err := s.quota.Estimate(ctx)
	if err != nil {
		s.logger.Debug("storage quota unavailable", "error", err)
		return StorageStats{}
	}
	if quota <= 0 {
		return StorageStats{}
	}

	return StorageStats{
		UsedBytes:      usage,
		AvailableBytes: quota - usage,
		Percentage:     int(usage * 100 / quota),
	}
}

// CleanupOldData evicts tours whose last access is older than maxAgeDays,
// cascading deletion through audio assets, image assets, and progress
// records, and mirroring each eviction to the remote backend (best-effort).
// A maxAgeDays of 0 evicts everything regardless of recency.
// Returns the number of tours evicted.
func (s *Service) CleanupOldData(ctx context.Context, maxAgeDays int) (int, error) {
	cutoff := s.clock.Now().AddDate(0, 0, -maxAgeDays)

	stale, err := s.store.ToursLastAccessedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("scanning stale tours: %w", err)
	}

	evicted := 0
	for _, tour := range stale {
		if err := s.store.DeleteTourCascade(ctx, tour.ID); err != nil {
			return evicted, fmt.Errorf("evicting tour %s: %w", tour.ID, err)
		}
		s.reportStatus(ctx, &model.DownloadRecord{
			ID:     s.idgen.New(),
			UserID: s.userID,
			TourID: tour.ID,
			Status: model.StatusDeleted,
		})
		s.logger.Info("stale tour evicted", "tour", tour.ID, "last_accessed", tour.LastAccessed)
		evicted++
	}

	return evicted, nil
}
