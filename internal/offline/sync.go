package offline

import (
	"context"
	"fmt"
)

// SyncOfflineData reconciles queued progress records with the remote backend.
// A no-op while offline. Each pending record is upserted independently: on
// success it is marked synced, on failure it is logged and left pending for
// a later pass. Unlike tour downloads there is no fail-fast here — upserts
// are idempotent and retryable per record, so the pass always continues
// through the whole queue.
func (s *Service) SyncOfflineData(ctx context.Context) error {
	if !s.conn.Online() {
		s.logger.Debug("sync skipped: offline")
		return nil
	}

	pending, err := s.store.PendingProgress(ctx)
	if err != nil {
		return fmt.Errorf("scanning pending progress: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	synced := 0
	for _, rec := range pending {
		if err := s.progress.UpsertProgress(ctx, rec); err != nil {
			s.logger.Warn("progress sync failed, will retry", "record", rec.ID, "tour", rec.TourID, "error", err)
			continue
		}
		if err := s.store.MarkProgressSynced(ctx, rec.ID); err != nil {
			return fmt.Errorf("marking progress synced: %w", err)
		}
		synced++
	}

	s.logger.Info("offline data synced", "pending", len(pending), "synced", synced)
	return nil
}
