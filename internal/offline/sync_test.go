package offline_test

import (
	"context"
	"errors"
	"testing"

	"tourcache/internal/model"
)

func TestService_SyncOfflineData(t *testing.T) {
	ctx := context.Background()

	t.Run("marks pending records synced", func(t *testing.T) {
		f := newFixture(t)
		f.conn.SetOnline(false)

		for i := 0; i < 3; i++ {
			if _, err := f.svc.RecordProgress(ctx, "tour-1", []byte(`{"stop":"s1"}`)); err != nil {
				t.Fatalf("RecordProgress() error = %v", err)
			}
		}

		f.conn.SetOnline(true)
		if err := f.svc.SyncOfflineData(ctx); err != nil {
			t.Fatalf("SyncOfflineData() error = %v", err)
		}

		if got := f.progress.Count(); got != 3 {
			t.Errorf("upserted count = %d, want 3", got)
		}
		pending, err := f.store.PendingProgress(ctx)
		if err != nil {
			t.Fatalf("PendingProgress() error = %v", err)
		}
		if len(pending) != 0 {
			t.Errorf("pending count after sync = %d, want 0", len(pending))
		}

		// Synced records are retained, not removed
		all, err := f.store.ProgressByTour(ctx, "tour-1")
		if err != nil {
			t.Fatalf("ProgressByTour() error = %v", err)
		}
		if len(all) != 3 {
			t.Errorf("retained record count = %d, want 3", len(all))
		}
		for _, rec := range all {
			if rec.SyncStatus != model.SyncSynced {
				t.Errorf("record %s sync status = %v, want synced", rec.ID, rec.SyncStatus)
			}
		}
	})

	t.Run("is a no-op while offline", func(t *testing.T) {
		f := newFixture(t)
		f.conn.SetOnline(false)

		if _, err := f.svc.RecordProgress(ctx, "tour-1", []byte(`{}`)); err != nil {
			t.Fatalf("RecordProgress() error = %v", err)
		}

		if err := f.svc.SyncOfflineData(ctx); err != nil {
			t.Fatalf("SyncOfflineData() error = %v", err)
		}
		if got := f.progress.Count(); got != 0 {
			t.Errorf("upserted count = %d, want 0", got)
		}
		pending, _ := f.store.PendingProgress(ctx)
		if len(pending) != 1 {
			t.Errorf("pending count = %d, want 1", len(pending))
		}
	})

	t.Run("upsert failures leave records pending without error", func(t *testing.T) {
		f := newFixture(t)
		f.conn.SetOnline(false)
		if _, err := f.svc.RecordProgress(ctx, "tour-1", []byte(`{}`)); err != nil {
			t.Fatalf("RecordProgress() error = %v", err)
		}
		if _, err := f.svc.RecordProgress(ctx, "tour-1", []byte(`{}`)); err != nil {
			t.Fatalf("RecordProgress() error = %v", err)
		}

		f.conn.SetOnline(true)
		f.progress.Err = errors.New("backend down")

		if err := f.svc.SyncOfflineData(ctx); err != nil {
			t.Fatalf("SyncOfflineData() error = %v", err)
		}

		pending, _ := f.store.PendingProgress(ctx)
		if len(pending) != 2 {
			t.Errorf("pending count = %d, want 2", len(pending))
		}

		// A later pass succeeds and drains the queue
		f.progress.Err = nil
		if err := f.svc.SyncOfflineData(ctx); err != nil {
			t.Fatalf("retry SyncOfflineData() error = %v", err)
		}
		pending, _ = f.store.PendingProgress(ctx)
		if len(pending) != 0 {
			t.Errorf("pending count after retry = %d, want 0", len(pending))
		}
	})

	t.Run("empty queue is a no-op", func(t *testing.T) {
		f := newFixture(t)
		if err := f.svc.SyncOfflineData(ctx); err != nil {
			t.Fatalf("SyncOfflineData() error = %v", err)
		}
		if got := f.progress.Count(); got != 0 {
			t.Errorf("upserted count = %d, want 0", got)
		}
	})
}

func TestService_RecordProgress(t *testing.T) {
	ctx := context.Background()

	t.Run("syncs immediately while online", func(t *testing.T) {
		f := newFixture(t)

		rec, err := f.svc.RecordProgress(ctx, "tour-1", []byte(`{"stop":"s1","completed":true}`))
		if err != nil {
			t.Fatalf("RecordProgress() error = %v", err)
		}
		if rec.SyncStatus != model.SyncSynced {
			t.Errorf("sync status = %v, want synced", rec.SyncStatus)
		}
		if got := f.progress.Count(); got != 1 {
			t.Errorf("upserted count = %d, want 1", got)
		}
	})

	t.Run("queues while offline", func(t *testing.T) {
		f := newFixture(t)
		f.conn.SetOnline(false)

		rec, err := f.svc.RecordProgress(ctx, "tour-1", []byte(`{}`))
		if err != nil {
			t.Fatalf("RecordProgress() error = %v", err)
		}
		if rec.SyncStatus != model.SyncPending {
			t.Errorf("sync status = %v, want pending", rec.SyncStatus)
		}
		if got := f.progress.Count(); got != 0 {
			t.Errorf("upserted count = %d, want 0", got)
		}
	})

	t.Run("stays queued when the immediate upsert fails", func(t *testing.T) {
		f := newFixture(t)
		f.progress.Err = errors.New("backend down")

		rec, err := f.svc.RecordProgress(ctx, "tour-1", []byte(`{}`))
		if err != nil {
			t.Fatalf("RecordProgress() error = %v", err)
		}
		if rec.SyncStatus != model.SyncPending {
			t.Errorf("sync status = %v, want pending", rec.SyncStatus)
		}
		pending, _ := f.store.PendingProgress(ctx)
		if len(pending) != 1 {
			t.Errorf("pending count = %d, want 1", len(pending))
		}
	})
}
