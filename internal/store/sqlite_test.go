package store

import (
	"context"
	"testing"
	"time"

	"tourcache/internal/model"
)

// stubClock is a local fixed clock; the shared testutil package imports this
// package, so tests here keep their own stub.
type stubClock struct {
	now time.Time
}

func (c *stubClock) Now() time.Time          { return c.now }
func (c *stubClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// newTestStore creates an in-memory store with migrations applied.
func newTestStore(t *testing.T) (*SQLiteStore, *stubClock) {
	t.Helper()

	clock := &stubClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
	s, err := NewSQLiteStore(":memory:", clock)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := s.Initialize(context.Background()); err != nil {
		s.Close()
		t.Fatalf("failed to initialize store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s, clock
}

func testTour(id string, clock *stubClock) *model.Tour {
	return &model.Tour{
		ID:           id,
		Graph:        []byte(`{"id":"` + id + `","title":"Test Tour","stops":[]}`),
		Status:       model.StatusDownloading,
		LastAccessed: clock.Now(),
	}
}

func TestSQLiteStore_Initialize(t *testing.T) {
	t.Run("is idempotent", func(t *testing.T) {
		s, _ := newTestStore(t)
		// Already initialized once by the helper
		if err := s.Initialize(context.Background()); err != nil {
			t.Errorf("second Initialize() error = %v", err)
		}
	})
}

func TestSQLiteStore_Tours(t *testing.T) {
	ctx := context.Background()

	t.Run("returns nil for unknown tour", func(t *testing.T) {
		s, _ := newTestStore(t)
		tour, err := s.GetTour(ctx, "missing")
		if err != nil {
			t.Fatalf("GetTour() error = %v", err)
		}
		if tour != nil {
			t.Errorf("GetTour() = %v, want nil", tour)
		}
	})

	t.Run("stores and retrieves a tour", func(t *testing.T) {
		s, clock := newTestStore(t)
		want := testTour("tour-1", clock)
		if err := s.PutTour(ctx, want); err != nil {
			t.Fatalf("PutTour() error = %v", err)
		}

		got, err := s.GetTour(ctx, "tour-1")
		if err != nil {
			t.Fatalf("GetTour() error = %v", err)
		}
		if got == nil {
			t.Fatal("GetTour() returned nil, want tour")
		}
		if got.ID != "tour-1" {
			t.Errorf("ID = %v, want tour-1", got.ID)
		}
		if string(got.Graph) != string(want.Graph) {
			t.Errorf("Graph = %s, want %s", got.Graph, want.Graph)
		}
		if got.Status != model.StatusDownloading {
			t.Errorf("Status = %v, want downloading", got.Status)
		}
		if got.DownloadedAt != nil {
			t.Errorf("DownloadedAt = %v, want nil", got.DownloadedAt)
		}
	})

	t.Run("put replaces an existing tour", func(t *testing.T) {
		s, clock := newTestStore(t)
		tour := testTour("tour-1", clock)
		if err := s.PutTour(ctx, tour); err != nil {
			t.Fatalf("PutTour() error = %v", err)
		}

		tour.Graph = []byte(`{"id":"tour-1","title":"Updated","stops":[]}`)
		if err := s.PutTour(ctx, tour); err != nil {
			t.Fatalf("second PutTour() error = %v", err)
		}

		got, _ := s.GetTour(ctx, "tour-1")
		if string(got.Graph) != string(tour.Graph) {
			t.Errorf("Graph = %s, want updated graph", got.Graph)
		}
	})

	t.Run("get bumps last accessed", func(t *testing.T) {
		s, clock := newTestStore(t)
		if err := s.PutTour(ctx, testTour("tour-1", clock)); err != nil {
			t.Fatalf("PutTour() error = %v", err)
		}

		clock.Advance(time.Hour)
		got, err := s.GetTour(ctx, "tour-1")
		if err != nil {
			t.Fatalf("GetTour() error = %v", err)
		}
		if !got.LastAccessed.Equal(clock.Now()) {
			t.Errorf("LastAccessed = %v, want %v", got.LastAccessed, clock.Now())
		}
	})

	t.Run("update status records downloaded at", func(t *testing.T) {
		s, clock := newTestStore(t)
		if err := s.PutTour(ctx, testTour("tour-1", clock)); err != nil {
			t.Fatalf("PutTour() error = %v", err)
		}

		done := clock.Now().Add(time.Minute)
		if err := s.UpdateTourStatus(ctx, "tour-1", model.StatusCompleted, &done); err != nil {
			t.Fatalf("UpdateTourStatus() error = %v", err)
		}

		got, _ := s.GetTour(ctx, "tour-1")
		if got.Status != model.StatusCompleted {
			t.Errorf("Status = %v, want completed", got.Status)
		}
		if got.DownloadedAt == nil || !got.DownloadedAt.Equal(done) {
			t.Errorf("DownloadedAt = %v, want %v", got.DownloadedAt, done)
		}
	})

	t.Run("update status without timestamp keeps downloaded at", func(t *testing.T) {
		s, clock := newTestStore(t)
		if err := s.PutTour(ctx, testTour("tour-1", clock)); err != nil {
			t.Fatalf("PutTour() error = %v", err)
		}
		done := clock.Now()
		if err := s.UpdateTourStatus(ctx, "tour-1", model.StatusCompleted, &done); err != nil {
			t.Fatalf("UpdateTourStatus() error = %v", err)
		}

		if err := s.UpdateTourStatus(ctx, "tour-1", model.StatusFailed, nil); err != nil {
			t.Fatalf("second UpdateTourStatus() error = %v", err)
		}
		got, _ := s.GetTour(ctx, "tour-1")
		if got.Status != model.StatusFailed {
			t.Errorf("Status = %v, want failed", got.Status)
		}
		if got.DownloadedAt == nil {
			t.Error("DownloadedAt was cleared, want retained")
		}
	})

	t.Run("lists tours most recently accessed first", func(t *testing.T) {
		s, clock := newTestStore(t)
		if err := s.PutTour(ctx, testTour("tour-old", clock)); err != nil {
			t.Fatalf("PutTour() error = %v", err)
		}
		clock.Advance(time.Hour)
		if err := s.PutTour(ctx, testTour("tour-new", clock)); err != nil {
			t.Fatalf("PutTour() error = %v", err)
		}

		tours, err := s.ListTours(ctx)
		if err != nil {
			t.Fatalf("ListTours() error = %v", err)
		}
		if len(tours) != 2 {
			t.Fatalf("ListTours() count = %d, want 2", len(tours))
		}
		if tours[0].ID != "tour-new" || tours[1].ID != "tour-old" {
			t.Errorf("order = [%s, %s], want [tour-new, tour-old]", tours[0].ID, tours[1].ID)
		}
	})

	t.Run("finds tours last accessed before a cutoff", func(t *testing.T) {
		s, clock := newTestStore(t)
		if err := s.PutTour(ctx, testTour("tour-stale", clock)); err != nil {
			t.Fatalf("PutTour() error = %v", err)
		}
		cutoff := clock.Now()
		clock.Advance(time.Hour)
		if err := s.PutTour(ctx, testTour("tour-fresh", clock)); err != nil {
			t.Fatalf("PutTour() error = %v", err)
		}

		stale, err := s.ToursLastAccessedBefore(ctx, cutoff)
		if err != nil {
			t.Fatalf("ToursLastAccessedBefore() error = %v", err)
		}
		if len(stale) != 1 {
			t.Fatalf("stale count = %d, want 1", len(stale))
		}
		if stale[0].ID != "tour-stale" {
			t.Errorf("stale tour = %s, want tour-stale", stale[0].ID)
		}
	})
}

func TestSQLiteStore_Assets(t *testing.T) {
	ctx := context.Background()

	t.Run("stores and retrieves audio assets", func(t *testing.T) {
		s, clock := newTestStore(t)
		if err := s.PutTour(ctx, testTour("tour-1", clock)); err != nil {
			t.Fatalf("PutTour() error = %v", err)
		}

		asset := &model.AudioAsset{
			ID:              "track-1",
			TourID:          "tour-1",
			StopID:          "stop-1",
			Language:        "en",
			DurationSeconds: 180,
			Payload:         []byte("audio bytes"),
			DownloadedAt:    clock.Now(),
		}
		if err := s.PutAudioAsset(ctx, asset); err != nil {
			t.Fatalf("PutAudioAsset() error = %v", err)
		}

		got, err := s.GetAudioAsset(ctx, "track-1")
		if err != nil {
			t.Fatalf("GetAudioAsset() error = %v", err)
		}
		if got == nil {
			t.Fatal("GetAudioAsset() returned nil, want asset")
		}
		if got.Language != "en" || got.DurationSeconds != 180 {
			t.Errorf("asset = %+v, want en/180s", got)
		}
		if string(got.Payload) != "audio bytes" {
			t.Errorf("Payload = %q, want %q", got.Payload, "audio bytes")
		}

		byTour, err := s.AudioAssetsByTour(ctx, "tour-1")
		if err != nil {
			t.Fatalf("AudioAssetsByTour() error = %v", err)
		}
		if len(byTour) != 1 {
			t.Errorf("AudioAssetsByTour() count = %d, want 1", len(byTour))
		}
	})

	t.Run("returns nil for unknown audio asset", func(t *testing.T) {
		s, _ := newTestStore(t)
		got, err := s.GetAudioAsset(ctx, "missing")
		if err != nil {
			t.Fatalf("GetAudioAsset() error = %v", err)
		}
		if got != nil {
			t.Errorf("GetAudioAsset() = %v, want nil", got)
		}
	})

	t.Run("stores and retrieves image assets", func(t *testing.T) {
		s, clock := newTestStore(t)
		if err := s.PutTour(ctx, testTour("tour-1", clock)); err != nil {
			t.Fatalf("PutTour() error = %v", err)
		}

		if err := s.PutImageAsset(ctx, &model.ImageAsset{
			ID:           "stop_stop-1_preview",
			TourID:       "tour-1",
			SourceURL:    "https://cdn.example.com/p.jpg",
			Payload:      []byte("image bytes"),
			DownloadedAt: clock.Now(),
		}); err != nil {
			t.Fatalf("PutImageAsset() error = %v", err)
		}

		byTour, err := s.ImageAssetsByTour(ctx, "tour-1")
		if err != nil {
			t.Fatalf("ImageAssetsByTour() error = %v", err)
		}
		if len(byTour) != 1 {
			t.Fatalf("ImageAssetsByTour() count = %d, want 1", len(byTour))
		}
		if byTour[0].SourceURL != "https://cdn.example.com/p.jpg" {
			t.Errorf("SourceURL = %s, want original URL", byTour[0].SourceURL)
		}
	})

	t.Run("asset put is an upsert", func(t *testing.T) {
		s, clock := newTestStore(t)
		if err := s.PutTour(ctx, testTour("tour-1", clock)); err != nil {
			t.Fatalf("PutTour() error = %v", err)
		}

		asset := &model.AudioAsset{ID: "track-1", TourID: "tour-1", StopID: "stop-1", Payload: []byte("v1"), DownloadedAt: clock.Now()}
		if err := s.PutAudioAsset(ctx, asset); err != nil {
			t.Fatalf("PutAudioAsset() error = %v", err)
		}
		asset.Payload = []byte("v2")
		if err := s.PutAudioAsset(ctx, asset); err != nil {
			t.Fatalf("second PutAudioAsset() error = %v", err)
		}

		got, _ := s.GetAudioAsset(ctx, "track-1")
		if string(got.Payload) != "v2" {
			t.Errorf("Payload = %q, want %q", got.Payload, "v2")
		}
	})
}

func TestSQLiteStore_Progress(t *testing.T) {
	ctx := context.Background()

	newRecord := func(id, tourID string, clock *stubClock) *model.ProgressRecord {
		return &model.ProgressRecord{
			ID:         id,
			TourID:     tourID,
			SyncStatus: model.SyncPending,
			Payload:    []byte(`{"stop":"s1"}`),
			CreatedAt:  clock.Now(),
			UpdatedAt:  clock.Now(),
		}
	}

	t.Run("pending returns oldest first", func(t *testing.T) {
		s, clock := newTestStore(t)
		if err := s.EnqueueProgress(ctx, newRecord("rec-1", "tour-1", clock)); err != nil {
			t.Fatalf("EnqueueProgress() error = %v", err)
		}
		clock.Advance(time.Minute)
		if err := s.EnqueueProgress(ctx, newRecord("rec-2", "tour-1", clock)); err != nil {
			t.Fatalf("EnqueueProgress() error = %v", err)
		}

		pending, err := s.PendingProgress(ctx)
		if err != nil {
			t.Fatalf("PendingProgress() error = %v", err)
		}
		if len(pending) != 2 {
			t.Fatalf("PendingProgress() count = %d, want 2", len(pending))
		}
		if pending[0].ID != "rec-1" || pending[1].ID != "rec-2" {
			t.Errorf("order = [%s, %s], want [rec-1, rec-2]", pending[0].ID, pending[1].ID)
		}
	})

	t.Run("mark synced removes from pending but retains record", func(t *testing.T) {
		s, clock := newTestStore(t)
		if err := s.EnqueueProgress(ctx, newRecord("rec-1", "tour-1", clock)); err != nil {
			t.Fatalf("EnqueueProgress() error = %v", err)
		}

		if err := s.MarkProgressSynced(ctx, "rec-1"); err != nil {
			t.Fatalf("MarkProgressSynced() error = %v", err)
		}

		pending, _ := s.PendingProgress(ctx)
		if len(pending) != 0 {
			t.Errorf("pending count = %d, want 0", len(pending))
		}
		byTour, err := s.ProgressByTour(ctx, "tour-1")
		if err != nil {
			t.Fatalf("ProgressByTour() error = %v", err)
		}
		if len(byTour) != 1 {
			t.Fatalf("ProgressByTour() count = %d, want 1", len(byTour))
		}
		if byTour[0].SyncStatus != model.SyncSynced {
			t.Errorf("SyncStatus = %v, want synced", byTour[0].SyncStatus)
		}
	})

	t.Run("enqueue is an upsert", func(t *testing.T) {
		s, clock := newTestStore(t)
		rec := newRecord("rec-1", "tour-1", clock)
		if err := s.EnqueueProgress(ctx, rec); err != nil {
			t.Fatalf("EnqueueProgress() error = %v", err)
		}
		rec.Payload = []byte(`{"stop":"s2"}`)
		if err := s.EnqueueProgress(ctx, rec); err != nil {
			t.Fatalf("second EnqueueProgress() error = %v", err)
		}

		byTour, _ := s.ProgressByTour(ctx, "tour-1")
		if len(byTour) != 1 {
			t.Fatalf("record count = %d, want 1", len(byTour))
		}
		if string(byTour[0].Payload) != `{"stop":"s2"}` {
			t.Errorf("Payload = %s, want updated payload", byTour[0].Payload)
		}
	})
}

func TestSQLiteStore_DeleteTourCascade(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t)

	// Two tours so the cascade can prove it is scoped
	for _, id := range []string{"tour-1", "tour-2"} {
		if err := s.PutTour(ctx, testTour(id, clock)); err != nil {
			t.Fatalf("PutTour(%s) error = %v", id, err)
		}
		if err := s.PutAudioAsset(ctx, &model.AudioAsset{
			ID: id + "-track", TourID: id, StopID: "stop-1", Payload: []byte("a"), DownloadedAt: clock.Now(),
		}); err != nil {
			t.Fatalf("PutAudioAsset(%s) error = %v", id, err)
		}
		if err := s.PutImageAsset(ctx, &model.ImageAsset{
			ID: id + "-img", TourID: id, Payload: []byte("i"), DownloadedAt: clock.Now(),
		}); err != nil {
			t.Fatalf("PutImageAsset(%s) error = %v", id, err)
		}
		if err := s.EnqueueProgress(ctx, &model.ProgressRecord{
			ID: id + "-rec", TourID: id, SyncStatus: model.SyncPending, Payload: []byte("{}"),
			CreatedAt: clock.Now(), UpdatedAt: clock.Now(),
		}); err != nil {
			t.Fatalf("EnqueueProgress(%s) error = %v", id, err)
		}
	}

	if err := s.DeleteTourCascade(ctx, "tour-1"); err != nil {
		t.Fatalf("DeleteTourCascade() error = %v", err)
	}

	tour, _ := s.GetTour(ctx, "tour-1")
	if tour != nil {
		t.Error("deleted tour is still stored")
	}
	audio, _ := s.AudioAssetsByTour(ctx, "tour-1")
	images, _ := s.ImageAssetsByTour(ctx, "tour-1")
	progress, _ := s.ProgressByTour(ctx, "tour-1")
	if len(audio) != 0 || len(images) != 0 || len(progress) != 0 {
		t.Errorf("leftovers after cascade: %d audio, %d images, %d progress",
			len(audio), len(images), len(progress))
	}

	// The other tour is untouched
	tour2, _ := s.GetTour(ctx, "tour-2")
	if tour2 == nil {
		t.Error("unrelated tour was deleted")
	}
	audio2, _ := s.AudioAssetsByTour(ctx, "tour-2")
	if len(audio2) != 1 {
		t.Errorf("unrelated audio count = %d, want 1", len(audio2))
	}
}

func TestSQLiteStore_TourSizeBytes(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore(t)

	tour := testTour("tour-1", clock)
	if err := s.PutTour(ctx, tour); err != nil {
		t.Fatalf("PutTour() error = %v", err)
	}
	if err := s.PutAudioAsset(ctx, &model.AudioAsset{
		ID: "t1", TourID: "tour-1", StopID: "s1", Payload: []byte("12345"), DownloadedAt: clock.Now(),
	}); err != nil {
		t.Fatalf("PutAudioAsset() error = %v", err)
	}
	if err := s.PutImageAsset(ctx, &model.ImageAsset{
		ID: "i1", TourID: "tour-1", Payload: []byte("123"), DownloadedAt: clock.Now(),
	}); err != nil {
		t.Fatalf("PutImageAsset() error = %v", err)
	}

	size, err := s.TourSizeBytes(ctx, "tour-1")
	if err != nil {
		t.Fatalf("TourSizeBytes() error = %v", err)
	}
	want := int64(len(tour.Graph)) + 5 + 3
	if size != want {
		t.Errorf("TourSizeBytes() = %d, want %d", size, want)
	}

	t.Run("zero for unknown tour", func(t *testing.T) {
		size, err := s.TourSizeBytes(ctx, "missing")
		if err != nil {
			t.Fatalf("TourSizeBytes() error = %v", err)
		}
		if size != 0 {
			t.Errorf("TourSizeBytes() = %d, want 0", size)
		}
	})
}
