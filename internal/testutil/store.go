package testutil

import (
	"context"
	"testing"

	"tourcache/internal/offline"
	"tourcache/internal/store"
)

// NewTestStore creates an in-memory SQLite store with migrations applied.
// The store is automatically closed when the test completes.
func NewTestStore(t *testing.T, clock offline.Clock) offline.Store {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:", clock)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	if err := s.Initialize(context.Background()); err != nil {
		s.Close()
		t.Fatalf("failed to initialize store: %v", err)
	}

	t.Cleanup(func() {
		s.Close()
	})

	return s
}
