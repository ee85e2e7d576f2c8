// Package connectivity provides ConnectivitySource platform adapters: a
// manual source driven by the caller and a polling probe that converts
// reachability checks into edge-triggered transitions.
package connectivity

import (
	"sync"

	"tourcache/internal/offline"
)

// ManualSource is a ConnectivitySource whose state is set by the caller.
// Used in tests and by CLI commands that force an offline run.
// Safe for concurrent use.
type ManualSource struct {
	mu     sync.Mutex
	online bool
	subs   map[int]func(online bool)
	nextID int
}

// NewManualSource creates a ManualSource with the given initial state.
func NewManualSource(online bool) *ManualSource {
	return &ManualSource{
		online: online,
		subs:   make(map[int]func(online bool)),
	}
}

// Online reports the current state.
func (s *ManualSource) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

// SetOnline updates the state, notifying subscribers on a transition.
// Setting the current state again is a no-op.
func (s *ManualSource) SetOnline(online bool) {
	s.mu.Lock()
	if s.online == online {
		s.mu.Unlock()
		return
	}
	s.online = online
	handlers := make([]func(bool), 0, len(s.subs))
	for _, h := range s.subs {
		handlers = append(handlers, h)
	}
	s.mu.Unlock()

	// Notify outside the lock so handlers may call back into the source.
	for _, h := range handlers {
		h(online)
	}
}

// Subscribe registers a transition handler and returns its unsubscribe.
func (s *ManualSource) Subscribe(handler func(online bool)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = handler
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Compile-time check that ManualSource implements offline.ConnectivitySource
var _ offline.ConnectivitySource = (*ManualSource)(nil)
