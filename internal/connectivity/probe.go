package connectivity

import (
	"context"
	"net/http"
	"sync"
	"time"

	"tourcache/internal/offline"
)

// ProbeSource derives connectivity from periodic reachability checks against
// a well-known URL. It delivers only edge-triggered notifications: handlers
// run once per state change, not once per probe.
type ProbeSource struct {
	url      string
	interval time.Duration
	client   *http.Client

	mu     sync.Mutex
	online bool
	subs   map[int]func(online bool)
	nextID int

	cancel context.CancelFunc
	done   chan struct{}
}

// NewProbeSource creates a ProbeSource. A zero interval defaults to 30
// seconds. The initial state is determined by a synchronous probe on Start.
func NewProbeSource(url string, interval time.Duration) *ProbeSource {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &ProbeSource{
		url:      url,
		interval: interval,
		client:   &http.Client{Timeout: 5 * time.Second},
		subs:     make(map[int]func(online bool)),
	}
}

// Start probes once to seed the state and begins the polling loop.
func (s *ProbeSource) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	s.mu.Lock()
	s.online = s.probe(ctx)
	s.mu.Unlock()

	go s.loop(ctx)
}

// Stop halts the polling loop and waits for it to exit.
func (s *ProbeSource) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

// Online reports the last probed state.
func (s *ProbeSource) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

// Subscribe registers a transition handler and returns its unsubscribe.
func (s *ProbeSource) Subscribe(handler func(online bool)) func() {
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

func (s *ProbeSource) loop(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.update(s.probe(ctx))
		}
	}
}

// update records the probed state and, on a transition, notifies subscribers.
func (s *ProbeSource) update(online bool) {
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

	for _, h := range handlers {
		h(online)
	}
}

// probe reports whether the probe URL currently answers. Any response,
// including an HTTP error status below 500, counts as reachable.
func (s *ProbeSource) probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.url, nil)
	if err != nil {
		return false
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}

// Compile-time check that ProbeSource implements offline.ConnectivitySource
var _ offline.ConnectivitySource = (*ProbeSource)(nil)
