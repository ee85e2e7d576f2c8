package offline

import (
	"context"
	"sync"
)

// Syncer is the piece of Service the Monitor needs.
type Syncer interface {
	SyncOfflineData(ctx context.Context) error
}

// Monitor watches connectivity transitions and triggers a sync pass whenever
// the host comes back online. Going offline has no side effect beyond the
// state update: subsequent writes simply queue locally as pending.
type Monitor struct {
	source ConnectivitySource
	syncer Syncer
	logger Logger

	mu     sync.Mutex
	online bool
	unsub  func()
	wg     sync.WaitGroup
}

// NewMonitor creates a Monitor. Call Start to begin observing.
func NewMonitor(source ConnectivitySource, syncer Syncer, logger Logger) *Monitor {
	return &Monitor{source: source, syncer: syncer, logger: logger}
}

// Start seeds the state from the source's current signal and subscribes to
// transitions. Sync runs are fired asynchronously; Stop waits for them.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	m.online = m.source.Online()
	m.mu.Unlock()

	m.unsub = m.source.Subscribe(func(online bool) {
		m.transition(ctx, online)
	})
}

// Stop unsubscribes from the source and waits for in-flight sync runs.
func (m *Monitor) Stop() {
	if m.unsub != nil {
		m.unsub()
		m.unsub = nil
	}
	m.wg.Wait()
}

// Online reports the last observed connectivity state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

func (m *Monitor) transition(ctx context.Context, online bool) {
	m.mu.Lock()
	restored := online && !m.online
	m.online = online
	m.mu.Unlock()

	if !restored {
		return
	}

	m.logger.Info("connectivity restored, syncing offline data")
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := m.syncer.SyncOfflineData(ctx); err != nil {
			m.logger.Error("sync after reconnect failed", "error", err)
		}
	}()
}
