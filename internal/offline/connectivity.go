package offline

import "context"

// ConnectivitySource delivers online/offline state to the subsystem. The
// host platform adapter owns detection (event subscription, probing); this
// interface only exposes the current state and edge-triggered transitions.
type ConnectivitySource interface {
	// Online reports the current connectivity state.
	Online() bool

	// Subscribe registers a handler invoked on every state transition.
	// The returned function unsubscribes the handler.
	Subscribe(handler func(online bool)) (unsubscribe func())
}

// QuotaProbe introspects host storage usage. Optional: callers must degrade
// to zero-valued stats when the probe is absent or failing.
type QuotaProbe interface {
	// Estimate returns used and total bytes for the storage the local
	// store lives on.
	Estimate(ctx context.Context) (usage, quota int64, err error)
}
