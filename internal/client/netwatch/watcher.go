// Package netwatch reports current connectivity and raises edge-triggered
// "became online" events by probing the server's health endpoint.
package netwatch

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/dvasilkov/catalogsync/internal/logging"
)

// Pinger probes server reachability. client.HTTPClient satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

const probeTimeout = 3 * time.Second

// Watcher polls the server on a fixed interval and tracks an online flag.
// Transitions from offline to online are published on Changes; events are
// coalesced, so a slow consumer sees at most one pending notification.
type Watcher struct {
	pinger   Pinger
	interval time.Duration
	log      logging.Logger

	online  atomic.Bool
	changes chan struct{}
}

func New(pinger Pinger, interval time.Duration, log logging.Logger) *Watcher {
	return &Watcher{
		pinger:   pinger,
		interval: interval,
		log:      log,
		changes:  make(chan struct{}, 1),
	}
}

// Online reports the last observed connectivity state.
func (w *Watcher) Online() bool {
	return w.online.Load()
}

// Changes delivers one value per offline-to-online transition.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Probe performs a single reachability check and updates the state,
// publishing an event on an offline-to-online edge.
func (w *Watcher) Probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	err := w.pinger.Ping(probeCtx)
	cancel()

	was := w.online.Swap(err == nil)
	switch {
	case err == nil && !was:
		w.log.Info(ctx, "connectivity restored")
		select {
		case w.changes <- struct{}{}:
		default:
		}
	case err != nil && was:
		w.log.Warn(ctx, "connectivity lost", "error", err)
	}
}

// Run probes once immediately and then on every tick until ctx is done.
// Callers run it on its own goroutine.
func (w *Watcher) Run(ctx context.Context) {
	w.Probe(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.Probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}
