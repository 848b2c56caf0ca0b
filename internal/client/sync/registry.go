package sync

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/dvasilkov/catalogsync/internal/client/client"
	"github.com/dvasilkov/catalogsync/internal/common"
	"github.com/dvasilkov/catalogsync/internal/logging"
)

// Registry hands out one long-lived Manager per business. It is owned by the
// application's composition root and passed explicitly to whoever needs a
// manager; there is no ambient global state.
type Registry struct {
	db       *sql.DB
	api      client.SyncAPI
	observer ConnectivityObserver
	deviceID string
	log      logging.Logger

	mu       sync.Mutex
	managers map[string]*Manager
}

func NewRegistry(db *sql.DB, api client.SyncAPI, observer ConnectivityObserver, deviceID string, log logging.Logger) *Registry {
	return &Registry{
		db:       db,
		api:      api,
		observer: observer,
		deviceID: deviceID,
		log:      log,
		managers: make(map[string]*Manager),
	}
}

// Manager returns the Manager for a business, creating it on first use.
func (r *Registry) Manager(businessID string) *Manager {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.managers[businessID]
	if !ok {
		m = NewManager(businessID, r.db, r.api, r.observer, r.deviceID, r.log)
		r.managers[businessID] = m
	}
	return m
}

// SyncAll triggers a sync round for every known business. Rounds run
// concurrently; businesses touch disjoint storage scopes. Busy managers are
// skipped, not queued.
func (r *Registry) SyncAll(ctx context.Context) []*SyncHandle {
	r.mu.Lock()
	managers := make([]*Manager, 0, len(r.managers))
	for _, m := range r.managers {
		managers = append(managers, m)
	}
	r.mu.Unlock()

	handles := make([]*SyncHandle, 0, len(managers))
	for _, m := range managers {
		handles = append(handles, m.spawnSync(ctx))
	}
	return handles
}

// Run consumes became-online events and syncs every business on each one.
// It blocks until ctx is done; callers run it on its own goroutine.
func (r *Registry) Run(ctx context.Context, changes <-chan struct{}) {
	for {
		select {
		case <-changes:
			for _, h := range r.SyncAll(ctx) {
				res, err := h.Wait(ctx)
				if errors.Is(err, common.ErrSyncInProgress) {
					continue
				}
				if err != nil {
					r.log.Warn(ctx, "sync after reconnect failed", "error", err)
					continue
				}
				if res != nil && !res.Success {
					r.log.Warn(ctx, "sync after reconnect unsuccessful", "error", res.Error)
				}
			}
		case <-ctx.Done():
			return
		}
	}
}
