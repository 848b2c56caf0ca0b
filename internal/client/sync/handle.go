package sync

import "context"

// SyncHandle is the join handle of a sync round spawned in the background by
// a CRUD call. The caller may await it or drop it; the round runs either way.
type SyncHandle struct {
	done chan struct{}
	res  *SyncResult
	err  error
}

// Wait blocks until the spawned round finishes or ctx is done. A round that
// lost the busy race reports common.ErrSyncInProgress; some other trigger is
// already syncing on the caller's behalf.
func (h *SyncHandle) Wait(ctx context.Context) (*SyncResult, error) {
	select {
	case <-h.done:
		return h.res, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// spawnSync starts one sync round on its own goroutine, detached from the
// caller's cancellation so a finished CRUD call cannot abort it.
func (m *Manager) spawnSync(ctx context.Context) *SyncHandle {
	h := &SyncHandle{done: make(chan struct{})}
	bg := context.WithoutCancel(ctx)
	go func() {
		defer close(h.done)
		h.res, h.err = m.Sync(bg)
	}()
	return h
}

// maybeSync triggers a background sync round after a local mutation when the
// device is online. Offline mutations stay queued until connectivity returns.
func (m *Manager) maybeSync(ctx context.Context) *SyncHandle {
	if m.observer == nil || !m.observer.Online() {
		return nil
	}
	return m.spawnSync(ctx)
}
