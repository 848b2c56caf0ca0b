// Package sync orchestrates bidirectional catalog synchronization: it owns
// the offline-first CRUD facade, the pending-change push, the incremental
// pull and the cold-start full sync for one business.
package sync

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/dvasilkov/catalogsync/internal/client/client"
	"github.com/dvasilkov/catalogsync/internal/client/models"
	"github.com/dvasilkov/catalogsync/internal/client/repositories/categories"
	"github.com/dvasilkov/catalogsync/internal/client/repositories/metadata"
	"github.com/dvasilkov/catalogsync/internal/client/repositories/pending"
	"github.com/dvasilkov/catalogsync/internal/client/repositories/products"
	"github.com/dvasilkov/catalogsync/internal/common"
	"github.com/dvasilkov/catalogsync/internal/dbx"
	"github.com/dvasilkov/catalogsync/internal/logging"
	"github.com/dvasilkov/catalogsync/internal/syncapi"
)

const timeLayout = time.RFC3339Nano

// ConnectivityObserver reports current connectivity. netwatch.Watcher
// satisfies it.
type ConnectivityObserver interface {
	Online() bool
}

// SyncResult is the structured outcome of one sync round. Sync failures are
// routine (network flakiness), so they are reported here rather than as an
// error from the call.
type SyncResult struct {
	Success   bool   `json:"success"`
	Full      bool   `json:"full"`
	Pushed    int    `json:"pushed"`
	Conflicts int    `json:"conflicts"`
	Failed    int    `json:"failed"`
	Pulled    int    `json:"pulled"`
	Error     string `json:"error,omitempty"`
}

// Manager is the single entry point for catalog mutations and sync of one
// business. All writes land locally first; the server is told later.
//
// Only one sync round may run at a time per Manager; a round requested while
// another is in flight is rejected with common.ErrSyncInProgress rather than
// queued. Managers for different businesses are fully independent.
type Manager struct {
	businessID string
	db         *sql.DB
	api        client.SyncAPI
	observer   ConnectivityObserver
	deviceID   string
	validate   *validator.Validate
	log        logging.Logger

	syncing   atomic.Bool
	conflicts atomic.Int64

	// test seams
	now   func() time.Time
	newID func() string
}

// NewManager builds a Manager for one business. The db handle is shared
// across managers; rows are scoped by business id.
func NewManager(businessID string, db *sql.DB, api client.SyncAPI, observer ConnectivityObserver, deviceID string, log logging.Logger) *Manager {
	return &Manager{
		businessID: businessID,
		db:         db,
		api:        api,
		observer:   observer,
		deviceID:   deviceID,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		log:        log.With("business_id", businessID),
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

func (m *Manager) productRepo(db dbx.DBTX) products.Repository {
	return products.NewSQLiteRepository(db, m.businessID)
}

func (m *Manager) categoryRepo(db dbx.DBTX) categories.Repository {
	return categories.NewSQLiteRepository(db, m.businessID)
}

func (m *Manager) queueRepo(db dbx.DBTX) pending.Repository {
	return pending.NewSQLiteRepository(db, m.businessID)
}

func (m *Manager) metaRepo() metadata.Repository {
	return metadata.NewSQLiteRepository(m.db, m.businessID)
}

func (m *Manager) checkpoint(ctx context.Context) (time.Time, error) {
	b, err := m.metaRepo().Get(ctx, metadata.KeyLastSyncAt)
	if err != nil {
		return time.Time{}, err
	}
	if len(b) == 0 {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeLayout, string(b))
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse checkpoint: %w", err)
	}
	return t, nil
}

func (m *Manager) setCheckpoint(ctx context.Context, t time.Time) error {
	return m.metaRepo().Set(ctx, metadata.KeyLastSyncAt, []byte(t.UTC().Format(timeLayout)))
}

// Sync runs one incremental round: push the pending queue, then pull remote
// changes since the checkpoint. When no checkpoint exists yet the round is a
// full sync instead. A round already in flight yields
// common.ErrSyncInProgress immediately.
func (m *Manager) Sync(ctx context.Context) (*SyncResult, error) {
	if !m.syncing.CompareAndSwap(false, true) {
		return nil, common.ErrSyncInProgress
	}
	defer m.syncing.Store(false)

	res := &SyncResult{}

	cp, err := m.checkpoint(ctx)
	if err != nil {
		res.Error = err.Error()
		return res, nil
	}

	if cp.IsZero() {
		res.Full = true
		if err := m.fullSync(ctx, res); err != nil {
			m.log.Warn(ctx, "full sync failed", "error", err)
			res.Error = err.Error()
			return res, nil
		}
		res.Success = true
		return res, nil
	}

	// Push before pull, so our own just-made edits cannot be clobbered by a
	// pull that has not observed them yet.
	if err := m.push(ctx, res, false); err != nil {
		m.log.Warn(ctx, "push failed", "error", err)
		res.Error = err.Error()
		return res, nil
	}
	if err := m.pull(ctx, res); err != nil {
		m.log.Warn(ctx, "pull failed", "error", err)
		res.Error = err.Error()
		return res, nil
	}

	res.Success = true
	m.log.Info(ctx, "sync round finished",
		"pushed", res.Pushed, "pulled", res.Pulled, "conflicts", res.Conflicts)
	return res, nil
}

// FullSync fetches the entire remote catalog and overwrites the local store
// wholesale. The pending queue is flushed first; skipping that would silently
// lose local edits.
func (m *Manager) FullSync(ctx context.Context) (*SyncResult, error) {
	if !m.syncing.CompareAndSwap(false, true) {
		return nil, common.ErrSyncInProgress
	}
	defer m.syncing.Store(false)

	res := &SyncResult{Full: true}
	if err := m.fullSync(ctx, res); err != nil {
		m.log.Warn(ctx, "full sync failed", "error", err)
		res.Error = err.Error()
		return res, nil
	}
	res.Success = true
	return res, nil
}

func (m *Manager) fullSync(ctx context.Context, res *SyncResult) error {
	n, err := m.queueRepo(m.db).Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		// A user-requested full sync is an explicit retry, so parked
		// conflicted entries get one more shot before the server state
		// overwrites the local store.
		if err := m.push(ctx, res, true); err != nil {
			return err
		}
	}

	resp, err := m.api.FullSync(ctx, m.businessID, syncapi.FullSyncRequest{DeviceID: m.deviceID})
	if err != nil {
		return err
	}

	ps := make([]models.Product, 0, len(resp.Products))
	for _, raw := range resp.Products {
		var p models.Product
		if err := json.Unmarshal(raw, &p); err != nil {
			return fmt.Errorf("failed to decode product: %w", err)
		}
		p.BusinessID = m.businessID
		p.PendingSync = false
		if p.ID == "" {
			p.ID = p.SyncID
		}
		ps = append(ps, p)
	}

	cs := make([]models.Category, 0, len(resp.Categories))
	for _, raw := range resp.Categories {
		var c models.Category
		if err := json.Unmarshal(raw, &c); err != nil {
			return fmt.Errorf("failed to decode category: %w", err)
		}
		c.BusinessID = m.businessID
		c.PendingSync = false
		if c.ID == "" {
			c.ID = c.SyncID
		}
		cs = append(cs, c)
	}

	err = dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := m.productRepo(tx).ReplaceAll(ctx, ps); err != nil {
			return err
		}
		if err := m.categoryRepo(tx).ReplaceAll(ctx, cs); err != nil {
			return err
		}
		return m.categoryRepo(tx).RecountProducts(ctx)
	})
	if err != nil {
		return err
	}

	res.Pulled += len(ps) + len(cs)
	return m.setCheckpoint(ctx, resp.ServerTimestamp)
}
