package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dvasilkov/catalogsync/internal/client/models"
	"github.com/dvasilkov/catalogsync/internal/common"
	"github.com/dvasilkov/catalogsync/internal/syncapi"
)

// push sends the pending queue in insertion order as one batch and applies
// the server's per-item verdicts: success dequeues the entry, "Conflict
// detected" flags it conflicted and bumps the conflict counter, any other
// item error keeps it queued for the next round.
//
// Conflicted entries are excluded unless retryConflicted is set; they wait
// for an explicit resolution (a new local edit, or a full sync) instead of
// being re-sent and re-rejected on every round.
func (m *Manager) push(ctx context.Context, res *SyncResult, retryConflicted bool) error {
	q := m.queueRepo(m.db)

	queued, err := q.All(ctx)
	if err != nil {
		return err
	}

	req := syncapi.PushRequest{DeviceID: m.deviceID, Changes: make([]syncapi.Change, 0, len(queued))}
	bySyncID := make(map[string]models.PendingChange, len(queued))
	for _, ch := range queued {
		if ch.Conflicted && !retryConflicted {
			continue
		}
		payload, err := ch.WirePayload()
		if err != nil {
			return err
		}
		req.Changes = append(req.Changes, syncapi.Change{
			EntityType:      string(ch.EntityType),
			EntityID:        ch.EntityID,
			SyncID:          ch.SyncID,
			Operation:       string(ch.Operation),
			Payload:         payload,
			ClientTimestamp: ch.ClientTimestamp,
		})
		bySyncID[ch.SyncID] = ch
	}
	if len(req.Changes) == 0 {
		return nil
	}

	resp, err := m.api.Push(ctx, m.businessID, req)
	if err != nil {
		return err
	}

	for _, r := range resp.Results {
		ch, ok := bySyncID[r.SyncID]
		if !ok {
			m.log.Warn(ctx, "push result for unknown change", "sync_id", r.SyncID)
			continue
		}

		switch {
		case r.Success:
			if err := q.Dequeue(ctx, ch.ID); err != nil {
				return err
			}
			if err := m.markEntitySynced(ctx, ch); err != nil {
				return err
			}
			res.Pushed++
		case r.Error == syncapi.ConflictMessage:
			// Only the transition into the conflicted state counts;
			// an explicit retry of an already-flagged entry does not
			// inflate the counter again.
			if !ch.Conflicted {
				m.conflicts.Add(1)
				res.Conflicts++
			}
			if err := q.MarkConflicted(ctx, ch.ID); err != nil {
				return err
			}
			m.log.Warn(ctx, "push conflict, change parked until resolved",
				"entity_type", ch.EntityType, "entity_id", ch.EntityID)
		default:
			res.Failed++
			if err := q.IncrementRetry(ctx, ch.ID); err != nil {
				return err
			}
			m.log.Warn(ctx, "push item failed",
				"entity_type", ch.EntityType, "entity_id", ch.EntityID, "error", r.Error)
		}
	}
	return nil
}

func (m *Manager) markEntitySynced(ctx context.Context, ch models.PendingChange) error {
	if ch.Operation == models.OpDelete {
		return nil
	}
	at := m.now().UTC()
	switch ch.EntityType {
	case models.EntityProduct, models.EntityProductImage:
		return m.productRepo(m.db).MarkSynced(ctx, ch.EntityID, at)
	case models.EntityCategory:
		return m.categoryRepo(m.db).MarkSynced(ctx, ch.EntityID, at)
	default:
		return fmt.Errorf("unknown entity type %q", ch.EntityType)
	}
}

// pull drains the remote change stream page by page, applying each change to
// the local store and advancing the checkpoint after every page, so an
// interrupted pull resumes where it stopped.
func (m *Manager) pull(ctx context.Context, res *SyncResult) error {
	cp, err := m.checkpoint(ctx)
	if err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		resp, err := m.api.Pull(ctx, m.businessID, syncapi.PullRequest{
			DeviceID:   m.deviceID,
			LastSyncAt: cp,
		})
		if err != nil {
			return err
		}

		for _, rc := range resp.Changes {
			if err := m.applyRemote(ctx, rc); err != nil {
				return err
			}
			res.Pulled++
		}

		if len(resp.Changes) > 0 {
			if err := m.categoryRepo(m.db).RecountProducts(ctx); err != nil {
				return err
			}
		}

		// The checkpoint only moves forward.
		if resp.ServerTimestamp.After(cp) {
			cp = resp.ServerTimestamp
			if err := m.setCheckpoint(ctx, cp); err != nil {
				return err
			}
		}

		if !resp.HasMore {
			return nil
		}
	}
}

func (m *Manager) applyRemote(ctx context.Context, rc syncapi.RemoteChange) error {
	switch models.EntityType(rc.EntityType) {
	case models.EntityProduct, models.EntityProductImage:
		return m.applyRemoteProduct(ctx, rc)
	case models.EntityCategory:
		return m.applyRemoteCategory(ctx, rc)
	default:
		m.log.Warn(ctx, "skipping remote change of unknown entity type", "entity_type", rc.EntityType)
		return nil
	}
}

func (m *Manager) applyRemoteProduct(ctx context.Context, rc syncapi.RemoteChange) error {
	pr := m.productRepo(m.db)

	if models.Operation(rc.Operation) == models.OpDelete {
		p, err := pr.GetBySyncID(ctx, rc.EntityID)
		if errors.Is(err, common.ErrNotFound) {
			// Already gone locally; remote delete is a no-op.
			return nil
		}
		if err != nil {
			return err
		}
		return pr.Delete(ctx, p.ID)
	}

	var p models.Product
	if err := json.Unmarshal(rc.Data, &p); err != nil {
		return fmt.Errorf("failed to decode pulled product: %w", err)
	}
	if p.SyncID == "" {
		p.SyncID = rc.EntityID
	}

	// Keep the local id stable across pulls; for entities first seen from
	// the server, the server's canonical id becomes the local id.
	existing, err := pr.GetBySyncID(ctx, p.SyncID)
	switch {
	case err == nil:
		p.ID = existing.ID
	case errors.Is(err, common.ErrNotFound):
		if p.ID == "" {
			p.ID = rc.EntityID
		}
	default:
		return err
	}

	p.BusinessID = m.businessID
	p.PendingSync = false
	return pr.Upsert(ctx, &p)
}

func (m *Manager) applyRemoteCategory(ctx context.Context, rc syncapi.RemoteChange) error {
	cr := m.categoryRepo(m.db)

	if models.Operation(rc.Operation) == models.OpDelete {
		c, err := cr.GetBySyncID(ctx, rc.EntityID)
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return cr.Delete(ctx, c.ID)
	}

	var c models.Category
	if err := json.Unmarshal(rc.Data, &c); err != nil {
		return fmt.Errorf("failed to decode pulled category: %w", err)
	}
	if c.SyncID == "" {
		c.SyncID = rc.EntityID
	}

	existing, err := cr.GetBySyncID(ctx, c.SyncID)
	switch {
	case err == nil:
		c.ID = existing.ID
	case errors.Is(err, common.ErrNotFound):
		if c.ID == "" {
			c.ID = rc.EntityID
		}
	default:
		return err
	}

	c.BusinessID = m.businessID
	c.PendingSync = false
	return cr.Upsert(ctx, &c)
}
