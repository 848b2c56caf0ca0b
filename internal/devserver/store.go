// Package devserver is an in-memory implementation of the remote sync API,
// used for local development and end-to-end tests of the engine. It is not
// the production backend.
package devserver

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/dvasilkov/catalogsync/internal/syncapi"
)

// DefaultPageSize bounds one pull page.
const DefaultPageSize = 100

type record struct {
	syncID     string
	entityType string
	data       json.RawMessage
	updatedAt  time.Time
	lastDevice string
}

type logEntry struct {
	entityType string
	entityID   string
	operation  string
	data       json.RawMessage
	ts         time.Time
}

type businessState struct {
	mu        sync.Mutex
	records   map[string]*record // keyed by syncId
	changeLog []logEntry
	lastTS    time.Time
}

// Store holds per-business catalog state and a change log with server
// timestamps.
type Store struct {
	mu         sync.Mutex
	businesses map[string]*businessState
	pageSize   int
	now        func() time.Time
}

func NewStore() *Store {
	return &Store{
		businesses: make(map[string]*businessState),
		pageSize:   DefaultPageSize,
		now:        time.Now,
	}
}

func (s *Store) business(id string) *businessState {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.businesses[id]
	if !ok {
		b = &businessState{records: make(map[string]*record)}
		s.businesses[id] = b
	}
	return b
}

// tick returns a server timestamp that is strictly increasing per business,
// so change-log ordering is total even within one wall-clock nanosecond.
func (b *businessState) tick(now time.Time) time.Time {
	ts := now.UTC()
	if !ts.After(b.lastTS) {
		ts = b.lastTS.Add(time.Nanosecond)
	}
	b.lastTS = ts
	return ts
}

func overlayJSON(base, patch json.RawMessage) (json.RawMessage, error) {
	var m map[string]any
	if len(base) > 0 {
		if err := json.Unmarshal(base, &m); err != nil {
			return nil, err
		}
	}
	if m == nil {
		m = make(map[string]any)
	}
	var p map[string]any
	if err := json.Unmarshal(patch, &p); err != nil {
		return nil, err
	}
	for k, v := range p {
		m[k] = v
	}
	return json.Marshal(m)
}

// ApplyPush processes one push batch in order and returns per-item verdicts.
//
// Conflict rule: an update loses when another device modified the record
// after the update's client timestamp. Creates are idempotent by syncId, so
// a retried push succeeds without duplicating the record. A delete of an
// unknown record is a successful no-op.
func (s *Store) ApplyPush(businessID string, req syncapi.PushRequest) syncapi.PushResponse {
	b := s.business(businessID)
	b.mu.Lock()
	defer b.mu.Unlock()

	resp := syncapi.PushResponse{Results: make([]syncapi.PushResult, 0, len(req.Changes))}

	for _, ch := range req.Changes {
		result := syncapi.PushResult{SyncID: ch.SyncID, Success: true}

		switch ch.Operation {
		case "create":
			ts := b.tick(s.now())
			rec := &record{
				syncID:     ch.SyncID,
				entityType: baseType(ch.EntityType),
				data:       normalizeData(ch.Payload, ch.SyncID),
				updatedAt:  ts,
				lastDevice: req.DeviceID,
			}
			b.records[ch.SyncID] = rec
			b.changeLog = append(b.changeLog, logEntry{
				entityType: rec.entityType, entityID: ch.SyncID,
				operation: "create", data: rec.data, ts: ts,
			})

		case "update":
			rec, ok := b.records[ch.SyncID]
			if !ok {
				// Updating something the server no longer has means remote
				// state diverged; the client must resolve explicitly.
				result.Success = false
				result.Error = syncapi.ConflictMessage
				break
			}
			if rec.lastDevice != req.DeviceID && rec.updatedAt.After(ch.ClientTimestamp) {
				result.Success = false
				result.Error = syncapi.ConflictMessage
				break
			}
			merged, err := overlayJSON(rec.data, ch.Payload)
			if err != nil {
				result.Success = false
				result.Error = "malformed payload"
				break
			}
			ts := b.tick(s.now())
			rec.data = normalizeData(merged, ch.SyncID)
			rec.updatedAt = ts
			rec.lastDevice = req.DeviceID
			b.changeLog = append(b.changeLog, logEntry{
				entityType: rec.entityType, entityID: ch.SyncID,
				operation: "update", data: rec.data, ts: ts,
			})

		case "delete":
			rec, ok := b.records[ch.SyncID]
			if !ok {
				// Delete of an entity the server never saw: no-op success.
				break
			}
			ts := b.tick(s.now())
			delete(b.records, ch.SyncID)
			b.changeLog = append(b.changeLog, logEntry{
				entityType: rec.entityType, entityID: ch.SyncID,
				operation: "delete", ts: ts,
			})

		default:
			result.Success = false
			result.Error = "unknown operation"
		}

		resp.Results = append(resp.Results, result)
	}

	return resp
}

// baseType folds product_image changes into the product stream: the server
// keeps one record per product and logs image updates as product updates.
func baseType(entityType string) string {
	if entityType == "product_image" {
		return "product"
	}
	return entityType
}

// normalizeData makes sure the stored document carries its syncId, so pulls
// on other devices can correlate it.
func normalizeData(data json.RawMessage, syncID string) json.RawMessage {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return data
	}
	if m == nil {
		m = make(map[string]any)
	}
	if _, ok := m["syncId"]; !ok || m["syncId"] == "" {
		m["syncId"] = syncID
	}
	delete(m, "_pendingSync")
	delete(m, "_localUpdatedAt")
	out, err := json.Marshal(m)
	if err != nil {
		return data
	}
	return out
}

// Changes returns one page of the change log strictly after since, the new
// cursor, and whether more pages remain.
func (s *Store) Changes(businessID string, since time.Time) ([]syncapi.RemoteChange, time.Time, bool) {
	b := s.business(businessID)
	b.mu.Lock()
	defer b.mu.Unlock()

	var page []syncapi.RemoteChange
	var cursor time.Time
	hasMore := false

	for _, e := range b.changeLog {
		if !e.ts.After(since) {
			continue
		}
		if len(page) == s.pageSize {
			hasMore = true
			break
		}
		page = append(page, syncapi.RemoteChange{
			EntityType:      e.entityType,
			EntityID:        e.entityID,
			Operation:       e.operation,
			Data:            e.data,
			ServerTimestamp: e.ts,
		})
		cursor = e.ts
	}

	if !hasMore {
		// Nothing left beyond this page; jump the cursor to now so the next
		// pull starts fresh.
		cursor = b.tick(s.now())
	}
	return page, cursor, hasMore
}

// Snapshot returns the entire current catalog and a server timestamp.
func (s *Store) Snapshot(businessID string) (products, categories []json.RawMessage, ts time.Time) {
	b := s.business(businessID)
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, rec := range b.records {
		switch rec.entityType {
		case "product":
			products = append(products, rec.data)
		case "category":
			categories = append(categories, rec.data)
		}
	}
	return products, categories, b.tick(s.now())
}

// Seed inserts a record directly, bypassing the push path. Test helper.
func (s *Store) Seed(businessID, entityType, syncID string, data json.RawMessage) {
	b := s.business(businessID)
	b.mu.Lock()
	defer b.mu.Unlock()

	ts := b.tick(s.now())
	rec := &record{
		syncID:     syncID,
		entityType: baseType(entityType),
		data:       normalizeData(data, syncID),
		updatedAt:  ts,
		lastDevice: "seed",
	}
	b.records[syncID] = rec
	b.changeLog = append(b.changeLog, logEntry{
		entityType: rec.entityType, entityID: syncID,
		operation: "create", data: rec.data, ts: ts,
	})
}

// Delete removes a record directly, logging a remote delete. Test helper.
func (s *Store) Delete(businessID, syncID string) {
	b := s.business(businessID)
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, ok := b.records[syncID]
	if !ok {
		return
	}
	ts := b.tick(s.now())
	delete(b.records, syncID)
	b.changeLog = append(b.changeLog, logEntry{
		entityType: rec.entityType, entityID: syncID,
		operation: "delete", ts: ts,
	})
}

// SetPageSize overrides the pull page size. Test helper.
func (s *Store) SetPageSize(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageSize = n
}
