// Package syncapi defines the wire contract between the catalog sync engine
// and the remote sync API: push, pull and full-sync request/response DTOs.
// All bodies are JSON; timestamps travel as RFC3339 with nanoseconds, UTC.
package syncapi

import (
	"encoding/json"
	"time"
)

// ConflictMessage is the only per-item error value the engine distinguishes.
// Any other error string is treated as a retryable item failure.
const ConflictMessage = "Conflict detected"

// Change is one queued local mutation sent during push.
type Change struct {
	EntityType      string          `json:"entityType" binding:"required"`
	EntityID        string          `json:"entityId" binding:"required"`
	SyncID          string          `json:"syncId" binding:"required"`
	Operation       string          `json:"operation" binding:"required,oneof=create update delete"`
	Payload         json.RawMessage `json:"payload,omitempty"`
	ClientTimestamp time.Time       `json:"clientTimestamp"`
}

// PushRequest carries the whole pending-change queue, in insertion order.
type PushRequest struct {
	DeviceID string   `json:"deviceId" binding:"required"`
	Changes  []Change `json:"changes" binding:"required"`
}

// PushResult is the server's verdict on a single pushed change, keyed by the
// change's syncId.
type PushResult struct {
	SyncID  string `json:"syncId"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type PushResponse struct {
	Results []PushResult `json:"results"`
}

// PullRequest asks for remote changes newer than LastSyncAt.
type PullRequest struct {
	DeviceID   string    `json:"deviceId" binding:"required"`
	LastSyncAt time.Time `json:"lastSyncAt"`
}

// RemoteChange is one server-side change streamed during pull. EntityID is the
// server's canonical identifier, which equals the syncId the client supplied
// for entities the client created.
type RemoteChange struct {
	EntityType      string          `json:"entityType"`
	EntityID        string          `json:"entityId"`
	Operation       string          `json:"operation"`
	Data            json.RawMessage `json:"data,omitempty"`
	ServerTimestamp time.Time       `json:"serverTimestamp"`
}

// PullResponse returns at most one page of changes. When HasMore is set, the
// caller must pull again with ServerTimestamp as the new cursor to drain the
// backlog.
type PullResponse struct {
	Changes         []RemoteChange `json:"changes"`
	ServerTimestamp time.Time      `json:"serverTimestamp"`
	HasMore         bool           `json:"hasMore"`
}

type FullSyncRequest struct {
	DeviceID string `json:"deviceId" binding:"required"`
}

// FullSyncResponse is the entire remote catalog in one shot, used for cold
// start only.
type FullSyncResponse struct {
	Products        []json.RawMessage `json:"products"`
	Categories      []json.RawMessage `json:"categories"`
	ServerTimestamp time.Time         `json:"serverTimestamp"`
}
