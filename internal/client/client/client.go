package client

import (
	"context"

	"github.com/dvasilkov/catalogsync/internal/syncapi"
)

// SyncAPI is the remote sync endpoint consumed by the engine. Implementations
// must treat every call as idempotent from the caller's point of view; the
// engine retries failed rounds later with the same inputs.
type SyncAPI interface {
	// Push sends queued local changes in insertion order and returns the
	// server's per-item verdicts.
	Push(ctx context.Context, businessID string, req syncapi.PushRequest) (*syncapi.PushResponse, error)

	// Pull requests remote changes newer than the request's cursor.
	Pull(ctx context.Context, businessID string, req syncapi.PullRequest) (*syncapi.PullResponse, error)

	// FullSync fetches the whole remote catalog in one call.
	FullSync(ctx context.Context, businessID string, req syncapi.FullSyncRequest) (*syncapi.FullSyncResponse, error)

	// Ping probes server reachability.
	Ping(ctx context.Context) error
}
