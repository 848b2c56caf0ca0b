// Package pending implements the durable pending-change queue: an ordered,
// per-business log of local mutations the server has not yet acknowledged.
package pending

import (
	"context"

	"github.com/dvasilkov/catalogsync/internal/client/models"
)

// Repository stores pending changes with at most one entry per
// (EntityType, EntityID). Enqueue merges consecutive edits of the same entity
// per models.MergeChanges, so the queue never grows from repeated edits.
type Repository interface {
	// Enqueue appends a new entry, or merges the change into the existing
	// entry for the same entity.
	Enqueue(ctx context.Context, ch models.PendingChange) error

	// Dequeue removes an acknowledged entry by its id.
	Dequeue(ctx context.Context, id string) error

	// All returns entries in insertion order, which is the push order.
	All(ctx context.Context) ([]models.PendingChange, error)

	// GetByEntity returns the entry for an entity, or common.ErrNotFound.
	GetByEntity(ctx context.Context, et models.EntityType, entityID string) (*models.PendingChange, error)

	// Count returns the number of queued entries.
	Count(ctx context.Context) (int, error)

	// IncrementRetry bumps the retry counter of an entry that failed to push.
	IncrementRetry(ctx context.Context, id string) error

	// MarkConflicted flags an entry the server rejected as conflicting.
	// Conflicted entries sit out incremental pushes until a new local edit
	// merges into them, which clears the flag.
	MarkConflicted(ctx context.Context, id string) error
}
