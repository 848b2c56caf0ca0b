package categories

import (
	"context"
	"time"

	"github.com/dvasilkov/catalogsync/internal/client/models"
)

// Repository is the durable local store of categories for one business.
// Categories form a tree via ParentID; Upsert rejects parent assignments
// that would create a cycle.
type Repository interface {
	Get(ctx context.Context, id string) (*models.Category, error)
	GetBySyncID(ctx context.Context, syncID string) (*models.Category, error)

	// List returns all categories ordered by sort order, then name.
	List(ctx context.Context) ([]models.Category, error)

	// Upsert inserts or replaces a category by id, stamping LocalUpdatedAt.
	// Returns common.ErrCategoryCycle if the parent chain would loop back.
	Upsert(ctx context.Context, c *models.Category) error

	Delete(ctx context.Context, id string) error

	// ReplaceAll wipes the business's categories and inserts the given set.
	// Used by full sync only; no cycle check is applied to server data.
	ReplaceAll(ctx context.Context, cs []models.Category) error

	// MarkSynced clears the pending flag after a successful push, unless a
	// newer pending change for the category has been queued meanwhile.
	MarkSynced(ctx context.Context, id string, serverUpdatedAt time.Time) error

	// RecountProducts refreshes the denormalized product_count column from
	// the products table.
	RecountProducts(ctx context.Context) error
}
