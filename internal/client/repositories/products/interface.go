package products

import (
	"context"
	"time"

	"github.com/dvasilkov/catalogsync/internal/client/models"
)

// Repository is the durable local store of products for one business. All
// operations are local and never touch the network.
type Repository interface {
	// Get returns a product by its local id. Returns common.ErrNotFound if
	// no such product exists.
	Get(ctx context.Context, id string) (*models.Product, error)

	// GetBySyncID returns a product by its sync correlation id.
	GetBySyncID(ctx context.Context, syncID string) (*models.Product, error)

	// List returns the full materialized catalog of the business.
	List(ctx context.Context) ([]models.Product, error)

	// Upsert inserts or replaces a product by id, stamping LocalUpdatedAt.
	Upsert(ctx context.Context, p *models.Product) error

	// Delete removes a product row. Deleting a missing row is not an error.
	Delete(ctx context.Context, id string) error

	// Search performs a case-insensitive substring match over name,
	// description, SKU and tags.
	Search(ctx context.Context, query string) ([]models.Product, error)

	// FilterByCategory returns the products assigned to a category.
	FilterByCategory(ctx context.Context, categoryID string) ([]models.Product, error)

	// ReplaceAll wipes the business's products and inserts the given set.
	// Used by full sync only.
	ReplaceAll(ctx context.Context, ps []models.Product) error

	// MarkSynced clears the pending flag after a successful push, unless a
	// newer pending change for the product has been queued meanwhile.
	MarkSynced(ctx context.Context, id string, serverUpdatedAt time.Time) error
}
