package sync

import (
	"context"
	"fmt"

	"github.com/dvasilkov/catalogsync/internal/client/models"
	"github.com/dvasilkov/catalogsync/internal/common"
	"github.com/dvasilkov/catalogsync/internal/dbx"
)

// ProductInput carries the fields of a new product.
type ProductInput struct {
	Name        string                `validate:"required"`
	Description string                `validate:"-"`
	Price       float64               `validate:"gte=0"`
	Currency    string                `validate:"omitempty,iso4217"`
	SKU         string                `validate:"-"`
	CategoryID  string                `validate:"-"`
	Tags        []string              `validate:"-"`
	Quantity    int                   `validate:"gte=0"`
	TrackInv    bool                  `validate:"-"`
	Images      []models.ProductImage `validate:"-"`
	Attributes  map[string]string     `validate:"-"`
	Status      models.ProductStatus  `validate:"omitempty,oneof=draft active out_of_stock discontinued"`
	IsFeatured  bool                  `validate:"-"`
}

// CategoryInput carries the fields of a new category.
type CategoryInput struct {
	Name      string `validate:"required"`
	ParentID  string `validate:"-"`
	SortOrder int    `validate:"-"`
	IsActive  bool   `validate:"-"`
}

// mutate applies a local write and its pending-change enqueue atomically.
// A mutation is never queued for remote sync unless it was durably applied
// locally.
func (m *Manager) mutate(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	return dbx.WithTx(ctx, m.db, nil, fn)
}

// CreateProduct commits the product locally, queues a create for the server
// and, when online, triggers a background sync (returned as an optional join
// handle; nil while offline). The returned product is effective immediately.
func (m *Manager) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, *SyncHandle, error) {
	if err := m.validate.Struct(in); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", common.ErrValidation, err)
	}

	status := in.Status
	if status == "" {
		status = models.StatusDraft
	}

	now := m.now().UTC()
	p := &models.Product{
		ID:          m.newID(),
		SyncID:      m.newID(),
		BusinessID:  m.businessID,
		CategoryID:  in.CategoryID,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Currency:    in.Currency,
		SKU:         in.SKU,
		Tags:        in.Tags,
		Quantity:    in.Quantity,
		TrackInv:    in.TrackInv,
		Images:      in.Images,
		Attributes:  in.Attributes,
		Status:      status,
		IsFeatured:  in.IsFeatured,
		PendingSync: true,
	}

	ch := models.PendingChange{
		ID:              m.newID(),
		BusinessID:      m.businessID,
		EntityType:      models.EntityProduct,
		EntityID:        p.ID,
		SyncID:          p.SyncID,
		Operation:       models.OpCreate,
		Payload:         models.ProductCreate{Product: *p},
		ClientTimestamp: now,
	}

	err := m.mutate(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := m.productRepo(tx).Upsert(ctx, p); err != nil {
			return err
		}
		if err := m.queueRepo(tx).Enqueue(ctx, ch); err != nil {
			return err
		}
		return m.categoryRepo(tx).RecountProducts(ctx)
	})
	if err != nil {
		return nil, nil, err
	}

	return p, m.maybeSync(ctx), nil
}

// UpdateProduct applies a partial update locally and queues it for the
// server. Consecutive updates of the same product collapse to one queue
// entry.
func (m *Manager) UpdateProduct(ctx context.Context, id string, patch models.ProductPatch) (*models.Product, *SyncHandle, error) {
	if patch.Status != nil {
		if err := m.validate.Var(*patch.Status, "oneof=draft active out_of_stock discontinued"); err != nil {
			return nil, nil, fmt.Errorf("%w: invalid status %q", common.ErrValidation, *patch.Status)
		}
	}
	if patch.Price != nil && *patch.Price < 0 {
		return nil, nil, fmt.Errorf("%w: negative price", common.ErrValidation)
	}

	p, err := m.productRepo(m.db).Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	p.Apply(patch)
	p.PendingSync = true

	ch := models.PendingChange{
		ID:              m.newID(),
		BusinessID:      m.businessID,
		EntityType:      models.EntityProduct,
		EntityID:        p.ID,
		SyncID:          p.SyncID,
		Operation:       models.OpUpdate,
		Payload:         models.ProductUpdate{Patch: patch},
		ClientTimestamp: m.now().UTC(),
	}

	err = m.mutate(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := m.productRepo(tx).Upsert(ctx, p); err != nil {
			return err
		}
		if err := m.queueRepo(tx).Enqueue(ctx, ch); err != nil {
			return err
		}
		return m.categoryRepo(tx).RecountProducts(ctx)
	})
	if err != nil {
		return nil, nil, err
	}

	return p, m.maybeSync(ctx), nil
}

// DeleteProduct removes the product locally and queues a tombstone. A delete
// of a product whose create was never pushed still pushes a delete; the
// server treats delete-of-unknown as a no-op.
func (m *Manager) DeleteProduct(ctx context.Context, id string) (*SyncHandle, error) {
	p, err := m.productRepo(m.db).Get(ctx, id)
	if err != nil {
		return nil, err
	}

	ch := models.PendingChange{
		ID:              m.newID(),
		BusinessID:      m.businessID,
		EntityType:      models.EntityProduct,
		EntityID:        p.ID,
		SyncID:          p.SyncID,
		Operation:       models.OpDelete,
		Payload:         models.ProductDelete{},
		ClientTimestamp: m.now().UTC(),
	}

	err = m.mutate(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := m.productRepo(tx).Delete(ctx, p.ID); err != nil {
			return err
		}
		if err := m.queueRepo(tx).Enqueue(ctx, ch); err != nil {
			return err
		}
		return m.categoryRepo(tx).RecountProducts(ctx)
	})
	if err != nil {
		return nil, err
	}

	return m.maybeSync(ctx), nil
}

// SetProductImages replaces the product's image list locally and queues the
// new list as a product_image change.
func (m *Manager) SetProductImages(ctx context.Context, id string, images []models.ProductImage) (*models.Product, *SyncHandle, error) {
	p, err := m.productRepo(m.db).Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	p.Images = images
	p.PendingSync = true

	ch := models.PendingChange{
		ID:              m.newID(),
		BusinessID:      m.businessID,
		EntityType:      models.EntityProductImage,
		EntityID:        p.ID,
		SyncID:          p.SyncID,
		Operation:       models.OpUpdate,
		Payload:         models.ProductImageSet{Images: images},
		ClientTimestamp: m.now().UTC(),
	}

	err = m.mutate(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := m.productRepo(tx).Upsert(ctx, p); err != nil {
			return err
		}
		return m.queueRepo(tx).Enqueue(ctx, ch)
	})
	if err != nil {
		return nil, nil, err
	}

	return p, m.maybeSync(ctx), nil
}

// CreateCategory commits a category locally and queues a create.
func (m *Manager) CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, *SyncHandle, error) {
	if err := m.validate.Struct(in); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", common.ErrValidation, err)
	}

	c := &models.Category{
		ID:          m.newID(),
		SyncID:      m.newID(),
		BusinessID:  m.businessID,
		Name:        in.Name,
		ParentID:    in.ParentID,
		SortOrder:   in.SortOrder,
		IsActive:    in.IsActive,
		PendingSync: true,
	}

	ch := models.PendingChange{
		ID:              m.newID(),
		BusinessID:      m.businessID,
		EntityType:      models.EntityCategory,
		EntityID:        c.ID,
		SyncID:          c.SyncID,
		Operation:       models.OpCreate,
		Payload:         models.CategoryCreate{Category: *c},
		ClientTimestamp: m.now().UTC(),
	}

	err := m.mutate(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := m.categoryRepo(tx).Upsert(ctx, c); err != nil {
			return err
		}
		return m.queueRepo(tx).Enqueue(ctx, ch)
	})
	if err != nil {
		return nil, nil, err
	}

	return c, m.maybeSync(ctx), nil
}

// UpdateCategory applies a partial update locally and queues it. A parent
// assignment that would create a cycle is rejected.
func (m *Manager) UpdateCategory(ctx context.Context, id string, patch models.CategoryPatch) (*models.Category, *SyncHandle, error) {
	c, err := m.categoryRepo(m.db).Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	c.Apply(patch)
	c.PendingSync = true

	ch := models.PendingChange{
		ID:              m.newID(),
		BusinessID:      m.businessID,
		EntityType:      models.EntityCategory,
		EntityID:        c.ID,
		SyncID:          c.SyncID,
		Operation:       models.OpUpdate,
		Payload:         models.CategoryUpdate{Patch: patch},
		ClientTimestamp: m.now().UTC(),
	}

	err = m.mutate(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := m.categoryRepo(tx).Upsert(ctx, c); err != nil {
			return err
		}
		return m.queueRepo(tx).Enqueue(ctx, ch)
	})
	if err != nil {
		return nil, nil, err
	}

	return c, m.maybeSync(ctx), nil
}

// DeleteCategory removes the category locally and queues a tombstone.
// Products keep their categoryId; the server reconciles dangling references.
func (m *Manager) DeleteCategory(ctx context.Context, id string) (*SyncHandle, error) {
	c, err := m.categoryRepo(m.db).Get(ctx, id)
	if err != nil {
		return nil, err
	}

	ch := models.PendingChange{
		ID:              m.newID(),
		BusinessID:      m.businessID,
		EntityType:      models.EntityCategory,
		EntityID:        c.ID,
		SyncID:          c.SyncID,
		Operation:       models.OpDelete,
		Payload:         models.CategoryDelete{},
		ClientTimestamp: m.now().UTC(),
	}

	err = m.mutate(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := m.categoryRepo(tx).Delete(ctx, c.ID); err != nil {
			return err
		}
		return m.queueRepo(tx).Enqueue(ctx, ch)
	})
	if err != nil {
		return nil, err
	}

	return m.maybeSync(ctx), nil
}

// GetProduct reads a product from the local store.
func (m *Manager) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	return m.productRepo(m.db).Get(ctx, id)
}

// ListProducts returns the business's full local catalog.
func (m *Manager) ListProducts(ctx context.Context) ([]models.Product, error) {
	return m.productRepo(m.db).List(ctx)
}

// SearchProducts matches name, description, SKU and tags case-insensitively.
func (m *Manager) SearchProducts(ctx context.Context, query string) ([]models.Product, error) {
	return m.productRepo(m.db).Search(ctx, query)
}

// ProductsByCategory lists the products assigned to one category.
func (m *Manager) ProductsByCategory(ctx context.Context, categoryID string) ([]models.Product, error) {
	return m.productRepo(m.db).FilterByCategory(ctx, categoryID)
}

// ListCategories returns the business's categories.
func (m *Manager) ListCategories(ctx context.Context) ([]models.Category, error) {
	return m.categoryRepo(m.db).List(ctx)
}

// GetSyncStatus reports the engine's observable state: last checkpoint,
// queue depth, conflicts seen and connectivity.
func (m *Manager) GetSyncStatus(ctx context.Context) (*models.SyncStatus, error) {
	cp, err := m.checkpoint(ctx)
	if err != nil {
		return nil, err
	}
	n, err := m.queueRepo(m.db).Count(ctx)
	if err != nil {
		return nil, err
	}

	online := m.observer != nil && m.observer.Online()
	return &models.SyncStatus{
		LastSyncAt:         cp,
		PendingChangeCount: n,
		ConflictCount:      int(m.conflicts.Load()),
		IsOnline:           online,
	}, nil
}
