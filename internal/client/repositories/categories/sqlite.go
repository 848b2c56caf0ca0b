package categories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dvasilkov/catalogsync/internal/client/models"
	"github.com/dvasilkov/catalogsync/internal/common"
	"github.com/dvasilkov/catalogsync/internal/dbx"
)

const timeLayout = time.RFC3339Nano

// maxTreeDepth bounds the parent-chain walk so a corrupted table cannot
// send the cycle check into an endless loop.
const maxTreeDepth = 64

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

const categoryColumns = `id, sync_id, name, parent_id, sort_order, is_active, product_count,
	created_at, updated_at, local_updated_at, pending_sync`

// SQLiteRepository implements Repository over a DBTX, scoped to one business.
type SQLiteRepository struct {
	db         dbx.DBTX
	businessID string
	now        func() time.Time
}

func NewSQLiteRepository(db dbx.DBTX, businessID string) *SQLiteRepository {
	return &SQLiteRepository{db: db, businessID: businessID, now: time.Now}
}

func (r *SQLiteRepository) scanCategory(scan func(dest ...any) error) (*models.Category, error) {
	var c models.Category
	var createdAt, updatedAt, localUpdatedAt string

	err := scan(&c.ID, &c.SyncID, &c.Name, &c.ParentID, &c.SortOrder, &c.IsActive,
		&c.ProductCount, &createdAt, &updatedAt, &localUpdatedAt, &c.PendingSync)
	if err != nil {
		return nil, err
	}

	c.BusinessID = r.businessID
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	c.LocalUpdatedAt = parseTime(localUpdatedAt)
	return &c, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.Category, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE business_id=? AND id=?`,
		r.businessID, id)

	c, err := r.scanCategory(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) GetBySyncID(ctx context.Context, syncID string) (*models.Category, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE business_id=? AND sync_id=?`,
		r.businessID, syncID)

	c, err := r.scanCategory(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category by sync id: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]models.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE business_id=? ORDER BY sort_order, name`,
		r.businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to select categories: %w", err)
	}
	defer rows.Close()

	var result []models.Category
	for rows.Next() {
		c, err := r.scanCategory(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// wouldCycle walks the parent chain starting at parentID and reports whether
// it reaches id.
func (r *SQLiteRepository) wouldCycle(ctx context.Context, id, parentID string) (bool, error) {
	current := parentID
	for depth := 0; current != "" && depth < maxTreeDepth; depth++ {
		if current == id {
			return true, nil
		}
		var next string
		err := r.db.QueryRowContext(ctx,
			`SELECT parent_id FROM categories WHERE business_id=? AND id=?`,
			r.businessID, current).Scan(&next)
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("failed to walk category parents: %w", err)
		}
		current = next
	}
	return false, nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, c *models.Category) error {
	if c.ParentID != "" {
		cycle, err := r.wouldCycle(ctx, c.ID, c.ParentID)
		if err != nil {
			return err
		}
		if cycle {
			return common.ErrCategoryCycle
		}
	}

	c.LocalUpdatedAt = r.now().UTC()

	query := `INSERT INTO categories (id, business_id, sync_id, name, parent_id, sort_order,
			is_active, product_count, created_at, updated_at, local_updated_at, pending_sync)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			parent_id = excluded.parent_id,
			sort_order = excluded.sort_order,
			is_active = excluded.is_active,
			product_count = excluded.product_count,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			local_updated_at = excluded.local_updated_at,
			pending_sync = excluded.pending_sync
	`
	_, err := r.db.ExecContext(ctx, query,
		c.ID, r.businessID, c.SyncID, c.Name, c.ParentID, c.SortOrder,
		c.IsActive, c.ProductCount, formatTime(c.CreatedAt), formatTime(c.UpdatedAt),
		formatTime(c.LocalUpdatedAt), c.PendingSync)
	if err != nil {
		return fmt.Errorf("failed to upsert category: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM categories WHERE business_id=? AND id=?`, r.businessID, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ReplaceAll(ctx context.Context, cs []models.Category) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM categories WHERE business_id=?`, r.businessID); err != nil {
		return fmt.Errorf("failed to clear categories: %w", err)
	}

	query := `INSERT INTO categories (id, business_id, sync_id, name, parent_id, sort_order,
			is_active, product_count, created_at, updated_at, local_updated_at, pending_sync)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := r.now().UTC()
	for i := range cs {
		c := &cs[i]
		c.LocalUpdatedAt = now
		_, err := r.db.ExecContext(ctx, query,
			c.ID, r.businessID, c.SyncID, c.Name, c.ParentID, c.SortOrder,
			c.IsActive, c.ProductCount, formatTime(c.CreatedAt), formatTime(c.UpdatedAt),
			formatTime(c.LocalUpdatedAt), c.PendingSync)
		if err != nil {
			return fmt.Errorf("failed to insert category: %w", err)
		}
	}
	return nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string, serverUpdatedAt time.Time) error {
	query := `UPDATE categories SET pending_sync=0, updated_at=?
		WHERE business_id=? AND id=?
		  AND NOT EXISTS (
			SELECT 1 FROM pending_changes
			WHERE business_id=? AND entity_id=?
		  )`
	_, err := r.db.ExecContext(ctx, query,
		formatTime(serverUpdatedAt), r.businessID, id, r.businessID, id)
	if err != nil {
		return fmt.Errorf("failed to mark category synced: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) RecountProducts(ctx context.Context) error {
	query := `UPDATE categories SET product_count = (
			SELECT COUNT(*) FROM products
			WHERE products.business_id = categories.business_id
			  AND products.category_id = categories.id
		) WHERE business_id=?`
	_, err := r.db.ExecContext(ctx, query, r.businessID)
	if err != nil {
		return fmt.Errorf("failed to recount products: %w", err)
	}
	return nil
}
