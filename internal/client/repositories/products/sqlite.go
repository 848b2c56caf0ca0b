package products

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dvasilkov/catalogsync/internal/client/models"
	"github.com/dvasilkov/catalogsync/internal/common"
	"github.com/dvasilkov/catalogsync/internal/dbx"
)

const timeLayout = time.RFC3339Nano

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

const productColumns = `id, sync_id, category_id, name, description, price, currency, sku,
	tags, quantity, track_inventory, images, attributes, status, is_featured,
	created_at, updated_at, local_updated_at, pending_sync`

// SQLiteRepository implements Repository over a DBTX (either *sql.DB or
// *sql.Tx), scoped to one business.
type SQLiteRepository struct {
	db         dbx.DBTX
	businessID string
	now        func() time.Time
}

// NewSQLiteRepository returns a repository bound to the given DBTX and business.
func NewSQLiteRepository(db dbx.DBTX, businessID string) *SQLiteRepository {
	return &SQLiteRepository{db: db, businessID: businessID, now: time.Now}
}

func (r *SQLiteRepository) scanProduct(scan func(dest ...any) error) (*models.Product, error) {
	var p models.Product
	var tags, images, attributes string
	var createdAt, updatedAt, localUpdatedAt string

	err := scan(&p.ID, &p.SyncID, &p.CategoryID, &p.Name, &p.Description, &p.Price,
		&p.Currency, &p.SKU, &tags, &p.Quantity, &p.TrackInv, &images, &attributes,
		&p.Status, &p.IsFeatured, &createdAt, &updatedAt, &localUpdatedAt, &p.PendingSync)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(tags), &p.Tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}
	if err := json.Unmarshal([]byte(images), &p.Images); err != nil {
		return nil, fmt.Errorf("failed to decode images: %w", err)
	}
	if err := json.Unmarshal([]byte(attributes), &p.Attributes); err != nil {
		return nil, fmt.Errorf("failed to decode attributes: %w", err)
	}

	p.BusinessID = r.businessID
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	p.LocalUpdatedAt = parseTime(localUpdatedAt)
	return &p, nil
}

func (r *SQLiteRepository) queryProducts(ctx context.Context, query string, args ...any) ([]models.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select products: %w", err)
	}
	defer rows.Close()

	var result []models.Product
	for rows.Next() {
		p, err := r.scanProduct(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.Product, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE business_id=? AND id=?`,
		r.businessID, id)

	p, err := r.scanProduct(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) GetBySyncID(ctx context.Context, syncID string) (*models.Product, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE business_id=? AND sync_id=?`,
		r.businessID, syncID)

	p, err := r.scanProduct(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product by sync id: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]models.Product, error) {
	return r.queryProducts(ctx,
		`SELECT `+productColumns+` FROM products WHERE business_id=? ORDER BY name`,
		r.businessID)
}

func (r *SQLiteRepository) Upsert(ctx context.Context, p *models.Product) error {
	tags, err := json.Marshal(p.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}
	images, err := json.Marshal(p.Images)
	if err != nil {
		return fmt.Errorf("failed to encode images: %w", err)
	}
	attributes, err := json.Marshal(p.Attributes)
	if err != nil {
		return fmt.Errorf("failed to encode attributes: %w", err)
	}

	p.LocalUpdatedAt = r.now().UTC()

	query := `INSERT INTO products (id, business_id, sync_id, category_id, name, description,
			price, currency, sku, tags, quantity, track_inventory, images, attributes,
			status, is_featured, created_at, updated_at, local_updated_at, pending_sync)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			category_id = excluded.category_id,
			name = excluded.name,
			description = excluded.description,
			price = excluded.price,
			currency = excluded.currency,
			sku = excluded.sku,
			tags = excluded.tags,
			quantity = excluded.quantity,
			track_inventory = excluded.track_inventory,
			images = excluded.images,
			attributes = excluded.attributes,
			status = excluded.status,
			is_featured = excluded.is_featured,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			local_updated_at = excluded.local_updated_at,
			pending_sync = excluded.pending_sync
	`
	_, err = r.db.ExecContext(ctx, query,
		p.ID, r.businessID, p.SyncID, p.CategoryID, p.Name, p.Description,
		p.Price, p.Currency, p.SKU, string(tags), p.Quantity, p.TrackInv,
		string(images), string(attributes), string(p.Status), p.IsFeatured,
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt), formatTime(p.LocalUpdatedAt), p.PendingSync)
	if err != nil {
		return fmt.Errorf("failed to upsert product: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM products WHERE business_id=? AND id=?`, r.businessID, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

// likeEscaper neutralizes LIKE metacharacters so a query such as "100%"
// matches literally instead of acting as a wildcard.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *SQLiteRepository) Search(ctx context.Context, query string) ([]models.Product, error) {
	needle := "%" + likeEscaper.Replace(query) + "%"
	return r.queryProducts(ctx,
		`SELECT `+productColumns+` FROM products
		 WHERE business_id=?
		   AND (name LIKE ? COLLATE NOCASE ESCAPE '\'
		     OR description LIKE ? COLLATE NOCASE ESCAPE '\'
		     OR sku LIKE ? COLLATE NOCASE ESCAPE '\'
		     OR tags LIKE ? COLLATE NOCASE ESCAPE '\')
		 ORDER BY name`,
		r.businessID, needle, needle, needle, needle)
}

func (r *SQLiteRepository) FilterByCategory(ctx context.Context, categoryID string) ([]models.Product, error) {
	return r.queryProducts(ctx,
		`SELECT `+productColumns+` FROM products
		 WHERE business_id=? AND category_id=? ORDER BY name`,
		r.businessID, categoryID)
}

func (r *SQLiteRepository) ReplaceAll(ctx context.Context, ps []models.Product) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM products WHERE business_id=?`, r.businessID); err != nil {
		return fmt.Errorf("failed to clear products: %w", err)
	}
	for i := range ps {
		if err := r.Upsert(ctx, &ps[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string, serverUpdatedAt time.Time) error {
	// The NOT EXISTS guard keeps the pending flag set when a newer local
	// mutation was queued while the push was in flight.
	query := `UPDATE products SET pending_sync=0, updated_at=?
		WHERE business_id=? AND id=?
		  AND NOT EXISTS (
			SELECT 1 FROM pending_changes
			WHERE business_id=? AND entity_id=?
		  )`
	_, err := r.db.ExecContext(ctx, query,
		formatTime(serverUpdatedAt), r.businessID, id, r.businessID, id)
	if err != nil {
		return fmt.Errorf("failed to mark product synced: %w", err)
	}
	return nil
}
