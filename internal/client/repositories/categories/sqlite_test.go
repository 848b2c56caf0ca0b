package categories

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/dvasilkov/catalogsync/internal/client/client"
	"github.com/dvasilkov/catalogsync/internal/client/models"
	"github.com/dvasilkov/catalogsync/internal/common"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func sampleCategory(id, parentID string) *models.Category {
	return &models.Category{
		ID:       id,
		SyncID:   "sync-" + id,
		Name:     "Category " + id,
		ParentID: parentID,
		IsActive: true,
	}
}

func TestSQLiteRepository_UpsertAndGet(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLiteRepository(db, "biz1")
	ctx := context.Background()

	c := sampleCategory("c1", "")
	require.NoError(t, repo.Upsert(ctx, c))
	assert.False(t, c.LocalUpdatedAt.IsZero())

	got, err := repo.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Category c1", got.Name)
	assert.Empty(t, got.ParentID)
	assert.True(t, got.IsActive)

	got, err = repo.GetBySyncID(ctx, "sync-c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", got.ID)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSQLiteRepository_ListOrder(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLiteRepository(db, "biz1")
	ctx := context.Background()

	a := sampleCategory("c1", "")
	a.Name = "Zeta"
	a.SortOrder = 2
	b := sampleCategory("c2", "")
	b.Name = "Alpha"
	b.SortOrder = 2
	c := sampleCategory("c3", "")
	c.Name = "Omega"
	c.SortOrder = 1
	for _, cat := range []*models.Category{a, b, c} {
		require.NoError(t, repo.Upsert(ctx, cat))
	}

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "Omega", list[0].Name)
	assert.Equal(t, "Alpha", list[1].Name)
	assert.Equal(t, "Zeta", list[2].Name)
}

func TestSQLiteRepository_CycleRejected(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLiteRepository(db, "biz1")
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, sampleCategory("c1", "")))
	require.NoError(t, repo.Upsert(ctx, sampleCategory("c2", "c1")))
	require.NoError(t, repo.Upsert(ctx, sampleCategory("c3", "c2")))

	// Reparenting the root under its grandchild would close a loop.
	c1 := sampleCategory("c1", "c3")
	err := repo.Upsert(ctx, c1)
	assert.ErrorIs(t, err, common.ErrCategoryCycle)

	// Self-parenting is the degenerate cycle.
	err = repo.Upsert(ctx, sampleCategory("c2", "c2"))
	assert.ErrorIs(t, err, common.ErrCategoryCycle)

	// A dangling parent is allowed; the tree may be mid-sync.
	require.NoError(t, repo.Upsert(ctx, sampleCategory("c4", "not-here-yet")))
}

func TestSQLiteRepository_ReplaceAll(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLiteRepository(db, "biz1")
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, sampleCategory("stale", "")))

	fresh := []models.Category{*sampleCategory("c1", ""), *sampleCategory("c2", "c1")}
	require.NoError(t, repo.ReplaceAll(ctx, fresh))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	_, err = repo.Get(ctx, "stale")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSQLiteRepository_RecountProducts(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLiteRepository(db, "biz1")
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, sampleCategory("c1", "")))
	require.NoError(t, repo.Upsert(ctx, sampleCategory("c2", "")))

	insert := `INSERT INTO products (id, business_id, sync_id, category_id, name, description,
			price, currency, sku, tags, quantity, track_inventory, images, attributes,
			status, is_featured, created_at, updated_at, local_updated_at, pending_sync)
		VALUES (?, 'biz1', ?, ?, 'P', '', 1, '', '', '[]', 0, 0, '[]', '{}', 'active', 0, '', '', '', 0)`
	for _, row := range [][2]string{{"p1", "c1"}, {"p2", "c1"}, {"p3", "c2"}} {
		_, err := db.ExecContext(ctx, insert, row[0], "sync-"+row[0], row[1])
		require.NoError(t, err)
	}

	require.NoError(t, repo.RecountProducts(ctx))

	c1, err := repo.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 2, c1.ProductCount)

	c2, err := repo.Get(ctx, "c2")
	require.NoError(t, err)
	assert.Equal(t, 1, c2.ProductCount)
}

func TestSQLiteRepository_MarkSynced(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLiteRepository(db, "biz1")
	ctx := context.Background()

	c := sampleCategory("c1", "")
	c.PendingSync = true
	require.NoError(t, repo.Upsert(ctx, c))

	serverTS := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.MarkSynced(ctx, "c1", serverTS))

	got, err := repo.Get(ctx, "c1")
	require.NoError(t, err)
	assert.False(t, got.PendingSync)
	assert.True(t, got.UpdatedAt.Equal(serverTS))
}
