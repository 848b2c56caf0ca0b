package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dvasilkov/catalogsync/internal/dbx"
)

type SQLiteRepository struct {
	db         dbx.DBTX
	businessID string
}

// NewSQLiteRepository returns a repository scoped to one business, or to the
// whole installation when businessID is GlobalScope.
func NewSQLiteRepository(db dbx.DBTX, businessID string) *SQLiteRepository {
	return &SQLiteRepository{db: db, businessID: businessID}
}

func (r *SQLiteRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM metadata WHERE business_id=? AND key=?`,
		r.businessID, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata[%s]: %w", key, err)
	}
	return value, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, key string, value []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO metadata (business_id, key, value) VALUES (?, ?, ?)
		ON CONFLICT(business_id, key) DO UPDATE SET value = excluded.value
	`, r.businessID, key, value)
	if err != nil {
		return fmt.Errorf("failed to set metadata[%s]: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM metadata WHERE business_id=? AND key=?`, r.businessID, key)
	if err != nil {
		return fmt.Errorf("failed to delete metadata[%s]: %w", key, err)
	}
	return nil
}
