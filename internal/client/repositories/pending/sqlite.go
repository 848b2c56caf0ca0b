package pending

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

// SQLiteRepository implements Repository over a DBTX, scoped to one business.
type SQLiteRepository struct {
	db         dbx.DBTX
	businessID string
}

func NewSQLiteRepository(db dbx.DBTX, businessID string) *SQLiteRepository {
	return &SQLiteRepository{db: db, businessID: businessID}
}

func (r *SQLiteRepository) scanChange(scan func(dest ...any) error) (*models.PendingChange, error) {
	var ch models.PendingChange
	var payload string
	var clientTS string

	err := scan(&ch.ID, &ch.EntityType, &ch.EntityID, &ch.SyncID, &ch.Operation,
		&payload, &clientTS, &ch.RetryCount, &ch.Conflicted)
	if err != nil {
		return nil, err
	}

	ch.BusinessID = r.businessID
	ch.Payload, err = models.DecodePayload([]byte(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to decode pending payload: %w", err)
	}
	if ch.ClientTimestamp, err = time.Parse(timeLayout, clientTS); err != nil {
		return nil, fmt.Errorf("failed to parse client timestamp: %w", err)
	}
	return &ch, nil
}

func (r *SQLiteRepository) GetByEntity(ctx context.Context, et models.EntityType, entityID string) (*models.PendingChange, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, entity_type, entity_id, sync_id, operation, payload, client_timestamp, retry_count, conflicted
		 FROM pending_changes
		 WHERE business_id=? AND entity_type=? AND entity_id=?`,
		r.businessID, string(et), entityID)

	ch, err := r.scanChange(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending change: %w", err)
	}
	return ch, nil
}

func (r *SQLiteRepository) Enqueue(ctx context.Context, ch models.PendingChange) error {
	existing, err := r.GetByEntity(ctx, ch.EntityType, ch.EntityID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return err
	}

	if existing == nil {
		payload, err := models.EncodePayload(ch.Payload)
		if err != nil {
			return err
		}
		query := `INSERT INTO pending_changes
				(id, business_id, entity_type, entity_id, sync_id, operation, payload, client_timestamp, retry_count, seq)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?,
				(SELECT COALESCE(MAX(seq), 0) + 1 FROM pending_changes WHERE business_id=?))`
		_, err = r.db.ExecContext(ctx, query,
			ch.ID, r.businessID, string(ch.EntityType), ch.EntityID, ch.SyncID,
			string(ch.Operation), string(payload),
			ch.ClientTimestamp.UTC().Format(timeLayout), ch.RetryCount, r.businessID)
		if err != nil {
			return fmt.Errorf("failed to enqueue change: %w", err)
		}
		return nil
	}

	merged, err := models.MergeChanges(*existing, ch)
	if err != nil {
		return err
	}
	payload, err := models.EncodePayload(merged.Payload)
	if err != nil {
		return err
	}

	// In-place update keeps the entry's queue position (seq). A fresh edit
	// also re-arms a conflicted entry: the new version is the user's
	// resolution and gets pushed again.
	_, err = r.db.ExecContext(ctx,
		`UPDATE pending_changes SET operation=?, payload=?, client_timestamp=?, conflicted=0
		 WHERE business_id=? AND id=?`,
		string(merged.Operation), string(payload),
		merged.ClientTimestamp.UTC().Format(timeLayout), r.businessID, merged.ID)
	if err != nil {
		return fmt.Errorf("failed to merge pending change: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Dequeue(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM pending_changes WHERE business_id=? AND id=?`, r.businessID, id)
	if err != nil {
		return fmt.Errorf("failed to dequeue change: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) All(ctx context.Context) ([]models.PendingChange, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, entity_type, entity_id, sync_id, operation, payload, client_timestamp, retry_count, conflicted
		 FROM pending_changes WHERE business_id=? ORDER BY seq`,
		r.businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to select pending changes: %w", err)
	}
	defer rows.Close()

	var result []models.PendingChange
	for rows.Next() {
		ch, err := r.scanChange(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *ch)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pending_changes WHERE business_id=?`, r.businessID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending changes: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) MarkConflicted(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE pending_changes SET conflicted = 1, retry_count = retry_count + 1
		 WHERE business_id=? AND id=?`,
		r.businessID, id)
	if err != nil {
		return fmt.Errorf("failed to mark change conflicted: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) IncrementRetry(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE pending_changes SET retry_count = retry_count + 1 WHERE business_id=? AND id=?`,
		r.businessID, id)
	if err != nil {
		return fmt.Errorf("failed to increment retry count: %w", err)
	}
	return nil
}
