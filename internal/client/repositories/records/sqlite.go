package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pawkit/pawkit/internal/common"
	"github.com/pawkit/pawkit/internal/dbx"
	"github.com/pawkit/pawkit/internal/models"
)

// SQLiteRepository stores records in the client's local SQLite database.
// It is bound to a dbx.DBTX so callers can share a transaction between the
// optimistic write and the queue entry.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Upsert(ctx context.Context, rec *models.Record) error {
	query := `
		INSERT INTO records (id, workspace_id, kind, payload, created_at, updated_at, deleted, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (kind, id)
		DO UPDATE SET
			workspace_id = excluded.workspace_id,
			payload = excluded.payload,
			updated_at = excluded.updated_at,
			deleted = excluded.deleted,
			deleted_at = excluded.deleted_at
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.WorkspaceID, string(rec.Kind), string(rec.Payload),
		formatTime(rec.CreatedAt), formatTime(rec.UpdatedAt),
		boolToInt(rec.Deleted), formatTimePtr(rec.DeletedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert record: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Merge(ctx context.Context, rec *models.Record) (bool, error) {
	existing, err := r.GetByID(ctx, rec.Kind, rec.ID)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			return false, err
		}
		// absent locally, insert
		return true, r.Upsert(ctx, rec)
	}

	// remote wins only if strictly newer; ties keep the local copy so an
	// in-flight local edit is never clobbered
	if !rec.NewerThan(existing) {
		return false, nil
	}
	return true, r.Upsert(ctx, rec)
}

func (r *SQLiteRepository) GetByID(ctx context.Context, kind models.Kind, id string) (*models.Record, error) {
	query := `
		SELECT id, workspace_id, kind, payload, created_at, updated_at, deleted, deleted_at
		FROM records WHERE kind = ? AND id = ?
	`
	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, string(kind), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to select record: %w", err)
	}
	return rec, nil
}

func (r *SQLiteRepository) List(ctx context.Context, kind models.Kind, includeDeleted bool) ([]*models.Record, error) {
	query := `
		SELECT id, workspace_id, kind, payload, created_at, updated_at, deleted, deleted_at
		FROM records WHERE kind = ?
	`
	if !includeDeleted {
		query += ` AND deleted = 0`
	}
	query += ` ORDER BY updated_at DESC`

	return r.queryRecords(ctx, query, string(kind))
}

func (r *SQLiteRepository) ListWorkspace(ctx context.Context, workspaceID string) ([]*models.Record, error) {
	query := `
		SELECT id, workspace_id, kind, payload, created_at, updated_at, deleted, deleted_at
		FROM records WHERE workspace_id = ? ORDER BY kind, updated_at DESC
	`
	return r.queryRecords(ctx, query, workspaceID)
}

func (r *SQLiteRepository) SoftDelete(ctx context.Context, kind models.Kind, id string, at time.Time) error {
	query := `UPDATE records SET deleted = 1, deleted_at = ?, updated_at = ? WHERE kind = ? AND id = ?`
	result, err := r.db.ExecContext(ctx, query, formatTime(at), formatTime(at), string(kind), id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) Purge(ctx context.Context, kind models.Kind, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE kind = ? AND id = ?`, string(kind), id)
	if err != nil {
		return fmt.Errorf("failed to purge record: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) queryRecords(ctx context.Context, query string, args ...any) ([]*models.Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select records: %w", err)
	}
	defer rows.Close()

	var result []*models.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.Record, error) {
	var rec models.Record
	var kind, payload, createdAt, updatedAt string
	var deleted int
	var deletedAt sql.NullString

	if err := row.Scan(&rec.ID, &rec.WorkspaceID, &kind, &payload, &createdAt, &updatedAt, &deleted, &deletedAt); err != nil {
		return nil, err
	}

	rec.Kind = models.Kind(kind)
	rec.Payload = []byte(payload)
	rec.Deleted = deleted != 0

	var err error
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if deletedAt.Valid {
		ts, err := parseTime(deletedAt.String)
		if err != nil {
			return nil, err
		}
		rec.DeletedAt = &ts
	}
	return &rec, nil
}

// Timestamps are stored as fixed-width UTC strings so lexical ordering in
// SQL matches chronological ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

// parseTime accepts RFC3339Nano, which timeLayout is a fixed-width subset of.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
