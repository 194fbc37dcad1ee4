package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pawkit/pawkit/internal/common"
	"github.com/pawkit/pawkit/internal/models"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, workspaceID string, kind models.Kind, id string) (*models.Record, error) {
	query := `
		SELECT id, workspace_id, kind, payload, created_at, updated_at, deleted, deleted_at
		FROM records
		WHERE workspace_id = $1 AND kind = $2 AND id = $3`

	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, workspaceID, kind, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	return rec, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, rec *models.Record) error {
	query := `
		INSERT INTO records (workspace_id, kind, id, payload, created_at, updated_at, deleted, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (workspace_id, kind, id) DO UPDATE SET
			payload = EXCLUDED.payload,
			updated_at = EXCLUDED.updated_at,
			deleted = EXCLUDED.deleted,
			deleted_at = EXCLUDED.deleted_at`

	_, err := r.db.ExecContext(ctx, query,
		rec.WorkspaceID, rec.Kind, rec.ID, []byte(rec.Payload),
		rec.CreatedAt.UTC(), rec.UpdatedAt.UTC(), rec.Deleted, nullableTime(rec.DeletedAt))
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Changed(ctx context.Context, workspaceID string, kind models.Kind, since time.Time) ([]models.Record, error) {
	query := `
		SELECT id, workspace_id, kind, payload, created_at, updated_at, deleted, deleted_at
		FROM records
		WHERE workspace_id = $1 AND kind = $2 AND updated_at > $3
		ORDER BY updated_at`

	rows, err := r.db.QueryContext(ctx, query, workspaceID, kind, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	var result []models.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rec)
	}
	return result, rows.Err()
}

func (r *PostgresRepository) Purge(ctx context.Context, workspaceID string, kind models.Kind, id string) error {
	query := `DELETE FROM records WHERE workspace_id = $1 AND kind = $2 AND id = $3`

	res, err := r.db.ExecContext(ctx, query, workspaceID, kind, id)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.Record, error) {
	var rec models.Record
	var payload []byte
	var deletedAt sql.NullTime

	err := row.Scan(&rec.ID, &rec.WorkspaceID, &rec.Kind, &payload,
		&rec.CreatedAt, &rec.UpdatedAt, &rec.Deleted, &deletedAt)
	if err != nil {
		return nil, err
	}

	rec.Payload = json.RawMessage(payload)
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	if deletedAt.Valid {
		t := deletedAt.Time.UTC()
		rec.DeletedAt = &t
	}
	return &rec, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
