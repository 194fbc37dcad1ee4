package meta

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pawkit/pawkit/internal/common"
	"github.com/pawkit/pawkit/internal/dbx"
)

const (
	checkpointKeyPrefix = "checkpoint:"
	deviceIDKey         = "device_id"

	timeLayout = "2006-01-02T15:04:05.000000000Z"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrNotFound
		}
		return "", fmt.Errorf("failed to select meta key: %w", err)
	}
	return value, nil
}

func (r *SQLiteRepository) Set(ctx context.Context, key, value string) error {
	query := `INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value`
	if _, err := r.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set meta key: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Checkpoint(ctx context.Context, workspaceID string) (time.Time, error) {
	value, err := r.Get(ctx, checkpointKeyPrefix+workspaceID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("corrupt checkpoint value: %w", err)
	}
	return ts, nil
}

func (r *SQLiteRepository) SetCheckpoint(ctx context.Context, workspaceID string, ts time.Time) error {
	return r.Set(ctx, checkpointKeyPrefix+workspaceID, ts.UTC().Format(timeLayout))
}

func (r *SQLiteRepository) ResetCheckpoint(ctx context.Context, workspaceID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM meta WHERE key = ?`, checkpointKeyPrefix+workspaceID); err != nil {
		return fmt.Errorf("failed to reset checkpoint: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeviceID(ctx context.Context) (string, error) {
	id, err := r.Get(ctx, deviceIDKey)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return "", err
	}

	id = uuid.NewString()
	if err := r.Set(ctx, deviceIDKey, id); err != nil {
		return "", err
	}
	return id, nil
}
