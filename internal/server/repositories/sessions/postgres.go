package sessions

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pawkit/pawkit/internal/models"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, workspaceID string, session *models.DeviceSession) error {
	query := `
		INSERT INTO sessions (workspace_id, device_id, session_id, device_name, client, os, last_seen)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (workspace_id, device_id) DO UPDATE SET
			session_id = EXCLUDED.session_id,
			device_name = EXCLUDED.device_name,
			client = EXCLUDED.client,
			os = EXCLUDED.os,
			last_seen = EXCLUDED.last_seen`

	_, err := r.db.ExecContext(ctx, query,
		workspaceID, session.DeviceID, session.SessionID,
		session.DeviceName, session.Client, session.OS, session.LastSeen.UTC())
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListActive(ctx context.Context, workspaceID string, cutoff time.Time) ([]models.DeviceSession, error) {
	query := `
		SELECT device_id, session_id, device_name, client, os, last_seen
		FROM sessions
		WHERE workspace_id = $1 AND last_seen > $2
		ORDER BY last_seen DESC`

	rows, err := r.db.QueryContext(ctx, query, workspaceID, cutoff.UTC())
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	defer rows.Close()

	var result []models.DeviceSession
	for rows.Next() {
		var s models.DeviceSession
		if err := rows.Scan(&s.DeviceID, &s.SessionID, &s.DeviceName, &s.Client, &s.OS, &s.LastSeen); err != nil {
			return nil, err
		}
		s.LastSeen = s.LastSeen.UTC()
		result = append(result, s)
	}
	return result, rows.Err()
}
