// Package sessions persists per-device heartbeat state.
package sessions

import (
	"context"
	"time"

	"github.com/pawkit/pawkit/internal/models"
)

type Repository interface {
	// Upsert records a heartbeat: insert on first contact, refresh last_seen
	// and labels afterwards. Keyed by (workspace, device).
	Upsert(ctx context.Context, workspaceID string, session *models.DeviceSession) error

	// ListActive returns sessions whose last heartbeat is after the cutoff,
	// most recent first.
	ListActive(ctx context.Context, workspaceID string, cutoff time.Time) ([]models.DeviceSession, error)
}
