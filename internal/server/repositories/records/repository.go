// Package records stores the server's authoritative copy of synced records,
// scoped by workspace. Repositories are plain storage; the last-write-wins
// merge rule lives in the records service.
package records

import (
	"context"
	"time"

	"github.com/pawkit/pawkit/internal/models"
)

type Repository interface {
	// Get fetches one record, tombstoned or not. Returns common.ErrNotFound
	// when absent.
	Get(ctx context.Context, workspaceID string, kind models.Kind, id string) (*models.Record, error)

	// Upsert writes a record unconditionally.
	Upsert(ctx context.Context, rec *models.Record) error

	// Changed lists records of one kind modified strictly after since,
	// tombstones included, ordered by updated_at. A zero since lists all.
	Changed(ctx context.Context, workspaceID string, kind models.Kind, since time.Time) ([]models.Record, error)

	// Purge removes a record permanently.
	Purge(ctx context.Context, workspaceID string, kind models.Kind, id string) error
}
