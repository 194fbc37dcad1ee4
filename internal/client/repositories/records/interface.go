package records

import (
	"context"
	"time"

	"github.com/pawkit/pawkit/internal/models"
)

// Repository is the local mirror of server records. Implementations must
// guarantee single-record write atomicity; the merge rule (last-write-wins by
// updated timestamp, ties keep local) is the same one the server applies, so
// both ends of the sync converge.
type Repository interface {
	// Upsert writes a record unconditionally. Used by optimistic local
	// mutations and by queue-drain reconciliation, where the caller already
	// decided the write must land.
	Upsert(ctx context.Context, rec *models.Record) error

	// Merge applies a remote record using last-write-wins: inserted when
	// absent, replaced when the remote copy is strictly newer, kept local
	// otherwise. Reports whether the remote copy was applied.
	Merge(ctx context.Context, rec *models.Record) (bool, error)

	// GetByID fetches one record, deleted or not.
	GetByID(ctx context.Context, kind models.Kind, id string) (*models.Record, error)

	// List returns records of one kind. Soft-deleted records are only
	// included when includeDeleted is set (trash view).
	List(ctx context.Context, kind models.Kind, includeDeleted bool) ([]*models.Record, error)

	// ListWorkspace returns every record in a workspace, used for backup
	// export.
	ListWorkspace(ctx context.Context, workspaceID string) ([]*models.Record, error)

	// SoftDelete marks a record deleted at the given time.
	SoftDelete(ctx context.Context, kind models.Kind, id string, at time.Time) error

	// Purge removes a record permanently.
	Purge(ctx context.Context, kind models.Kind, id string) error
}
