package meta

import (
	"context"
	"time"
)

// Repository is a small key/value table backing client-side sync state: the
// per-workspace delta checkpoint and the persisted device id.
type Repository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error

	// Checkpoint returns the timestamp of the last fully merged delta pull
	// for a workspace, or the zero time when no pull has completed yet.
	Checkpoint(ctx context.Context, workspaceID string) (time.Time, error)

	// SetCheckpoint advances the checkpoint. Callers must only invoke it
	// after a pull batch merged completely; it is never rewound except by
	// ResetCheckpoint.
	SetCheckpoint(ctx context.Context, workspaceID string, ts time.Time) error

	// ResetCheckpoint clears the checkpoint to force a full resync.
	ResetCheckpoint(ctx context.Context, workspaceID string) error

	// DeviceID returns the persisted device id, generating and storing one
	// on first use.
	DeviceID(ctx context.Context) (string, error)
}
