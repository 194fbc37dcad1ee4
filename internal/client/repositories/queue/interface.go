package queue

import (
	"context"

	"github.com/pawkit/pawkit/internal/models"
)

// Repository is the durable FIFO of pending local writes. Entries survive
// process restarts and are removed only after a confirmed server response.
// Ordering is by assigned sequence number; entries for the same record are
// never reordered.
type Repository interface {
	// Enqueue appends a mutation and never blocks on the network.
	Enqueue(ctx context.Context, m *models.Mutation) error

	// Head returns the oldest entry, or common.ErrNotFound when empty.
	Head(ctx context.Context) (*models.Mutation, error)

	// Remove deletes a confirmed entry by sequence number.
	Remove(ctx context.Context, seq int64) error

	// Len reports the pending count. Read-only, used for UI badges and
	// trigger decisions.
	Len(ctx context.Context) (int, error)

	// All returns every pending entry in FIFO order.
	All(ctx context.Context) ([]*models.Mutation, error)
}
