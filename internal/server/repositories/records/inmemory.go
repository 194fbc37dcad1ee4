package records

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pawkit/pawkit/internal/common"
	"github.com/pawkit/pawkit/internal/models"
)

type recordKey struct {
	workspace string
	kind      models.Kind
	id        string
}

// InMemoryRepository is the map-backed implementation used in tests and by
// the in-memory repository manager.
type InMemoryRepository struct {
	mu   sync.RWMutex
	data map[recordKey]models.Record
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{data: make(map[recordKey]models.Record)}
}

func (r *InMemoryRepository) Get(_ context.Context, workspaceID string, kind models.Kind, id string) (*models.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.data[recordKey{workspaceID, kind, id}]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := rec
	return &cp, nil
}

func (r *InMemoryRepository) Upsert(_ context.Context, rec *models.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.data[recordKey{rec.WorkspaceID, rec.Kind, rec.ID}] = *rec
	return nil
}

func (r *InMemoryRepository) Changed(_ context.Context, workspaceID string, kind models.Kind, since time.Time) ([]models.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []models.Record
	for key, rec := range r.data {
		if key.workspace == workspaceID && key.kind == kind && rec.UpdatedAt.After(since) {
			result = append(result, rec)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.Before(result[j].UpdatedAt)
	})
	return result, nil
}

func (r *InMemoryRepository) Purge(_ context.Context, workspaceID string, kind models.Kind, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := recordKey{workspaceID, kind, id}
	if _, ok := r.data[key]; !ok {
		return common.ErrNotFound
	}
	delete(r.data, key)
	return nil
}
