package sessions

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pawkit/pawkit/internal/models"
)

type sessionKey struct {
	workspace string
	device    string
}

type InMemoryRepository struct {
	mu   sync.RWMutex
	data map[sessionKey]models.DeviceSession
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{data: make(map[sessionKey]models.DeviceSession)}
}

func (r *InMemoryRepository) Upsert(_ context.Context, workspaceID string, session *models.DeviceSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.data[sessionKey{workspaceID, session.DeviceID}] = *session
	return nil
}

func (r *InMemoryRepository) ListActive(_ context.Context, workspaceID string, cutoff time.Time) ([]models.DeviceSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []models.DeviceSession
	for key, s := range r.data {
		if key.workspace == workspaceID && s.LastSeen.After(cutoff) {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].LastSeen.After(result[j].LastSeen)
	})
	return result, nil
}
