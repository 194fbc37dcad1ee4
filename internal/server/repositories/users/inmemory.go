package users

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pawkit/pawkit/internal/common"
	"github.com/pawkit/pawkit/internal/server/models"
)

type InMemoryRepository struct {
	mu      sync.RWMutex
	byLogin map[string]models.User
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{byLogin: make(map[string]models.User)}
}

func (r *InMemoryRepository) Create(_ context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byLogin[user.Login]; ok {
		return nil, common.ErrLoginAlreadyExists
	}

	user.ID = uuid.NewString()
	user.CreatedAt = time.Now().UTC()
	r.byLogin[user.Login] = *user
	return user, nil
}

func (r *InMemoryRepository) GetByLogin(_ context.Context, login string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byLogin[login]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := user
	return &cp, nil
}
