package repomanager

import (
	"context"
	"database/sql"

	"github.com/pawkit/pawkit/internal/server/repositories/records"
	"github.com/pawkit/pawkit/internal/server/repositories/sessions"
	"github.com/pawkit/pawkit/internal/server/repositories/users"
)

// InMemoryRepositoryManager backs the repository set with maps. Used by
// service and handler tests.
type InMemoryRepositoryManager struct {
	users    users.Repository
	records  records.Repository
	sessions sessions.Repository
}

func (m *InMemoryRepositoryManager) Conn() *sql.DB {
	return nil
}

func (m *InMemoryRepositoryManager) RunMigrations(ctx context.Context) error {
	return nil
}

func (m *InMemoryRepositoryManager) Users() users.Repository {
	return m.users
}

func (m *InMemoryRepositoryManager) Records() records.Repository {
	return m.records
}

func (m *InMemoryRepositoryManager) Sessions() sessions.Repository {
	return m.sessions
}

func NewInMemoryRepositoryManager() RepositoryManager {
	return &InMemoryRepositoryManager{
		users:    users.NewInMemoryRepository(),
		records:  records.NewInMemoryRepository(),
		sessions: sessions.NewInMemoryRepository(),
	}
}
