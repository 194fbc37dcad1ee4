// Package repomanager vends the server's repository set over one backing
// store: Postgres in production, maps in tests.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/pawkit/pawkit/internal/server/repositories/records"
	"github.com/pawkit/pawkit/internal/server/repositories/sessions"
	"github.com/pawkit/pawkit/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Conn() *sql.DB
	Users() users.Repository
	Records() records.Repository
	Sessions() sessions.Repository
}
