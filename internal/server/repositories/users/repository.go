// Package users persists accounts.
package users

import (
	"context"

	"github.com/pawkit/pawkit/internal/server/models"
)

type Repository interface {
	// Create inserts a new account. A duplicate login yields
	// common.ErrLoginAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByLogin returns the account or common.ErrNotFound.
	GetByLogin(ctx context.Context, login string) (*models.User, error)
}
