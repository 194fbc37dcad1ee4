package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/pawkit/pawkit/internal/common"
	"github.com/pawkit/pawkit/internal/server/models"
	"github.com/pawkit/pawkit/internal/server/repositories/users"
)

type UserService struct {
	repo users.Repository
}

func NewUserService(repo users.Repository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) Register(ctx context.Context, login, password string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user, err := s.repo.Create(ctx, &models.User{Login: login, PasswordHash: hash})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials. Unknown login and wrong password yield the same
// error so accounts cannot be enumerated.
func (s *UserService) Login(ctx context.Context, login, password string) (*models.User, error) {
	user, err := s.repo.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrInvalidLoginDetails
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, common.ErrInvalidLoginDetails
	}
	return user, nil
}
