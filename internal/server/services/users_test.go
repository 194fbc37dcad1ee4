package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawkit/pawkit/internal/common"
	"github.com/pawkit/pawkit/internal/server/repositories/users"
)

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(users.NewInMemoryRepository())

	user, err := svc.Register(ctx, "alice", "correct horse battery")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "alice", user.Workspace())
	// never store the plaintext
	assert.NotContains(t, string(user.PasswordHash), "correct horse battery")

	got, err := svc.Login(ctx, "alice", "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestRegisterDuplicateLogin(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(users.NewInMemoryRepository())

	_, err := svc.Register(ctx, "alice", "password-one")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice", "password-two")
	require.ErrorIs(t, err, common.ErrLoginAlreadyExists)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(users.NewInMemoryRepository())

	_, err := svc.Register(ctx, "alice", "secret-password")
	require.NoError(t, err)

	_, wrongPassword := svc.Login(ctx, "alice", "not-the-password")
	_, unknownUser := svc.Login(ctx, "bob", "whatever")

	require.ErrorIs(t, wrongPassword, common.ErrInvalidLoginDetails)
	require.ErrorIs(t, unknownUser, common.ErrInvalidLoginDetails)
}
