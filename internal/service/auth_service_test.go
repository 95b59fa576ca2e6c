package service

import (
	"context"
	"testing"
	"time"

	"bookstore-service/internal/auth"
	"bookstore-service/internal/models"
	"bookstore-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	ctx := context.Background()
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	svc := NewAuthService(store.NewMemoryStore(), tokens)

	created, err := svc.EnsureUser(ctx, "root", "s3cret", models.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.EnsureUser(ctx, "root", "other", models.RoleAdmin)
	require.NoError(t, err)
	assert.False(t, created)

	res, err := svc.Login(ctx, models.RoleAdmin, &LoginRequest{Username: "root", Password: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, "root", res.User.Username)

	p, err := tokens.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, p.Role)
	assert.Equal(t, res.User.ID, p.ID)
}

func TestLoginFailures(t *testing.T) {
	ctx := context.Background()
	svc := NewAuthService(store.NewMemoryStore(), auth.NewTokenManager("test-secret", time.Hour))
	_, err := svc.EnsureUser(ctx, "alice", "pw", models.RoleSeller)
	require.NoError(t, err)

	_, err = svc.Login(ctx, models.RoleSeller, &LoginRequest{Username: "alice", Password: "wrong"})
	require.ErrorIs(t, err, models.ErrUnauthorized)
	assert.Equal(t, "Invalid password!", err.Error())

	_, err = svc.Login(ctx, models.RoleSeller, &LoginRequest{Username: "nobody", Password: "pw"})
	require.ErrorIs(t, err, models.ErrNotFound)
	assert.Equal(t, "Seller not found!", err.Error())

	// A seller account cannot log in as admin.
	_, err = svc.Login(ctx, models.RoleAdmin, &LoginRequest{Username: "alice", Password: "pw"})
	require.ErrorIs(t, err, models.ErrNotFound)
	assert.Equal(t, "Admin not found!", err.Error())
}

func TestEnsureUserValidation(t *testing.T) {
	svc := NewAuthService(store.NewMemoryStore(), auth.NewTokenManager("test-secret", time.Hour))

	_, err := svc.EnsureUser(context.Background(), "u", "p", "customer")
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.EnsureUser(context.Background(), "", "p", models.RoleAdmin)
	assert.ErrorIs(t, err, models.ErrValidation)
}
