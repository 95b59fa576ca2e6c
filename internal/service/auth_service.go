package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bookstore-service/internal/auth"
	"bookstore-service/internal/models"
	"bookstore-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LoginRequest is a username/password login
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResult is a signed token and the account it was issued for
type LoginResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// AuthService logs in admins and sellers
type AuthService struct {
	users  UserRepository
	tokens *auth.TokenManager
	logger *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(users UserRepository, tokens *auth.TokenManager) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		logger: util.GetLogger(),
	}
}

// Login checks credentials for an account of the given role and issues a
// bearer token
func (s *AuthService) Login(ctx context.Context, role string, req *LoginRequest) (*LoginResult, error) {
	user, err := s.users.GetUserByUsername(ctx, req.Username, role)
	if errors.Is(err, models.ErrNotFound) {
		util.LoginAttemptsTotal.WithLabelValues(role, "unknown_user").Inc()
		return nil, models.Errorf(models.ErrNotFound, "%s not found!", roleTitle(role))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		util.LoginAttemptsTotal.WithLabelValues(role, "bad_password").Inc()
		s.logger.Info("Login rejected", zap.String("username", req.Username), zap.String("role", role))
		return nil, models.Errorf(models.ErrUnauthorized, "Invalid password!")
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}

	util.LoginAttemptsTotal.WithLabelValues(role, "ok").Inc()
	s.logger.Info("Login succeeded", zap.String("username", user.Username), zap.String("role", role))
	return &LoginResult{Token: token, User: user}, nil
}

// EnsureUser creates an account unless one with the same username and role
// exists. It reports whether a new account was created.
func (s *AuthService) EnsureUser(ctx context.Context, username, password, role string) (bool, error) {
	if role != models.RoleAdmin && role != models.RoleSeller {
		return false, models.Errorf(models.ErrValidation, "unknown role %q", role)
	}
	if username == "" || password == "" {
		return false, models.Errorf(models.ErrValidation, "username and password are required")
	}

	_, err := s.users.GetUserByUsername(ctx, username, role)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return false, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return false, err
	}
	user := &models.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, models.ErrConflict) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create user: %w", err)
	}
	return true, nil
}

func roleTitle(role string) string {
	if role == "" {
		return "User"
	}
	return strings.ToUpper(role[:1]) + role[1:]
}
