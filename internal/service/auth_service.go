// Package service implements the account and meal ledger operations on top
// of a storage backend. Services are transport-neutral: callers pass the
// authenticated user ID explicitly.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vnprr/SnapDish/internal/auth"
	"github.com/vnprr/SnapDish/internal/models"
	"github.com/vnprr/SnapDish/internal/storage"
)

// AuthService registers users, issues session tokens and resolves them.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	users         auth.UserStorage
	logger        *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, users auth.UserStorage, logger *slog.Logger) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		users:         users,
		logger:        logger,
	}
}

// Register creates a new user account.
func (s *AuthService) Register(ctx context.Context, email, password string) (*models.User, error) {
	s.logger.Info("Register request", "email", email)

	user, err := s.authenticator.Register(ctx, email, password)
	if err != nil {
		s.logger.Warn("Registration failed", "email", email, "error", err)
		return nil, err
	}

	s.logger.Info("User registered successfully", "user_id", user.ID, "email", user.Email)
	return user, nil
}

// Login authenticates a user and returns a signed session token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	s.logger.Info("Login request", "email", email)

	user, err := s.authenticator.Authenticate(ctx, email, password)
	if err != nil {
		s.logger.Warn("Login failed", "email", email, "error", err)
		return "", err
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return "", err
	}

	s.logger.Info("User logged in successfully", "user_id", user.ID)
	return token, nil
}

// Resolve maps a session token to its user. The token must carry a valid
// signature and expiry, and the user it names must still exist.
func (s *AuthService) Resolve(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, auth.ErrMissingToken
	}

	claims, err := s.jwtManager.Validate(token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown user", auth.ErrInvalidToken)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}

	return user, nil
}
