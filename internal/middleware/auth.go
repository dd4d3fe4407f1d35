// Package middleware provides HTTP middleware for the SnapDish API.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vnprr/SnapDish/internal/auth"
	"github.com/vnprr/SnapDish/internal/models"
	"github.com/vnprr/SnapDish/internal/pkg/response"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// UserIDKey is the context key for storing the authenticated user ID.
	UserIDKey contextKey = "user_id"
	// EmailKey is the context key for storing the authenticated user's email.
	EmailKey contextKey = "email"
)

// GetUserID extracts the user ID from the context.
// Returns empty string if not found.
func GetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDKey).(string)
	return userID
}

// GetEmail extracts the user email from the context.
// Returns empty string if not found.
func GetEmail(ctx context.Context) string {
	email, _ := ctx.Value(EmailKey).(string)
	return email
}

// WithUser returns a copy of ctx carrying the user's ID and email.
func WithUser(ctx context.Context, user *models.User) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, user.ID)
	return context.WithValue(ctx, EmailKey, user.Email)
}

// TokenResolver maps a bearer token to its user.
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (*models.User, error)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The scheme is matched case-insensitively.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RequireAuth returns a middleware that resolves the bearer token and
// rejects the request with 401 when it is missing or invalid. The resolved
// user's ID and email are added to the request context.
func RequireAuth(resolver TokenResolver, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				response.Unauthorized(w, "Not authenticated")
				return
			}

			user, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrMissingToken) {
					response.Unauthorized(w, "Invalid authentication credentials")
					return
				}
				logger.Error("failed to resolve token", "error", err)
				response.InternalError(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}
