// Package handler provides the HTTP handlers and router for the SnapDish API.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/vnprr/SnapDish/internal/auth"
	"github.com/vnprr/SnapDish/internal/models"
	apierrors "github.com/vnprr/SnapDish/internal/pkg/errors"
	"github.com/vnprr/SnapDish/internal/pkg/response"
	"github.com/vnprr/SnapDish/internal/service"
	"github.com/vnprr/SnapDish/internal/storage"
	"github.com/vnprr/SnapDish/internal/vision"
)

// AuthService is the account surface the handlers need.
type AuthService interface {
	Register(ctx context.Context, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, error)
	Resolve(ctx context.Context, token string) (*models.User, error)
}

// MealService is the meal ledger surface the handlers need.
type MealService interface {
	CreateMeal(ctx context.Context, ownerID string, in service.NewMeal) (*models.Meal, error)
	UpdateMeal(ctx context.Context, mealID, ownerID string, patch models.MealPatch) error
	AddIngredients(ctx context.Context, mealID, callerID string, items []service.IngredientInput) (*models.Meal, error)
	ListMeals(ctx context.Context, ownerID string) ([]*models.Meal, error)
	ListIngredients(ctx context.Context, mealID, ownerID string) ([]*models.Ingredient, error)
	DailySummary(ctx context.Context, ownerID string, loc *time.Location) ([]models.DaySummary, error)
}

// Analyzer classifies a food photo and estimates its calories.
type Analyzer interface {
	Analyze(ctx context.Context, data []byte) (*vision.Prediction, error)
}

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// writeError maps domain errors to API errors. forbidden is the message
// used when the caller does not own the meal.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error, forbidden string) {
	switch {
	case apierrors.IsAPIError(err):
		response.Error(w, err)
	case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrWeakPassword):
		response.BadRequest(w, capitalize(err.Error()))
	case errors.Is(err, auth.ErrEmailExists):
		response.Error(w, apierrors.NewConflictError("Email already registered"))
	case errors.Is(err, auth.ErrInvalidCredentials):
		response.Unauthorized(w, "Invalid email or password")
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrMissingToken):
		response.Unauthorized(w, "Invalid authentication credentials")
	case errors.Is(err, storage.ErrNotFound):
		response.NotFound(w, "Meal")
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(w, forbidden)
	case errors.Is(err, service.ErrInvalidInput):
		response.BadRequest(w, capitalize(err.Error()))
	case errors.Is(err, vision.ErrInvalidImage):
		response.BadRequest(w, capitalize(err.Error()))
	case errors.Is(err, vision.ErrPrediction):
		logger.Error("prediction failed", "error", err)
		response.Error(w, apierrors.NewInternalError(capitalize(err.Error())))
	default:
		logger.Error("request failed", "error", err)
		response.InternalError(w)
	}
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
