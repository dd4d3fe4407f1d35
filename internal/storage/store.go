// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/vnprr/SnapDish/internal/models"
)

var (
	// ErrNotFound is returned when a user, meal or ingredient does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique field (user email) is already taken.
	ErrConflict = errors.New("already exists")
)

// Store defines the persistence operations for users, meals and ingredients.
// This abstraction allows swapping storage backends (SQLite, MongoDB)
// without changing the service layer.
type Store interface {
	// CreateUser persists a new user. Returns ErrConflict if the email is taken.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail returns ErrNotFound if no user has the email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID returns ErrNotFound if no user has the id.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// CreateMeal persists a new meal. The ID is generated when empty.
	CreateMeal(ctx context.Context, meal *models.Meal) error

	// GetMeal returns ErrNotFound if the meal does not exist.
	GetMeal(ctx context.Context, mealID string) (*models.Meal, error)

	// UpdateMeal applies a partial update. Returns ErrNotFound if the meal
	// does not exist.
	UpdateMeal(ctx context.Context, mealID string, patch models.MealPatch) error

	// AddIngredients inserts the ingredients, appends their IDs to the meal
	// and increments its calories by their sum as one atomic step.
	// Ingredient IDs are generated when empty. Returns the updated meal.
	AddIngredients(ctx context.Context, mealID string, ingredients []*models.Ingredient) (*models.Meal, error)

	// ListMealsByUser returns the user's meals, newest first.
	ListMealsByUser(ctx context.Context, userID string) ([]*models.Meal, error)

	// ListIngredients returns a meal's ingredients in the order they were added.
	ListIngredients(ctx context.Context, mealID string) ([]*models.Ingredient, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}
