package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vnprr/SnapDish/internal/calculator"
	"github.com/vnprr/SnapDish/internal/models"
	"github.com/vnprr/SnapDish/internal/storage"
)

// MealOptions tunes ledger policy.
type MealOptions struct {
	// RestrictIngredientsToOwner rejects ingredient additions from anyone
	// but the meal's owner with ErrForbidden.
	RestrictIngredientsToOwner bool
}

// MealService implements the meal ledger.
type MealService struct {
	store  storage.Store
	opts   MealOptions
	logger *slog.Logger
	now    func() time.Time
}

// NewMealService creates a new MealService with the given storage backend.
func NewMealService(store storage.Store, opts MealOptions, logger *slog.Logger) *MealService {
	return &MealService{
		store:  store,
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}
}

// NewMeal carries the fields of a meal being logged.
type NewMeal struct {
	Name     string
	Calories int
	// Time defaults to now when nil.
	Time  *time.Time
	Image []byte
}

// CreateMeal logs a meal owned by ownerID with an empty ingredient list.
func (s *MealService) CreateMeal(ctx context.Context, ownerID string, in NewMeal) (*models.Meal, error) {
	at := s.now().UTC()
	if in.Time != nil {
		at = in.Time.UTC()
	}

	meal := &models.Meal{
		UserID:        ownerID,
		Name:          in.Name,
		IngredientIDs: []string{},
		Calories:      in.Calories,
		Image:         in.Image,
		Time:          at,
	}

	if err := s.store.CreateMeal(ctx, meal); err != nil {
		s.logger.Error("CreateMeal failed", "user_id", ownerID, "error", err)
		return nil, err
	}

	s.logger.Info("Meal created", "meal_id", meal.ID, "user_id", ownerID, "calories", meal.Calories)
	return meal, nil
}

// UpdateMeal applies patch to a meal owned by ownerID.
// Returns storage.ErrNotFound or ErrForbidden without touching the meal.
func (s *MealService) UpdateMeal(ctx context.Context, mealID, ownerID string, patch models.MealPatch) error {
	meal, err := s.store.GetMeal(ctx, mealID)
	if err != nil {
		return err
	}
	if meal.UserID != ownerID {
		s.logger.Warn("UpdateMeal denied", "meal_id", mealID, "user_id", ownerID)
		return ErrForbidden
	}

	if patch.Time != nil {
		at := patch.Time.UTC()
		patch.Time = &at
	}

	if err := s.store.UpdateMeal(ctx, mealID, patch); err != nil {
		s.logger.Error("UpdateMeal failed", "meal_id", mealID, "error", err)
		return err
	}

	s.logger.Info("Meal updated", "meal_id", mealID)
	return nil
}

// IngredientInput is one ingredient to attach to a meal.
type IngredientInput struct {
	Name     string
	Calories int
}

// AddIngredients attaches items to a meal in input order and raises its
// calorie total by their sum. Returns the updated meal.
func (s *MealService) AddIngredients(ctx context.Context, mealID, callerID string, items []IngredientInput) (*models.Meal, error) {
	ingredients := make([]*models.Ingredient, len(items))
	for i, item := range items {
		ingredients[i] = &models.Ingredient{Name: item.Name, Calories: item.Calories}
	}
	if _, err := calculator.SumIngredients(ingredients); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	meal, err := s.store.GetMeal(ctx, mealID)
	if err != nil {
		return nil, err
	}
	if meal.UserID != callerID {
		if s.opts.RestrictIngredientsToOwner {
			s.logger.Warn("AddIngredients denied", "meal_id", mealID, "user_id", callerID)
			return nil, ErrForbidden
		}
		s.logger.Warn("Ingredients added by non-owner", "meal_id", mealID, "owner_id", meal.UserID, "user_id", callerID)
	}

	updated, err := s.store.AddIngredients(ctx, mealID, ingredients)
	if err != nil {
		s.logger.Error("AddIngredients failed", "meal_id", mealID, "error", err)
		return nil, err
	}

	s.logger.Info("Ingredients added", "meal_id", mealID, "count", len(ingredients), "calories", updated.Calories)
	return updated, nil
}

// ListMeals returns every meal owned by ownerID, newest first.
func (s *MealService) ListMeals(ctx context.Context, ownerID string) ([]*models.Meal, error) {
	meals, err := s.store.ListMealsByUser(ctx, ownerID)
	if err != nil {
		s.logger.Error("ListMeals failed", "user_id", ownerID, "error", err)
		return nil, err
	}
	return meals, nil
}

// ListIngredients returns a meal's ingredients. Only the owner may read them.
func (s *MealService) ListIngredients(ctx context.Context, mealID, ownerID string) ([]*models.Ingredient, error) {
	meal, err := s.store.GetMeal(ctx, mealID)
	if err != nil {
		return nil, err
	}
	if meal.UserID != ownerID {
		return nil, ErrForbidden
	}
	return s.store.ListIngredients(ctx, mealID)
}

// DailySummary groups the owner's meals by calendar day in loc.
func (s *MealService) DailySummary(ctx context.Context, ownerID string, loc *time.Location) ([]models.DaySummary, error) {
	meals, err := s.ListMeals(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return calculator.DailySummary(meals, loc), nil
}
