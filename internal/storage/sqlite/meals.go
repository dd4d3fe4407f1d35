package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vnprr/SnapDish/internal/models"
	"github.com/vnprr/SnapDish/internal/storage"
)

// CreateMeal persists a new meal to the database.
func (s *SQLiteStore) CreateMeal(ctx context.Context, meal *models.Meal) error {
	// Generate ID if not set
	if meal.ID == "" {
		meal.ID = uuid.New().String()
	}
	if meal.Time.IsZero() {
		meal.Time = time.Now().UTC()
	}
	if meal.IngredientIDs == nil {
		meal.IngredientIDs = []string{}
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO meals (id, user_id, name, calories, image, time) VALUES (?, ?, ?, ?, ?, ?)",
		meal.ID, meal.UserID, meal.Name, meal.Calories, meal.Image, meal.Time.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert meal: %w", err)
	}

	return nil
}

// GetMeal retrieves a meal by ID, including its ordered ingredient IDs.
func (s *SQLiteStore) GetMeal(ctx context.Context, mealID string) (*models.Meal, error) {
	meal, err := scanMeal(s.db.QueryRowContext(ctx,
		"SELECT id, user_id, name, calories, image, time FROM meals WHERE id = ?",
		mealID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("meal %s: %w", mealID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get meal: %w", err)
	}

	ids, err := s.ingredientIDs(ctx, mealID)
	if err != nil {
		return nil, err
	}
	meal.IngredientIDs = ids

	return meal, nil
}

// UpdateMeal overwrites only the fields set in patch.
func (s *SQLiteStore) UpdateMeal(ctx context.Context, mealID string, patch models.MealPatch) error {
	var (
		sets []string
		args []any
	)
	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Calories != nil {
		sets = append(sets, "calories = ?")
		args = append(args, *patch.Calories)
	}
	if patch.Time != nil {
		sets = append(sets, "time = ?")
		args = append(args, patch.Time.UnixMilli())
	}
	if patch.Image != nil {
		sets = append(sets, "image = ?")
		args = append(args, patch.Image)
	}

	if len(sets) == 0 {
		// Nothing to change, but the meal must still exist.
		_, err := s.GetMeal(ctx, mealID)
		return err
	}

	args = append(args, mealID)
	result, err := s.db.ExecContext(ctx,
		"UPDATE meals SET "+strings.Join(sets, ", ")+" WHERE id = ?",
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to update meal: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("meal %s: %w", mealID, storage.ErrNotFound)
	}

	return nil
}

// AddIngredients inserts ingredients and bumps the meal total in one transaction.
func (s *SQLiteStore) AddIngredients(ctx context.Context, mealID string, ingredients []*models.Ingredient) (*models.Meal, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM meals WHERE id = ?", mealID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("meal %s: %w", mealID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get meal: %w", err)
	}

	var next int
	err = tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(position), -1) + 1 FROM ingredients WHERE meal_id = ?",
		mealID,
	).Scan(&next)
	if err != nil {
		return nil, fmt.Errorf("failed to get ingredient position: %w", err)
	}

	added := 0
	for i, ingredient := range ingredients {
		if ingredient.ID == "" {
			ingredient.ID = uuid.New().String()
		}
		ingredient.MealID = mealID

		_, err = tx.ExecContext(ctx,
			"INSERT INTO ingredients (id, meal_id, position, name, calories) VALUES (?, ?, ?, ?, ?)",
			ingredient.ID, mealID, next+i, ingredient.Name, ingredient.Calories,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert ingredient: %w", err)
		}
		added += ingredient.Calories
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE meals SET calories = calories + ? WHERE id = ?",
		added, mealID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update meal calories: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.GetMeal(ctx, mealID)
}

// ListMealsByUser retrieves all meals owned by userID, newest first.
func (s *SQLiteStore) ListMealsByUser(ctx context.Context, userID string) ([]*models.Meal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, calories, image, time
		 FROM meals
		 WHERE user_id = ?
		 ORDER BY time DESC, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list meals: %w", err)
	}

	meals := []*models.Meal{}
	byID := make(map[string]*models.Meal)
	for rows.Next() {
		meal, err := scanMeal(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan meal: %w", err)
		}
		meal.IngredientIDs = []string{}
		meals = append(meals, meal)
		byID[meal.ID] = meal
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate meals: %w", err)
	}

	// The store runs on a single connection, so ingredient IDs are fetched
	// in one query after the meal rows are closed.
	idRows, err := s.db.QueryContext(ctx,
		`SELECT i.meal_id, i.id
		 FROM ingredients i
		 JOIN meals m ON m.id = i.meal_id
		 WHERE m.user_id = ?
		 ORDER BY i.meal_id, i.position`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list ingredient ids: %w", err)
	}
	defer idRows.Close()

	for idRows.Next() {
		var mealID, id string
		if err := idRows.Scan(&mealID, &id); err != nil {
			return nil, fmt.Errorf("failed to scan ingredient id: %w", err)
		}
		if meal, ok := byID[mealID]; ok {
			meal.IngredientIDs = append(meal.IngredientIDs, id)
		}
	}
	if err := idRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ingredient ids: %w", err)
	}

	return meals, nil
}

// ListIngredients retrieves a meal's ingredients in append order.
func (s *SQLiteStore) ListIngredients(ctx context.Context, mealID string) ([]*models.Ingredient, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, meal_id, name, calories FROM ingredients WHERE meal_id = ? ORDER BY position",
		mealID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list ingredients: %w", err)
	}
	defer rows.Close()

	ingredients := []*models.Ingredient{}
	for rows.Next() {
		ingredient := &models.Ingredient{}
		if err := rows.Scan(&ingredient.ID, &ingredient.MealID, &ingredient.Name, &ingredient.Calories); err != nil {
			return nil, fmt.Errorf("failed to scan ingredient: %w", err)
		}
		ingredients = append(ingredients, ingredient)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ingredients: %w", err)
	}

	return ingredients, nil
}

func (s *SQLiteStore) ingredientIDs(ctx context.Context, mealID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM ingredients WHERE meal_id = ? ORDER BY position",
		mealID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get ingredient ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan ingredient id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ingredient ids: %w", err)
	}

	return ids, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeal(row rowScanner) (*models.Meal, error) {
	meal := &models.Meal{}
	var at int64
	if err := row.Scan(&meal.ID, &meal.UserID, &meal.Name, &meal.Calories, &meal.Image, &at); err != nil {
		return nil, err
	}
	meal.Time = time.UnixMilli(at).UTC()
	return meal, nil
}
