package mongo

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnprr/SnapDish/internal/models"
	"github.com/vnprr/SnapDish/internal/storage"
)

// newTestStore connects to SNAPDISH_TEST_MONGO_URI and uses a throwaway
// database. Tests are skipped when no server is configured.
func newTestStore(t *testing.T) *MongoStore {
	t.Helper()

	uri := os.Getenv("SNAPDISH_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("SNAPDISH_TEST_MONGO_URI not set")
	}

	ctx := context.Background()
	database := "snapdish_test_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
	store, err := Connect(ctx, uri, database)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Drop(context.Background())
		_ = store.Close()
	})

	return store
}

func TestMongoStore_Users(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := models.NewUser("alice@example.com", "hash")
	require.NoError(t, store.CreateUser(ctx, user))

	got, err := store.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)

	_, err = store.GetUserByID(ctx, user.ID)
	require.NoError(t, err)

	err = store.CreateUser(ctx, models.NewUser("alice@example.com", "other"))
	assert.ErrorIs(t, err, storage.ErrConflict)

	_, err = store.GetUserByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMongoStore_Meals(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	older := &models.Meal{UserID: "u1", Name: "Breakfast", Calories: 500,
		Time: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)}
	newer := &models.Meal{UserID: "u1", Name: "Dinner", Calories: 700,
		Time: time.Date(2024, 6, 1, 19, 0, 0, 0, time.UTC)}
	foreign := &models.Meal{UserID: "u2", Name: "Lunch", Calories: 300}
	for _, m := range []*models.Meal{older, newer, foreign} {
		require.NoError(t, store.CreateMeal(ctx, m))
	}

	t.Run("AddIngredients is cumulative and ordered", func(t *testing.T) {
		first := []*models.Ingredient{{Name: "a", Calories: 100}, {Name: "b", Calories: 50}}
		meal, err := store.AddIngredients(ctx, older.ID, first)
		require.NoError(t, err)
		assert.Equal(t, 650, meal.Calories)
		assert.Equal(t, []string{first[0].ID, first[1].ID}, meal.IngredientIDs)

		ingredients, err := store.ListIngredients(ctx, older.ID)
		require.NoError(t, err)
		require.Len(t, ingredients, 2)
		assert.Equal(t, "a", ingredients[0].Name)
		assert.Equal(t, older.ID, ingredients[1].MealID)
	})

	t.Run("AddIngredients on missing meal", func(t *testing.T) {
		_, err := store.AddIngredients(ctx, "missing", []*models.Ingredient{{Name: "x"}})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("UpdateMeal is partial", func(t *testing.T) {
		name := "Late dinner"
		require.NoError(t, store.UpdateMeal(ctx, newer.ID, models.MealPatch{Name: &name}))

		got, err := store.GetMeal(ctx, newer.ID)
		require.NoError(t, err)
		assert.Equal(t, name, got.Name)
		assert.Equal(t, 700, got.Calories)

		err = store.UpdateMeal(ctx, "missing", models.MealPatch{Name: &name})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("ListMealsByUser", func(t *testing.T) {
		meals, err := store.ListMealsByUser(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, meals, 2)
		assert.Equal(t, newer.ID, meals[0].ID)
		assert.Equal(t, older.ID, meals[1].ID)
	})
}
