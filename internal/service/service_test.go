package service

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vnprr/SnapDish/internal/auth"
	"github.com/vnprr/SnapDish/internal/models"
	"github.com/vnprr/SnapDish/internal/storage"
	"github.com/vnprr/SnapDish/internal/storage/sqlite"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupStore creates a SQLite store in a temp directory.
func setupStore(t *testing.T) *sqlite.SQLiteStore {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "snapdish-service-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func setupAuthService(t *testing.T, store storage.Store) *AuthService {
	t.Helper()
	authenticator := auth.NewPasswordAuthenticator(store).WithCost(bcrypt.MinCost)
	return NewAuthService(authenticator, auth.NewJWTManager("test-secret", time.Hour), store, discardLogger())
}

func TestAuthService(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)
	svc := setupAuthService(t, store)

	user, err := svc.Register(ctx, "a@x.io", "secret1")
	require.NoError(t, err)

	t.Run("login then resolve", func(t *testing.T) {
		token, err := svc.Login(ctx, "a@x.io", "secret1")
		require.NoError(t, err)
		assert.NotEqual(t, user.ID, token, "token must not be the raw user id")

		resolved, err := svc.Resolve(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, resolved.ID)
		assert.Equal(t, "a@x.io", resolved.Email)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, "a@x.io", "nope-nope")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("duplicate registration", func(t *testing.T) {
		_, err := svc.Register(ctx, "a@x.io", "secret2")
		assert.ErrorIs(t, err, auth.ErrEmailExists)
	})

	t.Run("raw user id is rejected", func(t *testing.T) {
		_, err := svc.Resolve(ctx, user.ID)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("empty token", func(t *testing.T) {
		_, err := svc.Resolve(ctx, "")
		assert.ErrorIs(t, err, auth.ErrMissingToken)
	})

	t.Run("token for unknown user", func(t *testing.T) {
		ghost := &models.User{ID: "ghost", Email: "ghost@x.io"}
		token, err := auth.NewJWTManager("test-secret", time.Hour).Generate(ghost)
		require.NoError(t, err)

		_, err = svc.Resolve(ctx, token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("token from another secret", func(t *testing.T) {
		token, err := auth.NewJWTManager("other-secret", time.Hour).Generate(user)
		require.NoError(t, err)

		_, err = svc.Resolve(ctx, token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})
}

func setupMealService(t *testing.T, opts MealOptions) (*MealService, storage.Store, string, string) {
	t.Helper()
	ctx := context.Background()
	store := setupStore(t)

	owner := models.NewUser("owner@x.io", "hash")
	other := models.NewUser("other@x.io", "hash")
	require.NoError(t, store.CreateUser(ctx, owner))
	require.NoError(t, store.CreateUser(ctx, other))

	return NewMealService(store, opts, discardLogger()), store, owner.ID, other.ID
}

func TestMealService_CreateMeal(t *testing.T) {
	ctx := context.Background()
	svc, _, owner, _ := setupMealService(t, MealOptions{})

	t.Run("time defaults to now", func(t *testing.T) {
		fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
		svc.now = func() time.Time { return fixed }
		t.Cleanup(func() { svc.now = time.Now })

		meal, err := svc.CreateMeal(ctx, owner, NewMeal{Name: "Pizza", Calories: 500})
		require.NoError(t, err)
		assert.NotEmpty(t, meal.ID)
		assert.Equal(t, owner, meal.UserID)
		assert.Equal(t, 500, meal.Calories)
		assert.Empty(t, meal.IngredientIDs)
		assert.True(t, meal.Time.Equal(fixed))
	})

	t.Run("explicit time is kept", func(t *testing.T) {
		at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("CEST", 2*60*60))
		meal, err := svc.CreateMeal(ctx, owner, NewMeal{Name: "Lunch", Calories: 400, Time: &at, Image: []byte{1, 2, 3}})
		require.NoError(t, err)
		assert.True(t, meal.Time.Equal(at))
		assert.Equal(t, time.UTC, meal.Time.Location())
		assert.Equal(t, []byte{1, 2, 3}, meal.Image)
	})
}

func TestMealService_UpdateMeal(t *testing.T) {
	ctx := context.Background()
	svc, store, owner, other := setupMealService(t, MealOptions{})

	meal, err := svc.CreateMeal(ctx, owner, NewMeal{Name: "Soup", Calories: 200})
	require.NoError(t, err)

	t.Run("owner updates calories only", func(t *testing.T) {
		calories := 250
		require.NoError(t, svc.UpdateMeal(ctx, meal.ID, owner, models.MealPatch{Calories: &calories}))

		got, err := store.GetMeal(ctx, meal.ID)
		require.NoError(t, err)
		assert.Equal(t, 250, got.Calories)
		assert.Equal(t, "Soup", got.Name)
	})

	t.Run("non-owner is forbidden and meal unchanged", func(t *testing.T) {
		name := "Stolen"
		err := svc.UpdateMeal(ctx, meal.ID, other, models.MealPatch{Name: &name})
		assert.ErrorIs(t, err, ErrForbidden)

		got, err := store.GetMeal(ctx, meal.ID)
		require.NoError(t, err)
		assert.Equal(t, "Soup", got.Name)
	})

	t.Run("missing meal", func(t *testing.T) {
		name := "x"
		err := svc.UpdateMeal(ctx, "missing", owner, models.MealPatch{Name: &name})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestMealService_AddIngredients(t *testing.T) {
	ctx := context.Background()

	t.Run("sums into the meal total", func(t *testing.T) {
		svc, _, owner, _ := setupMealService(t, MealOptions{})
		meal, err := svc.CreateMeal(ctx, owner, NewMeal{Name: "Salad", Calories: 500})
		require.NoError(t, err)

		updated, err := svc.AddIngredients(ctx, meal.ID, owner, []IngredientInput{
			{Name: "a", Calories: 100},
			{Name: "b", Calories: 50},
		})
		require.NoError(t, err)
		assert.Equal(t, 650, updated.Calories)
		assert.Len(t, updated.IngredientIDs, 2)

		ingredients, err := svc.ListIngredients(ctx, meal.ID, owner)
		require.NoError(t, err)
		require.Len(t, ingredients, 2)
		assert.Equal(t, "a", ingredients[0].Name)
		assert.Equal(t, "b", ingredients[1].Name)
	})

	t.Run("empty list leaves the meal unchanged", func(t *testing.T) {
		svc, _, owner, _ := setupMealService(t, MealOptions{})
		meal, err := svc.CreateMeal(ctx, owner, NewMeal{Name: "Tea", Calories: 5})
		require.NoError(t, err)

		updated, err := svc.AddIngredients(ctx, meal.ID, owner, nil)
		require.NoError(t, err)
		assert.Equal(t, 5, updated.Calories)
		assert.Empty(t, updated.IngredientIDs)
	})

	t.Run("negative calories rejected", func(t *testing.T) {
		svc, store, owner, _ := setupMealService(t, MealOptions{})
		meal, err := svc.CreateMeal(ctx, owner, NewMeal{Name: "Tea", Calories: 5})
		require.NoError(t, err)

		_, err = svc.AddIngredients(ctx, meal.ID, owner, []IngredientInput{{Name: "x", Calories: -1}})
		assert.ErrorIs(t, err, ErrInvalidInput)

		got, err := store.GetMeal(ctx, meal.ID)
		require.NoError(t, err)
		assert.Equal(t, 5, got.Calories)
	})

	t.Run("missing meal", func(t *testing.T) {
		svc, _, owner, _ := setupMealService(t, MealOptions{})
		_, err := svc.AddIngredients(ctx, "missing", owner, []IngredientInput{{Name: "x", Calories: 1}})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("non-owner allowed by default", func(t *testing.T) {
		svc, _, owner, other := setupMealService(t, MealOptions{})
		meal, err := svc.CreateMeal(ctx, owner, NewMeal{Name: "Shared", Calories: 100})
		require.NoError(t, err)

		updated, err := svc.AddIngredients(ctx, meal.ID, other, []IngredientInput{{Name: "x", Calories: 10}})
		require.NoError(t, err)
		assert.Equal(t, 110, updated.Calories)
	})

	t.Run("non-owner forbidden when restricted", func(t *testing.T) {
		svc, _, owner, other := setupMealService(t, MealOptions{RestrictIngredientsToOwner: true})
		meal, err := svc.CreateMeal(ctx, owner, NewMeal{Name: "Private", Calories: 100})
		require.NoError(t, err)

		_, err = svc.AddIngredients(ctx, meal.ID, other, []IngredientInput{{Name: "x", Calories: 10}})
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("concurrent additions are not lost", func(t *testing.T) {
		svc, _, owner, _ := setupMealService(t, MealOptions{})
		meal, err := svc.CreateMeal(ctx, owner, NewMeal{Name: "Buffet", Calories: 0})
		require.NoError(t, err)

		const workers = 8
		var wg sync.WaitGroup
		errs := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.AddIngredients(ctx, meal.ID, owner, []IngredientInput{{Name: "dish", Calories: 10}})
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		meals, err := svc.ListMeals(ctx, owner)
		require.NoError(t, err)
		require.Len(t, meals, 1)
		assert.Equal(t, workers*10, meals[0].Calories)
		assert.Len(t, meals[0].IngredientIDs, workers)
	})
}

func TestMealService_ListAndSummary(t *testing.T) {
	ctx := context.Background()
	svc, _, owner, other := setupMealService(t, MealOptions{})

	at := func(day, hour int) *time.Time {
		tm := time.Date(2024, 7, day, hour, 0, 0, 0, time.UTC)
		return &tm
	}
	_, err := svc.CreateMeal(ctx, owner, NewMeal{Name: "Breakfast", Calories: 300, Time: at(1, 8)})
	require.NoError(t, err)
	_, err = svc.CreateMeal(ctx, owner, NewMeal{Name: "Dinner", Calories: 700, Time: at(1, 19)})
	require.NoError(t, err)
	_, err = svc.CreateMeal(ctx, owner, NewMeal{Name: "Brunch", Calories: 450, Time: at(2, 11)})
	require.NoError(t, err)
	foreign, err := svc.CreateMeal(ctx, other, NewMeal{Name: "Theirs", Calories: 999, Time: at(1, 12)})
	require.NoError(t, err)

	t.Run("ListMeals is owner-scoped", func(t *testing.T) {
		meals, err := svc.ListMeals(ctx, owner)
		require.NoError(t, err)
		require.Len(t, meals, 3)
		for _, m := range meals {
			assert.Equal(t, owner, m.UserID)
		}
		assert.Equal(t, "Brunch", meals[0].Name)
	})

	t.Run("DailySummary", func(t *testing.T) {
		days, err := svc.DailySummary(ctx, owner, time.UTC)
		require.NoError(t, err)
		require.Len(t, days, 2)
		assert.Equal(t, "2024-07-02", days[0].Date)
		assert.Equal(t, 450, days[0].TotalCalories)
		assert.Equal(t, "2024-07-01", days[1].Date)
		assert.Equal(t, 1000, days[1].TotalCalories)
	})

	t.Run("ListIngredients is owner-only", func(t *testing.T) {
		_, err := svc.ListIngredients(ctx, foreign.ID, owner)
		assert.ErrorIs(t, err, ErrForbidden)
	})
}
