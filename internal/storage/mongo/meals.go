package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vnprr/SnapDish/internal/models"
	"github.com/vnprr/SnapDish/internal/storage"
)

// CreateMeal inserts a new meal document.
func (s *MongoStore) CreateMeal(ctx context.Context, meal *models.Meal) error {
	if meal.ID == "" {
		meal.ID = uuid.New().String()
	}
	if meal.Time.IsZero() {
		meal.Time = time.Now().UTC()
	}
	if meal.IngredientIDs == nil {
		meal.IngredientIDs = []string{}
	}

	if _, err := s.meals.InsertOne(ctx, meal); err != nil {
		return fmt.Errorf("failed to insert meal: %w", err)
	}

	return nil
}

// GetMeal retrieves a meal by ID.
func (s *MongoStore) GetMeal(ctx context.Context, mealID string) (*models.Meal, error) {
	var meal models.Meal
	err := s.meals.FindOne(ctx, bson.M{"_id": mealID}).Decode(&meal)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("meal %s: %w", mealID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get meal: %w", err)
	}
	normalizeMeal(&meal)
	return &meal, nil
}

// UpdateMeal overwrites only the fields set in patch.
func (s *MongoStore) UpdateMeal(ctx context.Context, mealID string, patch models.MealPatch) error {
	set := bson.M{}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Calories != nil {
		set["calories"] = *patch.Calories
	}
	if patch.Time != nil {
		set["time"] = patch.Time.UTC()
	}
	if patch.Image != nil {
		set["image"] = patch.Image
	}

	if len(set) == 0 {
		_, err := s.GetMeal(ctx, mealID)
		return err
	}

	result, err := s.meals.UpdateOne(ctx, bson.M{"_id": mealID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update meal: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("meal %s: %w", mealID, storage.ErrNotFound)
	}

	return nil
}

// AddIngredients inserts the ingredient documents, then appends their IDs
// and increments the meal total with a single atomic update.
func (s *MongoStore) AddIngredients(ctx context.Context, mealID string, ingredients []*models.Ingredient) (*models.Meal, error) {
	if _, err := s.GetMeal(ctx, mealID); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(ingredients))
	docs := make([]any, 0, len(ingredients))
	added := 0
	for _, ingredient := range ingredients {
		if ingredient.ID == "" {
			ingredient.ID = uuid.New().String()
		}
		ingredient.MealID = mealID
		ids = append(ids, ingredient.ID)
		docs = append(docs, ingredient)
		added += ingredient.Calories
	}

	if len(docs) > 0 {
		if _, err := s.ingredients.InsertMany(ctx, docs); err != nil {
			return nil, fmt.Errorf("failed to insert ingredients: %w", err)
		}
	}

	update := bson.M{
		"$inc":  bson.M{"calories": added},
		"$push": bson.M{"ingredientIds": bson.M{"$each": ids}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var meal models.Meal
	err := s.meals.FindOneAndUpdate(ctx, bson.M{"_id": mealID}, update, opts).Decode(&meal)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("meal %s: %w", mealID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update meal calories: %w", err)
	}
	normalizeMeal(&meal)

	return &meal, nil
}

// ListMealsByUser retrieves all meals owned by userID, newest first.
func (s *MongoStore) ListMealsByUser(ctx context.Context, userID string) ([]*models.Meal, error) {
	opts := options.Find().SetSort(bson.D{{Key: "time", Value: -1}, {Key: "_id", Value: 1}})
	cursor, err := s.meals.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list meals: %w", err)
	}
	defer cursor.Close(ctx)

	meals := []*models.Meal{}
	for cursor.Next(ctx) {
		var meal models.Meal
		if err := cursor.Decode(&meal); err != nil {
			return nil, fmt.Errorf("failed to decode meal: %w", err)
		}
		normalizeMeal(&meal)
		meals = append(meals, &meal)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate meals: %w", err)
	}

	return meals, nil
}

// ListIngredients retrieves a meal's ingredients in the order of the meal's
// ingredientIds.
func (s *MongoStore) ListIngredients(ctx context.Context, mealID string) ([]*models.Ingredient, error) {
	cursor, err := s.ingredients.Find(ctx, bson.M{"mealId": mealID})
	if err != nil {
		return nil, fmt.Errorf("failed to list ingredients: %w", err)
	}
	defer cursor.Close(ctx)

	byID := make(map[string]*models.Ingredient)
	for cursor.Next(ctx) {
		var ingredient models.Ingredient
		if err := cursor.Decode(&ingredient); err != nil {
			return nil, fmt.Errorf("failed to decode ingredient: %w", err)
		}
		byID[ingredient.ID] = &ingredient
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ingredients: %w", err)
	}

	ingredients := []*models.Ingredient{}
	if len(byID) == 0 {
		return ingredients, nil
	}

	meal, err := s.GetMeal(ctx, mealID)
	if err != nil {
		return nil, err
	}
	for _, id := range meal.IngredientIDs {
		if ingredient, ok := byID[id]; ok {
			ingredients = append(ingredients, ingredient)
		}
	}

	return ingredients, nil
}

func normalizeMeal(meal *models.Meal) {
	meal.Time = meal.Time.UTC()
	if meal.IngredientIDs == nil {
		meal.IngredientIDs = []string{}
	}
}
