package models

import "time"

// Meal is a user-owned record aggregating a name, timestamp, optional image
// and a calorie total.
type Meal struct {
	// ID is the unique identifier for the meal (UUID format).
	ID string `json:"id" bson:"_id"`

	// UserID is the ID of the owning user. Only the owner may update the meal.
	UserID string `json:"userId" bson:"userId"`

	Name string `json:"name" bson:"name"`

	// IngredientIDs lists linked ingredients in the order they were added.
	IngredientIDs []string `json:"ingredientIds" bson:"ingredientIds"`

	// Calories is the running total: the value seeded at creation (or set by
	// an update) plus the calories of every ingredient added since.
	Calories int `json:"calories" bson:"calories"`

	// Image holds the raw uploaded photo. encoding/json renders it base64.
	Image []byte `json:"image" bson:"image,omitempty"`

	// Time is when the meal was eaten.
	Time time.Time `json:"time" bson:"time"`
}

// MealPatch carries a partial meal update. Nil fields are left unchanged.
type MealPatch struct {
	Name     *string
	Calories *int
	Time     *time.Time
	Image    []byte
}

// Empty reports whether the patch changes nothing.
func (p MealPatch) Empty() bool {
	return p.Name == nil && p.Calories == nil && p.Time == nil && p.Image == nil
}

// Ingredient is a named calorie contribution linked to exactly one meal.
// Ingredients are immutable once created.
type Ingredient struct {
	ID       string `json:"id" bson:"_id"`
	MealID   string `json:"mealId" bson:"mealId"`
	Name     string `json:"name" bson:"name"`
	Calories int    `json:"calories" bson:"calories"`
}

// DaySummary groups the meals eaten on one calendar day.
type DaySummary struct {
	// Date is the day in YYYY-MM-DD form, in the caller's time zone.
	Date          string  `json:"date"`
	TotalCalories int     `json:"totalCalories"`
	Meals         []*Meal `json:"meals"`
}
