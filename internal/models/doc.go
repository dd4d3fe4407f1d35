// Package models defines the core domain models for SnapDish.
//
// # Models
//
//   - User: a registered account; owns meals by id
//   - Meal: a logged meal with a running calorie total
//   - Ingredient: a named calorie contribution linked to one meal
//   - DaySummary: meals of one calendar day with their calorie total
//
// # Relationships
//
// Relationships are ID strings, never pointers. A Meal points at its owner
// through UserID, and an Ingredient points at its meal through MealID.
// Meal.IngredientIDs duplicates the ingredient back-references in append
// order; stores keep the two consistent when ingredients are added.
package models
