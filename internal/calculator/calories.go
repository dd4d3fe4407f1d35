// Package calculator holds the pure calorie arithmetic behind the meal ledger.
package calculator

import (
	"fmt"
	"sort"
	"time"

	"github.com/vnprr/SnapDish/internal/models"
)

// dateLayout is the calendar-day key used in daily summaries.
const dateLayout = "2006-01-02"

// SumIngredients returns the total calories of items.
// Returns an error if any item has negative calories.
func SumIngredients(items []*models.Ingredient) (int, error) {
	total := 0
	for i, item := range items {
		if item.Calories < 0 {
			return 0, fmt.Errorf("ingredient %d (%s): calories cannot be negative", i, item.Name)
		}
		total += item.Calories
	}
	return total, nil
}

// DailySummary groups meals by calendar day in loc and totals each day's
// calories. Days are ordered newest first, and meals within a day keep
// newest-first order. A nil loc means UTC.
func DailySummary(meals []*models.Meal, loc *time.Location) []models.DaySummary {
	if loc == nil {
		loc = time.UTC
	}

	sorted := make([]*models.Meal, len(meals))
	copy(sorted, meals)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.After(sorted[j].Time)
	})

	days := []models.DaySummary{}
	index := make(map[string]int)
	for _, meal := range sorted {
		date := meal.Time.In(loc).Format(dateLayout)
		i, ok := index[date]
		if !ok {
			i = len(days)
			index[date] = i
			days = append(days, models.DaySummary{Date: date, Meals: []*models.Meal{}})
		}
		days[i].TotalCalories += meal.Calories
		days[i].Meals = append(days[i].Meals, meal)
	}

	return days
}
