package calculator

import (
	"testing"
	"time"

	"github.com/vnprr/SnapDish/internal/models"
)

func TestSumIngredients(t *testing.T) {
	tests := []struct {
		name    string
		items   []*models.Ingredient
		want    int
		wantErr bool
	}{
		{
			name:  "two ingredients",
			items: []*models.Ingredient{{Name: "a", Calories: 100}, {Name: "b", Calories: 50}},
			want:  150,
		},
		{
			name:  "empty list adds nothing",
			items: []*models.Ingredient{},
			want:  0,
		},
		{
			name:  "zero calories allowed",
			items: []*models.Ingredient{{Name: "water", Calories: 0}},
			want:  0,
		},
		{
			name:    "negative calories rejected",
			items:   []*models.Ingredient{{Name: "a", Calories: 10}, {Name: "b", Calories: -5}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SumIngredients(tt.items)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SumIngredients() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("SumIngredients() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDailySummary(t *testing.T) {
	at := func(day, hour int) time.Time {
		return time.Date(2024, 3, day, hour, 0, 0, 0, time.UTC)
	}
	meals := []*models.Meal{
		{ID: "breakfast-1", Calories: 300, Time: at(1, 8)},
		{ID: "dinner-2", Calories: 700, Time: at(2, 19)},
		{ID: "lunch-1", Calories: 500, Time: at(1, 13)},
		{ID: "late-1", Calories: 200, Time: at(1, 23)},
	}

	t.Run("groups by UTC day newest first", func(t *testing.T) {
		days := DailySummary(meals, nil)
		if len(days) != 2 {
			t.Fatalf("got %d days, want 2", len(days))
		}
		if days[0].Date != "2024-03-02" || days[0].TotalCalories != 700 {
			t.Errorf("day 0 = %s/%d, want 2024-03-02/700", days[0].Date, days[0].TotalCalories)
		}
		if days[1].Date != "2024-03-01" || days[1].TotalCalories != 1000 {
			t.Errorf("day 1 = %s/%d, want 2024-03-01/1000", days[1].Date, days[1].TotalCalories)
		}
		wantOrder := []string{"late-1", "lunch-1", "breakfast-1"}
		for i, id := range wantOrder {
			if days[1].Meals[i].ID != id {
				t.Errorf("day 1 meal %d = %s, want %s", i, days[1].Meals[i].ID, id)
			}
		}
	})

	t.Run("time zone shifts the day boundary", func(t *testing.T) {
		// 23:00 UTC on March 1st is already March 2nd in UTC+2.
		loc := time.FixedZone("UTC+2", 2*60*60)
		days := DailySummary(meals, loc)
		if len(days) != 2 {
			t.Fatalf("got %d days, want 2", len(days))
		}
		if days[0].Date != "2024-03-02" || days[0].TotalCalories != 900 {
			t.Errorf("day 0 = %s/%d, want 2024-03-02/900", days[0].Date, days[0].TotalCalories)
		}
		if days[1].TotalCalories != 800 {
			t.Errorf("day 1 total = %d, want 800", days[1].TotalCalories)
		}
	})

	t.Run("no meals", func(t *testing.T) {
		days := DailySummary(nil, time.UTC)
		if days == nil || len(days) != 0 {
			t.Errorf("got %v, want empty slice", days)
		}
	})

	t.Run("input order preserved", func(t *testing.T) {
		before := meals[0].ID
		DailySummary(meals, time.UTC)
		if meals[0].ID != before {
			t.Errorf("input slice was reordered")
		}
	})
}
