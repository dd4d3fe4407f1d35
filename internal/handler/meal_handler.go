package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/vnprr/SnapDish/internal/middleware"
	"github.com/vnprr/SnapDish/internal/models"
	apierrors "github.com/vnprr/SnapDish/internal/pkg/errors"
	"github.com/vnprr/SnapDish/internal/pkg/response"
	"github.com/vnprr/SnapDish/internal/service"
)

// jsonLimit caps JSON request bodies.
const jsonLimit = 1 << 20

// MealHandler handles meal ledger requests. Every route requires an
// authenticated user.
type MealHandler struct {
	meals          MealService
	validate       *validator.Validate
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewMealHandler creates a new meal handler.
func NewMealHandler(meals MealService, maxUploadBytes int64, logger *slog.Logger) *MealHandler {
	return &MealHandler{
		meals:          meals,
		validate:       newValidator(),
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// MessageResponse carries a confirmation message.
type MessageResponse struct {
	Message string `json:"message"`
}

// AddMealResponse is returned by POST /add-meal.
type AddMealResponse struct {
	Message string `json:"message"`
	MealID  string `json:"mealId"`
}

// AddIngredientsResponse is returned by POST /add-ingredients/{meal_id}.
type AddIngredientsResponse struct {
	Message       string   `json:"message"`
	IngredientIDs []string `json:"ingredientIds"`
	Calories      int      `json:"calories"`
}

// IngredientRequest is one element of the add-ingredients body.
type IngredientRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Calories *int   `json:"calories" validate:"required,min=0"`
}

// newValidator reports struct fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// AddMeal handles POST /add-meal?name=&calories=&time= with an optional
// multipart "file" photo.
func (h *MealHandler) AddMeal(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r, h.maxUploadBytes); err != nil {
		response.Error(w, err)
		return
	}

	name := r.Form.Get("name")
	if name == "" {
		response.ValidationError(w, "name", "name is required")
		return
	}
	calories, err := caloriesParam(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	in := service.NewMeal{Name: name, Calories: calories}
	if r.Form.Get("time") != "" {
		at, err := timeParam(r)
		if err != nil {
			response.Error(w, err)
			return
		}
		in.Time = &at
	}

	in.Image, err = formFile(r, "file")
	if err != nil {
		response.Error(w, err)
		return
	}

	meal, err := h.meals.CreateMeal(r.Context(), middleware.GetUserID(r.Context()), in)
	if err != nil {
		writeError(w, h.logger, err, "")
		return
	}
	middleware.IncrementMealsCreated()

	response.OK(w, AddMealResponse{Message: "Meal created successfully", MealID: meal.ID})
}

// UpdateMeal handles PUT /update-meal/{meal_id}. Only the parameters present
// in the request are changed.
func (h *MealHandler) UpdateMeal(w http.ResponseWriter, r *http.Request) {
	mealID := chi.URLParam(r, "meal_id")

	if err := parseForm(w, r, h.maxUploadBytes); err != nil {
		response.Error(w, err)
		return
	}

	var patch models.MealPatch
	if hasParam(r, "name") {
		name := r.Form.Get("name")
		if name == "" {
			response.ValidationError(w, "name", "name cannot be empty")
			return
		}
		patch.Name = &name
	}
	if hasParam(r, "calories") {
		calories, err := caloriesParam(r)
		if err != nil {
			response.Error(w, err)
			return
		}
		patch.Calories = &calories
	}
	if hasParam(r, "time") {
		at, err := timeParam(r)
		if err != nil {
			response.Error(w, err)
			return
		}
		patch.Time = &at
	}

	image, err := formFile(r, "file")
	if err != nil {
		response.Error(w, err)
		return
	}
	patch.Image = image

	err = h.meals.UpdateMeal(r.Context(), mealID, middleware.GetUserID(r.Context()), patch)
	if err != nil {
		writeError(w, h.logger, err, "Not authorized to update this meal")
		return
	}

	response.OK(w, MessageResponse{Message: "Meal updated successfully"})
}

// AddIngredients handles POST /add-ingredients/{meal_id} with a JSON array
// of {name, calories}.
func (h *MealHandler) AddIngredients(w http.ResponseWriter, r *http.Request) {
	mealID := chi.URLParam(r, "meal_id")

	var req []IngredientRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, jsonLimit)).Decode(&req); err != nil {
		response.Error(w, apierrors.ErrBadRequest.WithMessage("Invalid request body"))
		return
	}

	items := make([]service.IngredientInput, len(req))
	for i, item := range req {
		if err := h.validate.Struct(item); err != nil {
			response.Error(w, apierrors.NewValidationErrors(validationDetails(err, i)))
			return
		}
		items[i] = service.IngredientInput{Name: item.Name, Calories: *item.Calories}
	}

	meal, err := h.meals.AddIngredients(r.Context(), mealID, middleware.GetUserID(r.Context()), items)
	if err != nil {
		writeError(w, h.logger, err, "Not authorized to modify this meal")
		return
	}
	middleware.AddIngredientsAdded(len(items))

	response.OK(w, AddIngredientsResponse{
		Message:       "Ingredients added successfully",
		IngredientIDs: meal.IngredientIDs,
		Calories:      meal.Calories,
	})
}

// ListMeals handles GET /meals
func (h *MealHandler) ListMeals(w http.ResponseWriter, r *http.Request) {
	meals, err := h.meals.ListMeals(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err, "")
		return
	}
	response.OK(w, meals)
}

// DailySummary handles GET /meals/daily?tz=
func (h *MealHandler) DailySummary(w http.ResponseWriter, r *http.Request) {
	loc := time.UTC
	if tz := r.URL.Query().Get("tz"); tz != "" {
		var err error
		loc, err = time.LoadLocation(tz)
		if err != nil {
			response.ValidationError(w, "tz", "unknown time zone")
			return
		}
	}

	days, err := h.meals.DailySummary(r.Context(), middleware.GetUserID(r.Context()), loc)
	if err != nil {
		writeError(w, h.logger, err, "")
		return
	}
	response.OK(w, days)
}

// ListIngredients handles GET /meals/{meal_id}/ingredients
func (h *MealHandler) ListIngredients(w http.ResponseWriter, r *http.Request) {
	mealID := chi.URLParam(r, "meal_id")

	ingredients, err := h.meals.ListIngredients(r.Context(), mealID, middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err, "Not authorized to view this meal")
		return
	}
	response.OK(w, ingredients)
}

// validationDetails flattens validator errors into field -> message pairs
// for the ingredient at index i.
func validationDetails(err error, i int) map[string]string {
	details := make(map[string]string)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		details["body"] = err.Error()
		return details
	}
	for _, fe := range verrs {
		key := fmt.Sprintf("[%d].%s", i, fe.Field())
		details[key] = fmt.Sprintf("failed on the '%s' tag", fe.Tag())
	}
	return details
}
