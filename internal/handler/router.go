package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vnprr/SnapDish/internal/middleware"
)

// RouterConfig contains the dependencies for the API router.
type RouterConfig struct {
	Logger   *slog.Logger
	Auth     AuthService
	Meals    MealService
	Analyzer Analyzer

	// Checks are pinged by GET /health.
	Checks map[string]Pinger

	// RateLimiter enables per-client rate limiting when non-nil.
	RateLimiter     middleware.Counter
	RateLimitConfig middleware.RateLimitConfig

	AllowedOrigins []string
	MaxUploadBytes int64
	RequestTimeout time.Duration
}

// NewRouter creates the API router with all routes and middleware.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(chimiddleware.Timeout(cfg.RequestTimeout))

	authHandler := NewAuthHandler(cfg.Auth, cfg.Logger)
	mealHandler := NewMealHandler(cfg.Meals, cfg.MaxUploadBytes, cfg.Logger)
	classifyHandler := NewClassifyHandler(cfg.Analyzer, cfg.MaxUploadBytes, cfg.Logger)
	healthHandler := NewHealthHandler(cfg.Checks, cfg.Logger)

	// Operational endpoints
	r.Get("/health", healthHandler.Health)
	r.Handle("/metrics", promhttp.Handler())

	rateLimit := func(r chi.Router) {
		if cfg.RateLimiter != nil {
			r.Use(middleware.RateLimit(cfg.RateLimiter, cfg.RateLimitConfig, cfg.Logger))
		}
	}

	// Public routes, limited per client IP
	r.Group(func(r chi.Router) {
		rateLimit(r)

		r.Post("/register", authHandler.Register)
		r.Post("/token", authHandler.Token)
		r.Post("/classify", classifyHandler.Classify)
	})

	// Authenticated routes, limited per user
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(cfg.Auth, cfg.Logger))
		rateLimit(r)

		r.Get("/me", authHandler.Me)
		r.Post("/add-meal", mealHandler.AddMeal)
		r.Put("/update-meal/{meal_id}", mealHandler.UpdateMeal)
		r.Post("/add-ingredients/{meal_id}", mealHandler.AddIngredients)
		r.Get("/meals", mealHandler.ListMeals)
		r.Get("/meals/daily", mealHandler.DailySummary)
		r.Get("/meals/{meal_id}/ingredients", mealHandler.ListIngredients)
	})

	return r
}
