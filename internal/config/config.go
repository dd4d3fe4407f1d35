// Package config provides configuration loading for the SnapDish servers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Demo      DemoConfig      `mapstructure:"demo"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Models    ModelsConfig    `mapstructure:"models"`
	Meals     MealsConfig     `mapstructure:"meals"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	CORS      CORSConfig      `mapstructure:"cors"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	Host           string        `mapstructure:"host"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	Environment    string        `mapstructure:"environment"` // dev, prod
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DemoConfig holds the demo front-end server configuration.
type DemoConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

// Addr returns the listen address.
func (c DemoConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Driver        string `mapstructure:"driver"` // sqlite, mongo
	SQLitePath    string `mapstructure:"sqlite_path"`
	MongoURI      string `mapstructure:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database"`
}

// RedisConfig holds Redis configuration. Redis backs the rate limiter and
// is optional.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AuthConfig holds session token configuration.
type AuthConfig struct {
	// JWTSecret signs session tokens. When empty a random secret is
	// generated at startup and tokens do not survive restarts.
	JWTSecret string        `mapstructure:"jwt_secret"`
	JWTExpiry time.Duration `mapstructure:"jwt_expiry"`
}

// ModelsConfig points at the classifier and regressor manifests.
type ModelsConfig struct {
	Classification string        `mapstructure:"classification"`
	Regression     string        `mapstructure:"regression"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// MealsConfig holds meal ledger policy.
type MealsConfig struct {
	MaxUploadBytes             int64 `mapstructure:"max_upload_bytes"`
	RestrictIngredientsToOwner bool  `mapstructure:"restrict_ingredients_to_owner"`
}

// RateLimitConfig holds per-client request limits.
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	BurstSize         int  `mapstructure:"burst_size"`
}

// CORSConfig holds cross-origin settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads configuration from a .env file, config files and environment
// variables, in increasing order of precedence.
func Load() (*Config, error) {
	// .env is optional; variables already set in the environment win.
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/snapdish")

	v.SetEnvPrefix("SNAPDISH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks settings that have no safe fallback.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("storage.sqlite_path is required for the sqlite driver")
		}
	case "mongo":
		if c.Storage.MongoURI == "" {
			return fmt.Errorf("storage.mongo_uri is required for the mongo driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Meals.MaxUploadBytes <= 0 {
		return fmt.Errorf("meals.max_upload_bytes must be positive")
	}
	if c.Auth.JWTExpiry <= 0 {
		return fmt.Errorf("auth.jwt_expiry must be positive")
	}
	return nil
}

// setDefaults configures default values for all settings.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.request_timeout", "45s")
	v.SetDefault("server.environment", "dev")

	// Demo defaults
	v.SetDefault("demo.port", 8501)
	v.SetDefault("demo.host", "0.0.0.0")

	// Storage defaults
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.sqlite_path", "./data/snapdish.db")
	v.SetDefault("storage.mongo_uri", "")
	v.SetDefault("storage.mongo_database", "snapdish")

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Auth defaults
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_expiry", "24h")

	// Model defaults
	v.SetDefault("models.classification", "./models/classification.json")
	v.SetDefault("models.regression", "./models/regression.json")
	v.SetDefault("models.timeout", "30s")

	// Meal ledger defaults
	v.SetDefault("meals.max_upload_bytes", 10<<20)
	v.SetDefault("meals.restrict_ingredients_to_owner", false)

	// Rate limit defaults
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_minute", 120)
	v.SetDefault("rate_limit.burst_size", 20)

	// CORS defaults
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:*"})
}
