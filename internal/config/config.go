// Package config provides configuration management functionality.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// ScheduleParser accepts the same expressions as the job scheduler:
// six-field cron specs with seconds, and descriptors such as "@every 10m".
var ScheduleParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Config holds application configuration
type Config struct {
	Port                 int
	LogLevel             string
	DevMode              bool
	StrictValidation     bool     // Validate states and observables before evaluating
	CacheSize            int64    // Max cached evaluations; 0 disables the cache
	CacheResetSchedule   string   // Empty disables the job
	SelfCheckSchedule    string   // Empty disables the job
	HeatmapMaxResolution int      // Upper bound for correlation-grid requests
	ResidueTolerance     float64  // Max |imag| accepted on expectation values
	AllowedOrigins       []string // CORS and websocket origin patterns
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getEnvAsInt("ENTANGLE_PORT", 8001),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		DevMode:              getEnvAsBool("DEV_MODE", false),
		StrictValidation:     getEnvAsBool("STRICT_VALIDATION", true),
		CacheSize:            int64(getEnvAsInt("CACHE_SIZE", 4096)),
		CacheResetSchedule:   getEnv("CACHE_RESET_SCHEDULE", "@every 10m"),
		SelfCheckSchedule:    getEnv("SELF_CHECK_SCHEDULE", "@every 1h"),
		HeatmapMaxResolution: getEnvAsInt("HEATMAP_MAX_RESOLUTION", 128),
		ResidueTolerance:     getEnvAsFloat("RESIDUE_TOLERANCE", 1e-9),
		AllowedOrigins:       getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that every setting is usable
func (c *Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("ENTANGLE_PORT must be between 1 and 65535, got %d", c.Port))
	}
	if c.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("CACHE_SIZE must not be negative, got %d", c.CacheSize))
	}
	if c.HeatmapMaxResolution < 2 {
		errs = append(errs, fmt.Errorf("HEATMAP_MAX_RESOLUTION must be at least 2, got %d", c.HeatmapMaxResolution))
	}
	if !(c.ResidueTolerance > 0) {
		errs = append(errs, fmt.Errorf("RESIDUE_TOLERANCE must be positive, got %g", c.ResidueTolerance))
	}
	for name, schedule := range map[string]string{
		"CACHE_RESET_SCHEDULE": c.CacheResetSchedule,
		"SELF_CHECK_SCHEDULE":  c.SelfCheckSchedule,
	} {
		if schedule == "" {
			continue
		}
		if _, err := ScheduleParser.Parse(schedule); err != nil {
			errs = append(errs, fmt.Errorf("%s is invalid: %w", name, err))
		}
	}

	return errors.Join(errs...)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
