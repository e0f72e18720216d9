// Package config provides configuration management for the race picks engine.
package config

import (
	"fmt"
	"time"

	"github.com/yourusername/race-picks/internal/models"
)

// Config represents the complete application configuration
type Config struct {
	App      AppConfig      `mapstructure:"app" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Exchange ExchangeConfig `mapstructure:"exchange" validate:"required"`
	Engine   EngineConfig   `mapstructure:"engine" validate:"required"`
	Selector SelectorConfig `mapstructure:"selector" validate:"required"`
	Results  ResultsConfig  `mapstructure:"results" validate:"required"`
	Learning LearningConfig `mapstructure:"learning" validate:"required"`
	Scoring  ScoringConfig  `mapstructure:"scoring" validate:"required"`
	Metrics  MetricsConfig  `mapstructure:"metrics" validate:"required"`
	Features FeaturesConfig `mapstructure:"features"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host" validate:"required"`
	Port               int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Name               string `mapstructure:"name" validate:"required"`
	User               string `mapstructure:"user" validate:"required"`
	Password           string `mapstructure:"password" validate:"required"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"required,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"required,gt=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"required,gt=0"`
}

// ExchangeConfig represents the external snapshot/results fetcher endpoints
type ExchangeConfig struct {
	SnapshotURL    string  `mapstructure:"snapshot_url" validate:"required,url"`
	ResultsURL     string  `mapstructure:"results_url" validate:"required,url"`
	AppKey         string  `mapstructure:"app_key" validate:"required"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds" validate:"required,gt=0,lte=60"`
	MaxRetries     int     `mapstructure:"max_retries" validate:"gte=0"`
	RateLimit      float64 `mapstructure:"rate_limit" validate:"required,gt=0"`
}

// EngineConfig represents the cycle runner configuration
type EngineConfig struct {
	WindowStart    string `mapstructure:"window_start" validate:"required,windowtime"`
	WindowEnd      string `mapstructure:"window_end" validate:"required,windowtime"`
	Timezone       string `mapstructure:"timezone" validate:"required"`
	CadenceMinutes int    `mapstructure:"cadence_minutes" validate:"required,gt=0"`
	HealthPort     int    `mapstructure:"health_port" validate:"required,min=1,max=65535"`
}

// SelectorConfig represents per-race selection gating configuration
type SelectorConfig struct {
	UIThreshold            float64 `mapstructure:"ui_threshold" validate:"required,gt=0"`
	CoverageRatio          float64 `mapstructure:"coverage_ratio" validate:"required,gt=0,lte=1"`
	SmallFieldCoverage     float64 `mapstructure:"small_field_coverage" validate:"required,gt=0,lte=1"`
	SmallFieldSize         int     `mapstructure:"small_field_size" validate:"required,gt=0"`
}

// ResultsConfig represents results ingestion configuration
type ResultsConfig struct {
	SettlementDelayMinutes int     `mapstructure:"settlement_delay_minutes" validate:"required,gt=0"`
	LookbackDays           int     `mapstructure:"lookback_days" validate:"required,gt=0"`
	BatchSize              int     `mapstructure:"batch_size" validate:"required,gt=0,lte=10"`
	Stake                  float64 `mapstructure:"stake" validate:"required,gt=0"`
	EWFraction             float64 `mapstructure:"ew_fraction" validate:"required,gt=0,lt=1"`
	PlacesPaid             int     `mapstructure:"places_paid" validate:"required,gt=0"`
}

// LearningConfig represents weight learner configuration
type LearningConfig struct {
	WindowDays     int `mapstructure:"window_days" validate:"required,gt=0,lte=7"`
	MinNewOutcomes int `mapstructure:"min_new_outcomes" validate:"required,gt=0"`
	MaxCASAttempts int `mapstructure:"max_cas_attempts" validate:"required,gt=0"`
}

// ScoringConfig represents scorer configuration: weight bounds and the
// elite-trainer list (canonical names, matched exactly).
type ScoringConfig struct {
	WeightBounds  map[string]models.WeightBound `mapstructure:"weight_bounds"`
	EliteTrainers []string                      `mapstructure:"elite_trainers"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// FeaturesConfig represents feature flags
type FeaturesConfig struct {
	LearningEnabled bool `mapstructure:"learning_enabled"`
	EachWayEnabled  bool `mapstructure:"each_way_enabled"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetWeightBounds returns the configured weight bounds, falling back to the
// shipped defaults for any key the config omits.
func (c *Config) GetWeightBounds() map[string]models.WeightBound {
	bounds := models.DefaultWeightBounds()
	for key, bound := range c.Scoring.WeightBounds {
		bounds[key] = bound
	}
	return bounds
}

// TradingWindow returns today's trading window in the configured timezone
func (c *Config) TradingWindow(now time.Time) (time.Time, time.Time, error) {
	loc, err := time.LoadLocation(c.Engine.Timezone)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid timezone %q: %w", c.Engine.Timezone, err)
	}
	local := now.In(loc)
	start, err := windowInstant(local, c.Engine.WindowStart, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := windowInstant(local, c.Engine.WindowEnd, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func windowInstant(day time.Time, hhmm string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid window time %q: %w", hhmm, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
}
