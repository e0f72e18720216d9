// Package config provides configuration management for the race picks engine.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("windowtime", validateWindowTime)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	cv := NewValidator()
	return cv.Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	err := cv.validator.Struct(cfg)
	if err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	return validateCrossField(cfg)
}

// validateEnvironment validates the environment field
func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

// validateLogLevel validates the log level field
func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// validateWindowTime validates HH:MM trading window boundaries
func validateWindowTime(fl validator.FieldLevel) bool {
	_, err := time.Parse("15:04", fl.Field().String())
	return err == nil
}

// validateCrossField performs validations that span multiple fields
func validateCrossField(cfg *Config) error {
	start, err := time.Parse("15:04", cfg.Engine.WindowStart)
	if err != nil {
		return fmt.Errorf("invalid engine.window_start: %w", err)
	}
	end, err := time.Parse("15:04", cfg.Engine.WindowEnd)
	if err != nil {
		return fmt.Errorf("invalid engine.window_end: %w", err)
	}
	if !end.After(start) {
		return fmt.Errorf("engine.window_end %s must be after engine.window_start %s",
			cfg.Engine.WindowEnd, cfg.Engine.WindowStart)
	}

	if _, err := time.LoadLocation(cfg.Engine.Timezone); err != nil {
		return fmt.Errorf("invalid engine.timezone %q: %w", cfg.Engine.Timezone, err)
	}

	for key, bound := range cfg.Scoring.WeightBounds {
		if bound.Min > bound.Max {
			return fmt.Errorf("scoring.weight_bounds.%s: min %g exceeds max %g", key, bound.Min, bound.Max)
		}
	}

	return nil
}

// formatValidationErrors converts validator errors into a readable message
func formatValidationErrors(errs validator.ValidationErrors) error {
	messages := make([]string, 0, len(errs))
	for _, fieldErr := range errs {
		messages = append(messages, fmt.Sprintf("%s failed on %q", fieldErr.Namespace(), fieldErr.Tag()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(messages, "; "))
}
