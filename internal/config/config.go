package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth" validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm" validate:"required"`
	Reminder ReminderConfig `mapstructure:"reminder" validate:"required"`
	Delivery DeliveryConfig `mapstructure:"delivery" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	// Driver selects the storage backend. "sqlite" is meant for local runs.
	Driver       string `mapstructure:"driver" validate:"required,oneof=postgres sqlite"`
	URL          string `mapstructure:"url" validate:"required"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=1"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
}

// LLMConfig contains the message generator settings. Without an API key the
// engine uses its built-in messages.
type LLMConfig struct {
	GeminiAPIKey       string        `mapstructure:"gemini_api_key"`
	ModelName          string        `mapstructure:"model_name" validate:"required"`
	MaxRetries         int           `mapstructure:"max_retries" validate:"gte=0,lte=5"`
	RetryDelay         time.Duration `mapstructure:"retry_delay" validate:"gte=0"`
	PromptTemplatePath string        `mapstructure:"prompt_template_path"`
}

// ReminderConfig controls the cadence and behavior of the reminder jobs.
// Wall-clock times are HH:MM in Timezone.
type ReminderConfig struct {
	Timezone          string        `mapstructure:"timezone" validate:"required,timezone"`
	DueInterval       time.Duration `mapstructure:"due_interval" validate:"gt=0"`
	DueWindow         time.Duration `mapstructure:"due_window" validate:"gt=0,gtefield=DueInterval"`
	OverdueInterval   time.Duration `mapstructure:"overdue_interval" validate:"gt=0"`
	MorningAt         string        `mapstructure:"morning_at" validate:"required,clock"`
	EveningAt         string        `mapstructure:"evening_at" validate:"required,clock"`
	CleanupWeekday    string        `mapstructure:"cleanup_weekday" validate:"required,oneof=sunday monday tuesday wednesday thursday friday saturday"`
	CleanupAt         string        `mapstructure:"cleanup_at" validate:"required,clock"`
	RetentionMonths   int           `mapstructure:"retention_months" validate:"gte=1"`
	GenerationTimeout time.Duration `mapstructure:"generation_timeout" validate:"gt=0"`

	// OverdueIncludesReminded lets the overdue sweep report tasks that already
	// received a due reminder. Off by default.
	OverdueIncludesReminded bool `mapstructure:"overdue_includes_reminded"`
}

// DeliveryConfig contains real-time delivery settings.
type DeliveryConfig struct {
	Transport   string        `mapstructure:"transport" validate:"required,oneof=none websocket"`
	QueueSize   int           `mapstructure:"queue_size" validate:"gte=1"`
	WorkerCount int           `mapstructure:"worker_count" validate:"gte=1"`
	SendTimeout time.Duration `mapstructure:"send_timeout" validate:"gt=0"`
}

// Location loads the configured time zone.
func (c ReminderConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid reminder timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Weekday returns CleanupWeekday as a time.Weekday. Unknown names map to
// Sunday; validation rejects them earlier.
func (c ReminderConfig) Weekday() time.Weekday {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), c.CleanupWeekday) {
			return d
		}
	}
	return time.Sunday
}
