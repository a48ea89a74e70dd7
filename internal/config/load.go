package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides. A key such as
// reminder.due_interval is read from NUDGE_REMINDER_DUE_INTERVAL.
const EnvPrefix = "NUDGE"

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path := os.Getenv(EnvPrefix + "_CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.RegisterValidation("clock", validateClock); err != nil {
		return fmt.Errorf("failed to register clock validation: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// validateClock accepts HH:MM wall-clock times.
func validateClock(fl validator.FieldLevel) bool {
	_, err := time.Parse("15:04", fl.Field().String())
	return err == nil
}

// setDefaults registers every key so AutomaticEnv can override it during
// Unmarshal. Keys with an empty default must be supplied by the environment
// or a config file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 25)

	v.SetDefault("auth.jwt_secret", "")

	v.SetDefault("llm.gemini_api_key", "")
	v.SetDefault("llm.model_name", "gemini-2.0-flash")
	v.SetDefault("llm.max_retries", 2)
	v.SetDefault("llm.retry_delay", 500*time.Millisecond)
	v.SetDefault("llm.prompt_template_path", "")

	v.SetDefault("reminder.timezone", "UTC")
	v.SetDefault("reminder.due_interval", time.Minute)
	v.SetDefault("reminder.due_window", time.Minute)
	v.SetDefault("reminder.overdue_interval", time.Hour)
	v.SetDefault("reminder.morning_at", "08:00")
	v.SetDefault("reminder.evening_at", "21:00")
	v.SetDefault("reminder.cleanup_weekday", "sunday")
	v.SetDefault("reminder.cleanup_at", "00:00")
	v.SetDefault("reminder.retention_months", 1)
	v.SetDefault("reminder.generation_timeout", 5*time.Second)
	v.SetDefault("reminder.overdue_includes_reminded", false)

	v.SetDefault("delivery.transport", "none")
	v.SetDefault("delivery.queue_size", 256)
	v.SetDefault("delivery.worker_count", 2)
	v.SetDefault("delivery.send_timeout", 5*time.Second)
}
