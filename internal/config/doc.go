// Package config loads the server settings with viper from an optional YAML
// file and NUDGE_-prefixed environment variables, then validates them with
// struct tags. Reminder times are HH:MM wall-clock values in the configured
// time zone.
package config
