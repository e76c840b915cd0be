// Package config loads typekit settings from the environment. Command-line
// flags take their defaults from here.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds the environment-derived settings.
type Config struct {
	// DB is the default SQLite log for trace and replay. new records only
	// when given --db explicitly.
	DB string `env:"TYPEKIT_DB" envDefault:"typekit.db"`

	// Format is the default output format: "text" or "json".
	Format string `env:"TYPEKIT_FORMAT" envDefault:"text"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"TYPEKIT_LOG_LEVEL" envDefault:"warn"`
}

// Load parses Config from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseEnv loads configuration from environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Level returns LogLevel as a slog.Level.
func (c Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelWarn, fmt.Errorf("TYPEKIT_LOG_LEVEL: %w", err)
	}
	return lvl, nil
}
