package config

import "time"

// Config represents the complete configuration structure
type Config struct {
	Account AccountConfig `mapstructure:"account"`
	API     APIConfig     `mapstructure:"api"`
	Polling PollingConfig `mapstructure:"polling"`
	Session SessionConfig `mapstructure:"session"`
	Filter  FilterConfig  `mapstructure:"filter"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// AccountConfig identifies the Too Good To Go account
type AccountConfig struct {
	Email string `mapstructure:"email" validate:"required,email"`
}

// APIConfig tunes how the client talks to the API
type APIConfig struct {
	BaseURL             string        `mapstructure:"base_url" validate:"required,url"`
	UserAgent           string        `mapstructure:"user_agent"`
	APKVersion          string        `mapstructure:"apk_version" validate:"required"`
	Language            string        `mapstructure:"language" validate:"required"`
	Timeout             time.Duration `mapstructure:"timeout" validate:"gte=0"`
	DeviceType          string        `mapstructure:"device_type" validate:"required"`
	AccessTokenLifetime time.Duration `mapstructure:"access_token_lifetime" validate:"gte=0"`
}

// PollingConfig controls how long a login waits for the email to be confirmed
type PollingConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts" validate:"gte=1"`
	Interval    time.Duration `mapstructure:"interval" validate:"gte=0"`
}

// SessionConfig selects where the login session is kept between runs
type SessionConfig struct {
	Backend string      `mapstructure:"backend" validate:"oneof=file redis"`
	Path    string      `mapstructure:"path" validate:"required_if=Backend file"`
	Redis   RedisConfig `mapstructure:"redis"`
}

// RedisConfig holds the redis session backend settings
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
	Key      string `mapstructure:"key"`
}

// FilterConfig contains the default filter and named presets
type FilterConfig struct {
	DefaultExpression string                  `mapstructure:"default_expression"`
	Presets           map[string]FilterPreset `mapstructure:"presets" validate:"dive"`
}

// FilterPreset is a named filter expression
type FilterPreset struct {
	Expression  string `mapstructure:"expression" validate:"required"`
	Description string `mapstructure:"description"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=console json"`
	Color  bool   `mapstructure:"color"`
}
