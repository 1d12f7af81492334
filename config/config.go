package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/blang/semver"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/s0up4200/tgtg/tgtg"
)

// EnvPrefix prefixes every environment override, e.g. TGTG_ACCOUNT_EMAIL
const EnvPrefix = "TGTG"

var validate = validator.New()

// Load loads the configuration from file, .env and the environment. A missing
// config file is fine when no explicit path is given.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env: %w", err)
	}

	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".tgtg"))
		}
		v.AddConfigPath("/etc/tgtg/")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// DefaultSessionPath is where the file backend keeps the session
func DefaultSessionPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "tgtg", "session.json")
	}
	return ".tgtg-session.json"
}

// setDefaults sets default configuration values. Every key needs a default
// for environment overrides to reach Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("account.email", "")

	v.SetDefault("api.base_url", tgtg.BaseURL)
	v.SetDefault("api.user_agent", "")
	v.SetDefault("api.apk_version", tgtg.DefaultAPKVersion)
	v.SetDefault("api.language", tgtg.DefaultLanguage)
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.device_type", tgtg.DefaultDeviceType)
	v.SetDefault("api.access_token_lifetime", tgtg.DefaultAccessTokenLifetime)

	v.SetDefault("polling.max_attempts", tgtg.DefaultMaxPollingAttempts)
	v.SetDefault("polling.interval", tgtg.DefaultPollingInterval)

	v.SetDefault("session.backend", "file")
	v.SetDefault("session.path", DefaultSessionPath())
	v.SetDefault("session.redis.addr", "localhost:6379")
	v.SetDefault("session.redis.password", "")
	v.SetDefault("session.redis.db", 0)
	v.SetDefault("session.redis.key", "tgtg:session")

	v.SetDefault("filter.default_expression", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
}

// validateConfig checks if the configuration is valid
func validateConfig(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%s failed on '%s'", verrs[0].Namespace(), verrs[0].Tag())
		}
		return err
	}

	if _, err := semver.Make(cfg.API.APKVersion); err != nil {
		return fmt.Errorf("api.apk_version %q is not a semantic version: %w", cfg.API.APKVersion, err)
	}

	if cfg.Session.Backend == "redis" && cfg.Session.Redis.Addr == "" {
		return fmt.Errorf("session.redis.addr is required for the redis backend")
	}

	return nil
}
