// Package config loads server settings from defaults, an optional TOML file
// and environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	BackendDisk   = "disk"
	BackendSQLite = "sqlite"

	minJWTSecretLength = 32
)

// Duration is a time.Duration that reads from TOML strings like "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config holds all server settings.
type Config struct {
	Port                    string   `toml:"port"`
	DatabasePath            string   `toml:"database_path"`
	StorageBackend          string   `toml:"storage_backend"`
	StorageRoot             string   `toml:"storage_root"`
	JWTSecret               string   `toml:"jwt_secret"`
	BcryptCost              int      `toml:"bcrypt_cost"`
	TokenTTL                Duration `toml:"token_ttl"`
	CookieSecure            bool     `toml:"cookie_secure"`
	TransformTimeout        Duration `toml:"transform_timeout"`
	MaxConcurrentTransforms int      `toml:"max_concurrent_transforms"`
	LogLevel                string   `toml:"log_level"`
}

// Default returns the settings used when nothing overrides them.
func Default() *Config {
	return &Config{
		Port:                    "8080",
		DatabasePath:            "gallery.db",
		StorageBackend:          BackendDisk,
		StorageRoot:             "media",
		BcryptCost:              12,
		TokenTTL:                Duration{24 * time.Hour},
		CookieSecure:            true,
		TransformTimeout:        Duration{30 * time.Second},
		MaxConcurrentTransforms: 4,
		LogLevel:                "info",
	}
}

// Load builds a Config from defaults, the TOML file at path (skipped when
// path is empty) and environment overrides. The result is not validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Port, "PORT")
	setString(&c.DatabasePath, "DATABASE_PATH")
	setString(&c.StorageBackend, "STORAGE_BACKEND")
	setString(&c.StorageRoot, "STORAGE_ROOT")
	setString(&c.JWTSecret, "JWT_SECRET")
	setString(&c.LogLevel, "LOG_LEVEL")

	// Secure cookies stay on unless explicitly disabled for local development.
	if v, ok := os.LookupEnv("COOKIE_SECURE"); ok {
		c.CookieSecure = v != "false"
	}

	var errs []error
	errs = append(errs,
		setInt(&c.BcryptCost, "BCRYPT_COST"),
		setInt(&c.MaxConcurrentTransforms, "MAX_CONCURRENT_TRANSFORMS"),
		setDuration(&c.TransformTimeout, "TRANSFORM_TIMEOUT"),
		setDuration(&c.TokenTTL, "TOKEN_TTL"),
	)
	return errors.Join(errs...)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	if c.DatabasePath == "" {
		errs = append(errs, errors.New("database path is required"))
	}
	switch c.StorageBackend {
	case BackendDisk:
		if c.StorageRoot == "" {
			errs = append(errs, errors.New("storage root is required for the disk backend"))
		}
	case BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("storage backend must be %q or %q, got %q", BackendDisk, BackendSQLite, c.StorageBackend))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	} else if len(c.JWTSecret) < minJWTSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d characters for HMAC-SHA256 security", minJWTSecretLength))
	}
	if c.BcryptCost < 4 || c.BcryptCost > 14 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between 4 and 14, got %d", c.BcryptCost))
	}
	if c.TokenTTL.Duration <= 0 {
		errs = append(errs, errors.New("token TTL must be positive"))
	}
	if c.TransformTimeout.Duration <= 0 {
		errs = append(errs, errors.New("transform timeout must be positive"))
	}
	if c.MaxConcurrentTransforms < 1 {
		errs = append(errs, errors.New("max concurrent transforms must be at least 1"))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SlogLevel parses LogLevel ("debug", "info", "warn", "error").
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return level, nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = parsed
	return nil
}

func setDuration(dst *Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	dst.Duration = parsed
	return nil
}
