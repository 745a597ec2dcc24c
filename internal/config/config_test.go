package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "DATABASE_PATH", "STORAGE_BACKEND", "STORAGE_ROOT", "JWT_SECRET",
		"BCRYPT_COST", "TOKEN_TTL", "COOKIE_SECURE", "TRANSFORM_TIMEOUT",
		"MAX_CONCURRENT_TRANSFORMS", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, BackendDisk, cfg.StorageBackend)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, 30*time.Second, cfg.TransformTimeout.Duration)

	// No secret by default.
	assert.ErrorContains(t, cfg.Validate(), "JWT_SECRET is required")
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "gallery.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
port = "9000"
storage_backend = "sqlite"
jwt_secret = "`+testSecret+`"
transform_timeout = "5s"
max_concurrent_transforms = 2
log_level = "debug"
`), 0644))

	t.Setenv("PORT", "9100")
	t.Setenv("COOKIE_SECURE", "false")
	t.Setenv("BCRYPT_COST", "4")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "9100", cfg.Port, "env overrides file")
	assert.Equal(t, BackendSQLite, cfg.StorageBackend)
	assert.Equal(t, 5*time.Second, cfg.TransformTimeout.Duration)
	assert.Equal(t, 2, cfg.MaxConcurrentTransforms)
	assert.Equal(t, 4, cfg.BcryptCost)
	assert.False(t, cfg.CookieSecure)

	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoad_BadInput(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorContains(t, err, "read config")

	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte(`transform_timeout = "soon"`), 0644))
	_, err = Load(path)
	assert.ErrorContains(t, err, "parse config")

	t.Setenv("BCRYPT_COST", "twelve")
	t.Setenv("TRANSFORM_TIMEOUT", "forever")
	_, err = Load("")
	assert.ErrorContains(t, err, "invalid BCRYPT_COST")
	assert.ErrorContains(t, err, "invalid TRANSFORM_TIMEOUT")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.JWTSecret = testSecret
		return cfg
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"short secret", func(c *Config) { c.JWTSecret = "short" }, "at least 32 characters"},
		{"bcrypt too low", func(c *Config) { c.BcryptCost = 3 }, "BCRYPT_COST"},
		{"bcrypt too high", func(c *Config) { c.BcryptCost = 15 }, "BCRYPT_COST"},
		{"unknown backend", func(c *Config) { c.StorageBackend = "s3" }, "storage backend"},
		{"disk without root", func(c *Config) { c.StorageRoot = "" }, "storage root"},
		{"zero timeout", func(c *Config) { c.TransformTimeout = Duration{} }, "transform timeout"},
		{"no workers", func(c *Config) { c.MaxConcurrentTransforms = 0 }, "max concurrent"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "invalid log level"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tc.want)
		})
	}

	// SQLite storage needs no root.
	cfg := valid()
	cfg.StorageBackend = BackendSQLite
	cfg.StorageRoot = ""
	assert.NoError(t, cfg.Validate())
}
