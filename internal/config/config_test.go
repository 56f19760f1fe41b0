package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")
	// Neutralize overrides that may be set in the surrounding environment.
	for _, key := range []string{"SERVER_PORT", "DATABASE_URL", "REDIS_ADDR", "MAX_UPLOAD_BYTES", "LLM_MODEL"} {
		t.Setenv(key, "")
	}

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "memory", cfg.Cache.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, int64(10*1024*1024), cfg.Upload.MaxSizeBytes)
	assert.Equal(t, 25000, cfg.LLM.MaxPromptChars)
	assert.Equal(t, 3*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, "paperlens_session", cfg.Auth.CookieName)
}

func TestLoad_RequiresSecretKey(t *testing.T) {
	t.Setenv("SECRET_KEY", "")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secret key is required")
}

func TestLoad_YAMLFile(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")

	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: 9090
llm:
  model: openai/gpt-4o
upload:
  max_size_bytes: 5242880
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "openai/gpt-4o", cfg.LLM.Model)
	assert.Equal(t, int64(5242880), cfg.Upload.MaxSizeBytes)
	// Untouched settings keep their defaults.
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SECRET_KEY", "env-secret")
	t.Setenv("SERVER_PORT", "8888")
	t.Setenv("DATABASE_URL", "postgres://app:pw@db:5432/paperlens")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("OPENROUTER_API_KEY", "sk-or-test")
	t.Setenv("LLM_MODEL", "meta-llama/llama-3-70b")
	t.Setenv("MAX_UPLOAD_BYTES", "1048576")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "env-secret", cfg.Auth.SecretKey)
	assert.Equal(t, 8888, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://app:pw@db:5432/paperlens", cfg.Database.Postgres.DSN)
	assert.Equal(t, "redis", cfg.Cache.Driver)
	assert.Equal(t, "redis:6379", cfg.Cache.Redis.Addr)
	assert.Equal(t, "sk-or-test", cfg.LLM.APIKey)
	assert.Equal(t, "meta-llama/llama-3-70b", cfg.LLM.Model)
	assert.Equal(t, int64(1048576), cfg.Upload.MaxSizeBytes)
}

func TestLoad_SQLiteDatabaseURL(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")
	t.Setenv("DATABASE_URL", "sqlite:/data/paperlens.db")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/data/paperlens.db", cfg.Database.SQLite.Path)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid",
			mutate:  func(c *Config) {},
			wantErr: "",
		},
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "invalid server port",
		},
		{
			name:    "bad database driver",
			mutate:  func(c *Config) { c.Database.Driver = "oracle" },
			wantErr: "invalid database driver",
		},
		{
			name:    "bad cache driver",
			mutate:  func(c *Config) { c.Cache.Driver = "memcached" },
			wantErr: "invalid cache driver",
		},
		{
			name:    "zero upload limit",
			mutate:  func(c *Config) { c.Upload.MaxSizeBytes = 0 },
			wantErr: "max_size_bytes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Auth.SecretKey = "secret"
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}
