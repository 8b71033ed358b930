package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var keys = []string{
	"AUDIENT_ENV", "AUDIENT_HTTP_ADDR", "AUDIENT_PG_DSN", "AUDIENT_AUTH_SECRET",
	"AUDIENT_ADMIN_SECRET", "AUDIENT_TOKEN_TTL", "AUDIENT_REDIS_URL",
	"AUDIENT_CONFIG_CACHE_TTL", "AUDIENT_LOG_LEVEL", "AUDIENT_LOG_FORMAT",
	"AUDIENT_RATE_BURST", "AUDIENT_RATE_PER_SEC", "AUDIENT_MAX_BODY_BYTES",
	"AUDIENT_CORS_ORIGINS",
}

// clearEnv blanks every AUDIENT_* variable for the test; t.Setenv restores them.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	require.Equal(t, "development", cfg.Env)
	require.Equal(t, ":3001", cfg.HTTPAddr)
	require.Equal(t, devAuthSecret, cfg.AuthSecret)
	require.Equal(t, 7*24*time.Hour, cfg.TokenTTL)
	require.Equal(t, 5*time.Minute, cfg.ConfigCacheTTL)
	require.Equal(t, []string{"*"}, cfg.CORSOrigins)
	require.Equal(t, int64(1<<20), cfg.MaxBodyBytes)
}

func TestLoadReadsDotEnvWithoutOverriding(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	content := "AUDIENT_HTTP_ADDR=:9000\nAUDIENT_TOKEN_TTL=2h\nAUDIENT_ADMIN_SECRET=from-file\nAUDIENT_CORS_ORIGINS=https://a.test, https://b.test\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("AUDIENT_ADMIN_SECRET", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.HTTPAddr)
	require.Equal(t, 2*time.Hour, cfg.TokenTTL)
	require.Equal(t, "from-env", cfg.AdminSecret)
	require.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.CORSOrigins)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUDIENT_TOKEN_TTL", "forever")
	t.Setenv("AUDIENT_RATE_BURST", "0")
	_, err := Load(filepath.Join(t.TempDir(), "none.env"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "AUDIENT_TOKEN_TTL")
	require.Contains(t, err.Error(), "rate limit")
}

func TestProductionRequiresSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUDIENT_ENV", "production")
	_, err := Load(filepath.Join(t.TempDir(), "none.env"))
	require.ErrorContains(t, err, "AUDIENT_AUTH_SECRET")
}
