// Package config loads process configuration from the environment, with
// optional .env files for local runs.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the backend configuration.
type Config struct {
	Env            string
	HTTPAddr       string
	PostgresDSN    string
	AuthSecret     string
	AdminSecret    string
	TokenTTL       time.Duration
	RedisURL       string
	ConfigCacheTTL time.Duration
	LogLevel       string
	LogFormat      string
	RateBurst      int
	RatePerSec     float64
	MaxBodyBytes   int64
	CORSOrigins    []string
}

const devAuthSecret = "dev-insecure-secret"

// Load reads .env files (missing files are ignored; existing environment
// variables win) and builds a Config from AUDIENT_* variables.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var errs []error
	cfg := Config{
		Env:         getEnv("AUDIENT_ENV", "development"),
		HTTPAddr:    getEnv("AUDIENT_HTTP_ADDR", ":3001"),
		PostgresDSN: getEnv("AUDIENT_PG_DSN", ""),
		AuthSecret:  getEnv("AUDIENT_AUTH_SECRET", ""),
		AdminSecret: getEnv("AUDIENT_ADMIN_SECRET", ""),
		RedisURL:    getEnv("AUDIENT_REDIS_URL", ""),
		LogLevel:    getEnv("AUDIENT_LOG_LEVEL", "info"),
		LogFormat:   getEnv("AUDIENT_LOG_FORMAT", ""),
		CORSOrigins: splitList(getEnv("AUDIENT_CORS_ORIGINS", "*")),
	}
	cfg.TokenTTL = getDuration("AUDIENT_TOKEN_TTL", 7*24*time.Hour, &errs)
	cfg.ConfigCacheTTL = getDuration("AUDIENT_CONFIG_CACHE_TTL", 5*time.Minute, &errs)
	cfg.RateBurst = getInt("AUDIENT_RATE_BURST", 20, &errs)
	cfg.RatePerSec = getFloat("AUDIENT_RATE_PER_SEC", 10, &errs)
	cfg.MaxBodyBytes = int64(getInt("AUDIENT_MAX_BODY_BYTES", 1<<20, &errs))

	if cfg.AuthSecret == "" {
		if cfg.IsProduction() {
			errs = append(errs, errors.New("AUDIENT_AUTH_SECRET is required in production"))
		} else {
			cfg.AuthSecret = devAuthSecret
		}
	}
	if cfg.TokenTTL <= 0 {
		errs = append(errs, errors.New("AUDIENT_TOKEN_TTL must be positive"))
	}
	if cfg.RateBurst <= 0 || cfg.RatePerSec <= 0 {
		errs = append(errs, errors.New("rate limit settings must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// IsProduction reports whether Env names a production deployment.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return def
}

func getDuration(key string, def time.Duration, errs *[]error) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func getInt(key string, def int, errs *[]error) int {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func getFloat(key string, def float64, errs *[]error) float64 {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return f
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
