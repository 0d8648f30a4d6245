package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string
	MigrateOnStart     bool

	MastersCacheTTL time.Duration
	IdempotencyTTL  time.Duration
	BodyLimitBytes  int64

	SubmitRateLimitMax    int
	SubmitRateLimitWindow time.Duration

	TournamentSearchDefaultTake int
	TournamentSearchMaxTake     int

	ReceiptTimezone string

	AdminBasicAuthUser string
	AdminBasicAuthPass string

	ReceiptEmailEnabled bool
	ReceiptEmailFrom    string
	SMTPAddr            string
	SMTPUsername        string
	SMTPPassword        string
	WorkerConcurrency   int
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        strings.TrimSpace(k.String("DATABASE_URL")),
		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		MigrateOnStart:     parseBool(k.String("MIGRATE_ON_START")),

		MastersCacheTTL: parseDuration(k.String("MASTERS_CACHE_TTL"), "5m"),
		IdempotencyTTL:  parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		BodyLimitBytes:  int64(parseInt(k.String("BODY_LIMIT_BYTES"), 1<<20)),

		SubmitRateLimitMax:    parseInt(k.String("SUBMIT_RATE_LIMIT_MAX"), 10),
		SubmitRateLimitWindow: parseDuration(k.String("SUBMIT_RATE_LIMIT_WINDOW"), "1m"),

		TournamentSearchDefaultTake: parseInt(k.String("TOURNAMENT_SEARCH_DEFAULT_TAKE"), 20),
		TournamentSearchMaxTake:     parseInt(k.String("TOURNAMENT_SEARCH_MAX_TAKE"), 100),

		ReceiptTimezone: valueOrDefault(k.String("RECEIPT_TIMEZONE"), "Asia/Tokyo"),

		AdminBasicAuthUser: strings.TrimSpace(k.String("ADMIN_BASIC_AUTH_USER")),
		AdminBasicAuthPass: k.String("ADMIN_BASIC_AUTH_PASS"),

		ReceiptEmailEnabled: parseBool(k.String("RECEIPT_EMAIL_ENABLED")),
		ReceiptEmailFrom:    valueOrDefault(k.String("RECEIPT_EMAIL_FROM"), "no-reply@example.com"),
		SMTPAddr:            strings.TrimSpace(k.String("SMTP_ADDR")),
		SMTPUsername:        k.String("SMTP_USERNAME"),
		SMTPPassword:        k.String("SMTP_PASSWORD"),
		WorkerConcurrency:   parseInt(k.String("WORKER_CONCURRENCY"), 5),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.TournamentSearchMaxTake < cfg.TournamentSearchDefaultTake {
		return nil, fmt.Errorf("TOURNAMENT_SEARCH_MAX_TAKE (%d) is below TOURNAMENT_SEARCH_DEFAULT_TAKE (%d)",
			cfg.TournamentSearchMaxTake, cfg.TournamentSearchDefaultTake)
	}
	if _, err := time.LoadLocation(cfg.ReceiptTimezone); err != nil {
		return nil, fmt.Errorf("RECEIPT_TIMEZONE: %w", err)
	}
	if (cfg.AdminBasicAuthUser == "") != (cfg.AdminBasicAuthPass == "") {
		return nil, errors.New("ADMIN_BASIC_AUTH_USER and ADMIN_BASIC_AUTH_PASS must be set together")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// ReceiptLocation resolves ReceiptTimezone, falling back to UTC.
func (c *Config) ReceiptLocation() *time.Location {
	loc, err := time.LoadLocation(c.ReceiptTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// AdminEnabled reports whether the admin routes should be mounted.
func (c *Config) AdminEnabled() bool {
	return c.AdminBasicAuthUser != "" && c.AdminBasicAuthPass != ""
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// MustLoad behaves like Load but panics on error. Useful for command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
