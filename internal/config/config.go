package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr            string
	DatabaseURL     string
	SessionLifetime time.Duration
	AdminEmails     []string
	AllowedOrigins  []string

	RedisURL string
	CacheTTL time.Duration

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubscriber string

	ExpirySweepSchedule string
	VoteRateLimit       float64

	SentryDSN   string
	Environment string

	DiscordKey         string
	DiscordSecret      string
	DiscordCallbackURL string
	GoogleKey          string
	GoogleSecret       string
	GoogleCallbackURL  string
}

const defaultDatabaseURL = "file:hominio.db?_journal_mode=WAL"

// Load reads the process environment, after applying a .env file if one exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from the given lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Addr:                valueOr(getenv("ADDR"), ":8080"),
		DatabaseURL:         valueOr(getenv("DATABASE_URL"), defaultDatabaseURL),
		AdminEmails:         splitCSV(strings.ToLower(getenv("ADMIN_EMAILS"))),
		AllowedOrigins:      splitCSV(getenv("CORS_ALLOWED_ORIGINS")),
		RedisURL:            strings.TrimSpace(getenv("REDIS_URL")),
		VAPIDPublicKey:      getenv("VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey:     getenv("VAPID_PRIVATE_KEY"),
		VAPIDSubscriber:     valueOr(getenv("VAPID_SUBSCRIBER"), "mailto:admin@hominio.me"),
		ExpirySweepSchedule: strings.TrimSpace(getenv("EXPIRY_SWEEP_SCHEDULE")),
		SentryDSN:           getenv("SENTRY_DSN"),
		Environment:         valueOr(getenv("APP_ENV"), "development"),
		DiscordKey:          getenv("DISCORD_KEY"),
		DiscordSecret:       getenv("DISCORD_SECRET"),
		DiscordCallbackURL:  getenv("DISCORD_CALLBACK_URL"),
		GoogleKey:           getenv("GOOGLE_KEY"),
		GoogleSecret:        getenv("GOOGLE_SECRET"),
		GoogleCallbackURL:   getenv("GOOGLE_CALLBACK_URL"),
	}

	var err error
	if cfg.SessionLifetime, err = durationOr(getenv("SESSION_LIFETIME"), 24*time.Hour); err != nil {
		return nil, fmt.Errorf("SESSION_LIFETIME: %w", err)
	}
	if cfg.CacheTTL, err = durationOr(getenv("CACHE_TTL"), 30*time.Second); err != nil {
		return nil, fmt.Errorf("CACHE_TTL: %w", err)
	}

	cfg.VoteRateLimit = 5
	if raw := strings.TrimSpace(getenv("VOTE_RATE_LIMIT")); raw != "" {
		limit, err := strconv.ParseFloat(raw, 64)
		if err != nil || limit <= 0 {
			return nil, fmt.Errorf("VOTE_RATE_LIMIT: invalid value %q", raw)
		}
		cfg.VoteRateLimit = limit
	}

	return cfg, nil
}

func (c *Config) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	for _, admin := range c.AdminEmails {
		if admin == email {
			return true
		}
	}
	return false
}

func (c *Config) PushEnabled() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func valueOr(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	return v
}

func durationOr(raw string, fallback time.Duration) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	return time.ParseDuration(raw)
}

func splitCSV(input string) []string {
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
