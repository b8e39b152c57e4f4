package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const minSecretKeyLength = 32

var insecureSecretKeys = map[string]struct{}{
	"change_me_in_production":                    {},
	"replace_with_at_least_32_random_characters": {},
}

type Config struct {
	Port             string
	DBPath           string
	Location         *time.Location
	SecretKey        string
	DefaultLanguage  string
	LogLevel         string
	RedisAddress     string
	TelegramBotToken string
	CascadeTimeout   time.Duration
	SweepInterval    time.Duration
	CookieSecure     bool
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	location, err := time.LoadLocation(getEnv("TZ", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid TZ: %w", err)
	}

	cascadeTimeout, err := getDuration("CASCADE_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	if cascadeTimeout <= 0 {
		return nil, fmt.Errorf("CASCADE_TIMEOUT must be positive")
	}

	sweepInterval, err := getDuration("SWEEP_INTERVAL", 6*time.Hour)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:             getEnv("PORT", "8080"),
		DBPath:           getEnv("DB_PATH", filepath.Join("data", "mealplans.db")),
		Location:         location,
		SecretKey:        getEnv("SECRET_KEY", "change_me_in_production"),
		DefaultLanguage:  getEnv("DEFAULT_LANGUAGE", "en"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		RedisAddress:     strings.TrimSpace(os.Getenv("REDIS_ADDRESS")),
		TelegramBotToken: strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")),
		CascadeTimeout:   cascadeTimeout,
		SweepInterval:    sweepInterval,
		CookieSecure:     getEnv("COOKIE_SECURE", "false") == "true",
	}, nil
}

// ValidateSecretKey rejects placeholder and short signing keys. Only the
// HTTP server needs one.
func (cfg *Config) ValidateSecretKey() error {
	secret := strings.TrimSpace(cfg.SecretKey)
	if secret == "" {
		return fmt.Errorf("SECRET_KEY is required")
	}
	if _, insecure := insecureSecretKeys[secret]; insecure {
		return fmt.Errorf("SECRET_KEY uses an insecure placeholder value")
	}
	if len(secret) < minSecretKeyLength {
		return fmt.Errorf("SECRET_KEY must be at least %d characters", minSecretKeyLength)
	}
	return nil
}

func getEnv(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	if raw == "0" {
		return 0, nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return parsed, nil
}
