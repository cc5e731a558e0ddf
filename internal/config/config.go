package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig aggregates runtime configuration, injected through environment
// variables with local-development defaults.
type AppConfig struct {
	HTTPAddr string

	DBHost string
	DBPort string
	DBUser string
	DBPass string
	DBName string

	RedisAddr string
	RedisDB   int

	KafkaBrokers []string
	KafkaTopic   string

	JWTSecret string

	StripeSecretKey     string
	StripeWebhookSecret string
	StripeBaseURL       string

	// GatewayTimeout bounds every call to the payment gateway.
	GatewayTimeout time.Duration
	// WebhookRetention is how long processed-event records are kept before
	// the purge sweep removes them; the provider does not replay events
	// beyond this window.
	WebhookRetention time.Duration
}

// Load reads and validates configuration, falling back to defaults for
// anything unset.
func Load() (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddr:            getEnv("HTTP_ADDR", ":8080"),
		DBHost:              getEnv("DB_HOST", "127.0.0.1"),
		DBPort:              getEnv("DB_PORT", "3306"),
		DBUser:              getEnv("DB_USER", "root"),
		DBPass:              getEnv("DB_PASS", ""),
		DBName:              getEnv("DB_NAME", "ecommerce"),
		RedisAddr:           getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:             0,
		KafkaBrokers:        splitCSV(getEnv("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:          getEnv("KAFKA_TOPIC", "order-topic"),
		JWTSecret:           getEnv("JWT_SECRET", "secret"),
		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripeBaseURL:       getEnv("STRIPE_BASE_URL", "https://api.stripe.com"),
		GatewayTimeout:      10 * time.Second,
		WebhookRetention:    72 * time.Hour,
	}

	redisDB, err := getEnvInt("REDIS_DB", cfg.RedisDB)
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	cfg.RedisDB = redisDB

	timeoutSec, err := getEnvInt("GATEWAY_TIMEOUT_SEC", int(cfg.GatewayTimeout.Seconds()))
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid GATEWAY_TIMEOUT_SEC: %w", err)
	}
	if timeoutSec <= 0 {
		return AppConfig{}, fmt.Errorf("GATEWAY_TIMEOUT_SEC must be > 0")
	}
	cfg.GatewayTimeout = time.Duration(timeoutSec) * time.Second

	retentionHour, err := getEnvInt("WEBHOOK_RETENTION_HOUR", int(cfg.WebhookRetention.Hours()))
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid WEBHOOK_RETENTION_HOUR: %w", err)
	}
	if retentionHour <= 0 {
		return AppConfig{}, fmt.Errorf("WEBHOOK_RETENTION_HOUR must be > 0")
	}
	cfg.WebhookRetention = time.Duration(retentionHour) * time.Hour

	if len(cfg.KafkaBrokers) == 0 {
		return AppConfig{}, fmt.Errorf("KAFKA_BROKERS must not be empty")
	}
	if cfg.KafkaTopic == "" {
		return AppConfig{}, fmt.Errorf("KAFKA_TOPIC must not be empty")
	}

	return cfg, nil
}

// DSN builds the MySQL connection string.
func (c AppConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBName)
}

func getEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
