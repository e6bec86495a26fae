package config

import (
	"os"
	"strconv"
	"time"

	"safeletstays/internal/cache"
	"safeletstays/internal/database"
	"safeletstays/internal/email"
	"safeletstays/internal/external"
	"safeletstays/internal/messaging"
)

// Config содержит конфигурацию приложения
type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration

	// Base URL used to build payment callback links
	PublicBaseURL string

	// Secret for signing checkout callback tokens
	TokenSecret   string
	TokenMaxAge   time.Duration

	// Session binding behaviour: log-only by default, reject on mismatch when strict
	StrictSessionBinding bool

	// Checkout creation rate limit per client IP
	CheckoutRateLimit  int
	CheckoutRateWindow time.Duration

	Database database.Config
	Cache    cache.Config
	NATS     messaging.Config
	Search   SearchConfig
	Payment  external.PaymentConfig
	Channel  external.ChannelConfig
	Email    email.Config
}

// SearchConfig содержит настройки Elasticsearch
type SearchConfig struct {
	URL        string
	Username   string
	Password   string
	Index      string
	MaxRetries int
	Enabled    bool
}

// Load загружает конфигурацию из переменных окружения
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,

		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),

		TokenSecret: getEnv("CALLBACK_TOKEN_SECRET", "change-me-in-production"),
		TokenMaxAge: time.Duration(getEnvInt("CALLBACK_TOKEN_MAX_AGE_HOURS", 48)) * time.Hour,

		StrictSessionBinding: getEnv("STRICT_SESSION_BINDING", "false") == "true",

		CheckoutRateLimit:  getEnvInt("CHECKOUT_RATE_LIMIT", 10),
		CheckoutRateWindow: time.Duration(getEnvInt("CHECKOUT_RATE_WINDOW_SEC", 300)) * time.Second,

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "safeletstays"),
			Password:           getEnv("DB_PASSWORD", "safeletstays123"),
			DBName:             getEnv("DB_NAME", "safeletstays"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
		},

		Cache: cache.Config{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},

		NATS: messaging.Config{
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "safeletstays"),
			ClientID:  getEnv("NATS_CLIENT_ID", "safeletstays-api"),
		},

		Search: SearchConfig{
			URL:        getEnv("ELASTICSEARCH_URL", "http://localhost:9200"),
			Username:   getEnv("ELASTICSEARCH_USERNAME", ""),
			Password:   getEnv("ELASTICSEARCH_PASSWORD", ""),
			Index:      getEnv("ELASTICSEARCH_INDEX", "properties"),
			MaxRetries: getEnvInt("ELASTICSEARCH_MAX_RETRIES", 3),
			Enabled:    getEnv("ELASTICSEARCH_ENABLED", "false") == "true",
		},

		Payment: external.PaymentConfig{
			BaseURL:       getEnv("PAYMENT_GATEWAY_URL", "https://checkout.example-pay.com"),
			MerchantID:    getEnv("PAYMENT_MERCHANT_ID", ""),
			SecretKey:     getEnv("PAYMENT_SECRET_KEY", ""),
			WebhookSecret: getEnv("PAYMENT_WEBHOOK_SECRET", ""),
			Currency:      getEnv("PAYMENT_CURRENCY", "GBP"),
			Timeout:       time.Duration(getEnvInt("PAYMENT_TIMEOUT_SEC", 30)) * time.Second,
		},

		Channel: external.ChannelConfig{
			BaseURL: getEnv("CHANNEL_MANAGER_URL", ""),
			APIKey:  getEnv("CHANNEL_MANAGER_API_KEY", ""),
			Timeout: time.Duration(getEnvInt("CHANNEL_MANAGER_TIMEOUT_SEC", 30)) * time.Second,
		},

		Email: email.Config{
			APIKey:    getEnv("MAILJET_API_KEY", ""),
			APISecret: getEnv("MAILJET_API_SECRET", ""),
			FromEmail: getEnv("DEFAULT_FROM_EMAIL", "hello@safeletstays.co.uk"),
			FromName:  getEnv("DEFAULT_FROM_NAME", "Safe Let Stays"),
			BCCEmail:  getEnv("SERVER_EMAIL", ""),
		},
	}
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает целочисленное значение переменной окружения
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
