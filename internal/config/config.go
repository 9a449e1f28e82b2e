// internal/config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"storefront-wallet/pkg/db"
)

// CurrencyConfig controls the exchange rate resolver.
type CurrencyConfig struct {
	// FetchEnabled toggles live rate fetching; when false the resolver only
	// uses persisted and static rates.
	FetchEnabled bool
	// FetchTimeout bounds one call to the external rate provider.
	FetchTimeout time.Duration
	// CacheTTL is how long an in-memory rate set stays fresh.
	CacheTTL time.Duration
	// APIURL is the rate provider endpoint; "{base}" query param is appended.
	APIURL string
}

// AppConfig holds all application-wide configurations.
type AppConfig struct {
	ServerPort     string
	AllowedOrigins []string
	DB             db.Config
	Currency       CurrencyConfig
}

// LoadConfig loads configuration from environment variables, reading a .env
// file first when present.
func LoadConfig() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	fetchTimeoutMS, err := strconv.Atoi(getEnv("CURRENCY_FETCH_TIMEOUT_MS", "1200"))
	if err != nil {
		return nil, fmt.Errorf("invalid CURRENCY_FETCH_TIMEOUT_MS: %w", err)
	}

	cacheTTL, err := time.ParseDuration(getEnv("CURRENCY_CACHE_TTL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid CURRENCY_CACHE_TTL: %w", err)
	}

	return &AppConfig{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		DB: db.Config{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "user"),
			Password: getEnv("DB_PASSWORD", "password"),
			DBName:   getEnv("DB_NAME", "walletdb"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Currency: CurrencyConfig{
			FetchEnabled: getEnvBool("CURRENCY_FETCH_ENABLED", true),
			FetchTimeout: time.Duration(fetchTimeoutMS) * time.Millisecond,
			CacheTTL:     cacheTTL,
			APIURL:       getEnv("CURRENCY_API_URL", "https://api.exchangerate.host/latest"),
		},
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
