package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	Environment string
	ServerPort  int
	Version     string
	LogLevel    string

	// Database; empty DBHost selects the in-memory stores
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Session registry; empty RedisURL selects the in-memory registry
	RedisURL string

	JWTSecret            string
	TokenTTL             time.Duration
	SessionSweepInterval time.Duration

	// External order factory; empty FactoryURL disables fulfillment
	FactoryURL     string
	FactoryAPIKey  string
	FactoryTimeout time.Duration

	ListPerPage        int
	CORSAllowedOrigins []string
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	tokenTTLMin, err := strconv.Atoi(getEnv("TOKEN_TTL_MINUTES", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL_MINUTES: %w", err)
	}

	sweepMin, err := strconv.Atoi(getEnv("SESSION_SWEEP_INTERVAL_MINUTES", "1"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_SWEEP_INTERVAL_MINUTES: %w", err)
	}

	factoryTimeoutSec, err := strconv.Atoi(getEnv("FACTORY_TIMEOUT_SECONDS", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid FACTORY_TIMEOUT_SECONDS: %w", err)
	}

	listPerPage, err := strconv.Atoi(getEnv("LIST_PER_PAGE", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid LIST_PER_PAGE: %w", err)
	}

	return &Config{
		Environment:          getEnv("ENVIRONMENT", "development"),
		ServerPort:           port,
		Version:              getEnv("VERSION", "dev"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		DBHost:               os.Getenv("DB_HOST"),
		DBPort:               dbPort,
		DBUser:               getEnv("DB_USER", "orderdesk"),
		DBPassword:           getEnv("DB_PASSWORD", "dev"),
		DBName:               getEnv("DB_NAME", "orderdesk"),
		DBSSLMode:            getEnv("DB_SSLMODE", "disable"),
		RedisURL:             os.Getenv("REDIS_URL"),
		JWTSecret:            getEnv("JWT_SECRET", "change-me-in-production"),
		TokenTTL:             time.Duration(tokenTTLMin) * time.Minute,
		SessionSweepInterval: time.Duration(sweepMin) * time.Minute,
		FactoryURL:           os.Getenv("FACTORY_URL"),
		FactoryAPIKey:        os.Getenv("FACTORY_API_KEY"),
		FactoryTimeout:       time.Duration(factoryTimeoutSec) * time.Second,
		ListPerPage:          listPerPage,
		CORSAllowedOrigins: parseCSVEnv("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:5173",
			"http://localhost:3000",
		}),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseCSVEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
