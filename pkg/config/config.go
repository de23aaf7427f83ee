package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/opsfloor/sophub/pkg/db"
	"github.com/opsfloor/sophub/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database db.Config

	// Auth configuration
	Auth AuthConfig

	// AI assist configuration
	AI AIConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// AuthConfig holds session token settings
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// AIConfig holds Gemini assist settings
type AIConfig struct {
	GeminiAPIKey      string
	GeminiModel       string
	RequestTimeout    time.Duration
	SummarizeSchedule string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Database:      loadDatabaseConfig(),
		Auth:          loadAuthConfig(),
		AI:            loadAIConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("SOPHUB_HOST", "0.0.0.0"),
		Port:            getEnv("SOPHUB_PORT", "8080"),
		ReadTimeout:     getEnvDuration("SOPHUB_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("SOPHUB_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("SOPHUB_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("SOPHUB_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("SOPHUB_HEALTH_PORT", "9090"),
	}
}

// loadDatabaseConfig loads database configuration from environment
func loadDatabaseConfig() db.Config {
	cfg := db.DefaultConfig()

	if url := getEnv("SOPHUB_POSTGRES_URL", ""); url != "" {
		cfg.URL = url
	}
	if maxConns := getEnvInt("SOPHUB_POSTGRES_MAX_CONNS", 0); maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	if minConns := getEnvInt("SOPHUB_POSTGRES_MIN_CONNS", 0); minConns > 0 {
		cfg.MinConns = minConns
	}
	if timeout := getEnvDuration("SOPHUB_POSTGRES_TIMEOUT", 0); timeout > 0 {
		cfg.Timeout = timeout
	}

	return cfg
}

// loadAuthConfig loads session token configuration from environment
func loadAuthConfig() AuthConfig {
	return AuthConfig{
		JWTSecret: getEnv("SOPHUB_JWT_SECRET", ""),
		TokenTTL:  getEnvDuration("SOPHUB_TOKEN_TTL", 12*time.Hour),
	}
}

// loadAIConfig loads Gemini assist configuration from environment
func loadAIConfig() AIConfig {
	return AIConfig{
		GeminiAPIKey:      getEnv("SOPHUB_GEMINI_API_KEY", ""),
		GeminiModel:       getEnv("SOPHUB_GEMINI_MODEL", "gemini-2.0-flash"),
		RequestTimeout:    getEnvDuration("SOPHUB_GEMINI_TIMEOUT", 30*time.Second),
		SummarizeSchedule: getEnv("SOPHUB_SUMMARIZE_SCHEDULE", "@every 1m"),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:       observability.ParseLogLevel(getEnv("SOPHUB_LOG_LEVEL", "info")),
		MetricsEnabled: getEnvBool("SOPHUB_METRICS_ENABLED", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}

	// Gemini key is optional; the AI assist endpoints report unavailable
	// when it is missing.

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
