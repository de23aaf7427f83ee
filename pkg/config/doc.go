// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for all settings.
//
// # Configuration Structure
//
// Server settings:
//
//	SOPHUB_HOST="0.0.0.0"
//	SOPHUB_PORT="8080"
//	SOPHUB_HEALTH_PORT="9090"
//	SOPHUB_READ_TIMEOUT="15s"
//	SOPHUB_WRITE_TIMEOUT="15s"
//
// Database settings:
//
//	SOPHUB_POSTGRES_URL="postgres://localhost/sophub"
//	SOPHUB_POSTGRES_MAX_CONNS="25"
//	SOPHUB_POSTGRES_TIMEOUT="10s"
//
// Auth settings:
//
//	SOPHUB_JWT_SECRET="..."     # required
//	SOPHUB_TOKEN_TTL="12h"
//
// AI assist settings:
//
//	SOPHUB_GEMINI_API_KEY="..."  # optional; assist endpoints disabled without it
//	SOPHUB_GEMINI_MODEL="gemini-2.0-flash"
//	SOPHUB_GEMINI_TIMEOUT="30s"
//	SOPHUB_SUMMARIZE_SCHEDULE="@every 1m"
//
// Observability settings:
//
//	SOPHUB_LOG_LEVEL="info"  # debug, info, warn, error
//	SOPHUB_METRICS_ENABLED="true"
//
// # Usage Example
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatalf("invalid configuration: %v", err)
//	}
package config
