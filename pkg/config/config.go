package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Transport names accepted by ZENDESK_MCP_TRANSPORT.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Cursor backend names accepted by ZENDESK_MCP_CURSOR_BACKEND.
const (
	CursorBackendMemory   = "memory"
	CursorBackendRedis    = "redis"
	CursorBackendPostgres = "postgres"
)

// Config is the full process configuration, loaded from the
// environment (optionally seeded by a .env file).
type Config struct {
	Subdomain string
	Email     string
	APIToken  string

	Transport string
	HTTPAddr  string

	CursorBackend string
	CursorLabel   string
	RedisURL      string
	PostgresDSN   string

	LogLevel string
}

// Load reads configuration from the environment. A .env file in the
// working directory is applied first when present; real environment
// variables win over it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Subdomain:     os.Getenv("ZENDESK_SUBDOMAIN"),
		Email:         os.Getenv("ZENDESK_EMAIL"),
		APIToken:      os.Getenv("ZENDESK_API_TOKEN"),
		Transport:     getenvDefault("ZENDESK_MCP_TRANSPORT", TransportStdio),
		HTTPAddr:      getenvDefault("ZENDESK_MCP_HTTP_ADDR", ":8086"),
		CursorBackend: getenvDefault("ZENDESK_MCP_CURSOR_BACKEND", CursorBackendMemory),
		CursorLabel:   os.Getenv("ZENDESK_MCP_CURSOR_LABEL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		PostgresDSN:   os.Getenv("DATABASE_URL"),
		LogLevel:      getenvDefault("ZENDESK_MCP_LOG_LEVEL", "info"),
	}

	var missing []string
	if cfg.Subdomain == "" {
		missing = append(missing, "ZENDESK_SUBDOMAIN")
	}
	if cfg.Email == "" {
		missing = append(missing, "ZENDESK_EMAIL")
	}
	if cfg.APIToken == "" {
		missing = append(missing, "ZENDESK_API_TOKEN")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	switch cfg.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return nil, fmt.Errorf("transport must be %q or %q, got %q", TransportStdio, TransportHTTP, cfg.Transport)
	}

	switch cfg.CursorBackend {
	case CursorBackendMemory:
	case CursorBackendRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL is required for the redis cursor backend")
		}
	case CursorBackendPostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres cursor backend")
		}
	default:
		return nil, fmt.Errorf("cursor backend must be %q, %q, or %q, got %q",
			CursorBackendMemory, CursorBackendRedis, CursorBackendPostgres, cfg.CursorBackend)
	}

	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
