package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("ZENDESK_SUBDOMAIN", "acme")
	t.Setenv("ZENDESK_EMAIL", "agent@example.com")
	t.Setenv("ZENDESK_API_TOKEN", "token")
	t.Setenv("ZENDESK_MCP_TRANSPORT", "")
	t.Setenv("ZENDESK_MCP_HTTP_ADDR", "")
	t.Setenv("ZENDESK_MCP_CURSOR_BACKEND", "")
	t.Setenv("ZENDESK_MCP_LOG_LEVEL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("DATABASE_URL", "")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "acme", cfg.Subdomain)
	assert.Equal(t, TransportStdio, cfg.Transport)
	assert.Equal(t, ":8086", cfg.HTTPAddr)
	assert.Equal(t, CursorBackendMemory, cfg.CursorBackend)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadReportsAllMissingVariables(t *testing.T) {
	setRequired(t)
	t.Setenv("ZENDESK_SUBDOMAIN", "")
	t.Setenv("ZENDESK_API_TOKEN", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required environment variables")
	assert.Contains(t, err.Error(), "ZENDESK_SUBDOMAIN")
	assert.Contains(t, err.Error(), "ZENDESK_API_TOKEN")
	assert.NotContains(t, err.Error(), "ZENDESK_EMAIL")
}

func TestLoadRejectsUnknownTransport(t *testing.T) {
	setRequired(t)
	t.Setenv("ZENDESK_MCP_TRANSPORT", "grpc")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transport must be")
}

func TestLoadCursorBackends(t *testing.T) {
	setRequired(t)
	t.Setenv("ZENDESK_MCP_CURSOR_BACKEND", "redis")
	_, err := Load()
	require.Error(t, err, "redis backend needs REDIS_URL")

	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, CursorBackendRedis, cfg.CursorBackend)

	t.Setenv("ZENDESK_MCP_CURSOR_BACKEND", "postgres")
	_, err = Load()
	require.Error(t, err, "postgres backend needs DATABASE_URL")

	t.Setenv("DATABASE_URL", "postgres://localhost/cursors")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, CursorBackendPostgres, cfg.CursorBackend)

	t.Setenv("ZENDESK_MCP_CURSOR_BACKEND", "etcd")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cursor backend must be")
}

func TestLoadHTTPTransport(t *testing.T) {
	setRequired(t)
	t.Setenv("ZENDESK_MCP_TRANSPORT", "http")
	t.Setenv("ZENDESK_MCP_HTTP_ADDR", ":9090")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, TransportHTTP, cfg.Transport)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
}
