// ABOUTME: Tests for the CLI wiring: logger output, HTTP routes, and cobra commands
// ABOUTME: Uses a mock querier so no database is needed

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/unwind-gateway/internal/auth"
	"github.com/2389/unwind-gateway/internal/config"
	"github.com/2389/unwind-gateway/internal/store"
)

const testSecret = "cli-test-secret"

// fakePool satisfies poolSource without a database.
type fakePool struct {
	*store.MockQuerier
	stat *pgxpool.Stat
}

func (f *fakePool) Stat() *pgxpool.Stat { return f.stat }

func disableColor(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

func testConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{HTTPAddr: "127.0.0.1:0", ShutdownTimeout: time.Second},
		Auth:    config.AuthConfig{JWTSecret: testSecret},
		Tools:   config.ToolsConfig{CallTimeout: time.Second},
		Logging: config.LoggingConfig{Level: "info", Format: "text"},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func writeConfigFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	content := `
auth:
  jwt_secret: "` + testSecret + `"
database:
  host: "localhost"
  password: "secret"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSetupLogger_Text(t *testing.T) {
	disableColor(t)
	var buf bytes.Buffer
	logger := setupLogger(&buf, config.LoggingConfig{Level: "info", Format: "text"})

	logger.With("component", "router").WithGroup("call").Info("tool finished", "tool", "search_items")
	logger.Debug("hidden")

	out := buf.String()
	assert.Contains(t, out, "INF tool finished")
	assert.Contains(t, out, " component=router")
	assert.Contains(t, out, " call.tool=search_items")
	assert.NotContains(t, out, "call.component")
	assert.NotContains(t, out, "hidden")
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

func TestSetupLogger_Levels(t *testing.T) {
	disableColor(t)
	var buf bytes.Buffer
	logger := setupLogger(&buf, config.LoggingConfig{Level: "debug"})

	logger.Debug("d")
	logger.Warn("w")
	logger.Error("e", "err", "boom")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "DBG d")
	assert.Contains(t, lines[1], "WRN w")
	assert.Contains(t, lines[2], "ERR e err=boom")
}

func TestSetupLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger(&buf, config.LoggingConfig{Level: "warn", Format: "json"})

	logger.Info("skipped")
	logger.Warn("pool exhausted", "max_conns", 10)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "pool exhausted", record["msg"])
	assert.Equal(t, "WARN", record["level"])
	assert.EqualValues(t, 10, record["max_conns"])
}

func TestNewHandler_Routes(t *testing.T) {
	logger := setupLogger(&bytes.Buffer{}, config.LoggingConfig{})
	ready := &fakePool{MockQuerier: store.NewMockQuerier(), stat: &pgxpool.Stat{}}

	handler, err := newHandler(testConfig(), ready, logger)
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"health", http.MethodGet, "/healthz", http.StatusOK},
		{"ready", http.MethodGet, "/readyz", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", http.StatusOK},
		{"mcp without token", http.MethodPost, "/mcp", http.StatusUnauthorized},
		{"unknown", http.MethodGet, "/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, strings.NewReader("{}")))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestNewHandler_NotReadyWithoutPool(t *testing.T) {
	logger := setupLogger(&bytes.Buffer{}, config.LoggingConfig{})
	handler, err := newHandler(testConfig(), &fakePool{MockQuerier: store.NewMockQuerier()}, logger)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNewHandler_MetricsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enabled = false
	logger := setupLogger(&bytes.Buffer{}, config.LoggingConfig{})

	handler, err := newHandler(cfg, &fakePool{MockQuerier: store.NewMockQuerier()}, logger)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewHandler_AuthenticatedInitialize(t *testing.T) {
	logger := setupLogger(&bytes.Buffer{}, config.LoggingConfig{})
	handler, err := newHandler(testConfig(), &fakePool{MockQuerier: store.NewMockQuerier()}, logger)
	require.NoError(t, err)

	token, err := auth.NewJWTVerifier([]byte(testSecret)).Generate("tenant-1", time.Minute)
	require.NoError(t, err)

	body := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-06-18"}}`
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Mcp-Session-Id"))
}

func TestToolsCommand(t *testing.T) {
	out, err := runCLI(t, "tools")
	require.NoError(t, err)

	assert.Contains(t, out, "TOOL")
	for _, name := range []string{"get_today_items", "get_user_stats", "get_spiral_items", "add_note_to_item"} {
		assert.Contains(t, out, name)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 16)
	for _, line := range lines {
		if strings.HasPrefix(line, "mark_item_complete") {
			assert.Contains(t, line, "shared")
		}
		if strings.HasPrefix(line, "get_worries") {
			assert.Contains(t, line, "data")
		}
	}
}

func TestTokenCommand(t *testing.T) {
	path := writeConfigFile(t)

	out, err := runCLI(t, "token", "--config", path, "--tenant", "tenant-42", "--ttl", "5m")
	require.NoError(t, err)

	tenantID, err := auth.NewJWTVerifier([]byte(testSecret)).Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "tenant-42", tenantID)
}

func TestTokenCommand_Errors(t *testing.T) {
	path := writeConfigFile(t)

	_, err := runCLI(t, "token", "--config", path)
	assert.ErrorContains(t, err, "--tenant is required")

	_, err = runCLI(t, "token", "--config", path, "--tenant", "t", "--ttl", "0s")
	assert.ErrorContains(t, err, "--ttl must be positive")
}

func TestLoadConfig_EnvPath(t *testing.T) {
	t.Setenv("UNWIND_CONFIG", writeConfigFile(t))

	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, testSecret, cfg.Auth.JWTSecret)
	assert.Equal(t, "localhost", cfg.Database.Host)
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv("UNWIND_CONFIG", "")
	t.Setenv("SUPABASE_JWT_SECRET", testSecret)
	t.Setenv("SUPABASE_DB_URL", "postgres://u:p@db:5432/app")

	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db:5432/app", cfg.Database.URL)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "missing.yaml")
}
