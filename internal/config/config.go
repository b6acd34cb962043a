// ABOUTME: Configuration loading and parsing for unwind-gateway
// ABOUTME: Supports YAML or TOML files and plain environment variables, with .env loading

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/2389/unwind-gateway/internal/store"
)

// Defaults applied when a value is not configured
const (
	DefaultHTTPAddr        = "0.0.0.0:8080"
	DefaultMetricsPath     = "/metrics"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultToolTimeout     = 30 * time.Second
)

// Config represents the complete unwind-gateway configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" toml:"server"`
	Database DatabaseConfig `yaml:"database" toml:"database"`
	Auth     AuthConfig     `yaml:"auth" toml:"auth"`
	Tools    ToolsConfig    `yaml:"tools" toml:"tools"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics" toml:"metrics"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr        string        `yaml:"http_addr" toml:"http_addr"`
	ShutdownTimeout time.Duration `yaml:"-" toml:"-"`

	ShutdownTimeoutRaw string `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
}

// DatabaseConfig holds Postgres connection and pool configuration.
// URL, when set, replaces the individual connection fields.
type DatabaseConfig struct {
	URL      string `yaml:"url" toml:"url"`
	Host     string `yaml:"host" toml:"host"`
	Port     int    `yaml:"port" toml:"port"`
	Name     string `yaml:"name" toml:"name"`
	User     string `yaml:"user" toml:"user"`
	Password string `yaml:"password" toml:"password"`
	SSLMode  string `yaml:"sslmode" toml:"sslmode"`

	MinConns int32 `yaml:"min_conns" toml:"min_conns"`
	MaxConns int32 `yaml:"max_conns" toml:"max_conns"`

	QueryTimeout   time.Duration `yaml:"-" toml:"-"`
	ConnectTimeout time.Duration `yaml:"-" toml:"-"`

	// Raw string values for unmarshaling
	QueryTimeoutRaw   string `yaml:"query_timeout" toml:"query_timeout"`
	ConnectTimeoutRaw string `yaml:"connect_timeout" toml:"connect_timeout"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" toml:"jwt_secret"`
}

// ToolsConfig holds tool execution settings
type ToolsConfig struct {
	CallTimeout    time.Duration `yaml:"-" toml:"-"`
	CallTimeoutRaw string        `yaml:"call_timeout" toml:"call_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// The format follows the extension (.yaml, .yml, or .toml). A .env file in the
// working directory or beside the config is loaded first without overriding
// variables already set. Environment variables in the format ${VAR_NAME} are expanded.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(".env", filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case ".toml":
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q (want .yaml, .yml, or .toml)", ext)
	}

	return finish(&cfg)
}

// FromEnv builds a Config from environment variables, after loading .env from
// the working directory if present.
//
//	SUPABASE_JWT_SECRET   token signing secret (required)
//	SUPABASE_DB_URL       full connection URL, overrides the fields below
//	SUPABASE_DB_HOST      database host (required without a URL)
//	SUPABASE_DB_PORT      default 5432
//	SUPABASE_DB_NAME      default postgres
//	SUPABASE_DB_USER      default postgres
//	SUPABASE_DB_PASSWORD  required without a URL
//	SUPABASE_DB_SSLMODE   default require
//	DB_POOL_MIN_SIZE      default 1
//	DB_POOL_MAX_SIZE      default 10
//	DB_QUERY_TIMEOUT      seconds or a duration, default 5s
//	UNWIND_HTTP_ADDR      default 0.0.0.0:8080
//	LOG_LEVEL, LOG_FORMAT default info, text
func FromEnv() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg := Config{
		Server: ServerConfig{HTTPAddr: os.Getenv("UNWIND_HTTP_ADDR")},
		Database: DatabaseConfig{
			URL:             os.Getenv("SUPABASE_DB_URL"),
			Host:            os.Getenv("SUPABASE_DB_HOST"),
			Name:            os.Getenv("SUPABASE_DB_NAME"),
			User:            os.Getenv("SUPABASE_DB_USER"),
			Password:        os.Getenv("SUPABASE_DB_PASSWORD"),
			SSLMode:         os.Getenv("SUPABASE_DB_SSLMODE"),
			QueryTimeoutRaw: secondsOrDuration(os.Getenv("DB_QUERY_TIMEOUT")),
		},
		Auth:    AuthConfig{JWTSecret: os.Getenv("SUPABASE_JWT_SECRET")},
		Logging: LoggingConfig{Level: os.Getenv("LOG_LEVEL"), Format: os.Getenv("LOG_FORMAT")},
		Metrics: MetricsConfig{Enabled: true},
	}

	var err error
	if cfg.Database.Port, err = envInt("SUPABASE_DB_PORT"); err != nil {
		return nil, err
	}
	minConns, err := envInt("DB_POOL_MIN_SIZE")
	if err != nil {
		return nil, err
	}
	maxConns, err := envInt("DB_POOL_MAX_SIZE")
	if err != nil {
		return nil, err
	}
	cfg.Database.MinConns = int32(minConns)
	cfg.Database.MaxConns = int32(maxConns)

	return finish(&cfg)
}

// finish applies defaults, parses durations, and validates.
func finish(cfg *Config) (*Config, error) {
	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// loadDotEnv loads each file that exists. Existing variables win.
func loadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// envInt parses an optional integer variable. Unset means zero.
func envInt(name string) (int, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", name, raw)
	}
	return n, nil
}

// secondsOrDuration treats a bare integer as seconds.
func secondsOrDuration(raw string) string {
	raw = strings.TrimSpace(raw)
	if _, err := strconv.Atoi(raw); err == nil {
		return raw + "s"
	}
	return raw
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

func applyDefaults(cfg *Config) {
	if cfg.Server.HTTPAddr == "" {
		cfg.Server.HTTPAddr = DefaultHTTPAddr
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.Name == "" {
		cfg.Database.Name = "postgres"
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "require"
	}
	if cfg.Database.MinConns == 0 {
		cfg.Database.MinConns = store.DefaultMinConns
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = store.DefaultMaxConns
	}
	if cfg.Database.QueryTimeout == 0 {
		cfg.Database.QueryTimeout = store.DefaultQueryTimeout
	}
	if cfg.Database.ConnectTimeout == 0 {
		cfg.Database.ConnectTimeout = store.DefaultConnectTimeout
	}
	if cfg.Tools.CallTimeout == 0 {
		cfg.Tools.CallTimeout = DefaultToolTimeout
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}

	if c.Database.URL == "" {
		if c.Database.Host == "" {
			return fmt.Errorf("database.host is required (or set database.url)")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required (or set database.url)")
		}
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("database.max_conns must be at least 1, got %d", c.Database.MaxConns)
	}
	if c.Database.MinConns < 0 {
		return fmt.Errorf("database.min_conns must not be negative, got %d", c.Database.MinConns)
	}
	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("database.min_conns (%d) must not exceed database.max_conns (%d)",
			c.Database.MinConns, c.Database.MaxConns)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return fmt.Errorf("logging.level %q is not a valid level", c.Logging.Level)
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /, got %q", c.Metrics.Path)
	}

	return nil
}

// SlogLevel returns the configured log level. Validate has already checked it.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	_ = level.UnmarshalText([]byte(c.Logging.Level))
	return level
}

// PoolConfig converts the database section for store.New.
func (c *Config) PoolConfig() store.PoolConfig {
	return store.PoolConfig{
		URL:            c.Database.URL,
		Host:           c.Database.Host,
		Port:           c.Database.Port,
		Database:       c.Database.Name,
		User:           c.Database.User,
		Password:       c.Database.Password,
		SSLMode:        c.Database.SSLMode,
		MinConns:       c.Database.MinConns,
		MaxConns:       c.Database.MaxConns,
		QueryTimeout:   c.Database.QueryTimeout,
		ConnectTimeout: c.Database.ConnectTimeout,
	}
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"server.shutdown_timeout", cfg.Server.ShutdownTimeoutRaw, &cfg.Server.ShutdownTimeout},
		{"database.query_timeout", cfg.Database.QueryTimeoutRaw, &cfg.Database.QueryTimeout},
		{"database.connect_timeout", cfg.Database.ConnectTimeoutRaw, &cfg.Database.ConnectTimeout},
		{"tools.call_timeout", cfg.Tools.CallTimeoutRaw, &cfg.Tools.CallTimeout},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %q", f.name, f.raw)
		}
		*f.dst = d
	}
	return nil
}
