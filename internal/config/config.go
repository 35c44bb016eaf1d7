package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the adintelli service.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Source       SourceConfig       `yaml:"source"`
	Database     DatabaseConfig     `yaml:"database"`
	ClickHouse   ClickHouseConfig   `yaml:"clickhouse"`
	Upstream     UpstreamConfig     `yaml:"upstream"`
	Redis        RedisConfig        `yaml:"redis"`
	Refresh      RefreshConfig      `yaml:"refresh"`
	Projection   ProjectionConfig   `yaml:"projection"`
	Integrations IntegrationsConfig `yaml:"integrations"`
	RateLimit    RateLimitConfig    `yaml:"rate_limit"`
	Log          LogConfig          `yaml:"log"`
	Metrics      MetricsConfig      `yaml:"metrics"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	Env             string        `yaml:"env"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

// SourceConfig selects where raw ad records come from.
type SourceConfig struct {
	// Kind is one of memory, postgres, clickhouse, http.
	Kind string `yaml:"kind"`
	// CSVPath seeds the memory source from a CSV export when set.
	CSVPath string `yaml:"csv_path"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type ClickHouseConfig struct {
	Addr     []string `yaml:"addr"`
	Database string   `yaml:"database"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	Table    string   `yaml:"table"`
}

// UpstreamConfig points at another backend exposing /getAllCampaigns-style records.
type UpstreamConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// RefreshConfig drives the periodic insight refresh.
type RefreshConfig struct {
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
}

// ProjectionConfig bounds the budget slider of the projection model.
type ProjectionConfig struct {
	MinBudget float64 `yaml:"min_budget"`
	MaxBudget float64 `yaml:"max_budget"`
	Step      float64 `yaml:"step"`
	Baseline  float64 `yaml:"baseline"`
}

// OAuthClientConfig holds the app credentials registered with an ad platform.
type OAuthClientConfig struct {
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	Scopes       []string `yaml:"scopes"`
}

type IntegrationsConfig struct {
	// Store is memory or redis.
	Store           string                       `yaml:"store"`
	RedirectBaseURL string                       `yaml:"redirect_base_url"`
	Clients         map[string]OAuthClientConfig `yaml:"clients"`
}

type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled"`
	RPS     float64 `yaml:"rps"`
	Burst   int     `yaml:"burst"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}

// OAuthPlatforms lists the platforms whose client credentials can be set
// through the environment.
var OAuthPlatforms = []string{"google-ads", "meta-ads", "linkedin-ads", "tiktok-ads"}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":5000",
			Env:             "development",
			ShutdownTimeout: 30 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Source: SourceConfig{
			Kind: "memory",
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "adintelli",
			Password: "adintelli",
			DBName:   "adintelli",
			SSLMode:  "disable",
			MaxConns: 10,
			MinConns: 1,
		},
		ClickHouse: ClickHouseConfig{
			Addr:     []string{"localhost:9000"},
			Database: "default",
			Username: "default",
			Table:    "campaigns",
		},
		Upstream: UpstreamConfig{
			Timeout: 15 * time.Second,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Refresh: RefreshConfig{
			Interval: 15 * time.Second,
			Timeout:  10 * time.Second,
		},
		Projection: ProjectionConfig{
			MinBudget: 10000,
			MaxBudget: 100000,
			Step:      5000,
			Baseline:  75000,
		},
		Integrations: IntegrationsConfig{
			Store:           "memory",
			RedirectBaseURL: "http://localhost:3000/integrations/callback",
			Clients:         map[string]OAuthClientConfig{},
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			RPS:     50,
			Burst:   20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Path:      "/metrics",
			Namespace: "adintelli",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment, in that order of precedence (environment wins).
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Addr = getEnv("ADINTELLI_HTTP_ADDR", c.Server.Addr)
	c.Server.Env = getEnv("ADINTELLI_ENV", c.Server.Env)
	c.Server.ShutdownTimeout = getDurationEnv("ADINTELLI_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)
	c.Server.AllowedOrigins = getSliceEnv("ADINTELLI_ALLOWED_ORIGINS", c.Server.AllowedOrigins)

	c.Source.Kind = strings.ToLower(getEnv("ADINTELLI_SOURCE", c.Source.Kind))
	c.Source.CSVPath = getEnv("ADINTELLI_SOURCE_CSV", c.Source.CSVPath)

	c.Database.Host = getEnv("ADINTELLI_DB_HOST", c.Database.Host)
	c.Database.Port = getIntEnv("ADINTELLI_DB_PORT", c.Database.Port)
	c.Database.User = getEnv("ADINTELLI_DB_USER", c.Database.User)
	c.Database.Password = getEnv("ADINTELLI_DB_PASSWORD", c.Database.Password)
	c.Database.DBName = getEnv("ADINTELLI_DB_NAME", c.Database.DBName)
	c.Database.SSLMode = getEnv("ADINTELLI_DB_SSLMODE", c.Database.SSLMode)
	c.Database.MaxConns = getIntEnv("ADINTELLI_DB_MAX_CONNS", c.Database.MaxConns)
	c.Database.MinConns = getIntEnv("ADINTELLI_DB_MIN_CONNS", c.Database.MinConns)

	c.ClickHouse.Addr = getSliceEnv("ADINTELLI_CLICKHOUSE_ADDR", c.ClickHouse.Addr)
	c.ClickHouse.Database = getEnv("ADINTELLI_CLICKHOUSE_DB", c.ClickHouse.Database)
	c.ClickHouse.Username = getEnv("ADINTELLI_CLICKHOUSE_USER", c.ClickHouse.Username)
	c.ClickHouse.Password = getEnv("ADINTELLI_CLICKHOUSE_PASSWORD", c.ClickHouse.Password)
	c.ClickHouse.Table = getEnv("ADINTELLI_CLICKHOUSE_TABLE", c.ClickHouse.Table)

	c.Upstream.URL = getEnv("ADINTELLI_UPSTREAM_URL", c.Upstream.URL)
	c.Upstream.Timeout = getDurationEnv("ADINTELLI_UPSTREAM_TIMEOUT", c.Upstream.Timeout)

	c.Redis.Addr = getEnv("ADINTELLI_REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("ADINTELLI_REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getIntEnv("ADINTELLI_REDIS_DB", c.Redis.DB)

	c.Refresh.Interval = getDurationEnv("ADINTELLI_REFRESH_INTERVAL", c.Refresh.Interval)
	c.Refresh.Timeout = getDurationEnv("ADINTELLI_REFRESH_TIMEOUT", c.Refresh.Timeout)

	c.Projection.MinBudget = getFloatEnv("ADINTELLI_PROJECTION_MIN_BUDGET", c.Projection.MinBudget)
	c.Projection.MaxBudget = getFloatEnv("ADINTELLI_PROJECTION_MAX_BUDGET", c.Projection.MaxBudget)
	c.Projection.Step = getFloatEnv("ADINTELLI_PROJECTION_STEP", c.Projection.Step)
	c.Projection.Baseline = getFloatEnv("ADINTELLI_PROJECTION_BASELINE", c.Projection.Baseline)

	c.Integrations.Store = strings.ToLower(getEnv("ADINTELLI_INTEGRATIONS_STORE", c.Integrations.Store))
	c.Integrations.RedirectBaseURL = getEnv("ADINTELLI_INTEGRATIONS_REDIRECT_URL", c.Integrations.RedirectBaseURL)
	if c.Integrations.Clients == nil {
		c.Integrations.Clients = map[string]OAuthClientConfig{}
	}
	for _, p := range OAuthPlatforms {
		prefix := "ADINTELLI_" + strings.ToUpper(strings.ReplaceAll(p, "-", "_"))
		client := c.Integrations.Clients[p]
		client.ClientID = getEnv(prefix+"_CLIENT_ID", client.ClientID)
		client.ClientSecret = getEnv(prefix+"_CLIENT_SECRET", client.ClientSecret)
		client.Scopes = getSliceEnv(prefix+"_SCOPES", client.Scopes)
		if client.ClientID != "" || client.ClientSecret != "" || len(client.Scopes) > 0 {
			c.Integrations.Clients[p] = client
		}
	}

	c.RateLimit.Enabled = getBoolEnv("ADINTELLI_RATE_LIMIT_ENABLED", c.RateLimit.Enabled)
	c.RateLimit.RPS = getFloatEnv("ADINTELLI_RATE_LIMIT_RPS", c.RateLimit.RPS)
	c.RateLimit.Burst = getIntEnv("ADINTELLI_RATE_LIMIT_BURST", c.RateLimit.Burst)

	c.Log.Level = getEnv("ADINTELLI_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("ADINTELLI_LOG_FORMAT", c.Log.Format)

	c.Metrics.Enabled = getBoolEnv("ADINTELLI_METRICS_ENABLED", c.Metrics.Enabled)
	c.Metrics.Path = getEnv("ADINTELLI_METRICS_PATH", c.Metrics.Path)
	c.Metrics.Namespace = getEnv("ADINTELLI_METRICS_NAMESPACE", c.Metrics.Namespace)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Source.Kind {
	case "memory", "postgres", "clickhouse":
	case "http":
		if c.Upstream.URL == "" {
			return fmt.Errorf("ADINTELLI_UPSTREAM_URL is required when source is http")
		}
	default:
		return fmt.Errorf("unknown source kind %q", c.Source.Kind)
	}

	switch c.Integrations.Store {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown integrations store %q", c.Integrations.Store)
	}

	if c.Refresh.Interval <= 0 {
		return fmt.Errorf("refresh interval must be positive")
	}
	if c.Refresh.Timeout <= 0 {
		return fmt.Errorf("refresh timeout must be positive")
	}

	p := c.Projection
	if p.Step <= 0 || p.MinBudget <= 0 || p.MaxBudget < p.MinBudget {
		return fmt.Errorf("invalid projection range %.0f-%.0f step %.0f", p.MinBudget, p.MaxBudget, p.Step)
	}
	if p.Baseline < p.MinBudget || p.Baseline > p.MaxBudget {
		return fmt.Errorf("projection baseline %.0f outside %.0f-%.0f", p.Baseline, p.MinBudget, p.MaxBudget)
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// Helper functions for reading environment variables

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getFloatEnv(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getSliceEnv(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				result = append(result, p)
			}
		}
		return result
	}
	return def
}
