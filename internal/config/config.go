package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Session   SessionConfig   `yaml:"session"`
	Summary   SummaryConfig   `yaml:"summary"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
	// DevUser is the login assigned to requests when Tailscale is disabled.
	DevUser string `yaml:"dev_user"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// SessionConfig controls the live workout engine.
type SessionConfig struct {
	// Store selects the durable slot backend: "sqlite" or "file".
	Store           string        `yaml:"store"`
	Path            string        `yaml:"path"`
	RestSeconds     int           `yaml:"rest_seconds"`
	ElapsedInterval time.Duration `yaml:"elapsed_interval"`
	TickInterval    time.Duration `yaml:"tick_interval"`
	CountdownFrom   int           `yaml:"countdown_from"`
	Volume          float64       `yaml:"volume"`
}

type SummaryConfig struct {
	MET          float64 `yaml:"met"`
	BodyWeightKg float64 `yaml:"body_weight_kg"`
}

// MetricsConfig enables the Prometheus endpoint at /metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// SlogLevel maps the configured level name to a slog.Level.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads config from a YAML file, then applies defaults and environment
// variable overrides. Env vars use the prefix SETLOG_ and underscore-separated paths:
//
//	SETLOG_SERVER_HOST, SETLOG_SERVER_PORT,
//	SETLOG_DB_HOST, SETLOG_DB_PORT, SETLOG_DB_NAME,
//	SETLOG_DB_USER, SETLOG_DB_PASSWORD, SETLOG_DB_SSLMODE,
//	SETLOG_AUTH_API_KEY, SETLOG_AUTH_DEV_USER,
//	SETLOG_TAILSCALE_ENABLED, SETLOG_TAILSCALE_HOSTNAME, SETLOG_TAILSCALE_STATE_DIR,
//	SETLOG_SESSION_STORE, SETLOG_SESSION_PATH, SETLOG_SESSION_REST_SECONDS,
//	SETLOG_METRICS_ENABLED, SETLOG_LOG_LEVEL
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SETLOG_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SETLOG_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SETLOG_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("SETLOG_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("SETLOG_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("SETLOG_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("SETLOG_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("SETLOG_DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("SETLOG_AUTH_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("SETLOG_AUTH_DEV_USER"); v != "" {
		cfg.Auth.DevUser = v
	}
	if v := os.Getenv("SETLOG_TAILSCALE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = b
		}
	}
	if v := os.Getenv("SETLOG_TAILSCALE_HOSTNAME"); v != "" {
		cfg.Tailscale.Hostname = v
	}
	if v := os.Getenv("SETLOG_TAILSCALE_STATE_DIR"); v != "" {
		cfg.Tailscale.StateDir = v
	}
	if v := os.Getenv("SETLOG_SESSION_STORE"); v != "" {
		cfg.Session.Store = v
	}
	if v := os.Getenv("SETLOG_SESSION_PATH"); v != "" {
		cfg.Session.Path = v
	}
	if v := os.Getenv("SETLOG_SESSION_REST_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Session.RestSeconds = n
		}
	}
	if v := os.Getenv("SETLOG_METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Metrics.Enabled = b
		}
	}
	if v := os.Getenv("SETLOG_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

func (c *Config) applyDefaults() {
	if c.Tailscale.Hostname == "" {
		c.Tailscale.Hostname = "setlog"
	}
	if c.Tailscale.StateDir == "" {
		c.Tailscale.StateDir = "tsnet-state"
	}
	if c.Auth.DevUser == "" {
		c.Auth.DevUser = "dev@localhost"
	}
	if c.Session.Store == "" {
		c.Session.Store = "sqlite"
	}
	if c.Session.Path == "" {
		c.Session.Path = "state"
	}
	if c.Session.RestSeconds == 0 {
		c.Session.RestSeconds = 90
	}
	if c.Session.ElapsedInterval == 0 {
		c.Session.ElapsedInterval = time.Second
	}
	if c.Session.TickInterval == 0 {
		c.Session.TickInterval = time.Second
	}
	if c.Session.CountdownFrom == 0 {
		c.Session.CountdownFrom = 3
	}
	if c.Session.Volume == 0 {
		c.Session.Volume = 1
	}
	if c.Summary.MET == 0 {
		c.Summary.MET = 5
	}
	if c.Summary.BodyWeightKg == 0 {
		c.Summary.BodyWeightKg = 75
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 && !c.Tailscale.Enabled {
		return fmt.Errorf("server.port is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port == 0 {
		return fmt.Errorf("database.port is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	switch c.Session.Store {
	case "sqlite", "file":
	default:
		return fmt.Errorf("session.store must be sqlite or file, got %q", c.Session.Store)
	}
	if c.Session.RestSeconds < 0 {
		return fmt.Errorf("session.rest_seconds must not be negative")
	}
	if c.Session.Volume < 0 || c.Session.Volume > 1 {
		return fmt.Errorf("session.volume must be between 0 and 1")
	}
	if c.Summary.MET < 0 || c.Summary.BodyWeightKg < 0 {
		return fmt.Errorf("summary.met and summary.body_weight_kg must not be negative")
	}
	return nil
}
