package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Backend  BackendConfig  `yaml:"backend"`
	Database DatabaseConfig `yaml:"database"`
	Booking  BookingConfig  `yaml:"booking"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	RateLimitPerSec float64  `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int      `yaml:"rate_limit_burst"`
	CacheTTLSeconds int      `yaml:"cache_ttl_seconds"`
	AllowOrigins    []string `yaml:"allow_origins"`
	SecureCookies   bool     `yaml:"secure_cookies"`
}

// BackendConfig describes how to reach the booking backend.
type BackendConfig struct {
	BaseURL        string        `yaml:"base_url"`
	TimeoutSeconds int           `yaml:"timeout_seconds"`
	Timeout        time.Duration `yaml:"-"`
	HTTPProxy      string        `yaml:"http_proxy"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // postgres or sqlite
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// BookingConfig tunes the wizard, slot picker and dashboard views.
type BookingConfig struct {
	Timezone          string         `yaml:"timezone"`
	Location          *time.Location `yaml:"-"`
	Clock24h          bool           `yaml:"clock_24h"`
	ScheduleMaxBadges int            `yaml:"schedule_max_badges"`
	SearchDebounceMS  int            `yaml:"search_debounce_ms"`
	SessionTTLMinutes int            `yaml:"session_ttl_minutes"`
	RetentionHours    int            `yaml:"retention_hours"`
	PageSize          int            `yaml:"page_size"`
}

// LogConfig selects the zap logger flavour.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Load reads the configuration from the given path. A .env file next to the
// working directory is loaded first; BACKEND_BASE_URL, DATABASE_DSN and PORT
// override the yaml values.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	applyEnv(&cfg)
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("BACKEND_BASE_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
}

func (cfg *Config) applyDefaults() error {
	if cfg.Backend.BaseURL == "" {
		return errors.New("backend.base_url is required")
	}

	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 300
	}

	if cfg.Backend.TimeoutSeconds <= 0 {
		cfg.Backend.TimeoutSeconds = 30
	}
	cfg.Backend.Timeout = time.Duration(cfg.Backend.TimeoutSeconds) * time.Second

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == "sqlite" {
		cfg.Database.DSN = "file:detailing.db?cache=shared"
	}

	if cfg.Booking.Timezone == "" {
		cfg.Booking.Timezone = "Local"
	}
	loc, err := time.LoadLocation(cfg.Booking.Timezone)
	if err != nil {
		return fmt.Errorf("failed to load timezone %q: %w", cfg.Booking.Timezone, err)
	}
	cfg.Booking.Location = loc

	if cfg.Booking.ScheduleMaxBadges <= 0 {
		cfg.Booking.ScheduleMaxBadges = 3
	}
	if cfg.Booking.SearchDebounceMS <= 0 {
		cfg.Booking.SearchDebounceMS = 300
	}
	if cfg.Booking.SessionTTLMinutes <= 0 {
		cfg.Booking.SessionTTLMinutes = 60
	}
	if cfg.Booking.RetentionHours <= 0 {
		cfg.Booking.RetentionHours = 72
	}
	if cfg.Booking.PageSize <= 0 {
		cfg.Booking.PageSize = 50
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	return nil
}

// SessionTTL is how long an idle wizard's slot selector is kept in memory.
func (b BookingConfig) SessionTTL() time.Duration {
	return time.Duration(b.SessionTTLMinutes) * time.Minute
}

// Retention is how long an untouched wizard session is kept in the database.
func (b BookingConfig) Retention() time.Duration {
	return time.Duration(b.RetentionHours) * time.Hour
}

// SearchDebounce is the quiet period before typed dashboard search text is applied.
func (b BookingConfig) SearchDebounce() time.Duration {
	return time.Duration(b.SearchDebounceMS) * time.Millisecond
}
