package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Driver names accepted by database.driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Monitor    MonitorConfig    `yaml:"monitor"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Auth       AuthConfig       `yaml:"auth"`
	AI         AIConfig         `yaml:"ai"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"`
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogLevel               string `yaml:"log_level"`
	// SeedFile is a JSON file of fleets and visits loaded into an empty store.
	SeedFile string `yaml:"seed_file"`
}

// MonitorConfig drives the periodic SLA recomputation.
type MonitorConfig struct {
	Enabled    bool          `yaml:"enabled"`
	IntervalMs int           `yaml:"interval_ms"`
	Interval   time.Duration `yaml:"-"`
	// Timezone defines calendar days for the finalized-by-date view.
	Timezone string         `yaml:"timezone"`
	Location *time.Location `yaml:"-"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether both VAPID keys are configured.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// AuthConfig holds session settings.
type AuthConfig struct {
	JWTSecret       string `yaml:"jwt_secret"`
	SessionTTLHours int    `yaml:"session_ttl_hours"`
	// SeedDefaultUsers creates the built-in administrators when the user table is empty.
	SeedDefaultUsers *bool `yaml:"seed_default_users"`
}

// SessionTTL is the lifetime of an issued session token.
func (a AuthConfig) SessionTTL() time.Duration {
	return time.Duration(a.SessionTTLHours) * time.Hour
}

// AIConfig points at the external text generation service.
type AIConfig struct {
	Endpoint        string `yaml:"endpoint"`
	APIKey          string `yaml:"api_key"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
}

// LogConfig configures the application logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads the configuration from the given path, applies environment
// overrides and fills defaults.
func Load(path string) (*Config, error) {
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
	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied, as if loaded
// from an empty file.
func Default() *Config {
	var cfg Config
	applyEnv(&cfg)
	// The default timezone ships with the tz database; a failure here only
	// happens on hosts without it, where UTC is used instead.
	if err := applyDefaults(&cfg); err != nil {
		cfg.Monitor.Location = time.UTC
	}
	return &cfg
}

// envOverrides lists the settings a process environment can replace after
// the file is read. Add a row to expose another string setting.
var envOverrides = []struct {
	name  string
	field func(*Config) *string
}{
	{"CARRETOMETRO_DB_DSN", func(c *Config) *string { return &c.Database.DSN }},
	{"CARRETOMETRO_JWT_SECRET", func(c *Config) *string { return &c.Auth.JWTSecret }},
	{"CARRETOMETRO_AI_ENDPOINT", func(c *Config) *string { return &c.AI.Endpoint }},
	{"CARRETOMETRO_AI_API_KEY", func(c *Config) *string { return &c.AI.APIKey }},
}

func applyEnv(cfg *Config) {
	for _, o := range envOverrides {
		if v := os.Getenv(o.name); v != "" {
			*o.field(cfg) = v
		}
	}
}

func applyDefaults(cfg *Config) error {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 20
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 5
	}

	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	switch cfg.Database.Driver {
	case "":
		cfg.Database.Driver = DriverSQLite
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
	if cfg.Database.DSN == "" {
		if cfg.Database.Driver == DriverPostgres {
			return fmt.Errorf("database.dsn is required for the postgres driver")
		}
		cfg.Database.DSN = "carretometro.db"
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}

	if cfg.Monitor.IntervalMs <= 0 {
		cfg.Monitor.IntervalMs = 1500
	}
	cfg.Monitor.Interval = time.Duration(cfg.Monitor.IntervalMs) * time.Millisecond
	if cfg.Monitor.Timezone == "" {
		cfg.Monitor.Timezone = "America/Sao_Paulo"
	}
	loc, err := time.LoadLocation(cfg.Monitor.Timezone)
	if err != nil {
		return fmt.Errorf("invalid monitor.timezone %q: %w", cfg.Monitor.Timezone, err)
	}
	cfg.Monitor.Location = loc

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}
	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}

	if cfg.Auth.SessionTTLHours <= 0 {
		cfg.Auth.SessionTTLHours = 120
	}
	if cfg.Auth.SeedDefaultUsers == nil {
		seed := true
		cfg.Auth.SeedDefaultUsers = &seed
	}

	if cfg.AI.TimeoutSeconds <= 0 {
		cfg.AI.TimeoutSeconds = 60
	}
	if cfg.AI.CacheTTLSeconds <= 0 {
		cfg.AI.CacheTTLSeconds = 300
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	return nil
}
