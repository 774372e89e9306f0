package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Approval   ApprovalConfig   `yaml:"approval"`
	Token      TokenConfig      `yaml:"token"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Overdue    OverdueConfig    `yaml:"overdue"`
	Timezone   string           `yaml:"timezone"`

	Location *time.Location `yaml:"-"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether both VAPID keys are present.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // postgres | sqlite | memory
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogSQL                 bool   `yaml:"log_sql"`
}

// ApprovalConfig bounds the optimistic-concurrency retry loop.
type ApprovalConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
}

// TokenConfig controls signing of the pass tokens rendered as QR codes.
type TokenConfig struct {
	Secret          string `yaml:"secret"`
	Issuer          string `yaml:"issuer"`
	GraceMinutes    int    `yaml:"grace_minutes"`
	AcceptPlainJSON bool   `yaml:"accept_plain_json"`
}

// OverdueConfig controls the sweep for passes still out after their window.
type OverdueConfig struct {
	Enabled         bool          `yaml:"enabled"`
	IntervalSeconds int           `yaml:"interval_seconds"`
	Interval        time.Duration `yaml:"-"` // Ignored by YAML parser
}

// Load reads the configuration from the given path.
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

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration suitable for local development and tests.
func Default() *Config {
	cfg := &Config{
		Database: DatabaseConfig{Driver: "memory"},
		Token:    TokenConfig{Secret: "dev-secret-change-me"},
	}
	_ = cfg.applyDefaults()
	return cfg
}

func (cfg *Config) applyDefaults() error {
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
		cfg.Server.CacheTTLSeconds = 60
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}

	if cfg.Approval.MaxAttempts <= 0 {
		cfg.Approval.MaxAttempts = 3
	}

	if cfg.Token.Issuer == "" {
		cfg.Token.Issuer = "outpass"
	}
	if cfg.Token.GraceMinutes <= 0 {
		cfg.Token.GraceMinutes = 60
	}
	if cfg.Token.Secret == "" {
		log.Printf("token.secret is not set; pass tokens cannot be issued or verified")
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	if cfg.Overdue.IntervalSeconds <= 0 {
		cfg.Overdue.IntervalSeconds = 300
	}
	cfg.Overdue.Interval = time.Duration(cfg.Overdue.IntervalSeconds) * time.Second

	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return err
	}
	cfg.Location = loc
	return nil
}
