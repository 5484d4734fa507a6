// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-passkey-rp.
//
// go-passkey-rp is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package config loads the relying-party server configuration from YAML
// with environment variable overrides. The configuration is immutable once
// loaded.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete server configuration
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	RelyingParty RelyingPartyConfig `yaml:"relying_party"`
	Ceremony     CeremonyConfig     `yaml:"ceremony"`
	Storage      StorageConfig      `yaml:"storage"`
	Metadata     MetadataConfig     `yaml:"metadata"`
	Logging      LoggingConfig      `yaml:"logging"`
	Metrics      MetricsConfig      `yaml:"metrics"`
}

// ServerConfig contains server-level settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig controls per-client API rate limiting
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	Burst             int  `yaml:"burst"`
}

// RelyingPartyConfig identifies this relying party to authenticators
type RelyingPartyConfig struct {
	ID          string   `yaml:"id"`
	DisplayName string   `yaml:"display_name"`
	Origins     []string `yaml:"origins"`

	// Attestation is the attestation conveyance preference:
	// none, indirect, direct, enterprise.
	Attestation string `yaml:"attestation"`
}

// CeremonyConfig controls pending-request lifetime and storage
type CeremonyConfig struct {
	// Timeout bounds both the client-side ceremony and the pending
	// request's lifetime in the request store.
	Timeout time.Duration `yaml:"timeout"`

	// RequestStore selects the pending-request backend: memory, redis
	RequestStore string `yaml:"request_store"`

	// CleanupInterval is how often the memory store reaps expired entries
	CleanupInterval time.Duration `yaml:"cleanup_interval"`

	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig contains Redis connection settings for the request store
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// StorageConfig selects the credential repository backend: memory, postgres
type StorageConfig struct {
	Backend  string         `yaml:"backend"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig contains PostgreSQL connection settings
type PostgresConfig struct {
	DSN string `yaml:"dsn"`

	// EnsureSchema creates the credential tables on startup
	EnsureSchema bool `yaml:"ensure_schema"`
}

// MetadataConfig controls attestation metadata resolution
type MetadataConfig struct {
	// BlobPath points to a locally cached FIDO MDS BLOB payload JSON file.
	// Empty disables metadata resolution.
	BlobPath string `yaml:"blob_path"`
}

// LoggingConfig controls logging behavior
type LoggingConfig struct {
	Debug bool `yaml:"debug"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load reads configuration from a YAML file and applies environment
// variable overrides
func Load(path string) (*Config, error) {
	// #nosec G304 - Config file path is provided by admin/user
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(&cfg)
	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns a configuration suitable for local development.
func Default() *Config {
	cfg := &Config{
		RelyingParty: RelyingPartyConfig{
			ID:          "localhost",
			DisplayName: "Passkey RP (dev)",
			Origins:     []string{"http://localhost:8080"},
		},
	}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults sets default values for unset configuration fields.
func (c *Config) SetDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 15 * time.Second
	}
	if c.Server.RateLimit.Enabled && c.Server.RateLimit.RequestsPerMinute == 0 {
		c.Server.RateLimit.RequestsPerMinute = 120
	}
	if c.Ceremony.Timeout == 0 {
		c.Ceremony.Timeout = 5 * time.Minute
	}
	if c.Ceremony.RequestStore == "" {
		c.Ceremony.RequestStore = "memory"
	}
	if c.Ceremony.CleanupInterval == 0 {
		c.Ceremony.CleanupInterval = time.Minute
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "memory"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port out of range: %d", c.Server.Port)
	}
	if c.RelyingParty.ID == "" {
		return fmt.Errorf("relying party id is required")
	}
	if c.RelyingParty.DisplayName == "" {
		return fmt.Errorf("relying party display name is required")
	}
	if len(c.RelyingParty.Origins) == 0 {
		return fmt.Errorf("at least one relying party origin is required")
	}

	switch c.Ceremony.RequestStore {
	case "memory":
	case "redis":
		if c.Ceremony.Redis.Addr == "" {
			return fmt.Errorf("redis request store requires an address")
		}
	default:
		return fmt.Errorf("unknown request store backend: %s", c.Ceremony.RequestStore)
	}

	switch c.Storage.Backend {
	case "memory":
	case "postgres":
		if c.Storage.Postgres.DSN == "" {
			return fmt.Errorf("postgres storage requires a dsn")
		}
	default:
		return fmt.Errorf("unknown storage backend: %s", c.Storage.Backend)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration
func applyEnvOverrides(cfg *Config) {
	if host := os.Getenv("PASSKEY_RP_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("PASSKEY_RP_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil || port < 1 || port > 65535 {
			log.Printf("Warning: invalid PASSKEY_RP_PORT value %q, using default %d",
				portStr, cfg.Server.Port)
		} else {
			cfg.Server.Port = port
		}
	}
	if rpID := os.Getenv("PASSKEY_RP_ID"); rpID != "" {
		cfg.RelyingParty.ID = rpID
	}
	if redisAddr := os.Getenv("PASSKEY_RP_REDIS_ADDR"); redisAddr != "" {
		cfg.Ceremony.Redis.Addr = redisAddr
	}
	if redisPassword := os.Getenv("PASSKEY_RP_REDIS_PASSWORD"); redisPassword != "" {
		cfg.Ceremony.Redis.Password = redisPassword
	}
	if dsn := os.Getenv("PASSKEY_RP_POSTGRES_DSN"); dsn != "" {
		cfg.Storage.Postgres.DSN = dsn
	}
	if blobPath := os.Getenv("PASSKEY_RP_MDS_BLOB"); blobPath != "" {
		cfg.Metadata.BlobPath = blobPath
	}
	if debug := os.Getenv("PASSKEY_RP_DEBUG"); debug != "" {
		cfg.Logging.Debug = debug == "1" || debug == "true"
	}
}
