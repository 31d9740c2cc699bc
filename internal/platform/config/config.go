// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values. A local '.env' file is
read first (via 'joho/godotenv') so developers do not have to export variables
by hand; real environment variables always win over the file.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, limiter) via constructors.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// # Configuration Schema

// Config holds all runtime configuration for the Tingtong API server and CLI.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Cache (Redis): action rate limits and the live comment stream.
	RedisURL string `env:"REDIS_URL,required"`

	// Token verification. The private key is only needed by the CLI to mint
	// development tokens; the API server verifies with the public key alone.
	JWTPubKeyPath  string `env:"JWT_PUBLIC_KEY_PATH,required"`
	JWTPrivKeyPath string `env:"JWT_PRIVATE_KEY_PATH"`
	JWTIssuer      string `env:"JWT_ISSUER" envDefault:"tingtong.app"`
	TokenCacheSize int    `env:"TOKEN_CACHE_SIZE" envDefault:"4096"`

	// Cross-Origin Resource Sharing
	CORSOriginSuffix string `env:"CORS_ORIGIN_SUFFIX" envDefault:"tingtong.app"`

	// Per-user budget shared by comment creation and voting.
	ActionRateLimit  int           `env:"ACTION_RATE_LIMIT"  envDefault:"10"`
	ActionRateWindow time.Duration `env:"ACTION_RATE_WINDOW" envDefault:"60s"`

	// Counter reconciliation job
	ReconcileEnabled bool   `env:"RECONCILE_ENABLED" envDefault:"true"`
	ReconcileCron    string `env:"RECONCILE_CRON"    envDefault:"*/30 * * * *"`
}

// # Configuration Loading

// Load reads an optional '.env' file and parses environment variables into a [Config].
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile is [Load] with an explicit dotenv path.
//
// A missing file is not an error. Variables already present in the process
// environment are never overwritten by the file.
func LoadFile(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	// Initialize an empty config struct
	cfg := &Config{}

	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if cfg.ActionRateLimit < 1 {
		return nil, fmt.Errorf("config: ACTION_RATE_LIMIT must be positive, got %d", cfg.ActionRateLimit)
	}

	if cfg.ActionRateWindow <= 0 {
		return nil, fmt.Errorf("config: ACTION_RATE_WINDOW must be positive, got %s", cfg.ActionRateWindow)
	}

	return cfg, nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// AllowedOriginSuffix returns the domain suffix accepted by the CORS middleware.
func (c *Config) AllowedOriginSuffix() string {
	return c.CORSOriginSuffix
}
