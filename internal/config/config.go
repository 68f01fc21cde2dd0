// Interlock - Multi-Tenant Integration Platform
// Copyright 2026 Interlock Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/interlockhq/interlock

/*
config.go - Application Configuration

Configuration is merged from three layers, later layers overriding earlier:

 1. Struct defaults (defaultConfig)
 2. YAML config file (config.yaml, or INTERLOCK_CONFIG_PATH)
 3. Environment variables (INTERLOCK_ prefix, e.g. INTERLOCK_SERVER_PORT)

All security thresholds live in SecurityConfig and are read once at startup;
components receive them by value and never re-read configuration.
*/

package config

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration for the Interlock server.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
	Auth     AuthConfig     `koanf:"auth"`
	Security SecurityConfig `koanf:"security"`
	API      APIConfig      `koanf:"api"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout time.Duration `koanf:"timeout"`

	// Environment is "development" or "production". Development relaxes the
	// private/reserved-IP suspicion check in the security monitor.
	Environment string `koanf:"environment" validate:"oneof=development production"`
}

// LoggingConfig holds the global logger settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// AuthConfig holds bearer-token verification settings.
type AuthConfig struct {
	// JWTSecret signs and verifies HS256 bearer tokens. Required in
	// production.
	JWTSecret string `koanf:"jwt_secret"`

	// Issuer is the expected token issuer. Empty disables the issuer check.
	Issuer string `koanf:"issuer"`
}

// SecurityConfig holds the security-monitor thresholds and log routing.
type SecurityConfig struct {
	// LoginFailureThreshold is the number of failed logins per (ip, user)
	// within LoginFailureWindow that triggers a brute-force event.
	LoginFailureThreshold int           `koanf:"login_failure_threshold" validate:"min=1"`
	LoginFailureWindow    time.Duration `koanf:"login_failure_window"`

	// RateLimitThreshold is the number of rate-limit events per IP within
	// RateLimitWindow that escalates the event to high severity.
	RateLimitThreshold int           `koanf:"rate_limit_threshold" validate:"min=1"`
	RateLimitWindow    time.Duration `koanf:"rate_limit_window"`

	// MaliciousIPFile is a newline-delimited seed file of known-bad IPs,
	// loaded once at startup. Empty means no seed list.
	MaliciousIPFile string `koanf:"malicious_ip_file"`

	// SecurityLogPath routes the security event log to a rotated file.
	// Empty means stderr.
	SecurityLogPath    string `koanf:"security_log_path"`
	SecurityLogSizeMB  int    `koanf:"security_log_size_mb" validate:"min=0"`
	SecurityLogBackups int    `koanf:"security_log_backups" validate:"min=0"`

	// SlowCheckThreshold is the elapsed time above which a permission check
	// logs a warning. Observational only, never enforced.
	SlowCheckThreshold time.Duration `koanf:"slow_check_threshold"`
}

// APIConfig holds request-handling limits for the HTTP API.
type APIConfig struct {
	// RateLimitRequests caps requests per client IP per RateLimitPeriod.
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"min=1"`
	RateLimitPeriod   time.Duration `koanf:"rate_limit_period"`

	// CORSAllowedOrigins lists origins allowed to call the API.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8086,
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Auth: AuthConfig{
			JWTSecret: "",
			Issuer:    "interlock",
		},
		Security: SecurityConfig{
			LoginFailureThreshold: 5,
			LoginFailureWindow:    30 * time.Minute,
			RateLimitThreshold:    10,
			RateLimitWindow:       60 * time.Minute,
			MaliciousIPFile:       "",
			SecurityLogPath:       "",
			SecurityLogSizeMB:     10,
			SecurityLogBackups:    10,
			SlowCheckThreshold:    50 * time.Millisecond,
		},
		API: APIConfig{
			RateLimitRequests:  100,
			RateLimitPeriod:    time.Minute,
			CORSAllowedOrigins: []string{"*"},
		},
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// Debug reports whether the server runs in development mode.
func (c *Config) Debug() bool {
	return c.Server.Environment != "production"
}
