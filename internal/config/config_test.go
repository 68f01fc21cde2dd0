// Interlock - Multi-Tenant Integration Platform
// Copyright 2026 Interlock Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/interlockhq/interlock

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFile_Defaults(t *testing.T) {
	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.Server.Port != 8086 {
		t.Errorf("Server.Port = %d, want 8086", cfg.Server.Port)
	}
	if cfg.Security.LoginFailureThreshold != 5 {
		t.Errorf("LoginFailureThreshold = %d, want 5", cfg.Security.LoginFailureThreshold)
	}
	if cfg.Security.LoginFailureWindow != 30*time.Minute {
		t.Errorf("LoginFailureWindow = %v, want 30m", cfg.Security.LoginFailureWindow)
	}
	if cfg.Security.RateLimitThreshold != 10 {
		t.Errorf("RateLimitThreshold = %d, want 10", cfg.Security.RateLimitThreshold)
	}
	if cfg.Security.RateLimitWindow != 60*time.Minute {
		t.Errorf("RateLimitWindow = %v, want 60m", cfg.Security.RateLimitWindow)
	}
	if cfg.Security.SlowCheckThreshold != 50*time.Millisecond {
		t.Errorf("SlowCheckThreshold = %v, want 50ms", cfg.Security.SlowCheckThreshold)
	}
	if !cfg.Debug() {
		t.Error("development environment should report debug mode")
	}
}

func TestLoadFile_YAMLOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9000
  environment: production
security:
  login_failure_threshold: 3
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Security.LoginFailureThreshold != 3 {
		t.Errorf("LoginFailureThreshold = %d, want 3", cfg.Security.LoginFailureThreshold)
	}
	if cfg.Debug() {
		t.Error("production environment should not report debug mode")
	}
	// Untouched keys keep their defaults.
	if cfg.Security.RateLimitThreshold != 10 {
		t.Errorf("RateLimitThreshold = %d, want default 10", cfg.Security.RateLimitThreshold)
	}
}

func TestLoadFile_EnvOverride(t *testing.T) {
	t.Setenv("INTERLOCK_SERVER_PORT", "7000")
	t.Setenv("INTERLOCK_SECURITY_RATE_LIMIT_THRESHOLD", "25")

	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("Server.Port = %d, want 7000", cfg.Server.Port)
	}
	if cfg.Security.RateLimitThreshold != 25 {
		t.Errorf("RateLimitThreshold = %d, want 25", cfg.Security.RateLimitThreshold)
	}
}

func TestLoadFile_InvalidValuesRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 99999
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("out-of-range port should fail validation")
	}
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"INTERLOCK_SERVER_PORT", "server.port"},
		{"INTERLOCK_SECURITY_LOGIN_FAILURE_THRESHOLD", "security.login_failure_threshold"},
		{"INTERLOCK_LOGGING_LEVEL", "logging.level"},
	}
	for _, tt := range tests {
		if got := envTransform(tt.input); got != tt.want {
			t.Errorf("envTransform(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
