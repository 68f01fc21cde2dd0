// Interlock - Multi-Tenant Integration Platform
// Copyright 2026 Interlock Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/interlockhq/interlock

package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/interlockhq/interlock/internal/models"
)

// SecurityLogConfig configures the dedicated security event log.
type SecurityLogConfig struct {
	// FilePath routes events to a size-rotated log file. Empty means stderr.
	FilePath string

	// MaxSizeMB is the rotation threshold per file. Default: 10.
	MaxSizeMB int

	// MaxBackups is the number of rotated files to keep. Default: 10.
	MaxBackups int
}

// SecurityLog writes one JSON line per security event through a named
// "security" logger. The zerolog level used for each line is selected from
// the event's alert level, so log-infrastructure level filtering doubles as
// severity filtering:
//
//	critical -> fatal (via WithLevel; does not exit)
//	high     -> error
//	medium   -> warn
//	low      -> info
//	info     -> debug
type SecurityLog struct {
	logger zerolog.Logger
	closer io.Closer
}

// NewSecurityLog creates a security log per the given configuration.
// With a file path configured, events rotate at MaxSizeMB with MaxBackups
// retained files; otherwise events go to stderr.
func NewSecurityLog(cfg SecurityLogConfig) *SecurityLog {
	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = 10
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = 10
	}

	var out io.Writer = os.Stderr
	var closer io.Closer
	if cfg.FilePath != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		}
		out = rotator
		closer = rotator
	}

	return &SecurityLog{
		logger: zerolog.New(out).With().Timestamp().Str("logger", "security").Logger(),
		closer: closer,
	}
}

// NewSecurityLogWithWriter creates a security log writing to w.
// Useful for tests that assert on emitted lines.
func NewSecurityLogWithWriter(w io.Writer) *SecurityLog {
	return &SecurityLog{
		logger: zerolog.New(w).With().Timestamp().Str("logger", "security").Logger(),
	}
}

// Write emits the event as a single structured line.
func (l *SecurityLog) Write(event *models.SecurityEvent) {
	if event == nil {
		return
	}
	e := l.logger.WithLevel(levelFor(event.AlertLevel)).
		Str("event_id", event.EventID).
		Str("event_type", string(event.EventType)).
		Str("alert_level", event.AlertLevel.String()).
		Time("event_time", event.Timestamp)

	if event.UserID != "" {
		e = e.Str("user_id", event.UserID)
	}
	if event.TenantID != "" {
		e = e.Str("tenant_id", event.TenantID)
	}
	if event.IPAddress != "" {
		e = e.Str("ip", event.IPAddress)
	}
	if event.UserAgent != "" {
		e = e.Str("user_agent", truncate(event.UserAgent, 100))
	}
	if event.ResourceType != "" {
		e = e.Str("resource_type", event.ResourceType)
	}
	if event.ResourceID != "" {
		e = e.Str("resource_id", event.ResourceID)
	}
	if len(event.Details) > 0 {
		e = e.Interface("details", event.Details)
	}

	e.Msg("security event")
}

// Close releases the underlying rotated file, if any.
func (l *SecurityLog) Close() error {
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

// levelFor maps an alert level to the zerolog level used for the line.
func levelFor(level models.AlertLevel) zerolog.Level {
	switch level {
	case models.AlertCritical:
		return zerolog.FatalLevel
	case models.AlertHigh:
		return zerolog.ErrorLevel
	case models.AlertMedium:
		return zerolog.WarnLevel
	case models.AlertLow:
		return zerolog.InfoLevel
	default:
		return zerolog.DebugLevel
	}
}

// truncate shortens a string to a maximum length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
