// Interlock - Multi-Tenant Integration Platform
// Copyright 2026 Interlock Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/interlockhq/interlock

package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/interlockhq/interlock/internal/models"
)

func TestSecurityLog_WritesOneJSONLine(t *testing.T) {
	var buf bytes.Buffer
	log := NewSecurityLogWithWriter(&buf)

	event := models.NewSecurityEvent(models.EventLoginFailure, models.AlertLow).
		WithSubject("u1", "t1").
		WithNetwork("1.2.3.4", "agent")
	log.Write(event)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d", len(lines))
	}

	var line map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &line); err != nil {
		t.Fatalf("line is not JSON: %v", err)
	}
	if line["logger"] != "security" {
		t.Errorf("logger = %v, want security", line["logger"])
	}
	if line["event_type"] != "login_failure" {
		t.Errorf("event_type = %v, want login_failure", line["event_type"])
	}
	if line["user_id"] != "u1" {
		t.Errorf("user_id = %v, want u1", line["user_id"])
	}
	if line["event_id"] != event.EventID {
		t.Errorf("event_id = %v, want %v", line["event_id"], event.EventID)
	}
}

func TestSecurityLog_LevelMapping(t *testing.T) {
	// The global level filter doubles as severity filtering in
	// production; lift it here so every mapped level is observable.
	prev := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	tests := []struct {
		alert models.AlertLevel
		level string
	}{
		{models.AlertCritical, "fatal"},
		{models.AlertHigh, "error"},
		{models.AlertMedium, "warn"},
		{models.AlertLow, "info"},
		{models.AlertInfo, "debug"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		log := NewSecurityLogWithWriter(&buf)
		log.Write(models.NewSecurityEvent(models.EventAccessDenied, tt.alert))

		var line map[string]interface{}
		if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
			t.Fatalf("line is not JSON: %v", err)
		}
		if line["level"] != tt.level {
			t.Errorf("alert %v wrote level %v, want %v", tt.alert, line["level"], tt.level)
		}
	}
}

func TestSecurityLog_CriticalDoesNotExit(t *testing.T) {
	var buf bytes.Buffer
	log := NewSecurityLogWithWriter(&buf)

	// WithLevel(fatal) must log without terminating the process; reaching
	// the assertion below is the point of this test.
	log.Write(models.NewSecurityEvent(models.EventElevationAttempt, models.AlertCritical))

	if buf.Len() == 0 {
		t.Error("critical event should be written")
	}
}

func TestSecurityLog_NilEventIgnored(t *testing.T) {
	var buf bytes.Buffer
	log := NewSecurityLogWithWriter(&buf)

	log.Write(nil)
	if buf.Len() != 0 {
		t.Errorf("nil event should write nothing, got %q", buf.String())
	}
}
