// Interlock - Multi-Tenant Integration Platform
// Copyright 2026 Interlock Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/interlockhq/interlock

package monitor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/interlockhq/interlock/internal/models"
)

// newTestMonitor builds a monitor with debug enabled so private test IPs
// are not flagged as suspicious, and no security log attached.
func newTestMonitor(t *testing.T, cfg Config) *Monitor {
	t.Helper()
	cfg.Debug = true
	m, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

func loginFailure(userID, ip string, ts time.Time) *models.SecurityEvent {
	e := models.NewSecurityEvent(models.EventLoginFailure, models.AlertLow).
		WithSubject(userID, "").
		WithNetwork(ip, "test-agent")
	e.Timestamp = ts
	return e
}

func countByType(events []*models.SecurityEvent, eventType models.EventType) int {
	n := 0
	for _, e := range events {
		if e.EventType == eventType {
			n++
		}
	}
	return n
}

func TestBruteForce_ThresholdMinusOne(t *testing.T) {
	m := newTestMonitor(t, Config{})
	now := time.Now().UTC()

	for i := 0; i < 4; i++ {
		m.LogEvent(loginFailure("u1", "203.0.113.7", now.Add(time.Duration(i)*time.Second)))
	}

	events := m.EventsSince(now.Add(-time.Hour))
	if got := countByType(events, models.EventBruteForceAttempt); got != 0 {
		t.Errorf("threshold-1 failures should produce no brute-force event, got %d", got)
	}
}

func TestBruteForce_ExactlyOneAtThreshold(t *testing.T) {
	m := newTestMonitor(t, Config{})
	now := time.Now().UTC()

	// Well past the threshold: still exactly one synthesized event.
	for i := 0; i < 8; i++ {
		m.LogEvent(loginFailure("u1", "203.0.113.7", now.Add(time.Duration(i)*time.Second)))
	}

	events := m.EventsSince(now.Add(-time.Hour))
	if got := countByType(events, models.EventBruteForceAttempt); got != 1 {
		t.Fatalf("expected exactly one brute-force event, got %d", got)
	}
	for _, e := range events {
		if e.EventType == models.EventBruteForceAttempt {
			if e.AlertLevel != models.AlertHigh {
				t.Errorf("brute-force alert level = %v, want high", e.AlertLevel)
			}
			if e.UserID != "u1" || e.IPAddress != "203.0.113.7" {
				t.Errorf("brute-force event should carry the source subject and IP")
			}
		}
	}
}

func TestBruteForce_WindowPruning(t *testing.T) {
	m := newTestMonitor(t, Config{
		LoginFailureThreshold: 3,
		LoginFailureWindow:    10 * time.Minute,
	})
	now := time.Now().UTC()

	// Failures spaced wider than the window never accumulate.
	for i := 0; i < 6; i++ {
		m.LogEvent(loginFailure("u1", "203.0.113.7", now.Add(time.Duration(i)*15*time.Minute)))
	}

	events := m.EventsSince(now.Add(-24 * time.Hour))
	if got := countByType(events, models.EventBruteForceAttempt); got != 0 {
		t.Errorf("spaced-out failures should not trigger detection, got %d events", got)
	}
}

func TestBruteForce_KeyedByIPAndUser(t *testing.T) {
	m := newTestMonitor(t, Config{LoginFailureThreshold: 3})
	now := time.Now().UTC()

	// Same user from two IPs, and two users from one IP: no single
	// (ip, user) pair reaches the threshold.
	m.LogEvent(loginFailure("u1", "203.0.113.7", now))
	m.LogEvent(loginFailure("u1", "203.0.113.8", now))
	m.LogEvent(loginFailure("u2", "203.0.113.7", now))
	m.LogEvent(loginFailure("u2", "203.0.113.8", now))

	events := m.EventsSince(now.Add(-time.Hour))
	if got := countByType(events, models.EventBruteForceAttempt); got != 0 {
		t.Errorf("failures split across keys should not trigger, got %d", got)
	}
}

func TestCheckAccountStatus_BruteForceBlock(t *testing.T) {
	m := newTestMonitor(t, Config{})
	now := time.Now().UTC()

	for i := 0; i < 5; i++ {
		m.LogEvent(loginFailure("u1", "203.0.113.7", now))
	}

	blocked, reason := m.CheckAccountStatus("u1", "203.0.113.7")
	if !blocked || reason != ReasonTooManyLoginFailures {
		t.Errorf("CheckAccountStatus = (%v, %q), want (true, %q)", blocked, reason, ReasonTooManyLoginFailures)
	}

	// Unrelated user with no history is never blocked.
	blocked, reason = m.CheckAccountStatus("innocent", "203.0.113.9")
	if blocked || reason != "" {
		t.Errorf("unrelated user blocked: (%v, %q)", blocked, reason)
	}
}

func TestCheckAccountStatus_CriticalAlert(t *testing.T) {
	m := newTestMonitor(t, Config{})

	e := models.NewSecurityEvent(models.EventElevationAttempt, models.AlertCritical).
		WithSubject("u1", "").
		WithNetwork("203.0.113.7", "")
	m.LogEvent(e)

	blocked, reason := m.CheckAccountStatus("u1", "")
	if !blocked || reason != ReasonCriticalAlert {
		t.Errorf("CheckAccountStatus = (%v, %q), want (true, %q)", blocked, reason, ReasonCriticalAlert)
	}
}

func TestCheckAccountStatus_MultipleHighAlerts(t *testing.T) {
	m := newTestMonitor(t, Config{})

	for i := 0; i < 5; i++ {
		m.LogEvent(models.NewSecurityEvent(models.EventUnusualDataAccess, models.AlertHigh).
			WithSubject("u1", "").
			WithNetwork("203.0.113.7", ""))
	}

	blocked, reason := m.CheckAccountStatus("u1", "")
	if !blocked || reason != ReasonMultipleHighAlerts {
		t.Errorf("CheckAccountStatus = (%v, %q), want (true, %q)", blocked, reason, ReasonMultipleHighAlerts)
	}
}

func TestCheckAccountStatus_FourHighAlertsNotBlocked(t *testing.T) {
	m := newTestMonitor(t, Config{})

	for i := 0; i < 4; i++ {
		m.LogEvent(models.NewSecurityEvent(models.EventUnusualDataAccess, models.AlertHigh).
			WithSubject("u1", "").
			WithNetwork("203.0.113.7", ""))
	}

	if blocked, _ := m.CheckAccountStatus("u1", ""); blocked {
		t.Error("four high alerts should not block")
	}
}

func TestRateLimit_TenthEventEscalatedToHigh(t *testing.T) {
	m := newTestMonitor(t, Config{})
	now := time.Now().UTC()

	var last *models.SecurityEvent
	for i := 0; i < 10; i++ {
		last = models.NewSecurityEvent(models.EventRateLimitExceeded, models.AlertLow).
			WithNetwork("1.2.3.4", "")
		last.Timestamp = now.Add(time.Duration(i) * time.Minute)
		m.LogEvent(last)
	}

	if last.AlertLevel != models.AlertHigh {
		t.Errorf("10th rate-limit event alert level = %v, want high", last.AlertLevel)
	}
	if last.Details["request_count"] != 10 {
		t.Errorf("escalated event should carry the counter, got %v", last.Details["request_count"])
	}
}

func TestRateLimit_NinthEventNotEscalated(t *testing.T) {
	m := newTestMonitor(t, Config{})
	now := time.Now().UTC()

	var last *models.SecurityEvent
	for i := 0; i < 9; i++ {
		last = models.NewSecurityEvent(models.EventRateLimitExceeded, models.AlertLow).
			WithNetwork("1.2.3.4", "")
		last.Timestamp = now.Add(time.Duration(i) * time.Minute)
		m.LogEvent(last)
	}

	if last.AlertLevel != models.AlertLow {
		t.Errorf("9th rate-limit event alert level = %v, want low", last.AlertLevel)
	}
}

func TestSuspiciousIP_MaliciousSet(t *testing.T) {
	m := newTestMonitor(t, Config{})
	if !m.AddMaliciousIP("198.51.100.9") {
		t.Fatal("AddMaliciousIP rejected a valid address")
	}

	e := models.NewSecurityEvent(models.EventLoginSuccess, models.AlertInfo).
		WithSubject("u1", "").
		WithNetwork("198.51.100.9", "")
	m.LogEvent(e)

	events := m.EventsSince(time.Now().UTC().Add(-time.Hour))
	var suspect *models.SecurityEvent
	for _, ev := range events {
		if ev.EventType == models.EventSuspiciousIP {
			suspect = ev
		}
	}
	if suspect == nil {
		t.Fatal("expected a synthesized suspicious-IP event")
	}
	if suspect.AlertLevel != models.AlertMedium {
		t.Errorf("suspicious-IP level = %v, want medium", suspect.AlertLevel)
	}
	if suspect.Details["original_event_type"] != string(models.EventLoginSuccess) {
		t.Errorf("details should record the original event type, got %v", suspect.Details["original_event_type"])
	}
}

func TestSuspiciousIP_PrivateRangeOutsideDebug(t *testing.T) {
	cfg := Config{}
	cfg.applyDefaults()
	m, err := New(cfg, nil) // debug off
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	m.LogEvent(models.NewSecurityEvent(models.EventLoginSuccess, models.AlertInfo).
		WithSubject("u1", "").
		WithNetwork("192.168.1.10", ""))

	events := m.EventsSince(time.Now().UTC().Add(-time.Hour))
	if got := countByType(events, models.EventSuspiciousIP); got != 1 {
		t.Errorf("private IP outside debug should be flagged, got %d events", got)
	}
}

func TestSuspiciousIP_PrivateRangeIgnoredInDebug(t *testing.T) {
	m := newTestMonitor(t, Config{})

	m.LogEvent(models.NewSecurityEvent(models.EventLoginSuccess, models.AlertInfo).
		WithSubject("u1", "").
		WithNetwork("192.168.1.10", ""))

	events := m.EventsSince(time.Now().UTC().Add(-time.Hour))
	if got := countByType(events, models.EventSuspiciousIP); got != 0 {
		t.Errorf("debug mode should relax the private-range check, got %d events", got)
	}
}

func TestAddMaliciousIP_RejectsGarbage(t *testing.T) {
	m := newTestMonitor(t, Config{})
	if m.AddMaliciousIP("not-an-ip") {
		t.Error("garbage should be rejected")
	}
}

func TestGetSuspiciousActivities_OrderAndLimit(t *testing.T) {
	m := newTestMonitor(t, Config{})
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		e := models.NewSecurityEvent(models.EventUnusualDataAccess, models.AlertMedium).
			WithSubject("u1", "").
			WithNetwork("203.0.113.7", "")
		e.Timestamp = now.Add(time.Duration(i) * time.Second)
		e.WithDetail("seq", i)
		m.LogEvent(e)
	}

	activities := m.GetSuspiciousActivities("u1", 2)
	if len(activities) != 2 {
		t.Fatalf("limit not applied, got %d", len(activities))
	}
	if activities[0].Details["seq"] != 2 || activities[1].Details["seq"] != 1 {
		t.Errorf("activities should be most recent first, got %v then %v",
			activities[0].Details["seq"], activities[1].Details["seq"])
	}
}

func TestSuspiciousList_Bounded(t *testing.T) {
	m := newTestMonitor(t, Config{MaxSuspiciousPerUser: 5})

	for i := 0; i < 12; i++ {
		e := models.NewSecurityEvent(models.EventUnusualDataAccess, models.AlertMedium).
			WithSubject("u1", "").
			WithNetwork("203.0.113.7", "")
		e.WithDetail("seq", i)
		m.LogEvent(e)
	}

	activities := m.GetSuspiciousActivities("u1", 0)
	if len(activities) != 5 {
		t.Fatalf("list should be capped at 5, got %d", len(activities))
	}
	if activities[0].Details["seq"] != 11 {
		t.Errorf("newest entry should survive the cap, got seq %v", activities[0].Details["seq"])
	}
}

func TestLowLevelEventsNotTracked(t *testing.T) {
	m := newTestMonitor(t, Config{})

	m.LogEvent(models.NewSecurityEvent(models.EventLoginSuccess, models.AlertInfo).
		WithSubject("u1", "").
		WithNetwork("203.0.113.7", ""))

	if got := m.GetSuspiciousActivities("u1", 0); len(got) != 0 {
		t.Errorf("info-level events should not enter the suspicious list, got %d", len(got))
	}
}

func TestLoadMaliciousIPFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad-ips.txt")
	content := "198.51.100.1\n# comment\n\nnot-an-ip\n198.51.100.2\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	m, err := New(Config{MaliciousIPFile: path, Debug: true}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ips := m.MaliciousIPs()
	if len(ips) != 2 || ips[0] != "198.51.100.1" || ips[1] != "198.51.100.2" {
		t.Errorf("MaliciousIPs = %v, want the two valid entries", ips)
	}
}

func TestNew_MissingSeedFileFails(t *testing.T) {
	if _, err := New(Config{MaliciousIPFile: "/nonexistent/ips.txt"}, nil); err == nil {
		t.Error("a configured but unreadable seed file should fail startup")
	}
}
