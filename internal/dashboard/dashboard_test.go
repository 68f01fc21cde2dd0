// Interlock - Multi-Tenant Integration Platform
// Copyright 2026 Interlock Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/interlockhq/interlock

package dashboard

import (
	"testing"
	"time"

	"github.com/interlockhq/interlock/internal/models"
)

// mockSource fakes the monitor surface the dashboard reads from.
type mockSource struct {
	events    []*models.SecurityEvent
	malicious []string
	users     []string
	blocked   map[string]string
}

func (s *mockSource) EventsSince(since time.Time) []*models.SecurityEvent {
	var out []*models.SecurityEvent
	for _, e := range s.events {
		if !e.Timestamp.Before(since) {
			out = append(out, e)
		}
	}
	return out
}

func (s *mockSource) MaliciousIPs() []string { return s.malicious }
func (s *mockSource) TrackedUsers() []string { return s.users }

func (s *mockSource) CheckAccountStatus(userID, ip string) (bool, string) {
	reason, ok := s.blocked[userID]
	return ok, reason
}

func (s *mockSource) GetSuspiciousActivities(userID string, limit int) []*models.SecurityEvent {
	return s.events
}

func event(eventType models.EventType, level models.AlertLevel, ip string, age time.Duration) *models.SecurityEvent {
	e := models.NewSecurityEvent(eventType, level).WithNetwork(ip, "")
	e.Timestamp = time.Now().UTC().Add(-age)
	return e
}

func TestSummary_CountsByLevelAndType(t *testing.T) {
	source := &mockSource{events: []*models.SecurityEvent{
		event(models.EventLoginFailure, models.AlertLow, "1.2.3.4", time.Minute),
		event(models.EventLoginFailure, models.AlertLow, "1.2.3.4", 2*time.Minute),
		event(models.EventBruteForceAttempt, models.AlertHigh, "1.2.3.4", 3*time.Minute),
		event(models.EventLoginFailure, models.AlertLow, "1.2.3.4", 48*time.Hour), // outside period
	}}
	d := New(source)

	s := d.Summary(24 * time.Hour)
	if s.TotalEvents != 3 {
		t.Errorf("TotalEvents = %d, want 3", s.TotalEvents)
	}
	if s.ByLevel["low"] != 2 || s.ByLevel["high"] != 1 {
		t.Errorf("ByLevel = %v", s.ByLevel)
	}
	if s.ByType["login_failure"] != 2 || s.ByType["brute_force_attempt"] != 1 {
		t.Errorf("ByType = %v", s.ByType)
	}
}

func TestSuspiciousIPs_AggregatesAndSorts(t *testing.T) {
	source := &mockSource{
		events: []*models.SecurityEvent{
			event(models.EventSuspiciousIP, models.AlertMedium, "9.9.9.9", time.Minute),
			event(models.EventBruteForceAttempt, models.AlertHigh, "9.9.9.9", time.Minute),
			event(models.EventSuspiciousIP, models.AlertMedium, "8.8.8.8", time.Minute),
			event(models.EventLoginSuccess, models.AlertInfo, "7.7.7.7", time.Minute), // below medium
		},
		malicious: []string{"6.6.6.6"},
	}
	d := New(source)

	reports := d.SuspiciousIPs(time.Hour)
	if len(reports) != 3 {
		t.Fatalf("got %d reports, want 3", len(reports))
	}
	if reports[0].IPAddress != "9.9.9.9" || reports[0].Events != 2 {
		t.Errorf("top report = %+v, want 9.9.9.9 with 2 events", reports[0])
	}
	if reports[0].MaxLevel != "high" {
		t.Errorf("MaxLevel = %q, want high", reports[0].MaxLevel)
	}

	foundKnown := false
	for _, r := range reports {
		if r.IPAddress == "6.6.6.6" && r.Known && r.Events == 0 {
			foundKnown = true
		}
	}
	if !foundKnown {
		t.Error("known-malicious IP with no events should still be listed")
	}
}

func TestBlockedAccounts(t *testing.T) {
	source := &mockSource{
		users:   []string{"u1", "u2", "u3"},
		blocked: map[string]string{"u2": "Critical security alert detected"},
	}
	d := New(source)

	accounts := d.BlockedAccounts()
	if len(accounts) != 1 {
		t.Fatalf("got %d blocked accounts, want 1", len(accounts))
	}
	if accounts[0].UserID != "u2" || accounts[0].Reason != "Critical security alert detected" {
		t.Errorf("blocked account = %+v", accounts[0])
	}
}

func TestRecentEvents_FiltersAndReverses(t *testing.T) {
	source := &mockSource{events: []*models.SecurityEvent{
		event(models.EventLoginFailure, models.AlertLow, "1.1.1.1", 3*time.Minute),
		event(models.EventBruteForceAttempt, models.AlertHigh, "1.1.1.1", 2*time.Minute),
		event(models.EventSuspiciousIP, models.AlertMedium, "1.1.1.1", time.Minute),
	}}
	d := New(source)

	events := d.RecentEvents(time.Hour, models.AlertMedium, 10)
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2 (low filtered out)", len(events))
	}
	if events[0].EventType != models.EventSuspiciousIP {
		t.Errorf("events should be most recent first, got %v", events[0].EventType)
	}

	if got := d.RecentEvents(time.Hour, models.AlertInfo, 1); len(got) != 1 {
		t.Errorf("limit not applied, got %d", len(got))
	}
}
