// Interlock - Multi-Tenant Integration Platform
// Copyright 2026 Interlock Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/interlockhq/interlock

// Package dashboard aggregates the security monitor's retained events into
// the read-only views served by the admin API: severity summaries,
// suspicious source IPs, and currently blocked accounts. It holds no state
// of its own and never mutates the monitor.
package dashboard

import (
	"sort"
	"time"

	"github.com/interlockhq/interlock/internal/models"
)

// EventSource is the slice of the monitor the dashboard reads from.
type EventSource interface {
	EventsSince(since time.Time) []*models.SecurityEvent
	MaliciousIPs() []string
	TrackedUsers() []string
	CheckAccountStatus(userID, ipAddress string) (bool, string)
	GetSuspiciousActivities(userID string, limit int) []*models.SecurityEvent
}

// Summary is an aggregate view of security activity over one period.
type Summary struct {
	Period      string         `json:"period"`
	GeneratedAt time.Time      `json:"generated_at"`
	TotalEvents int            `json:"total_events"`
	ByLevel     map[string]int `json:"by_level"`
	ByType      map[string]int `json:"by_type"`
}

// IPReport describes one source IP's activity within the period.
type IPReport struct {
	IPAddress string    `json:"ip_address"`
	Events    int       `json:"events"`
	MaxLevel  string    `json:"max_level"`
	LastSeen  time.Time `json:"last_seen"`
	Known     bool      `json:"known_malicious"`
}

// BlockedAccount is a user the monitor would currently block.
type BlockedAccount struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason"`
}

// Dashboard serves read-only aggregations over an event source.
type Dashboard struct {
	source EventSource
}

// New creates a dashboard over the given source.
func New(source EventSource) *Dashboard {
	return &Dashboard{source: source}
}

// Summary aggregates event counts by alert level and type over the
// trailing period.
func (d *Dashboard) Summary(period time.Duration) *Summary {
	now := time.Now().UTC()
	events := d.source.EventsSince(now.Add(-period))

	s := &Summary{
		Period:      period.String(),
		GeneratedAt: now,
		TotalEvents: len(events),
		ByLevel:     make(map[string]int),
		ByType:      make(map[string]int),
	}
	for _, e := range events {
		s.ByLevel[e.AlertLevel.String()]++
		s.ByType[string(e.EventType)]++
	}
	return s
}

// SuspiciousIPs reports source addresses that produced medium-or-worse
// events within the period, plus every known-malicious address, ordered
// by event count descending.
func (d *Dashboard) SuspiciousIPs(period time.Duration) []IPReport {
	now := time.Now().UTC()
	events := d.source.EventsSince(now.Add(-period))

	known := make(map[string]struct{})
	for _, ip := range d.source.MaliciousIPs() {
		known[ip] = struct{}{}
	}

	byIP := make(map[string]*IPReport)
	for _, e := range events {
		if e.IPAddress == "" || e.AlertLevel < models.AlertMedium {
			continue
		}
		report, ok := byIP[e.IPAddress]
		if !ok {
			_, flagged := known[e.IPAddress]
			report = &IPReport{IPAddress: e.IPAddress, Known: flagged}
			byIP[e.IPAddress] = report
		}
		report.Events++
		if e.Timestamp.After(report.LastSeen) {
			report.LastSeen = e.Timestamp
		}
		if report.MaxLevel == "" || models.ParseAlertLevel(report.MaxLevel) < e.AlertLevel {
			report.MaxLevel = e.AlertLevel.String()
		}
	}

	for ip := range known {
		if _, ok := byIP[ip]; !ok {
			byIP[ip] = &IPReport{IPAddress: ip, Known: true}
		}
	}

	out := make([]IPReport, 0, len(byIP))
	for _, report := range byIP {
		out = append(out, *report)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Events != out[j].Events {
			return out[i].Events > out[j].Events
		}
		return out[i].IPAddress < out[j].IPAddress
	})
	return out
}

// BlockedAccounts lists users with suspicious activity whose account
// status currently resolves to a block.
func (d *Dashboard) BlockedAccounts() []BlockedAccount {
	var out []BlockedAccount
	for _, userID := range d.source.TrackedUsers() {
		if blocked, reason := d.source.CheckAccountStatus(userID, ""); blocked {
			out = append(out, BlockedAccount{UserID: userID, Reason: reason})
		}
	}
	return out
}

// RecentEvents returns the newest events at or above the minimum level,
// most recent first, capped at limit.
func (d *Dashboard) RecentEvents(period time.Duration, minLevel models.AlertLevel, limit int) []*models.SecurityEvent {
	events := d.source.EventsSince(time.Now().UTC().Add(-period))

	var filtered []*models.SecurityEvent
	for _, e := range events {
		if e.AlertLevel >= minLevel {
			filtered = append(filtered, e)
		}
	}
	// EventsSince returns oldest first.
	for i, j := 0, len(filtered)-1; i < j; i, j = i+1, j-1 {
		filtered[i], filtered[j] = filtered[j], filtered[i]
	}
	if limit > 0 && len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return filtered
}

// UserActivity returns one user's suspicious-activity list, most recent
// first.
func (d *Dashboard) UserActivity(userID string, limit int) []*models.SecurityEvent {
	return d.source.GetSuspiciousActivities(userID, limit)
}
