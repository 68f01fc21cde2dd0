// Interlock - Multi-Tenant Integration Platform
// Copyright 2026 Interlock Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/interlockhq/interlock

/*
security_event.go - Security Event Model

This file defines the typed security events consumed by the monitor
(internal/monitor) and the dashboard query layer (internal/dashboard).

Key Structures:
  - EventType: Enumerated taxonomy of security-relevant occurrences
  - AlertLevel: Ordered severity classification (info .. critical)
  - SecurityEvent: Immutable, timestamped event value with deterministic ID

Event IDs are derived from a hash of (timestamp, event type, user, IP) so
identical-looking events at the same instant collide deterministically.
*/

package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// EventType identifies the kind of security event.
type EventType string

// Authentication lifecycle events.
const (
	EventLoginSuccess     EventType = "login_success"
	EventLoginFailure     EventType = "login_failure"
	EventLogout           EventType = "logout"
	EventPasswordChange   EventType = "password_change"
	EventPasswordReset    EventType = "password_reset"
	EventMFAChallenge     EventType = "mfa_challenge"
	EventMFASuccess       EventType = "mfa_success"
	EventMFAFailure       EventType = "mfa_failure"
	EventAccountLocked    EventType = "account_locked"
	EventAccountUnlocked  EventType = "account_unlocked"
	EventSessionExpired   EventType = "session_expired"
	EventTokenRefreshed   EventType = "token_refreshed"
)

// Access-control events.
const (
	EventPermissionGranted EventType = "permission_granted"
	EventPermissionRevoked EventType = "permission_revoked"
	EventAccessDenied      EventType = "access_denied"
	EventElevationAttempt  EventType = "elevation_attempt"
)

// API abuse events.
const (
	EventRateLimitExceeded EventType = "rate_limit_exceeded"
	EventAPIKeyCreated     EventType = "api_key_created"
	EventAPIKeyRevoked     EventType = "api_key_revoked"
)

// Data access events.
const (
	EventSensitiveDataAccess EventType = "sensitive_data_access"
	EventUnusualDataAccess   EventType = "unusual_data_access"
	EventMassDataAccess      EventType = "mass_data_access"
)

// Tenant events.
const (
	EventTenantCreated     EventType = "tenant_created"
	EventTenantDeleted     EventType = "tenant_deleted"
	EventCrossTenantAccess EventType = "cross_tenant_access"
)

// Derived suspicious-activity events.
const (
	EventSuspiciousIP        EventType = "suspicious_ip"
	EventSuspiciousUserAgent EventType = "suspicious_user_agent"
	EventSuspiciousLocation  EventType = "suspicious_location"
	EventSuspiciousLoginTime EventType = "suspicious_login_time"
	EventBruteForceAttempt   EventType = "brute_force_attempt"
)

// Integration credential events.
const (
	EventCredentialRotated EventType = "credential_rotated"
	EventCredentialExpired EventType = "credential_expired"
)

// AlertLevel classifies event severity. Levels are ordered; higher values
// indicate more severe events.
type AlertLevel int

const (
	AlertInfo AlertLevel = iota
	AlertLow
	AlertMedium
	AlertHigh
	AlertCritical
)

// String returns the lowercase name of the alert level.
func (l AlertLevel) String() string {
	switch l {
	case AlertInfo:
		return "info"
	case AlertLow:
		return "low"
	case AlertMedium:
		return "medium"
	case AlertHigh:
		return "high"
	case AlertCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ParseAlertLevel converts a string to an AlertLevel. Unknown strings map to
// AlertInfo so a malformed level never escalates.
func ParseAlertLevel(s string) AlertLevel {
	switch s {
	case "low":
		return AlertLow
	case "medium":
		return AlertMedium
	case "high":
		return AlertHigh
	case "critical":
		return AlertCritical
	default:
		return AlertInfo
	}
}

// SecurityEvent is an immutable record of a security-relevant occurrence.
// Construct with NewSecurityEvent; the zero value has no event ID.
type SecurityEvent struct {
	// EventID is deterministic: a hash of (timestamp, type, user, IP).
	EventID string `json:"event_id"`

	// EventType is the taxonomy entry for this event.
	EventType EventType `json:"event_type"`

	// Timestamp is the UTC instant the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// AlertLevel is the severity assigned at construction. The monitor may
	// escalate it before logging (rate-limit escalation).
	AlertLevel AlertLevel `json:"alert_level"`

	// Optional subject context.
	UserID    string `json:"user_id,omitempty"`
	TenantID  string `json:"tenant_id,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`

	// Optional resource context.
	ResourceType string `json:"resource_type,omitempty"`
	ResourceID   string `json:"resource_id,omitempty"`

	// Details carries free-form event-specific fields.
	Details map[string]interface{} `json:"details,omitempty"`
}

// NewSecurityEvent constructs an event with a UTC timestamp and a
// deterministic event ID.
func NewSecurityEvent(eventType EventType, level AlertLevel) *SecurityEvent {
	e := &SecurityEvent{
		EventType:  eventType,
		Timestamp:  time.Now().UTC(),
		AlertLevel: level,
		Details:    make(map[string]interface{}),
	}
	e.EventID = eventID(e.Timestamp, eventType, e.UserID, e.IPAddress)
	return e
}

// WithSubject sets user/tenant context and recomputes the event ID.
func (e *SecurityEvent) WithSubject(userID, tenantID string) *SecurityEvent {
	e.UserID = userID
	e.TenantID = tenantID
	e.EventID = eventID(e.Timestamp, e.EventType, e.UserID, e.IPAddress)
	return e
}

// WithNetwork sets network context and recomputes the event ID.
func (e *SecurityEvent) WithNetwork(ip, userAgent string) *SecurityEvent {
	e.IPAddress = ip
	e.UserAgent = userAgent
	e.EventID = eventID(e.Timestamp, e.EventType, e.UserID, e.IPAddress)
	return e
}

// WithResource sets resource context.
func (e *SecurityEvent) WithResource(resourceType, resourceID string) *SecurityEvent {
	e.ResourceType = resourceType
	e.ResourceID = resourceID
	return e
}

// WithDetail adds one detail field.
func (e *SecurityEvent) WithDetail(key string, value interface{}) *SecurityEvent {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// eventID hashes the identifying tuple into a 16-byte hex string.
func eventID(ts time.Time, eventType EventType, userID, ip string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d|%s|%s|%s", ts.UnixNano(), eventType, userID, ip)))
	return hex.EncodeToString(sum[:16])
}
