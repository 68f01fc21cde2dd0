// Interlock - Multi-Tenant Integration Platform
// Copyright 2026 Interlock Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/interlockhq/interlock

// Package monitor implements the security event monitor: the single
// in-process pipeline every security-relevant occurrence flows through.
//
// Each event is written to the structured security log, then dispatched to
// type-specific detectors: a sliding-window brute-force detector over
// login failures, a rate-limit abuse escalator, and a suspicious-IP check
// against a known-malicious set and private/reserved ranges. Events at
// MEDIUM severity or above are retained per user, and CheckAccountStatus
// turns that history into a block/allow decision consulted on every
// authenticated request.
//
// The monitor is a single-process, in-memory design guarded by one mutex;
// it does not coordinate across service instances.
package monitor

import (
	"net/netip"
	"sort"
	"sync"
	"time"

	"github.com/interlockhq/interlock/internal/logging"
	"github.com/interlockhq/interlock/internal/models"
)

// Block reasons returned by CheckAccountStatus. These are user-facing
// strings surfaced in 403 responses.
const (
	ReasonTooManyLoginFailures = "Too many failed login attempts"
	ReasonCriticalAlert        = "Critical security alert detected"
	ReasonMultipleHighAlerts   = "Multiple high security alerts detected"
)

// reviewWindow bounds how far back CheckAccountStatus looks at a user's
// suspicious activity.
const reviewWindow = 24 * time.Hour

// Config tunes the monitor's detectors. Zero values select the defaults.
type Config struct {
	// LoginFailureThreshold is the failure count per (ip, user) within
	// LoginFailureWindow that triggers brute-force detection. Default 5.
	LoginFailureThreshold int

	// LoginFailureWindow is the sliding window for login failures.
	// Default 30 minutes.
	LoginFailureWindow time.Duration

	// RateLimitThreshold is the rate-limit event count per IP within
	// RateLimitWindow that escalates events to high severity. Default 10.
	RateLimitThreshold int

	// RateLimitWindow is the sliding window for rate-limit events.
	// Default 60 minutes.
	RateLimitWindow time.Duration

	// MaliciousIPFile is a newline-delimited IP seed file loaded at
	// startup. Empty means no seed.
	MaliciousIPFile string

	// Debug relaxes the private/reserved-IP suspicion check so local
	// development traffic is not flagged.
	Debug bool

	// MaxSuspiciousPerUser caps each user's retained suspicious-activity
	// list. Default 100.
	MaxSuspiciousPerUser int

	// MaxRetainedEvents caps the recent-event buffer served to the
	// dashboard. Default 10000.
	MaxRetainedEvents int
}

// DefaultConfig returns the stock detector thresholds.
func DefaultConfig() Config {
	return Config{
		LoginFailureThreshold: 5,
		LoginFailureWindow:    30 * time.Minute,
		RateLimitThreshold:    10,
		RateLimitWindow:       60 * time.Minute,
		MaxSuspiciousPerUser:  100,
		MaxRetainedEvents:     10000,
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.LoginFailureThreshold <= 0 {
		c.LoginFailureThreshold = d.LoginFailureThreshold
	}
	if c.LoginFailureWindow <= 0 {
		c.LoginFailureWindow = d.LoginFailureWindow
	}
	if c.RateLimitThreshold <= 0 {
		c.RateLimitThreshold = d.RateLimitThreshold
	}
	if c.RateLimitWindow <= 0 {
		c.RateLimitWindow = d.RateLimitWindow
	}
	if c.MaxSuspiciousPerUser <= 0 {
		c.MaxSuspiciousPerUser = d.MaxSuspiciousPerUser
	}
	if c.MaxRetainedEvents <= 0 {
		c.MaxRetainedEvents = d.MaxRetainedEvents
	}
}

// Monitor is the security event pipeline. One mutex guards all state;
// detector logic runs in the same critical section as the counter
// mutation that triggered it, so a detection is visible to the very next
// CheckAccountStatus call. The only I/O under the lock is the security
// log write, which goes through a buffered logger.
type Monitor struct {
	mu sync.Mutex

	cfg Config
	log *logging.SecurityLog

	loginFailures *slidingWindow
	rateLimits    *slidingWindow
	malicious     map[string]struct{}
	suspicious    map[string][]*models.SecurityEvent
	recent        []*models.SecurityEvent
}

// New creates a monitor, loading the malicious-IP seed file when one is
// configured. A missing or unreadable seed file is an error: starting
// without a configured blocklist would silently weaken detection.
func New(cfg Config, securityLog *logging.SecurityLog) (*Monitor, error) {
	cfg.applyDefaults()

	malicious, err := loadMaliciousIPs(cfg.MaliciousIPFile)
	if err != nil {
		return nil, err
	}
	return &Monitor{
		cfg:           cfg,
		log:           securityLog,
		loginFailures: newSlidingWindow(cfg.LoginFailureWindow),
		rateLimits:    newSlidingWindow(cfg.RateLimitWindow),
		malicious:     malicious,
		suspicious:    make(map[string][]*models.SecurityEvent),
	}, nil
}

// LogEvent processes one security event: writes it to the security log,
// runs the type-specific detectors, and retains it for account-status and
// dashboard queries. It never panics; a failure inside the pipeline is
// logged and the event is dropped rather than crashing the request path.
func (m *Monitor) LogEvent(event *models.SecurityEvent) {
	if event == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			logging.Error().
				Interface("panic", rec).
				Str("event_type", string(event.EventType)).
				Msg("Security event processing panicked, event dropped")
		}
	}()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.write(event)

	switch event.EventType {
	case models.EventLoginFailure:
		m.handleLoginFailure(event)
	case models.EventRateLimitExceeded:
		m.handleRateLimit(event)
	}

	if event.EventType != models.EventSuspiciousIP {
		m.checkSuspiciousIP(event)
	}

	m.trackSuspicious(event)
	m.retain(event)
	eventsTotal.WithLabelValues(string(event.EventType), event.AlertLevel.String()).Inc()
}

// handleLoginFailure updates the per-(ip, user) failure window and
// synthesizes one brute-force event at the moment the threshold is
// reached. The synthesized event is logged and retained but not fed back
// through the detectors. Caller holds the lock.
func (m *Monitor) handleLoginFailure(event *models.SecurityEvent) {
	key := event.IPAddress + ":" + event.UserID
	count := m.loginFailures.record(key, event.Timestamp)
	if count != m.cfg.LoginFailureThreshold {
		return
	}

	bruteForce := models.NewSecurityEvent(models.EventBruteForceAttempt, models.AlertHigh).
		WithSubject(event.UserID, event.TenantID).
		WithNetwork(event.IPAddress, event.UserAgent).
		WithDetail("failure_count", count).
		WithDetail("window_minutes", int(m.cfg.LoginFailureWindow.Minutes())).
		WithDetail("source_event_id", event.EventID)

	m.write(bruteForce)
	m.trackSuspicious(bruteForce)
	m.retain(bruteForce)
	bruteForceDetections.Inc()
	eventsTotal.WithLabelValues(string(bruteForce.EventType), bruteForce.AlertLevel.String()).Inc()

	logging.Warn().
		Str("ip_address", event.IPAddress).
		Str("user_id", event.UserID).
		Int("failure_count", count).
		Msg("Brute-force attempt detected")
}

// handleRateLimit updates the per-IP window and, once the threshold is
// reached, escalates the same event to high severity and re-logs it with
// the counters attached. Caller holds the lock.
func (m *Monitor) handleRateLimit(event *models.SecurityEvent) {
	count := m.rateLimits.record(event.IPAddress, event.Timestamp)
	if count < m.cfg.RateLimitThreshold {
		return
	}

	event.AlertLevel = models.AlertHigh
	event.WithDetail("request_count", count).
		WithDetail("window_minutes", int(m.cfg.RateLimitWindow.Minutes()))
	m.write(event)
	rateLimitEscalations.Inc()

	logging.Warn().
		Str("ip_address", event.IPAddress).
		Int("request_count", count).
		Msg("Rate-limit abuse escalated")
}

// checkSuspiciousIP synthesizes a suspicious-IP event when the source
// address is in the malicious set, or is a private/reserved address
// hitting the service outside debug mode. Caller holds the lock.
func (m *Monitor) checkSuspiciousIP(event *models.SecurityEvent) {
	if event.IPAddress == "" {
		return
	}

	var origin string
	if _, known := m.malicious[event.IPAddress]; known {
		origin = "malicious_set"
	} else if !m.cfg.Debug && isPrivateOrReserved(event.IPAddress) {
		origin = "private_range"
	} else {
		return
	}

	suspect := models.NewSecurityEvent(models.EventSuspiciousIP, models.AlertMedium).
		WithSubject(event.UserID, event.TenantID).
		WithNetwork(event.IPAddress, event.UserAgent).
		WithDetail("original_event_type", string(event.EventType)).
		WithDetail("origin", origin)

	m.write(suspect)
	m.trackSuspicious(suspect)
	m.retain(suspect)
	suspiciousIPDetections.WithLabelValues(origin).Inc()
	eventsTotal.WithLabelValues(string(suspect.EventType), suspect.AlertLevel.String()).Inc()
}

// trackSuspicious appends medium-or-worse events carrying a user ID to
// that user's bounded activity list. Caller holds the lock.
func (m *Monitor) trackSuspicious(event *models.SecurityEvent) {
	if event.AlertLevel < models.AlertMedium || event.UserID == "" {
		return
	}
	list := append(m.suspicious[event.UserID], event)
	if excess := len(list) - m.cfg.MaxSuspiciousPerUser; excess > 0 {
		list = append(list[:0:0], list[excess:]...)
	}
	m.suspicious[event.UserID] = list
}

// retain appends the event to the bounded recent-event buffer. Caller
// holds the lock.
func (m *Monitor) retain(event *models.SecurityEvent) {
	m.recent = append(m.recent, event)
	if excess := len(m.recent) - m.cfg.MaxRetainedEvents; excess > 0 {
		m.recent = append(m.recent[:0:0], m.recent[excess:]...)
	}
}

// write emits the event to the security log when one is configured.
// Caller holds the lock.
func (m *Monitor) write(event *models.SecurityEvent) {
	if m.log != nil {
		m.log.Write(event)
	}
}

// CheckAccountStatus decides whether requests from the user should be
// blocked, and why. Checks run in priority order and stop at the first
// match: an active brute-force window for (ip, user), then any critical
// suspicious-activity event in the last 24 hours, then five or more high
// events in the same period. An unknown user with no history is never
// blocked.
func (m *Monitor) CheckAccountStatus(userID, ipAddress string) (bool, string) {
	if userID == "" {
		return false, ""
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()

	if ipAddress != "" {
		key := ipAddress + ":" + userID
		if m.loginFailures.count(key, now) >= m.cfg.LoginFailureThreshold {
			accountBlocks.WithLabelValues("login_failures").Inc()
			return true, ReasonTooManyLoginFailures
		}
	}

	cutoff := now.Add(-reviewWindow)
	highCount := 0
	for _, event := range m.suspicious[userID] {
		if event.Timestamp.Before(cutoff) {
			continue
		}
		switch event.AlertLevel {
		case models.AlertCritical:
			accountBlocks.WithLabelValues("critical_alert").Inc()
			return true, ReasonCriticalAlert
		case models.AlertHigh:
			highCount++
		}
	}
	if highCount >= 5 {
		accountBlocks.WithLabelValues("high_alerts").Inc()
		return true, ReasonMultipleHighAlerts
	}
	return false, ""
}

// GetSuspiciousActivities returns the user's suspicious-activity list,
// most recent first. limit <= 0 returns the whole list.
func (m *Monitor) GetSuspiciousActivities(userID string, limit int) []*models.SecurityEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.suspicious[userID]
	if limit <= 0 || limit > len(list) {
		limit = len(list)
	}
	out := make([]*models.SecurityEvent, 0, limit)
	for i := len(list) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, list[i])
	}
	return out
}

// AddMaliciousIP adds an address to the known-malicious set, taking
// effect for all subsequent event processing. Returns false for an
// unparseable address.
func (m *Monitor) AddMaliciousIP(ip string) bool {
	if _, err := netip.ParseAddr(ip); err != nil {
		logging.Warn().Str("ip_address", ip).Msg("Rejected malformed malicious IP")
		return false
	}

	m.mu.Lock()
	m.malicious[ip] = struct{}{}
	m.mu.Unlock()

	logging.Info().Str("ip_address", ip).Msg("Added IP to malicious set")
	return true
}

// MaliciousIPs returns the known-malicious set, sorted.
func (m *Monitor) MaliciousIPs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.malicious))
	for ip := range m.malicious {
		out = append(out, ip)
	}
	sort.Strings(out)
	return out
}

// EventsSince returns retained events with timestamps at or after the
// cutoff, oldest first. The dashboard aggregates over this.
func (m *Monitor) EventsSince(since time.Time) []*models.SecurityEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*models.SecurityEvent
	for _, event := range m.recent {
		if !event.Timestamp.Before(since) {
			out = append(out, event)
		}
	}
	return out
}

// TrackedUsers returns the IDs of users with recorded suspicious
// activity, sorted.
func (m *Monitor) TrackedUsers() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.suspicious))
	for userID := range m.suspicious {
		out = append(out, userID)
	}
	sort.Strings(out)
	return out
}
