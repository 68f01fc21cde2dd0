// Interlock - Multi-Tenant Integration Platform
// Copyright 2026 Interlock Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/interlockhq/interlock

package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// eventsTotal counts processed security events by type and final alert
	// level (post-escalation).
	eventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "interlock",
			Subsystem: "security",
			Name:      "events_total",
			Help:      "Processed security events by type and alert level",
		},
		[]string{"event_type", "alert_level"},
	)

	// bruteForceDetections counts synthesized brute-force events.
	bruteForceDetections = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "interlock",
			Subsystem: "security",
			Name:      "brute_force_detections_total",
			Help:      "Brute-force attempts detected from login failure windows",
		},
	)

	// rateLimitEscalations counts rate-limit events escalated to HIGH.
	rateLimitEscalations = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "interlock",
			Subsystem: "security",
			Name:      "rate_limit_escalations_total",
			Help:      "Rate-limit events escalated to high severity",
		},
	)

	// suspiciousIPDetections counts synthesized suspicious-IP events by
	// origin (malicious_set, private_range).
	suspiciousIPDetections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "interlock",
			Subsystem: "security",
			Name:      "suspicious_ip_detections_total",
			Help:      "Suspicious IP detections by origin",
		},
		[]string{"origin"},
	)

	// accountBlocks counts check_account_status block decisions by reason.
	accountBlocks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "interlock",
			Subsystem: "security",
			Name:      "account_blocks_total",
			Help:      "Account status checks that returned a block, by reason",
		},
		[]string{"reason"},
	)
)
