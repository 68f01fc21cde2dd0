// Interlock - Multi-Tenant Integration Platform
// Copyright 2026 Interlock Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/interlockhq/interlock

package rbac

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// checkDecisions counts permission check outcomes by decision and the
	// layer that produced them (resource_override, user_override, role,
	// no_role, error).
	checkDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "interlock",
			Subsystem: "rbac",
			Name:      "check_decisions_total",
			Help:      "Permission check decisions by outcome and resolution layer",
		},
		[]string{"decision", "layer"},
	)

	// checkDuration observes permission check latency.
	checkDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "interlock",
			Subsystem: "rbac",
			Name:      "check_duration_seconds",
			Help:      "Permission check latency",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
	)

	// slowChecks counts checks that exceeded the configured slow threshold.
	slowChecks = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "interlock",
			Subsystem: "rbac",
			Name:      "slow_checks_total",
			Help:      "Permission checks slower than the configured threshold",
		},
	)

	// mutations counts role and override changes by kind.
	mutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "interlock",
			Subsystem: "rbac",
			Name:      "mutations_total",
			Help:      "RBAC state mutations by kind",
		},
		[]string{"kind"},
	)

	// middlewareDenials counts authorization middleware rejections by code.
	middlewareDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "interlock",
			Subsystem: "rbac",
			Name:      "middleware_denials_total",
			Help:      "Requests rejected by authorization middleware, by denial code",
		},
		[]string{"code"},
	)
)

func recordDecision(granted bool, layer string) {
	decision := "deny"
	if granted {
		decision = "allow"
	}
	checkDecisions.WithLabelValues(decision, layer).Inc()
}
