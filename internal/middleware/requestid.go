// Interlock - Multi-Tenant Integration Platform
// Copyright 2026 Interlock Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/interlockhq/interlock

// Package middleware provides HTTP middleware shared by all routes:
// request-ID propagation, request logging, and Prometheus request
// metrics. Authorization guards live in internal/rbac; authentication in
// internal/auth.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/interlockhq/interlock/internal/logging"
)

// RequestIDHeader is the header carrying the request ID in both
// directions. An inbound value is trusted and propagated; otherwise a new
// ID is generated.
const RequestIDHeader = "X-Request-ID"

// RequestID attaches a request ID to the context and response, so every
// log line emitted under the request carries it.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		ctx := logging.ContextWithRequestID(r.Context(), id)
		ctx = logging.ContextWithNewCorrelationID(ctx)
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
