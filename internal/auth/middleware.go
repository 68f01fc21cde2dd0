// Interlock - Multi-Tenant Integration Platform
// Copyright 2026 Interlock Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/interlockhq/interlock

package auth

import (
	"net"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/interlockhq/interlock/internal/logging"
	"github.com/interlockhq/interlock/internal/models"
)

// Codes written by authentication failures. The authorization layer has
// its own set for 403s it produces itself.
const (
	codeNotAuthenticated = "NOT_AUTHENTICATED"
	codeAccountBlocked   = "ACCOUNT_BLOCKED"
)

// AccountGate is the monitor surface the middleware consults before
// letting an authenticated request proceed.
type AccountGate interface {
	CheckAccountStatus(userID, ipAddress string) (bool, string)
	LogEvent(event *models.SecurityEvent)
}

// RoleSeeder records a role assignment when none exists yet.
// *rbac.Manager satisfies this interface.
type RoleSeeder interface {
	EnsureRole(userID, tenantID string, role models.Role)
}

// Middleware authenticates requests: bearer-token validation, the
// account-status gate, and subject injection into the request context.
type Middleware struct {
	tokens *TokenManager
	gate   AccountGate
	roles  RoleSeeder
}

// NewMiddleware creates authentication middleware. gate and roles may be
// nil in tests.
func NewMiddleware(tokens *TokenManager, gate AccountGate, roles RoleSeeder) *Middleware {
	return &Middleware{tokens: tokens, gate: gate, roles: roles}
}

// Authenticate validates the bearer token, consults the account-status
// gate, seeds the subject's role assignment from the verified claim, and
// attaches the subject to the request context. A blocked account gets 403
// before any handler runs, so detections take effect on the next request.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := remoteIP(r)

		tokenString, ok := bearerToken(r)
		if !ok {
			writeAuthError(w, http.StatusUnauthorized, codeNotAuthenticated,
				"authentication required")
			return
		}

		sub, err := m.tokens.Verify(tokenString)
		if err != nil {
			logging.Ctx(r.Context()).Debug().
				Str("ip_address", ip).
				Str("path", r.URL.Path).
				Msg("Rejected invalid bearer token")
			if m.gate != nil {
				m.gate.LogEvent(models.NewSecurityEvent(models.EventLoginFailure, models.AlertLow).
					WithNetwork(ip, r.UserAgent()).
					WithDetail("reason", "invalid_token").
					WithDetail("path", r.URL.Path))
			}
			writeAuthError(w, http.StatusUnauthorized, codeNotAuthenticated,
				"invalid or expired token")
			return
		}

		if m.gate != nil {
			if blocked, reason := m.gate.CheckAccountStatus(sub.ID, ip); blocked {
				logging.Ctx(r.Context()).Warn().
					Str("user_id", sub.ID).
					Str("ip_address", ip).
					Str("reason", reason).
					Msg("Blocked request from flagged account")
				m.gate.LogEvent(models.NewSecurityEvent(models.EventAccessDenied, models.AlertLow).
					WithSubject(sub.ID, sub.TenantID).
					WithNetwork(ip, r.UserAgent()).
					WithDetail("code", codeAccountBlocked).
					WithDetail("reason", reason))
				writeAuthError(w, http.StatusForbidden, codeAccountBlocked, reason)
				return
			}
		}

		if m.roles != nil && sub.Role != "" {
			m.roles.EnsureRole(sub.ID, sub.TenantID, sub.Role)
		}

		next.ServeHTTP(w, r.WithContext(ContextWithSubject(r.Context(), sub)))
	})
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}

// remoteIP returns the request's source address without the port.
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"code":    code,
		"message": message,
	}); err != nil {
		logging.Error().Err(err).Str("code", code).Msg("Failed to write auth error response")
	}
}
