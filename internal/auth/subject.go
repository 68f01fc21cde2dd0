// Interlock - Multi-Tenant Integration Platform
// Copyright 2026 Interlock Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/interlockhq/interlock

// Package auth implements request authentication for Interlock: JWT
// bearer-token validation, the authenticated subject carried through the
// request context, and the account-status gate that blocks compromised
// accounts before any handler runs.
package auth

import (
	"context"

	"github.com/interlockhq/interlock/internal/models"
)

// Subject is the authenticated principal attached to a request context
// after token validation.
type Subject struct {
	// ID is the stable user identifier (JWT "sub").
	ID string `json:"id"`

	// Username is the display identity, informational only.
	Username string `json:"username"`

	// Role is the role claim carried by the token. Authorization decisions
	// resolve the role through the RBAC manager; this value seeds the
	// manager when no assignment exists yet.
	Role models.Role `json:"role"`

	// TenantID scopes the subject to one tenant. Empty for platform-level
	// principals.
	TenantID string `json:"tenant_id"`
}

type contextKey string

const subjectContextKey contextKey = "auth_subject"

// ContextWithSubject attaches the subject to the context.
func ContextWithSubject(ctx context.Context, sub *Subject) context.Context {
	return context.WithValue(ctx, subjectContextKey, sub)
}

// SubjectFromContext extracts the authenticated subject, or nil when the
// request did not pass authentication middleware.
func SubjectFromContext(ctx context.Context) *Subject {
	sub, _ := ctx.Value(subjectContextKey).(*Subject)
	return sub
}
