// Interlock - Multi-Tenant Integration Platform
// Copyright 2026 Interlock Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/interlockhq/interlock

/*
rbac.go - Role-Based Access Control Models

This file defines data structures for RBAC role management and audit logging.

Key Structures:
  - Role: Closed set of hierarchical roles (guest .. admin)
  - Permission: "resource:action" token with wildcard support
  - PermissionHistoryEntry: Append-only audit record for permission changes

Role Hierarchy:
  - guest: Minimal access, unauthenticated-grade
  - readonly: Read access to shared resources (inherits guest)
  - user: Standard member, owns resources (inherits readonly)
  - manager: Team management and integration execution (inherits user)
  - admin: Full access, wildcard permission (inherits manager)

Usage:
  - Catalog and resolution in internal/rbac/catalog.go
  - Stateful assignment in internal/rbac/manager.go
*/

package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is a named, hierarchical bundle of permissions.
type Role string

// Role constants define the closed set of roles in the system.
const (
	// RoleAdmin has full access including the wildcard permission.
	RoleAdmin Role = "admin"

	// RoleManager can manage team resources and execute integrations.
	RoleManager Role = "manager"

	// RoleUser is the standard member role.
	RoleUser Role = "user"

	// RoleReadOnly has read access but cannot mutate anything.
	RoleReadOnly Role = "readonly"

	// RoleGuest is the minimal role for barely-trusted subjects.
	RoleGuest Role = "guest"
)

// ValidRoles contains all valid roles for validation, highest privilege first.
var ValidRoles = []Role{RoleAdmin, RoleManager, RoleUser, RoleReadOnly, RoleGuest}

// roleInherits maps each role to every role below it in the fixed hierarchy.
// The table is defined once at process start and never mutated.
var roleInherits = map[Role][]Role{
	RoleAdmin:    {RoleManager, RoleUser, RoleReadOnly, RoleGuest},
	RoleManager:  {RoleUser, RoleReadOnly, RoleGuest},
	RoleUser:     {RoleReadOnly, RoleGuest},
	RoleReadOnly: {RoleGuest},
	RoleGuest:    {},
}

// IsValidRole checks if a role name belongs to the closed role set.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if string(r) == role {
			return true
		}
	}
	return false
}

// ParseRole converts a string to a Role, normalizing case and
// surrounding whitespace. Returns false for unknown names.
func ParseRole(s string) (Role, bool) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	if !IsValidRole(normalized) {
		return "", false
	}
	return Role(normalized), true
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Inherits returns the roles this role inherits from, in descending order.
// Unknown roles inherit nothing.
func (r Role) Inherits() []Role {
	return roleInherits[r]
}

// Includes reports whether this role is the given role or inherits it.
// This is the hierarchy-aware role comparison used by role checks.
func (r Role) Includes(other Role) bool {
	if r == other {
		return true
	}
	for _, inherited := range roleInherits[r] {
		if inherited == other {
			return true
		}
	}
	return false
}

// Permission is a "resource:action" token representing one allowed operation.
// The sentinel "*" grants everything; "resource:*" grants every action on
// one resource.
type Permission string

// PermissionWildcard grants all permissions.
const PermissionWildcard Permission = "*"

// DenyPrefix marks an override token as an explicit denial.
const DenyPrefix = "!"

// Resource returns the resource component of the permission, or "" if the
// token has no resource prefix.
func (p Permission) Resource() string {
	if idx := strings.Index(string(p), ":"); idx > 0 {
		return string(p)[:idx]
	}
	return ""
}

// Action returns the action component of the permission.
func (p Permission) Action() string {
	if idx := strings.Index(string(p), ":"); idx >= 0 {
		return string(p)[idx+1:]
	}
	return string(p)
}

// ResourceWildcard returns the "resource:*" form of this permission.
// The wildcard itself maps to itself.
func (p Permission) ResourceWildcard() Permission {
	res := p.Resource()
	if res == "" {
		return PermissionWildcard
	}
	return Permission(res + ":*")
}

// Valid reports whether the token is well-formed: the global wildcard, or a
// non-empty "resource:action" pair.
func (p Permission) Valid() bool {
	if p == PermissionWildcard {
		return true
	}
	idx := strings.Index(string(p), ":")
	return idx > 0 && idx < len(p)-1
}

// Deny returns the explicit-denial form of this permission.
func (p Permission) Deny() string {
	return DenyPrefix + string(p)
}

// HistoryAction constants define the types of permission audit entries.
const (
	// HistoryActionGranted indicates a permission was granted.
	HistoryActionGranted = "granted"

	// HistoryActionRevoked indicates a permission was revoked.
	HistoryActionRevoked = "revoked"

	// HistoryActionReset indicates all overrides were cleared.
	HistoryActionReset = "reset"

	// HistoryActionRoleChanged indicates a role assignment changed.
	HistoryActionRoleChanged = "role_changed"
)

// PermissionHistoryEntry records a permission or role change for audit
// purposes. Entries are immutable once created (append-only audit log).
type PermissionHistoryEntry struct {
	// ID is the primary key (UUID for global uniqueness)
	ID uuid.UUID `json:"id"`

	// Timestamp is when the change occurred
	Timestamp time.Time `json:"timestamp"`

	// OperationID correlates the entry with logs from the same operation
	OperationID string `json:"operation_id"`

	// ActorID is the user who performed the change
	ActorID string `json:"actor_id"`

	// UserID is the user whose permissions were changed
	UserID string `json:"user_id"`

	// TenantID scopes the change to a tenant (empty for global)
	TenantID string `json:"tenant_id,omitempty"`

	// ResourceType and ResourceID scope the change to one resource instance
	ResourceType string `json:"resource_type,omitempty"`
	ResourceID   string `json:"resource_id,omitempty"`

	// Action is the type of change (granted, revoked, reset, role_changed)
	Action string `json:"action"`

	// Permission is the affected permission token (empty for reset/role changes)
	Permission string `json:"permission,omitempty"`

	// OldRole and NewRole capture role transitions
	OldRole string `json:"old_role,omitempty"`
	NewRole string `json:"new_role,omitempty"`

	// Reason is an optional explanation for the change
	Reason string `json:"reason,omitempty"`
}

// NewPermissionHistoryEntry creates a history entry with ID and timestamp set.
func NewPermissionHistoryEntry(actorID, userID, action string) *PermissionHistoryEntry {
	return &PermissionHistoryEntry{
		ID:          uuid.New(),
		Timestamp:   time.Now().UTC(),
		OperationID: uuid.NewString(),
		ActorID:     actorID,
		UserID:      userID,
		Action:      action,
	}
}
