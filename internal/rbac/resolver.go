// Interlock - Multi-Tenant Integration Platform
// Copyright 2026 Interlock Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/interlockhq/interlock

package rbac

import (
	"github.com/interlockhq/interlock/internal/logging"
	"github.com/interlockhq/interlock/internal/models"
)

// Resolver answers role-level permission questions against a catalog.
// It is stateless apart from the immutable catalog and safe for
// concurrent use.
type Resolver struct {
	catalog *Catalog
}

// NewResolver creates a resolver over the given catalog.
func NewResolver(catalog *Catalog) *Resolver {
	return &Resolver{catalog: catalog}
}

// HasPermission reports whether the role's resolved permission set grants
// the permission, either exactly, via the global wildcard, or via a
// "resource:*" wildcard. Any internal failure results in deny.
func (r *Resolver) HasPermission(role models.Role, perm models.Permission) (granted bool) {
	defer func() {
		if rec := recover(); rec != nil {
			logging.Error().
				Interface("panic", rec).
				Str("role", role.String()).
				Str("permission", string(perm)).
				Msg("Permission resolution panicked, denying")
			granted = false
		}
	}()
	return permissionSetGrants(r.catalog.RolePermissions(role), perm)
}

// HasAnyPermission reports whether the role holds at least one of the
// given permissions. An empty list yields false.
func (r *Resolver) HasAnyPermission(role models.Role, perms ...models.Permission) bool {
	for _, p := range perms {
		if r.HasPermission(role, p) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether the role holds every one of the given
// permissions. An empty list yields true.
func (r *Resolver) HasAllPermissions(role models.Role, perms ...models.Permission) bool {
	for _, p := range perms {
		if !r.HasPermission(role, p) {
			return false
		}
	}
	return true
}

// MissingPermissions returns the subset of perms the role does not hold,
// preserving input order. Used to build actionable denial messages.
func (r *Resolver) MissingPermissions(role models.Role, perms ...models.Permission) []models.Permission {
	var missing []models.Permission
	for _, p := range perms {
		if !r.HasPermission(role, p) {
			missing = append(missing, p)
		}
	}
	return missing
}

// permissionSetGrants checks a resolved permission set for an exact match,
// the global wildcard, or the resource wildcard.
func permissionSetGrants(set map[models.Permission]struct{}, perm models.Permission) bool {
	if _, ok := set[models.PermissionWildcard]; ok {
		return true
	}
	if _, ok := set[perm]; ok {
		return true
	}
	if wc := perm.ResourceWildcard(); wc != models.PermissionWildcard {
		if _, ok := set[wc]; ok {
			return true
		}
	}
	return false
}
