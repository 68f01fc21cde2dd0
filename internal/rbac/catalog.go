// Interlock - Multi-Tenant Integration Platform
// Copyright 2026 Interlock Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/interlockhq/interlock

// Package rbac implements role-based access control for Interlock.
//
// This package provides role/permission resolution with inheritance,
// per-user and per-resource permission overrides, tenant-scoped role
// assignments, and an append-only audit trail of every change.
//
// # Architecture
//
//	Request -> Auth Middleware -> RBAC Middleware -> Handler
//	               |                    |
//	          Authenticate         CheckPermission
//	          (internal/auth)      (this package)
//
// # Resolution Precedence
//
// A permission check consults three layers, first match wins:
//
//  1. Resource-level override (explicit deny, then explicit allow)
//  2. User-level override (explicit deny, then explicit allow)
//  3. Role-based defaults from the catalog, with inheritance
//
// Every check is fail-closed: an internal error yields deny, never a panic.
//
// # Role Hierarchy
//
//	admin > manager > user > readonly > guest
//
// Each role inherits the direct permissions of every role below it. The
// admin catalog always contains the wildcard permission "*".
package rbac

import (
	"github.com/interlockhq/interlock/internal/models"
)

// Catalog is the read-only role-to-permission mapping. It is defined once
// at construction and never mutated, so lookups need no locking.
type Catalog struct {
	direct map[models.Role]map[models.Permission]struct{}
}

// defaultCatalog lists each role's direct permissions, not yet including
// inherited ones.
var defaultCatalog = map[models.Role][]models.Permission{
	models.RoleAdmin: {
		models.PermissionWildcard,
	},
	models.RoleManager: {
		"application:edit",
		"application:create",
		"dataset:edit",
		"dataset:create",
		"release:create",
		"release:execute",
		"integration:execute",
		"integration:manage",
		"webhook:manage",
		"report:create",
		"user:view",
	},
	models.RoleUser: {
		"application:view",
		"dataset:view",
		"dataset:edit",
		"release:view",
		"integration:view",
		"integration:execute",
		"report:view",
	},
	models.RoleReadOnly: {
		"application:view",
		"dataset:view",
		"release:view",
		"integration:view",
		"webhook:view",
		"report:view",
		"log:view",
	},
	models.RoleGuest: {
		"status:view",
	},
}

// NewCatalog returns the built-in catalog.
func NewCatalog() *Catalog {
	return NewCatalogFrom(defaultCatalog)
}

// NewCatalogFrom builds a catalog from an explicit role-to-permission map.
// This is the seam for substituting an alternate policy source in tests.
// The admin wildcard invariant is enforced regardless of input.
func NewCatalogFrom(roles map[models.Role][]models.Permission) *Catalog {
	c := &Catalog{direct: make(map[models.Role]map[models.Permission]struct{}, len(roles))}
	for role, perms := range roles {
		set := make(map[models.Permission]struct{}, len(perms))
		for _, p := range perms {
			set[p] = struct{}{}
		}
		c.direct[role] = set
	}
	if _, ok := c.direct[models.RoleAdmin]; !ok {
		c.direct[models.RoleAdmin] = make(map[models.Permission]struct{}, 1)
	}
	c.direct[models.RoleAdmin][models.PermissionWildcard] = struct{}{}
	return c
}

// RolePermissions returns the role's direct permissions unioned with the
// direct permissions of every role it inherits from. Unknown roles yield an
// empty set, not an error (fail safe / deny).
func (c *Catalog) RolePermissions(role models.Role) map[models.Permission]struct{} {
	resolved := make(map[models.Permission]struct{})
	for p := range c.direct[role] {
		resolved[p] = struct{}{}
	}
	for _, inherited := range role.Inherits() {
		for p := range c.direct[inherited] {
			resolved[p] = struct{}{}
		}
	}
	return resolved
}

// DirectPermissions returns the role's own catalog entries without
// inheritance. Used by the role listing endpoint.
func (c *Catalog) DirectPermissions(role models.Role) []models.Permission {
	perms := make([]models.Permission, 0, len(c.direct[role]))
	for p := range c.direct[role] {
		perms = append(perms, p)
	}
	return perms
}
