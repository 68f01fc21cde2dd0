// Interlock - Multi-Tenant Integration Platform
// Copyright 2026 Interlock Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/interlockhq/interlock

package rbac

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/interlockhq/interlock/internal/logging"
	"github.com/interlockhq/interlock/internal/models"
)

// EventSink receives security events produced by RBAC mutations.
// *monitor.Monitor satisfies this interface.
type EventSink interface {
	LogEvent(event *models.SecurityEvent)
}

// Scope narrows a permission check to a tenant and optionally to one
// resource instance. Zero value means a global, resource-free check.
type Scope struct {
	TenantID     string
	ResourceType string
	ResourceID   string
}

// ChangeRequest carries the audit context of a role or permission
// mutation. ActorID empty means a system-internal change that is applied
// without an audit entry or security event.
type ChangeRequest struct {
	TenantID     string
	ResourceType string
	ResourceID   string
	ActorID      string
	Reason       string
}

// ManagerConfig tunes the manager. The zero value selects the built-in
// catalog and the default slow-check threshold.
type ManagerConfig struct {
	// Catalog overrides the built-in role-to-permission catalog.
	Catalog *Catalog

	// SlowCheckThreshold is the latency above which a permission check is
	// logged as slow. Zero selects 50ms.
	SlowCheckThreshold time.Duration
}

const defaultSlowCheckThreshold = 50 * time.Millisecond

type assignmentKey struct {
	tenantID string
	userID   string
}

type resourceKey struct {
	resourceType string
	resourceID   string
	userID       string
}

// Manager is the authorization state machine: tenant-scoped role
// assignments, user-level and resource-level permission overrides, and the
// append-only change history. All state lives behind a single mutex; the
// hot path is map lookups, so one coarse lock keeps reasoning simple
// without showing up in profiles.
type Manager struct {
	mu sync.Mutex

	resolver *Resolver
	catalog  *Catalog
	events   EventSink
	slow     time.Duration

	roles             map[assignmentKey]models.Role
	userOverrides     map[string]map[string]struct{}
	resourceOverrides map[resourceKey]map[string]struct{}
	history           []*models.PermissionHistoryEntry
}

// NewManager creates a manager. sink may be nil when security event
// emission is not wanted (tests); cfg may be nil for defaults.
func NewManager(sink EventSink, cfg *ManagerConfig) *Manager {
	if cfg == nil {
		cfg = &ManagerConfig{}
	}
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = NewCatalog()
	}
	slow := cfg.SlowCheckThreshold
	if slow <= 0 {
		slow = defaultSlowCheckThreshold
	}
	return &Manager{
		resolver:          NewResolver(catalog),
		catalog:           catalog,
		events:            sink,
		slow:              slow,
		roles:             make(map[assignmentKey]models.Role),
		userOverrides:     make(map[string]map[string]struct{}),
		resourceOverrides: make(map[resourceKey]map[string]struct{}),
	}
}

// Resolver exposes the role-level resolver for callers that only need
// catalog questions (the role listing endpoint).
func (m *Manager) Resolver() *Resolver {
	return m.resolver
}

// Catalog returns the active catalog.
func (m *Manager) Catalog() *Catalog {
	return m.catalog
}

// CheckPermission decides whether the user may perform the operation the
// permission names, within the given scope.
//
// Resolution order, first match wins:
//
//  1. No role assignment (tenant-scoped, falling back to global) => deny.
//  2. Resource-level override for (resource, user): explicit deny, then
//     explicit allow.
//  3. User-level override: explicit deny, then explicit allow.
//  4. Role catalog with inheritance and wildcards.
//
// The check never panics; any internal failure is logged and denied.
func (m *Manager) CheckPermission(userID string, perm models.Permission, scope Scope) (granted bool) {
	start := time.Now()
	layer := "error"
	defer func() {
		if rec := recover(); rec != nil {
			logging.Error().
				Interface("panic", rec).
				Str("user_id", userID).
				Str("permission", string(perm)).
				Msg("Permission check panicked, denying")
			granted = false
			layer = "error"
		}
		elapsed := time.Since(start)
		checkDuration.Observe(elapsed.Seconds())
		recordDecision(granted, layer)
		if elapsed > m.slow {
			slowChecks.Inc()
			logging.Warn().
				Str("user_id", userID).
				Str("permission", string(perm)).
				Str("tenant_id", scope.TenantID).
				Dur("elapsed", elapsed).
				Dur("threshold", m.slow).
				Msg("Slow permission check")
		}
	}()

	m.mu.Lock()
	defer m.mu.Unlock()

	role, ok := m.lookupRole(userID, scope.TenantID)
	if !ok {
		layer = "no_role"
		return false
	}

	if scope.ResourceType != "" && scope.ResourceID != "" {
		key := resourceKey{scope.ResourceType, scope.ResourceID, userID}
		if decision, decided := overrideDecision(m.resourceOverrides[key], perm); decided {
			layer = "resource_override"
			return decision
		}
	}

	if decision, decided := overrideDecision(m.userOverrides[userID], perm); decided {
		layer = "user_override"
		return decision
	}

	layer = "role"
	return m.resolver.HasPermission(role, perm)
}

// lookupRole finds the user's role in the tenant, falling back to the
// global assignment. Caller holds the lock.
func (m *Manager) lookupRole(userID, tenantID string) (models.Role, bool) {
	if tenantID != "" {
		if role, ok := m.roles[assignmentKey{tenantID, userID}]; ok {
			return role, true
		}
	}
	role, ok := m.roles[assignmentKey{"", userID}]
	return role, ok
}

// overrideDecision inspects an override token set for the permission.
// Explicit deny wins over allow. Allow matches exactly, via the global
// wildcard, or via the resource wildcard; deny matches exactly only, so a
// targeted denial never silently widens.
func overrideDecision(tokens map[string]struct{}, perm models.Permission) (granted, decided bool) {
	if len(tokens) == 0 {
		return false, false
	}
	if _, ok := tokens[perm.Deny()]; ok {
		return false, true
	}
	if _, ok := tokens[string(perm)]; ok {
		return true, true
	}
	if _, ok := tokens[string(models.PermissionWildcard)]; ok {
		return true, true
	}
	if wc := perm.ResourceWildcard(); wc != models.PermissionWildcard {
		if _, ok := tokens[string(wc)]; ok {
			return true, true
		}
	}
	return false, false
}

// EffectiveRole returns the user's role in the tenant (with global
// fallback) and whether any assignment exists.
func (m *Manager) EffectiveRole(userID, tenantID string) (models.Role, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookupRole(userID, tenantID)
}

// EnsureRole records a role assignment only when the user has none for
// the tenant (or globally). Used by authentication to seed the manager
// from a verified token claim; it never overwrites an admin-made
// assignment and produces no audit entry.
func (m *Manager) EnsureRole(userID, tenantID string, role models.Role) {
	if !models.IsValidRole(role.String()) {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lookupRole(userID, tenantID); ok {
		return
	}
	m.roles[assignmentKey{tenantID, userID}] = role
}

// SetUserRole assigns a role to a user, scoped to req.TenantID (empty for
// global). Invalid role names are rejected without touching state. Returns
// whether the assignment was applied.
func (m *Manager) SetUserRole(userID, role string, req ChangeRequest) bool {
	parsed, ok := models.ParseRole(role)
	if !ok {
		logging.Warn().
			Str("user_id", userID).
			Str("role", role).
			Str("actor_id", req.ActorID).
			Msg("Rejected role assignment: unknown role")
		return false
	}

	m.mu.Lock()
	key := assignmentKey{req.TenantID, userID}
	old := m.roles[key]
	m.roles[key] = parsed
	if req.ActorID != "" {
		entry := models.NewPermissionHistoryEntry(req.ActorID, userID, models.HistoryActionRoleChanged)
		entry.TenantID = req.TenantID
		entry.OldRole = old.String()
		entry.NewRole = parsed.String()
		entry.Reason = req.Reason
		m.history = append(m.history, entry)
	}
	m.mu.Unlock()

	mutations.WithLabelValues("role_changed").Inc()
	logging.Info().
		Str("user_id", userID).
		Str("tenant_id", req.TenantID).
		Str("old_role", old.String()).
		Str("new_role", parsed.String()).
		Str("actor_id", req.ActorID).
		Msg("Role assigned")

	if req.ActorID != "" {
		m.emit(models.NewSecurityEvent(models.EventPermissionGranted, models.AlertMedium).
			WithSubject(userID, req.TenantID).
			WithDetail("action", models.HistoryActionRoleChanged).
			WithDetail("old_role", old.String()).
			WithDetail("new_role", parsed.String()).
			WithDetail("actor_id", req.ActorID))
	}
	return true
}

// GrantPermission records an explicit allow override for the user, at the
// resource level when req names a resource and at the user level
// otherwise. A standing deny token for the same permission is cancelled
// instead, restoring pure role-based resolution: a permission is never
// simultaneously allowed and denied, and grant undoes revoke exactly.
// Returns whether the grant was applied.
func (m *Manager) GrantPermission(userID string, perm models.Permission, req ChangeRequest) bool {
	if !perm.Valid() {
		logging.Warn().
			Str("user_id", userID).
			Str("permission", string(perm)).
			Msg("Rejected grant: malformed permission")
		return false
	}

	m.mu.Lock()
	tokens := m.overrideSet(userID, req)
	if _, denied := tokens[perm.Deny()]; denied {
		delete(tokens, perm.Deny())
	} else {
		tokens[string(perm)] = struct{}{}
	}
	m.appendHistory(userID, models.HistoryActionGranted, string(perm), req)
	m.mu.Unlock()

	mutations.WithLabelValues("granted").Inc()
	m.logOverrideChange("Permission granted", userID, perm, req)
	if req.ActorID != "" {
		m.emit(m.overrideEvent(models.EventPermissionGranted, userID, perm, req))
	}
	return true
}

// RevokePermission is the mirror of GrantPermission: a standing allow
// token is cancelled, restoring the role-based default; otherwise an
// explicit deny token is recorded, which then outranks a role grant.
// Returns whether the revocation was applied.
func (m *Manager) RevokePermission(userID string, perm models.Permission, req ChangeRequest) bool {
	if !perm.Valid() {
		logging.Warn().
			Str("user_id", userID).
			Str("permission", string(perm)).
			Msg("Rejected revoke: malformed permission")
		return false
	}

	m.mu.Lock()
	tokens := m.overrideSet(userID, req)
	if _, allowed := tokens[string(perm)]; allowed {
		delete(tokens, string(perm))
	} else {
		tokens[perm.Deny()] = struct{}{}
	}
	m.appendHistory(userID, models.HistoryActionRevoked, string(perm), req)
	m.mu.Unlock()

	mutations.WithLabelValues("revoked").Inc()
	m.logOverrideChange("Permission revoked", userID, perm, req)
	if req.ActorID != "" {
		m.emit(m.overrideEvent(models.EventPermissionRevoked, userID, perm, req))
	}
	return true
}

// ResetPermissions clears the user's overrides, restoring pure role-based
// resolution. When req names a resource only that resource's overrides are
// cleared; otherwise the user-level set is cleared.
func (m *Manager) ResetPermissions(userID string, req ChangeRequest) {
	m.mu.Lock()
	if req.ResourceType != "" && req.ResourceID != "" {
		delete(m.resourceOverrides, resourceKey{req.ResourceType, req.ResourceID, userID})
	} else {
		delete(m.userOverrides, userID)
	}
	m.appendHistory(userID, models.HistoryActionReset, "", req)
	m.mu.Unlock()

	mutations.WithLabelValues("reset").Inc()
	logging.Info().
		Str("user_id", userID).
		Str("resource_type", req.ResourceType).
		Str("resource_id", req.ResourceID).
		Str("actor_id", req.ActorID).
		Msg("Permission overrides reset")

	if req.ActorID != "" {
		m.emit(models.NewSecurityEvent(models.EventPermissionRevoked, models.AlertMedium).
			WithSubject(userID, req.TenantID).
			WithResource(req.ResourceType, req.ResourceID).
			WithDetail("action", models.HistoryActionReset).
			WithDetail("actor_id", req.ActorID))
	}
}

// overrideSet returns the mutable token set the request targets, creating
// it on first use. Caller holds the lock.
func (m *Manager) overrideSet(userID string, req ChangeRequest) map[string]struct{} {
	if req.ResourceType != "" && req.ResourceID != "" {
		key := resourceKey{req.ResourceType, req.ResourceID, userID}
		tokens, ok := m.resourceOverrides[key]
		if !ok {
			tokens = make(map[string]struct{})
			m.resourceOverrides[key] = tokens
		}
		return tokens
	}
	tokens, ok := m.userOverrides[userID]
	if !ok {
		tokens = make(map[string]struct{})
		m.userOverrides[userID] = tokens
	}
	return tokens
}

// appendHistory records a change when an actor is identified. Caller holds
// the lock.
func (m *Manager) appendHistory(userID, action, perm string, req ChangeRequest) {
	if req.ActorID == "" {
		return
	}
	entry := models.NewPermissionHistoryEntry(req.ActorID, userID, action)
	entry.TenantID = req.TenantID
	entry.ResourceType = req.ResourceType
	entry.ResourceID = req.ResourceID
	entry.Permission = perm
	entry.Reason = req.Reason
	m.history = append(m.history, entry)
}

func (m *Manager) logOverrideChange(msg, userID string, perm models.Permission, req ChangeRequest) {
	logging.Info().
		Str("user_id", userID).
		Str("permission", string(perm)).
		Str("tenant_id", req.TenantID).
		Str("resource_type", req.ResourceType).
		Str("resource_id", req.ResourceID).
		Str("actor_id", req.ActorID).
		Msg(msg)
}

func (m *Manager) overrideEvent(eventType models.EventType, userID string, perm models.Permission, req ChangeRequest) *models.SecurityEvent {
	return models.NewSecurityEvent(eventType, models.AlertMedium).
		WithSubject(userID, req.TenantID).
		WithResource(req.ResourceType, req.ResourceID).
		WithDetail("permission", string(perm)).
		WithDetail("actor_id", req.ActorID)
}

// emit forwards an event to the sink when one is configured. Emission
// failures must never propagate into the authorization path.
func (m *Manager) emit(event *models.SecurityEvent) {
	if m.events == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			logging.Error().
				Interface("panic", rec).
				Str("event_type", string(event.EventType)).
				Msg("Security event emission panicked")
		}
	}()
	m.events.LogEvent(event)
}

// UserOverrides returns the user's override tokens, sorted. The resource
// parameters narrow the answer to one resource's set when both are given.
func (m *Manager) UserOverrides(userID, resourceType, resourceID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var tokens map[string]struct{}
	if resourceType != "" && resourceID != "" {
		tokens = m.resourceOverrides[resourceKey{resourceType, resourceID, userID}]
	} else {
		tokens = m.userOverrides[userID]
	}
	out := make([]string, 0, len(tokens))
	for t := range tokens {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// History returns the user's change history, most recent first, capped at
// limit (0 means all).
func (m *Manager) History(userID string, limit int) []*models.PermissionHistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	var entries []*models.PermissionHistoryEntry
	for i := len(m.history) - 1; i >= 0; i-- {
		if m.history[i].UserID != userID {
			continue
		}
		entries = append(entries, m.history[i])
		if limit > 0 && len(entries) >= limit {
			break
		}
	}
	return entries
}

// HistoryByOperation returns every entry sharing an operation ID, oldest
// first. Used to reconstruct a multi-step change from one admin action.
func (m *Manager) HistoryByOperation(operationID uuid.UUID) []*models.PermissionHistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := operationID.String()
	var entries []*models.PermissionHistoryEntry
	for _, entry := range m.history {
		if entry.OperationID == id {
			entries = append(entries, entry)
		}
	}
	return entries
}
