// Interlock - Multi-Tenant Integration Platform
// Copyright 2026 Interlock Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/interlockhq/interlock

// Package api exposes the RBAC administration and security dashboard
// endpoints over HTTP, and assembles the router with its middleware
// chain. All mutating endpoints are admin-only and audited through the
// RBAC manager's history.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/interlockhq/interlock/internal/auth"
	"github.com/interlockhq/interlock/internal/dashboard"
	"github.com/interlockhq/interlock/internal/logging"
	"github.com/interlockhq/interlock/internal/models"
	"github.com/interlockhq/interlock/internal/monitor"
	"github.com/interlockhq/interlock/internal/rbac"
)

// Handlers carries the endpoint implementations and their dependencies.
type Handlers struct {
	manager   *rbac.Manager
	monitor   *monitor.Monitor
	dashboard *dashboard.Dashboard
	validate  *validator.Validate
}

// NewHandlers creates the handler set.
func NewHandlers(manager *rbac.Manager, mon *monitor.Monitor, dash *dashboard.Dashboard) *Handlers {
	return &Handlers{
		manager:   manager,
		monitor:   mon,
		dashboard: dash,
		validate:  validator.New(),
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error().Err(err).Msg("Failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Code: code, Message: message})
}

// decodeJSON parses and validates a request body. A false return means
// the error response has been written.
func (h *Handlers) decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "request body is not valid JSON")
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return false
	}
	return true
}

// queryInt parses an integer query parameter, falling back to def.
func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}

// roleInfo is one entry in the role listing.
type roleInfo struct {
	Role        string   `json:"role"`
	Inherits    []string `json:"inherits"`
	Permissions []string `json:"permissions"`
}

// ListRoles returns the role hierarchy and each role's direct catalog
// permissions.
func (h *Handlers) ListRoles(w http.ResponseWriter, r *http.Request) {
	catalog := h.manager.Catalog()
	roles := make([]roleInfo, 0, len(models.ValidRoles))
	for _, role := range models.ValidRoles {
		inherits := make([]string, 0, len(role.Inherits()))
		for _, inherited := range role.Inherits() {
			inherits = append(inherits, inherited.String())
		}
		perms := make([]string, 0)
		for _, p := range catalog.DirectPermissions(role) {
			perms = append(perms, string(p))
		}
		roles = append(roles, roleInfo{
			Role:        role.String(),
			Inherits:    inherits,
			Permissions: perms,
		})
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"roles": roles})
}

type assignRoleRequest struct {
	Role     string `json:"role" validate:"required"`
	TenantID string `json:"tenant_id,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// AssignRole sets a user's role, scoped to a tenant when one is given.
func (h *Handlers) AssignRole(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	actor := auth.SubjectFromContext(r.Context())

	var req assignRoleRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	ok := h.manager.SetUserRole(userID, req.Role, rbac.ChangeRequest{
		TenantID: req.TenantID,
		ActorID:  actor.ID,
		Reason:   req.Reason,
	})
	if !ok {
		respondError(w, http.StatusBadRequest, "INVALID_ROLE",
			"unknown role "+strconv.Quote(req.Role))
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"user_id": userID,
		"role":    req.Role,
	})
}

type permissionChangeRequest struct {
	Permission   string `json:"permission" validate:"required"`
	TenantID     string `json:"tenant_id,omitempty"`
	ResourceType string `json:"resource_type,omitempty"`
	ResourceID   string `json:"resource_id,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

func (req *permissionChangeRequest) change(actorID string) rbac.ChangeRequest {
	return rbac.ChangeRequest{
		TenantID:     req.TenantID,
		ResourceType: req.ResourceType,
		ResourceID:   req.ResourceID,
		ActorID:      actorID,
		Reason:       req.Reason,
	}
}

// GrantPermission adds an allow override for the user, resource-scoped
// when the body names a resource.
func (h *Handlers) GrantPermission(w http.ResponseWriter, r *http.Request) {
	h.applyPermissionChange(w, r, h.manager.GrantPermission)
}

// RevokePermission adds a deny override (or cancels a standing grant).
func (h *Handlers) RevokePermission(w http.ResponseWriter, r *http.Request) {
	h.applyPermissionChange(w, r, h.manager.RevokePermission)
}

func (h *Handlers) applyPermissionChange(
	w http.ResponseWriter, r *http.Request,
	apply func(string, models.Permission, rbac.ChangeRequest) bool,
) {
	userID := chi.URLParam(r, "userID")
	actor := auth.SubjectFromContext(r.Context())

	var req permissionChangeRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if !apply(userID, models.Permission(req.Permission), req.change(actor.ID)) {
		respondError(w, http.StatusBadRequest, "INVALID_PERMISSION",
			"malformed permission "+strconv.Quote(req.Permission))
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":   userID,
		"overrides": h.manager.UserOverrides(userID, req.ResourceType, req.ResourceID),
	})
}

type resetPermissionsRequest struct {
	TenantID     string `json:"tenant_id,omitempty"`
	ResourceType string `json:"resource_type,omitempty"`
	ResourceID   string `json:"resource_id,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

// ResetPermissions clears a user's overrides.
func (h *Handlers) ResetPermissions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	actor := auth.SubjectFromContext(r.Context())

	var req resetPermissionsRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	h.manager.ResetPermissions(userID, rbac.ChangeRequest{
		TenantID:     req.TenantID,
		ResourceType: req.ResourceType,
		ResourceID:   req.ResourceID,
		ActorID:      actor.ID,
		Reason:       req.Reason,
	})
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":   userID,
		"overrides": h.manager.UserOverrides(userID, req.ResourceType, req.ResourceID),
	})
}

// GetUserPermissions returns a user's effective role and override tokens.
func (h *Handlers) GetUserPermissions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	q := r.URL.Query()

	role, assigned := h.manager.EffectiveRole(userID, q.Get("tenant_id"))
	resp := map[string]interface{}{
		"user_id":   userID,
		"overrides": h.manager.UserOverrides(userID, q.Get("resource_type"), q.Get("resource_id")),
	}
	if assigned {
		resp["role"] = role.String()
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetHistory returns a user's permission change history, newest first.
func (h *Handlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	entries := h.manager.History(userID, queryInt(r, "limit", 50))
	if entries == nil {
		entries = []*models.PermissionHistoryEntry{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"user_id": userID,
		"history": entries,
	})
}

type checkPermissionRequest struct {
	Permission   string `json:"permission" validate:"required"`
	TenantID     string `json:"tenant_id,omitempty"`
	ResourceType string `json:"resource_type,omitempty"`
	ResourceID   string `json:"resource_id,omitempty"`
}

// CheckPermission answers whether the calling subject holds a permission.
// The tenant defaults to the subject's own.
func (h *Handlers) CheckPermission(w http.ResponseWriter, r *http.Request) {
	sub := auth.SubjectFromContext(r.Context())

	var req checkPermissionRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	tenantID := req.TenantID
	if tenantID == "" {
		tenantID = sub.TenantID
	}
	allowed := h.manager.CheckPermission(sub.ID, models.Permission(req.Permission), rbac.Scope{
		TenantID:     tenantID,
		ResourceType: req.ResourceType,
		ResourceID:   req.ResourceID,
	})
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"permission": req.Permission,
		"allowed":    allowed,
	})
}

// SecuritySummary aggregates event counts over the trailing period
// (hours query parameter, default 24).
func (h *Handlers) SecuritySummary(w http.ResponseWriter, r *http.Request) {
	period := time.Duration(queryInt(r, "hours", 24)) * time.Hour
	respondJSON(w, http.StatusOK, h.dashboard.Summary(period))
}

// SecurityEvents returns recent events at or above min_level.
func (h *Handlers) SecurityEvents(w http.ResponseWriter, r *http.Request) {
	period := time.Duration(queryInt(r, "hours", 24)) * time.Hour
	minLevel := models.ParseAlertLevel(r.URL.Query().Get("min_level"))
	events := h.dashboard.RecentEvents(period, minLevel, queryInt(r, "limit", 100))
	if events == nil {
		events = []*models.SecurityEvent{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

// SuspiciousIPs reports flagged source addresses over the period.
func (h *Handlers) SuspiciousIPs(w http.ResponseWriter, r *http.Request) {
	period := time.Duration(queryInt(r, "hours", 24)) * time.Hour
	reports := h.dashboard.SuspiciousIPs(period)
	if reports == nil {
		reports = []dashboard.IPReport{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"suspicious_ips": reports})
}

// BlockedAccounts lists users the monitor currently blocks.
func (h *Handlers) BlockedAccounts(w http.ResponseWriter, r *http.Request) {
	accounts := h.dashboard.BlockedAccounts()
	if accounts == nil {
		accounts = []dashboard.BlockedAccount{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"blocked_accounts": accounts})
}

type addMaliciousIPRequest struct {
	IP string `json:"ip" validate:"required,ip"`
}

// AddMaliciousIP adds an address to the known-malicious set.
func (h *Handlers) AddMaliciousIP(w http.ResponseWriter, r *http.Request) {
	var req addMaliciousIPRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if !h.monitor.AddMaliciousIP(req.IP) {
		respondError(w, http.StatusBadRequest, "INVALID_IP",
			"not a valid IP address")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"ip":            req.IP,
		"malicious_ips": h.monitor.MaliciousIPs(),
	})
}

// UserActivity returns one user's suspicious-activity list.
func (h *Handlers) UserActivity(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	events := h.dashboard.UserActivity(userID, queryInt(r, "limit", 100))
	if events == nil {
		events = []*models.SecurityEvent{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":    userID,
		"activities": events,
	})
}

// Health reports liveness.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
