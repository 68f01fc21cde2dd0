// Interlock - Multi-Tenant Integration Platform
// Copyright 2026 Interlock Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/interlockhq/interlock

package rbac

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"reflect"

	"github.com/go-chi/chi/v5"

	"github.com/interlockhq/interlock/internal/auth"
	"github.com/interlockhq/interlock/internal/logging"
	"github.com/interlockhq/interlock/internal/models"
)

// ResourceLookup loads a resource by ID for ownership checks. Returning an
// error or nil denies the request.
type ResourceLookup func(ctx context.Context, resourceID string) (interface{}, error)

// Middleware provides chi-compatible authorization guards backed by a
// Manager. Every guard expects auth middleware to have run first; a
// request without a subject is rejected 401 before any policy is
// consulted.
type Middleware struct {
	manager *Manager
}

// NewMiddleware creates authorization middleware over the manager.
func NewMiddleware(manager *Manager) *Middleware {
	return &Middleware{manager: manager}
}

// RequireRole rejects requests whose subject does not hold the required
// role or a role above it in the hierarchy.
func (mw *Middleware) RequireRole(required models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sub, ok := mw.subject(w, r)
			if !ok {
				return
			}
			role, assigned := mw.manager.EffectiveRole(sub.ID, sub.TenantID)
			if !assigned || !role.Includes(required) {
				mw.deny(w, r, sub, CodeInsufficientRole,
					fmt.Sprintf("role %q required", required))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermission rejects requests whose subject lacks the permission
// in their tenant.
func (mw *Middleware) RequirePermission(perm models.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sub, ok := mw.subject(w, r)
			if !ok {
				return
			}
			if !mw.manager.CheckPermission(sub.ID, perm, Scope{TenantID: sub.TenantID}) {
				mw.deny(w, r, sub, CodeInsufficientPermission,
					fmt.Sprintf("permission %q required", perm))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAnyPermission admits the request when the subject holds at least
// one of the permissions.
func (mw *Middleware) RequireAnyPermission(perms ...models.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sub, ok := mw.subject(w, r)
			if !ok {
				return
			}
			for _, p := range perms {
				if mw.manager.CheckPermission(sub.ID, p, Scope{TenantID: sub.TenantID}) {
					next.ServeHTTP(w, r)
					return
				}
			}
			mw.deny(w, r, sub, CodeInsufficientPermission,
				fmt.Sprintf("one of %v required", perms))
		})
	}
}

// RequireAllPermissions admits the request only when the subject holds
// every permission. The denial names the missing ones.
func (mw *Middleware) RequireAllPermissions(perms ...models.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sub, ok := mw.subject(w, r)
			if !ok {
				return
			}
			var missing []models.Permission
			for _, p := range perms {
				if !mw.manager.CheckPermission(sub.ID, p, Scope{TenantID: sub.TenantID}) {
					missing = append(missing, p)
				}
			}
			if len(missing) > 0 {
				mw.deny(w, r, sub, CodeInsufficientPermission,
					fmt.Sprintf("missing permissions %v", missing))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireResourcePermission checks the permission against the resource
// instance named by the URL parameter, so resource-level overrides apply.
// The resource type is taken from the permission's resource component. A
// route registered without the parameter is an integration bug and yields
// 500, not 403.
func (mw *Middleware) RequireResourcePermission(perm models.Permission, urlParam string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sub, ok := mw.subject(w, r)
			if !ok {
				return
			}
			resourceID := chi.URLParam(r, urlParam)
			if resourceID == "" {
				logging.Error().
					Str("url_param", urlParam).
					Str("path", r.URL.Path).
					Msg("Resource guard registered on route without its URL parameter")
				WriteDenial(w, http.StatusInternalServerError, CodeAuthzMisconfigured,
					"authorization misconfigured")
				return
			}
			scope := Scope{
				TenantID:     sub.TenantID,
				ResourceType: perm.Resource(),
				ResourceID:   resourceID,
			}
			if !mw.manager.CheckPermission(sub.ID, perm, scope) {
				mw.deny(w, r, sub, CodeInsufficientPermission,
					fmt.Sprintf("permission %q required for this %s", perm, perm.Resource()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireTenantAccess rejects requests targeting a tenant other than the
// subject's own. Admins cross tenant boundaries freely.
func (mw *Middleware) RequireTenantAccess(urlParam string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sub, ok := mw.subject(w, r)
			if !ok {
				return
			}
			tenantID := chi.URLParam(r, urlParam)
			if tenantID == "" {
				logging.Error().
					Str("url_param", urlParam).
					Str("path", r.URL.Path).
					Msg("Tenant guard registered on route without its URL parameter")
				WriteDenial(w, http.StatusInternalServerError, CodeAuthzMisconfigured,
					"authorization misconfigured")
				return
			}
			if tenantID != sub.TenantID && !mw.isAdmin(sub) {
				mw.denyCrossTenant(w, r, sub, tenantID)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireOwnership loads the resource named by the URL parameter and
// admits the request only when the subject owns it. Admins bypass the
// check. Ownership is read from conventional fields: OwnerID, UserID,
// CreatedBy, CreatorID, AuthorID, or a nested Owner with an ID.
func (mw *Middleware) RequireOwnership(lookup ResourceLookup, urlParam string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sub, ok := mw.subject(w, r)
			if !ok {
				return
			}
			resourceID := chi.URLParam(r, urlParam)
			if resourceID == "" {
				logging.Error().
					Str("url_param", urlParam).
					Str("path", r.URL.Path).
					Msg("Ownership guard registered on route without its URL parameter")
				WriteDenial(w, http.StatusInternalServerError, CodeAuthzMisconfigured,
					"authorization misconfigured")
				return
			}
			if mw.isAdmin(sub) {
				next.ServeHTTP(w, r)
				return
			}
			resource, err := lookup(r.Context(), resourceID)
			if err != nil || resource == nil {
				logging.Warn().
					Err(err).
					Str("resource_id", resourceID).
					Str("user_id", sub.ID).
					Msg("Ownership lookup failed, denying")
				mw.deny(w, r, sub, CodeNotResourceOwner, "resource ownership could not be verified")
				return
			}
			owner, found := ownerOf(resource)
			if !found || owner != sub.ID {
				mw.deny(w, r, sub, CodeNotResourceOwner, "you do not own this resource")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (mw *Middleware) isAdmin(sub *auth.Subject) bool {
	role, ok := mw.manager.EffectiveRole(sub.ID, sub.TenantID)
	return ok && role == models.RoleAdmin
}

// subject extracts the authenticated subject or writes a 401.
func (mw *Middleware) subject(w http.ResponseWriter, r *http.Request) (*auth.Subject, bool) {
	sub := auth.SubjectFromContext(r.Context())
	if sub == nil {
		middlewareDenials.WithLabelValues(CodeNotAuthenticated).Inc()
		WriteDenial(w, http.StatusUnauthorized, CodeNotAuthenticated, "authentication required")
		return nil, false
	}
	return sub, true
}

// deny writes a 403 and records the denial as an access_denied security
// event.
func (mw *Middleware) deny(w http.ResponseWriter, r *http.Request, sub *auth.Subject, code, message string) {
	middlewareDenials.WithLabelValues(code).Inc()
	logging.Ctx(r.Context()).Debug().
		Str("user_id", sub.ID).
		Str("code", code).
		Str("path", r.URL.Path).
		Msg("Request denied by authorization middleware")
	mw.manager.emit(models.NewSecurityEvent(models.EventAccessDenied, models.AlertLow).
		WithSubject(sub.ID, sub.TenantID).
		WithNetwork(clientIP(r), r.UserAgent()).
		WithDetail("code", code).
		WithDetail("path", r.URL.Path).
		WithDetail("method", r.Method))
	WriteDenial(w, http.StatusForbidden, code, message)
}

// denyCrossTenant is deny with the cross_tenant_access event type, which
// carries a higher alert level than an ordinary denial.
func (mw *Middleware) denyCrossTenant(w http.ResponseWriter, r *http.Request, sub *auth.Subject, targetTenant string) {
	middlewareDenials.WithLabelValues(CodeTenantAccessDenied).Inc()
	logging.Ctx(r.Context()).Warn().
		Str("user_id", sub.ID).
		Str("tenant_id", sub.TenantID).
		Str("target_tenant_id", targetTenant).
		Str("path", r.URL.Path).
		Msg("Cross-tenant access attempt")
	mw.manager.emit(models.NewSecurityEvent(models.EventCrossTenantAccess, models.AlertMedium).
		WithSubject(sub.ID, sub.TenantID).
		WithNetwork(clientIP(r), r.UserAgent()).
		WithDetail("target_tenant_id", targetTenant).
		WithDetail("path", r.URL.Path))
	WriteDenial(w, http.StatusForbidden, CodeTenantAccessDenied,
		"access to this tenant is not permitted")
}

// ownerOf extracts an owner identifier from a loaded resource. It accepts
// the Owned interface, generic maps, and structs using conventional field
// names.
func ownerOf(resource interface{}) (string, bool) {
	if owned, ok := resource.(Owned); ok {
		return owned.OwnerID(), true
	}
	if m, ok := resource.(map[string]interface{}); ok {
		return ownerFromMap(m)
	}
	return ownerFromStruct(resource)
}

// Owned is implemented by resources that expose their owner directly,
// bypassing field-name conventions.
type Owned interface {
	OwnerID() string
}

var ownerMapKeys = []string{"owner_id", "user_id", "created_by", "creator_id", "author_id"}

func ownerFromMap(m map[string]interface{}) (string, bool) {
	for _, key := range ownerMapKeys {
		if v, ok := m[key].(string); ok && v != "" {
			return v, true
		}
	}
	if owner, ok := m["owner"].(map[string]interface{}); ok {
		if id, ok := owner["id"].(string); ok && id != "" {
			return id, true
		}
	}
	return "", false
}

var ownerFieldNames = []string{"OwnerID", "UserID", "CreatedBy", "CreatorID", "AuthorID"}

func ownerFromStruct(resource interface{}) (string, bool) {
	v := reflect.ValueOf(resource)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return "", false
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return "", false
	}
	for _, name := range ownerFieldNames {
		f := v.FieldByName(name)
		if f.IsValid() && f.Kind() == reflect.String && f.String() != "" {
			return f.String(), true
		}
	}
	if owner := v.FieldByName("Owner"); owner.IsValid() {
		if id, ok := ownerFromStruct(owner.Interface()); ok {
			return id, true
		}
	}
	return "", false
}

// clientIP returns the remote host without the port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
