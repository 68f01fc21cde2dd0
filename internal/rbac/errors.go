// Interlock - Multi-Tenant Integration Platform
// Copyright 2026 Interlock Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/interlockhq/interlock

package rbac

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/interlockhq/interlock/internal/logging"
)

// Machine-readable denial codes returned in authorization failure bodies.
// Clients branch on the code, not the message.
const (
	CodeNotAuthenticated       = "NOT_AUTHENTICATED"
	CodeInsufficientRole       = "INSUFFICIENT_ROLE"
	CodeInsufficientPermission = "INSUFFICIENT_PERMISSION"
	CodeNotResourceOwner       = "NOT_RESOURCE_OWNER"
	CodeTenantAccessDenied     = "TENANT_ACCESS_DENIED"
	CodeAccountBlocked         = "ACCOUNT_BLOCKED"
	CodeAuthzMisconfigured     = "AUTHZ_MISCONFIGURED"
)

// Denial is the JSON body written for every 401/403 produced by the
// authorization layer.
type Denial struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteDenial writes a JSON denial response with the given status code.
func WriteDenial(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(Denial{Code: code, Message: message}); err != nil {
		logging.Error().Err(err).Str("code", code).Msg("Failed to write denial response")
	}
}
