// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package authz

import (
	"net/http"

	"github.com/pelagos-app/pelagos/internal/auth"
	"github.com/pelagos-app/pelagos/internal/logging"
)

// Middleware provides authorization middleware backed by the enforcer.
type Middleware struct {
	enforcer *Enforcer
	enabled  bool
}

// NewMiddleware creates authorization middleware. When enabled is false
// (auth mode none) every request passes.
func NewMiddleware(enforcer *Enforcer, enabled bool) *Middleware {
	return &Middleware{
		enforcer: enforcer,
		enabled:  enabled,
	}
}

// AuthorizeRequest enforces the policy for the request path, deriving
// the action from the HTTP method. Must run after authentication so
// claims are in the context.
func (m *Middleware) AuthorizeRequest(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !m.enabled {
			next(w, r)
			return
		}

		claims, ok := auth.ClaimsFromContext(r.Context())
		if !ok {
			http.Error(w, "Forbidden: no authentication context", http.StatusForbidden)
			return
		}

		allowed, err := m.enforcer.EnforceRole(claims.Role, r.URL.Path, methodToAction(r.Method))
		if err != nil {
			logging.Error().Err(err).Msg("Authorization error")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		if !allowed {
			http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
			return
		}

		next(w, r)
	}
}

// methodToAction maps HTTP methods to policy actions.
func methodToAction(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return "read"
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return "write"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}
