// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package api

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/pelagos-app/pelagos/internal/auth"
	"github.com/pelagos-app/pelagos/internal/logging"
	ws "github.com/pelagos-app/pelagos/internal/websocket"
)

// WebSocket upgrades the connection for live booking, payment, and
// trip updates. Authentication runs in the middleware chain before the
// upgrade; origins are checked against the configured CORS origins.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		respondError(w, http.StatusServiceUnavailable, codeDatabase, "websocket hub not running", nil)
		return
	}

	username := ""
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		username = claims.Username
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkWSOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		logging.Ctx(r.Context()).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := ws.NewClient(h.wsHub, conn, username)
	client.Start()

	logging.Ctx(r.Context()).Info().
		Str("username", username).
		Str("remote_addr", r.RemoteAddr).
		Msg("websocket client connected")
}

// checkWSOrigin allows same-origin requests and configured CORS
// origins. Requests without an Origin header (native mobile clients)
// are allowed; authentication already ran.
func (h *Handler) checkWSOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.config.Security.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
