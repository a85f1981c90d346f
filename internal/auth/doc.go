// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

// Package auth provides authentication for the Pelagos API: JWT bearer
// tokens signed with HMAC-SHA256, HTTP Basic Auth for small single-tenant
// deployments, refresh token storage, and the middleware that enforces
// them. Authorization decisions (who may call what) live in the authz
// package; this package only establishes identity.
package auth
