// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

// Package main provides the Pelagos HTTP server
//
// Pelagos API is the backend for a dive-trip marketplace: catalog
// management for dive centers, vessels, instructors, and trips; seat
// booking with holds; payment webhooks; and mobile delta sync.
//
// @title Pelagos API
// @version 1.0
// @description Dive trip marketplace and booking platform
// @description
// @description ## Features
// @description
// @description - **Catalog**: dive centers, vessels, instructors, and scheduled trips
// @description - **Bookings**: seat holds with expiry, capacity enforcement, certification gating
// @description - **Payments**: provider webhooks with HMAC signatures and idempotent application
// @description - **Delta Sync**: cursor-based change feed for mobile offline caches
// @description - **Real-time Updates**: WebSocket notifications for trip and booking changes
// @description
// @description ## Authentication
// @description
// @description Most endpoints require a JWT bearer token. Use `/api/v1/auth/login`
// @description to obtain one and send it as `Authorization: Bearer <token>`.
// @description Refresh tokens are rotated via `/api/v1/auth/refresh`.
// @description
// @description ## Rate Limiting
// @description
// @description Default rate limit: 100 requests per minute per IP address.
// @description Login, registration, and webhook routes carry stricter per-route limits.
// @description
// @description ## Error Responses
// @description
// @description All error responses follow this format:
// @description ```json
// @description {
// @description   "status": "error",
// @description   "data": null,
// @description   "error": {
// @description     "code": "ERROR_CODE",
// @description     "message": "Human-readable error message",
// @description     "details": {}
// @description   },
// @description   "metadata": {
// @description     "timestamp": "2026-08-30T12:34:56Z"
// @description   }
// @description }
// @description ```
//
// @contact.name GitHub Repository
// @contact.url https://github.com/pelagos-app/pelagos/issues
//
// @license.name AGPL-3.0-or-later
// @license.url https://www.gnu.org/licenses/agpl-3.0.html
//
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT bearer token. Obtain via /api/v1/auth/login and send as "Bearer <token>".
//
// @tag.name Auth
// @tag.description Login, registration, token refresh, and session management
//
// @tag.name Catalog
// @tag.description Dive centers, vessels, instructors, and trip management
//
// @tag.name Bookings
// @tag.description Seat booking, holds, confirmation, and cancellation
//
// @tag.name Payments
// @tag.description Payment webhook intake and payment event history
//
// @tag.name Sync
// @tag.description Delta-sync change feed and device registration for mobile clients
//
// @tag.name Realtime
// @tag.description WebSocket connections for live trip and booking updates
package main
