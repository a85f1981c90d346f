// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/pelagos-app/pelagos/internal/auth"
	"github.com/pelagos-app/pelagos/internal/booking"
	"github.com/pelagos-app/pelagos/internal/database"
	"github.com/pelagos-app/pelagos/internal/logging"
	"github.com/pelagos-app/pelagos/internal/models"
)

// CreateBooking places a seat hold for the authenticated diver.
//
//	@Summary		Create booking
//	@Tags			bookings
//	@Accept			json
//	@Produce		json
//	@Param			request	body		BookingRequest	true	"booking"
//	@Success		201		{object}	models.APIResponse
//	@Failure		409		{object}	models.APIResponse
//	@Router			/api/v1/bookings [post]
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, codeAuthentication, "not authenticated", nil)
		return
	}

	var req BookingRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	b, err := h.bookings.Create(r.Context(), booking.CreateRequest{
		TripID:        req.TripID,
		DiverUsername: claims.Username,
		Seats:         req.Seats,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondSuccess(w, http.StatusCreated, b)
}

// GetBooking returns one booking. Divers see only their own.
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, codeAuthentication, "not authenticated", nil)
		return
	}
	id, err := urlUUID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}

	b, err := h.bookings.Get(r.Context(), id, claims.Username, claims.Role)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, b)
}

// ListBookings returns bookings. Divers get their own; staff can filter
// by trip or diver.
func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, codeAuthentication, "not authenticated", nil)
		return
	}
	limit := getLimitParam(r, defaultListLimit, maxListLimit)
	cursor, err := decodeListCursor(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}

	var filter database.BookingFilter
	if raw := r.URL.Query().Get("trip_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, codeValidation, "invalid trip_id", nil)
			return
		}
		filter.TripID = &id
	}
	if diver := r.URL.Query().Get("diver"); diver != "" {
		filter.DiverUsername = &diver
	}
	if status := r.URL.Query().Get("status"); status != "" {
		filter.Statuses = []string{status}
	}

	bookings, err := h.bookings.List(r.Context(), filter, claims.Username, claims.Role, limit, cursor)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	var last *models.ListCursor
	if len(bookings) > 0 {
		tail := bookings[len(bookings)-1]
		last = &models.ListCursor{CreatedAt: tail.CreatedAt, ID: tail.ID.String()}
	}
	respondSuccess(w, http.StatusOK, models.BookingsResponse{
		Bookings:   bookings,
		Pagination: listPagination(limit, len(bookings), last),
	})
}

// CancelBooking cancels a booking. Divers cancel their own; staff any.
func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, codeAuthentication, "not authenticated", nil)
		return
	}
	id, err := urlUUID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}

	b, err := h.bookings.Cancel(r.Context(), id, claims.Username, claims.Role)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	// A booking that had been paid gets a refund request; the refund
	// itself arrives later as a payment.refunded webhook.
	if b.ConfirmedAt != nil {
		if err := h.payments.RequestRefund(r.Context(), b); err != nil {
			logging.Ctx(r.Context()).Error().Err(err).
				Str("booking_id", b.ID.String()).
				Msg("refund request failed, manual reconciliation needed")
		}
	}
	respondSuccess(w, http.StatusOK, b)
}

// ConfirmBooking confirms a pending booking out of band, for bookings
// settled outside the payment provider. Staff only; the normal path is
// the payment webhook.
func (h *Handler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, codeAuthentication, "not authenticated", nil)
		return
	}
	if claims.Role == models.RoleDiver {
		respondError(w, http.StatusForbidden, codeAuthorization, "confirming a booking requires staff role", nil)
		return
	}
	id, err := urlUUID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}

	b, err := h.bookings.Confirm(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, b)
}
