// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package api

import (
	"errors"
	"io"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/pelagos-app/pelagos/internal/database"
	"github.com/pelagos-app/pelagos/internal/logging"
	"github.com/pelagos-app/pelagos/internal/metrics"
	"github.com/pelagos-app/pelagos/internal/models"
	"github.com/pelagos-app/pelagos/internal/payments"
)

// PaymentWebhook receives provider payment events. The raw body is
// verified against X-Pelagos-Signature before any parsing. Quarantined
// events are acknowledged with 202 so the provider stops retrying; the
// row is kept for operator review.
//
//	@Summary		Payment provider webhook
//	@Tags			payments
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	models.APIResponse
//	@Success		202	{object}	models.APIResponse
//	@Failure		401	{object}	models.APIResponse
//	@Router			/api/v1/payments/webhook [post]
func (h *Handler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, "failed to read body", err)
		return
	}

	signature := r.Header.Get(payments.SignatureHeader)
	if signature == "" {
		metrics.WebhookSignatureFailures.Inc()
		respondError(w, http.StatusUnauthorized, codeAuthentication, payments.SignatureHeader+" header required", nil)
		return
	}
	if !payments.VerifySignature(body, signature, h.config.Payments.WebhookSecret) {
		metrics.WebhookSignatureFailures.Inc()
		logging.Ctx(r.Context()).Warn().Msg("webhook signature verification failed")
		respondError(w, http.StatusUnauthorized, codeAuthentication, "invalid webhook signature", nil)
		return
	}

	var event models.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, "invalid webhook payload", nil)
		return
	}
	if apiErr := validateRequest(&event); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}
	if !models.IsValidWebhookEventType(event.EventType) {
		respondError(w, http.StatusBadRequest, codeValidation, "unsupported event type", nil)
		return
	}

	result, err := h.payments.Process(r.Context(), &event)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, codeNotFound, "unknown booking", nil)
			return
		}
		respondDomainError(w, err)
		return
	}

	// Replays always acknowledge with 200, even when the original
	// delivery was quarantined; 202 marks only the first quarantine.
	status := http.StatusOK
	if result.Quarantined && !result.Duplicate {
		status = http.StatusAccepted
	}
	respondSuccess(w, status, result)
}

// ListPayments returns payment records. Staff only. Supports filtering
// by booking and status, including quarantined events awaiting review.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	limit := getLimitParam(r, defaultListLimit, maxListLimit)

	var bookingID *uuid.UUID
	if raw := r.URL.Query().Get("booking_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, codeValidation, "invalid booking_id", nil)
			return
		}
		bookingID = &id
	}
	var statuses []string
	if status := r.URL.Query().Get("status"); status != "" {
		statuses = []string{status}
	}

	list, err := h.payments.ListPayments(r.Context(), bookingID, statuses, limit)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, models.PaymentsResponse{
		Payments:   list,
		Pagination: models.PaginationInfo{Limit: limit, HasMore: len(list) == limit},
	})
}
