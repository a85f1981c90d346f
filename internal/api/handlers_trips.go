// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pelagos-app/pelagos/internal/cache"
	"github.com/pelagos-app/pelagos/internal/database"
	"github.com/pelagos-app/pelagos/internal/events"
	"github.com/pelagos-app/pelagos/internal/models"
)

// tripFilterFromQuery builds the storage filter from trip search
// parameters. Invalid values are reported, not silently dropped.
func tripFilterFromQuery(r *http.Request) (database.TripFilter, string) {
	var filter database.TripFilter
	q := r.URL.Query()

	if raw := q.Get("center_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filter, "invalid center_id"
		}
		filter.CenterID = &id
	}
	if c := q.Get("country"); c != "" {
		filter.Country = &c
	}
	if raw := q.Get("from"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, "invalid from timestamp, want RFC3339"
		}
		filter.From = &ts
	}
	if raw := q.Get("to"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, "invalid to timestamp, want RFC3339"
		}
		filter.To = &ts
	}
	if raw := q.Get("min_price"); raw != "" {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return filter, "invalid min_price"
		}
		filter.MinPrice = &price
	}
	if raw := q.Get("max_price"); raw != "" {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return filter, "invalid max_price"
		}
		filter.MaxPrice = &price
	}
	if c := q.Get("min_cert_level"); c != "" {
		if !models.IsValidCertLevel(c) {
			return filter, "invalid min_cert_level"
		}
		filter.MinCertLevel = &c
	}
	if s := q.Get("status"); s != "" {
		filter.Statuses = []string{s}
	} else {
		// Searches default to bookable trips.
		filter.Statuses = []string{models.TripScheduled}
	}
	return filter, ""
}

// ListTrips searches trips ordered by departure.
//
//	@Summary		Search trips
//	@Tags			trips
//	@Produce		json
//	@Param			country			query		string	false	"center country filter"
//	@Param			center_id		query		string	false	"center filter"
//	@Param			from			query		string	false	"departure window start (RFC3339)"
//	@Param			to				query		string	false	"departure window end (RFC3339)"
//	@Param			min_price		query		string	false	"minimum price"
//	@Param			max_price		query		string	false	"maximum price"
//	@Param			min_cert_level	query		string	false	"certification filter"
//	@Param			limit			query		int		false	"page size"
//	@Param			cursor			query		string	false	"pagination cursor"
//	@Success		200				{object}	models.APIResponse
//	@Router			/api/v1/trips [get]
func (h *Handler) ListTrips(w http.ResponseWriter, r *http.Request) {
	limit := getLimitParam(r, defaultListLimit, maxListLimit)
	cursor, err := decodeListCursor(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}
	filter, problem := tripFilterFromQuery(r)
	if problem != "" {
		respondError(w, http.StatusBadRequest, codeValidation, problem, nil)
		return
	}

	// First pages of common searches are cached briefly. Cursored pages
	// skip the cache; their key space is unbounded.
	cacheKey := ""
	if cursor == nil {
		cacheKey = cache.GenerateKey("trips", r.URL.Query())
		if cached, ok := h.cache.Get(cacheKey); ok {
			if resp, ok := cached.(models.TripsResponse); ok {
				respondSuccess(w, http.StatusOK, resp)
				return
			}
		}
	}

	trips, err := h.db.ListTrips(r.Context(), filter, limit, cursor)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	var last *models.ListCursor
	if len(trips) > 0 {
		tail := trips[len(trips)-1]
		// Trip listings page forward by departure time.
		last = &models.ListCursor{CreatedAt: tail.DepartsAt, ID: tail.ID.String()}
	}
	resp := models.TripsResponse{
		Trips:      trips,
		Pagination: listPagination(limit, len(trips), last),
	}
	if cacheKey != "" {
		h.cache.Set(cacheKey, resp)
	}
	respondSuccess(w, http.StatusOK, resp)
}

// GetTrip returns one trip with its live seat availability.
func (h *Handler) GetTrip(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}
	trip, err := h.db.GetTrip(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, trip)
}

// CreateTrip schedules a trip. Staff only. Capacity is bounded by the
// vessel and the referenced center, vessel, and instructor must exist
// and belong together.
func (h *Handler) CreateTrip(w http.ResponseWriter, r *http.Request) {
	var req TripRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		respondError(w, http.StatusBadRequest, codeValidation, "invalid price", nil)
		return
	}

	trip := &models.Trip{
		CenterID:     req.CenterID,
		VesselID:     req.VesselID,
		InstructorID: req.InstructorID,
		Title:        req.Title,
		Description:  req.Description,
		SiteName:     req.SiteName,
		DepartsAt:    req.DepartsAt,
		ReturnsAt:    req.ReturnsAt,
		Capacity:     req.Capacity,
		MinCertLevel: req.MinCertLevel,
		Price:        price,
		Currency:     req.Currency,
		MaxDepthM:    req.MaxDepthM,
	}
	if problem := h.checkTripReferences(r, trip); problem != "" {
		respondError(w, http.StatusBadRequest, codeValidation, problem, nil)
		return
	}

	if err := h.db.InsertTrip(r.Context(), trip); err != nil {
		respondDomainError(w, err)
		return
	}

	h.recordChange(r.Context(), models.EntityTrip, trip.ID.String(), models.OpCreate, events.TypeTripCreated, trip)
	h.ClearCache()
	respondSuccess(w, http.StatusCreated, trip)
}

// UpdateTrip updates a scheduled trip. Staff only. Capacity cannot drop
// below the seats already held.
func (h *Handler) UpdateTrip(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}
	var req TripRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		respondError(w, http.StatusBadRequest, codeValidation, "invalid price", nil)
		return
	}

	trip, err := h.db.GetTrip(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if req.Capacity < trip.SeatsBooked {
		respondError(w, http.StatusConflict, codeConflict, "capacity below seats already booked", nil)
		return
	}

	trip.CenterID = req.CenterID
	trip.VesselID = req.VesselID
	trip.InstructorID = req.InstructorID
	trip.Title = req.Title
	trip.Description = req.Description
	trip.SiteName = req.SiteName
	trip.DepartsAt = req.DepartsAt
	trip.ReturnsAt = req.ReturnsAt
	trip.Capacity = req.Capacity
	trip.MinCertLevel = req.MinCertLevel
	trip.Price = price
	trip.Currency = req.Currency
	trip.MaxDepthM = req.MaxDepthM
	if problem := h.checkTripReferences(r, trip); problem != "" {
		respondError(w, http.StatusBadRequest, codeValidation, problem, nil)
		return
	}

	if err := h.db.UpdateTrip(r.Context(), trip); err != nil {
		respondDomainError(w, err)
		return
	}

	h.recordChange(r.Context(), models.EntityTrip, trip.ID.String(), models.OpUpdate, events.TypeTripUpdated, trip)
	h.ClearCache()
	respondSuccess(w, http.StatusOK, trip)
}

// CancelTrip marks a trip cancelled. Staff only. Active bookings on the
// trip are cancelled and their seats released.
func (h *Handler) CancelTrip(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}

	trip, err := h.db.GetTrip(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if trip.Status != models.TripScheduled {
		respondError(w, http.StatusConflict, codeConflict, "only scheduled trips can be cancelled", nil)
		return
	}
	trip.Status = models.TripCancelled
	if err := h.db.UpdateTrip(r.Context(), trip); err != nil {
		respondDomainError(w, err)
		return
	}

	cancelled := h.bookings.CancelAllForTrip(r.Context(), trip.ID)

	h.recordChange(r.Context(), models.EntityTrip, trip.ID.String(), models.OpUpdate, events.TypeTripCancelled, trip)
	h.ClearCache()
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"trip":               trip,
		"bookings_cancelled": cancelled,
	})
}

// DeleteTrip removes a trip without active bookings. Admin only.
func (h *Handler) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}
	if err := h.db.DeleteTrip(r.Context(), id); err != nil {
		respondDomainError(w, err)
		return
	}

	h.recordChange(r.Context(), models.EntityTrip, id.String(), models.OpDelete, events.TypeTripDeleted, map[string]string{"id": id.String()})
	h.ClearCache()
	respondSuccess(w, http.StatusOK, map[string]string{"deleted": id.String()})
}

// checkTripReferences verifies the trip's center, vessel, and
// instructor exist, belong to the same center, and that the vessel can
// hold the capacity.
func (h *Handler) checkTripReferences(r *http.Request, trip *models.Trip) string {
	ctx := r.Context()
	if _, err := h.db.GetDiveCenter(ctx, trip.CenterID); err != nil {
		return "unknown center_id"
	}
	vessel, err := h.db.GetVessel(ctx, trip.VesselID)
	if err != nil {
		return "unknown vessel_id"
	}
	if vessel.CenterID != trip.CenterID {
		return "vessel belongs to a different center"
	}
	if trip.Capacity > vessel.Capacity {
		return "capacity exceeds vessel capacity"
	}
	instructor, err := h.db.GetInstructor(ctx, trip.InstructorID)
	if err != nil {
		return "unknown instructor_id"
	}
	if instructor.CenterID != trip.CenterID {
		return "instructor belongs to a different center"
	}
	return ""
}
