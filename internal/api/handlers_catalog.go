// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/pelagos-app/pelagos/internal/models"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// ListCenters returns dive centers, optionally filtered by country.
//
//	@Summary		List dive centers
//	@Tags			catalog
//	@Produce		json
//	@Param			country	query		string	false	"ISO 3166-1 alpha-2 country filter"
//	@Param			limit	query		int		false	"page size"
//	@Param			cursor	query		string	false	"pagination cursor"
//	@Success		200		{object}	models.APIResponse
//	@Router			/api/v1/centers [get]
func (h *Handler) ListCenters(w http.ResponseWriter, r *http.Request) {
	limit := getLimitParam(r, defaultListLimit, maxListLimit)
	cursor, err := decodeListCursor(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}

	var country *string
	if c := r.URL.Query().Get("country"); c != "" {
		country = &c
	}

	centers, err := h.db.ListDiveCenters(r.Context(), country, limit, cursor)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	var last *models.ListCursor
	if len(centers) > 0 {
		tail := centers[len(centers)-1]
		last = &models.ListCursor{CreatedAt: tail.CreatedAt, ID: tail.ID.String()}
	}
	respondSuccess(w, http.StatusOK, models.CentersResponse{
		Centers:    centers,
		Pagination: listPagination(limit, len(centers), last),
	})
}

// GetCenter returns one dive center.
func (h *Handler) GetCenter(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}
	center, err := h.db.GetDiveCenter(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, center)
}

// CreateCenter creates a dive center. Staff only.
func (h *Handler) CreateCenter(w http.ResponseWriter, r *http.Request) {
	var req CenterRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	center := &models.DiveCenter{
		Name:        req.Name,
		Description: req.Description,
		Email:       req.Email,
		Phone:       req.Phone,
		Country:     req.Country,
		Region:      req.Region,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
	}
	if err := h.db.InsertDiveCenter(r.Context(), center); err != nil {
		respondDomainError(w, err)
		return
	}

	h.recordChange(r.Context(), models.EntityCenter, center.ID.String(), models.OpCreate, "", center)
	h.ClearCache()
	respondSuccess(w, http.StatusCreated, center)
}

// UpdateCenter updates a dive center. Staff only.
func (h *Handler) UpdateCenter(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}
	var req CenterRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	center, err := h.db.GetDiveCenter(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	center.Name = req.Name
	center.Description = req.Description
	center.Email = req.Email
	center.Phone = req.Phone
	center.Country = req.Country
	center.Region = req.Region
	center.Latitude = req.Latitude
	center.Longitude = req.Longitude

	if err := h.db.UpdateDiveCenter(r.Context(), center); err != nil {
		respondDomainError(w, err)
		return
	}

	h.recordChange(r.Context(), models.EntityCenter, center.ID.String(), models.OpUpdate, "", center)
	h.ClearCache()
	respondSuccess(w, http.StatusOK, center)
}

// DeleteCenter removes a dive center. Admin only; fails while the
// center still has trips with active bookings.
func (h *Handler) DeleteCenter(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}
	if err := h.db.DeleteDiveCenter(r.Context(), id); err != nil {
		respondDomainError(w, err)
		return
	}

	h.recordChange(r.Context(), models.EntityCenter, id.String(), models.OpDelete, "", map[string]string{"id": id.String()})
	h.ClearCache()
	respondSuccess(w, http.StatusOK, map[string]string{"deleted": id.String()})
}

// ListVessels returns vessels, optionally scoped to a center.
func (h *Handler) ListVessels(w http.ResponseWriter, r *http.Request) {
	limit := getLimitParam(r, defaultListLimit, maxListLimit)
	cursor, err := decodeListCursor(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}

	var centerID *uuid.UUID
	if raw := r.URL.Query().Get("center_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, codeValidation, "invalid center_id", nil)
			return
		}
		centerID = &id
	}

	vessels, err := h.db.ListVessels(r.Context(), centerID, limit, cursor)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	var last *models.ListCursor
	if len(vessels) > 0 {
		tail := vessels[len(vessels)-1]
		last = &models.ListCursor{CreatedAt: tail.CreatedAt, ID: tail.ID.String()}
	}
	respondSuccess(w, http.StatusOK, models.VesselsResponse{
		Vessels:    vessels,
		Pagination: listPagination(limit, len(vessels), last),
	})
}

// GetVessel returns one vessel.
func (h *Handler) GetVessel(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}
	vessel, err := h.db.GetVessel(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, vessel)
}

// CreateVessel creates a vessel under an existing center. Staff only.
func (h *Handler) CreateVessel(w http.ResponseWriter, r *http.Request) {
	var req VesselRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	// The owning center must exist.
	if _, err := h.db.GetDiveCenter(r.Context(), req.CenterID); err != nil {
		respondDomainError(w, err)
		return
	}

	vessel := &models.Vessel{
		CenterID: req.CenterID,
		Name:     req.Name,
		Capacity: req.Capacity,
	}
	if err := h.db.InsertVessel(r.Context(), vessel); err != nil {
		respondDomainError(w, err)
		return
	}

	h.recordChange(r.Context(), models.EntityVessel, vessel.ID.String(), models.OpCreate, "", vessel)
	h.ClearCache()
	respondSuccess(w, http.StatusCreated, vessel)
}

// UpdateVessel updates a vessel. Staff only.
func (h *Handler) UpdateVessel(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}
	var req VesselRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	vessel, err := h.db.GetVessel(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	vessel.CenterID = req.CenterID
	vessel.Name = req.Name
	vessel.Capacity = req.Capacity

	if err := h.db.UpdateVessel(r.Context(), vessel); err != nil {
		respondDomainError(w, err)
		return
	}

	h.recordChange(r.Context(), models.EntityVessel, vessel.ID.String(), models.OpUpdate, "", vessel)
	h.ClearCache()
	respondSuccess(w, http.StatusOK, vessel)
}

// DeleteVessel removes a vessel. Admin only.
func (h *Handler) DeleteVessel(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}
	if err := h.db.DeleteVessel(r.Context(), id); err != nil {
		respondDomainError(w, err)
		return
	}

	h.recordChange(r.Context(), models.EntityVessel, id.String(), models.OpDelete, "", map[string]string{"id": id.String()})
	h.ClearCache()
	respondSuccess(w, http.StatusOK, map[string]string{"deleted": id.String()})
}

// ListInstructors returns instructors, optionally scoped to a center.
func (h *Handler) ListInstructors(w http.ResponseWriter, r *http.Request) {
	limit := getLimitParam(r, defaultListLimit, maxListLimit)
	cursor, err := decodeListCursor(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}

	var centerID *uuid.UUID
	if raw := r.URL.Query().Get("center_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, codeValidation, "invalid center_id", nil)
			return
		}
		centerID = &id
	}

	instructors, err := h.db.ListInstructors(r.Context(), centerID, limit, cursor)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	var last *models.ListCursor
	if len(instructors) > 0 {
		tail := instructors[len(instructors)-1]
		last = &models.ListCursor{CreatedAt: tail.CreatedAt, ID: tail.ID.String()}
	}
	respondSuccess(w, http.StatusOK, models.InstructorsResponse{
		Instructors: instructors,
		Pagination:  listPagination(limit, len(instructors), last),
	})
}

// GetInstructor returns one instructor.
func (h *Handler) GetInstructor(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}
	instructor, err := h.db.GetInstructor(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, instructor)
}

// CreateInstructor creates an instructor under an existing center.
// Staff only.
func (h *Handler) CreateInstructor(w http.ResponseWriter, r *http.Request) {
	var req InstructorRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	if _, err := h.db.GetDiveCenter(r.Context(), req.CenterID); err != nil {
		respondDomainError(w, err)
		return
	}

	instructor := &models.Instructor{
		CenterID:  req.CenterID,
		Name:      req.Name,
		Agency:    req.Agency,
		CertLevel: req.CertLevel,
		Bio:       req.Bio,
	}
	if err := h.db.InsertInstructor(r.Context(), instructor); err != nil {
		respondDomainError(w, err)
		return
	}

	h.recordChange(r.Context(), models.EntityInstructor, instructor.ID.String(), models.OpCreate, "", instructor)
	h.ClearCache()
	respondSuccess(w, http.StatusCreated, instructor)
}

// UpdateInstructor updates an instructor. Staff only.
func (h *Handler) UpdateInstructor(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}
	var req InstructorRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	instructor, err := h.db.GetInstructor(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	instructor.CenterID = req.CenterID
	instructor.Name = req.Name
	instructor.Agency = req.Agency
	instructor.CertLevel = req.CertLevel
	instructor.Bio = req.Bio

	if err := h.db.UpdateInstructor(r.Context(), instructor); err != nil {
		respondDomainError(w, err)
		return
	}

	h.recordChange(r.Context(), models.EntityInstructor, instructor.ID.String(), models.OpUpdate, "", instructor)
	h.ClearCache()
	respondSuccess(w, http.StatusOK, instructor)
}

// DeleteInstructor removes an instructor. Admin only.
func (h *Handler) DeleteInstructor(w http.ResponseWriter, r *http.Request) {
	id, err := urlUUID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}
	if err := h.db.DeleteInstructor(r.Context(), id); err != nil {
		respondDomainError(w, err)
		return
	}

	h.recordChange(r.Context(), models.EntityInstructor, id.String(), models.OpDelete, "", map[string]string{"id": id.String()})
	h.ClearCache()
	respondSuccess(w, http.StatusOK, map[string]string{"deleted": id.String()})
}
