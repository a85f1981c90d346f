// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/pelagos-app/pelagos/internal/auth"
	"github.com/pelagos-app/pelagos/internal/database"
	"github.com/pelagos-app/pelagos/internal/logging"
	"github.com/pelagos-app/pelagos/internal/models"
)

// Login authenticates a user and issues a JWT plus refresh token.
//
//	@Summary		Authenticate
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		models.LoginRequest	true	"credentials"
//	@Success		200		{object}	models.APIResponse
//	@Failure		401		{object}	models.APIResponse
//	@Router			/api/v1/auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	user, err := h.db.GetUser(r.Context(), req.Username)
	if err != nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		// Same response for unknown user and wrong password.
		logging.Ctx(r.Context()).Warn().
			Str("username", sanitizeLogValue(req.Username)).
			Msg("failed login attempt")
		respondError(w, http.StatusUnauthorized, codeAuthentication, "invalid credentials", nil)
		return
	}

	token, expiresAt, err := h.jwtManager.GenerateToken(user.Username, user.Role)
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeAuthentication, "failed to issue token", err)
		return
	}

	resp := models.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Username:  user.Username,
		Role:      user.Role,
	}

	if req.RememberMe && h.tokenStore != nil {
		refresh, err := auth.GenerateRefreshToken()
		if err == nil {
			err = h.tokenStore.Create(r.Context(), &auth.RefreshToken{
				Token:     refresh,
				Username:  user.Username,
				Role:      user.Role,
				ExpiresAt: time.Now().Add(h.config.Security.RefreshTTL),
				CreatedAt: time.Now(),
			})
		}
		if err != nil {
			logging.Error().Err(err).Msg("failed to store refresh token")
		} else {
			resp.RefreshToken = refresh
		}
	}

	logging.Ctx(r.Context()).Info().
		Str("username", user.Username).
		Str("role", user.Role).
		Msg("user logged in")
	respondSuccess(w, http.StatusOK, resp)
}

// Refresh exchanges a refresh token for a new access token. The
// refresh token is rotated: the old one is deleted and a new one
// issued.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if h.tokenStore == nil {
		respondError(w, http.StatusNotImplemented, codeAuthentication, "refresh tokens not enabled", nil)
		return
	}

	var req models.RefreshRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	stored, err := h.tokenStore.Get(r.Context(), req.RefreshToken)
	if err != nil {
		respondError(w, http.StatusUnauthorized, codeAuthentication, "invalid or expired refresh token", nil)
		return
	}

	token, expiresAt, err := h.jwtManager.GenerateToken(stored.Username, stored.Role)
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeAuthentication, "failed to issue token", err)
		return
	}

	// Rotate.
	_ = h.tokenStore.Delete(r.Context(), req.RefreshToken)
	newRefresh, err := auth.GenerateRefreshToken()
	if err == nil {
		err = h.tokenStore.Create(r.Context(), &auth.RefreshToken{
			Token:     newRefresh,
			Username:  stored.Username,
			Role:      stored.Role,
			ExpiresAt: time.Now().Add(h.config.Security.RefreshTTL),
			CreatedAt: time.Now(),
		})
	}
	if err != nil {
		logging.Error().Err(err).Msg("failed to rotate refresh token")
		newRefresh = ""
	}

	respondSuccess(w, http.StatusOK, models.LoginResponse{
		Token:        token,
		RefreshToken: newRefresh,
		ExpiresAt:    expiresAt,
		Username:     stored.Username,
		Role:         stored.Role,
	})
}

// Logout revokes all refresh tokens for the authenticated user.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, codeAuthentication, "not authenticated", nil)
		return
	}
	revoked := 0
	if h.tokenStore != nil {
		n, err := h.tokenStore.DeleteByUsername(r.Context(), claims.Username)
		if err != nil {
			respondError(w, http.StatusInternalServerError, codeAuthentication, "failed to revoke tokens", err)
			return
		}
		revoked = n
	}
	respondSuccess(w, http.StatusOK, map[string]int{"revoked": revoked})
}

// Register creates a new diver account. Role escalation happens through
// the admin user endpoints, never at registration.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeAuthentication, "failed to hash password", err)
		return
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		Role:         models.RoleDiver,
		PasswordHash: hash,
	}
	if err := h.db.InsertUser(r.Context(), user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			respondError(w, http.StatusConflict, codeConflict, "username already taken", nil)
			return
		}
		respondDomainError(w, err)
		return
	}

	logging.Ctx(r.Context()).Info().Str("username", user.Username).Msg("diver registered")
	respondSuccess(w, http.StatusCreated, user)
}

// Me returns the authenticated user's profile.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, codeAuthentication, "not authenticated", nil)
		return
	}
	user, err := h.db.GetUser(r.Context(), claims.Username)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			// Basic-auth deployments have no user rows.
			respondSuccess(w, http.StatusOK, models.User{Username: claims.Username, Role: claims.Role})
			return
		}
		respondDomainError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, user)
}

// UpdateCertLevel records the authenticated diver's certification
// level, which gates booking trips with a minimum requirement.
func (h *Handler) UpdateCertLevel(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, codeAuthentication, "not authenticated", nil)
		return
	}

	var req CertLevelRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, err.Error(), nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	if err := h.db.UpdateUserCertLevel(r.Context(), claims.Username, req.CertLevel); err != nil {
		respondDomainError(w, err)
		return
	}
	user, err := h.db.GetUser(r.Context(), claims.Username)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, user)
}
