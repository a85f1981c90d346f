// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package auth

import (
	"fmt"

	"github.com/pelagos-app/pelagos/internal/config"
	"github.com/pelagos-app/pelagos/internal/logging"
)

// NewTokenStore builds the refresh token store selected by
// security.token_store. "memory" is the default; "badger" persists
// sessions to disk at security.token_store_path.
func NewTokenStore(cfg *config.SecurityConfig) (RefreshTokenStore, error) {
	switch cfg.TokenStore {
	case "", "memory":
		logging.Debug().Msg("Using in-memory refresh token store")
		return NewMemoryTokenStore(), nil
	case "badger":
		if cfg.TokenStorePath == "" {
			return nil, fmt.Errorf("token_store_path is required for the badger token store")
		}
		store, err := NewBadgerTokenStore(cfg.TokenStorePath)
		if err != nil {
			return nil, err
		}
		logging.Info().Str("path", cfg.TokenStorePath).Msg("Using BadgerDB refresh token store")
		return store, nil
	default:
		return nil, fmt.Errorf("unknown token store %q (expected memory or badger)", cfg.TokenStore)
	}
}
