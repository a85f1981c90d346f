// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package sync

import (
	"context"
	"time"

	"github.com/pelagos-app/pelagos/internal/logging"
	"github.com/pelagos-app/pelagos/internal/models"
)

// RegisterDevice upserts a mobile device registration for a user.
// Re-registering refreshes platform and push token but keeps the
// device's sync cursor.
func (m *Manager) RegisterDevice(ctx context.Context, username string, req *models.RegisterDeviceRequest) (*models.Device, error) {
	now := time.Now().UTC()
	device := &models.Device{
		ID:         req.DeviceID,
		Username:   username,
		Platform:   req.Platform,
		PushToken:  req.PushToken,
		LastSeenAt: &now,
	}
	if err := m.db.RegisterDevice(ctx, device); err != nil {
		return nil, err
	}

	registered, err := m.db.GetDevice(ctx, req.DeviceID)
	if err != nil {
		return nil, err
	}
	logging.Ctx(ctx).Info().
		Str("device_id", registered.ID).
		Str("username", username).
		Str("platform", registered.Platform).
		Msg("device registered")
	return registered, nil
}

// AckCursor records the position a device has durably applied. The
// notify path uses it to decide which devices are behind.
func (m *Manager) AckCursor(ctx context.Context, deviceID, cursor string) error {
	seq, err := DecodeCursor(cursor)
	if err != nil {
		return err
	}
	return m.db.UpdateDeviceCursor(ctx, deviceID, seq)
}

// Devices lists a user's registered devices.
func (m *Manager) Devices(ctx context.Context, username string) ([]models.Device, error) {
	return m.db.ListDevicesForUser(ctx, username)
}
