// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package booking

import (
	"context"
	"errors"
	"time"

	"github.com/pelagos-app/pelagos/internal/database"
	"github.com/pelagos-app/pelagos/internal/logging"
	"github.com/pelagos-app/pelagos/internal/metrics"
)

// Sweeper expires lapsed seat holds in the background. It is the only
// component that moves bookings to expired, so divers see a consistent
// view: a hold either converts within the TTL or its seats return to
// the pool on the next sweep.
type Sweeper struct {
	svc      *Service
	interval time.Duration
}

// NewSweeper creates a sweeper running at the configured interval.
func NewSweeper(svc *Service, interval time.Duration) *Sweeper {
	return &Sweeper{
		svc:      svc,
		interval: interval,
	}
}

// Serve runs the sweep loop until the context is cancelled. Designed
// for suture supervision.
func (s *Sweeper) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logging.Info().Dur("interval", s.interval).Msg("booking hold sweeper started")

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("booking hold sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep expires all pending bookings whose hold has lapsed and returns
// after one pass.
func (s *Sweeper) Sweep(ctx context.Context) {
	holds, err := s.svc.db.ListExpiredHolds(ctx, time.Now().UTC())
	if err != nil {
		logging.Error().Err(err).Msg("failed to list expired holds")
		return
	}

	for _, hold := range holds {
		if _, err := s.svc.Expire(ctx, hold.ID); err != nil {
			// A concurrent confirm or cancel can win the race; that is
			// the intended outcome, not a sweep failure.
			if errors.Is(err, database.ErrInvalidTransition) {
				continue
			}
			logging.Error().Err(err).Str("booking_id", hold.ID.String()).Msg("failed to expire hold")
			continue
		}
		metrics.BookingHoldsExpired.Inc()
		logging.Info().
			Str("booking_id", hold.ID.String()).
			Str("trip_id", hold.TripID.String()).
			Int("seats", hold.Seats).
			Msg("expired booking hold")
	}
}
