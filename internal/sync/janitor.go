// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package sync

import (
	"context"
	"time"

	"github.com/pelagos-app/pelagos/internal/config"
	"github.com/pelagos-app/pelagos/internal/database"
	"github.com/pelagos-app/pelagos/internal/logging"
	"github.com/pelagos-app/pelagos/internal/metrics"
)

// Janitor prunes change log entries past the retention window so the
// log stays bounded. Clients whose cursor falls behind a prune get a
// gone cursor on their next pull and perform a full resync.
type Janitor struct {
	db        *database.DB
	retention time.Duration
	interval  time.Duration
}

// NewJanitor creates a change log janitor from sync config.
func NewJanitor(db *database.DB, cfg *config.SyncConfig) *Janitor {
	retention := cfg.Retention
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	interval := cfg.PruneInterval
	if interval <= 0 {
		interval = time.Hour
	}
	return &Janitor{db: db, retention: retention, interval: interval}
}

// Serve runs the prune loop until the context is cancelled. It
// satisfies suture.Service.
func (j *Janitor) Serve(ctx context.Context) error {
	logging.Info().
		Str("component", "sync_janitor").
		Dur("retention", j.retention).
		Dur("interval", j.interval).
		Msg("change log janitor started")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			j.Prune(ctx)
		}
	}
}

// Prune runs one retention pass.
func (j *Janitor) Prune(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-j.retention)
	pruned, err := j.db.PruneChangesBefore(ctx, cutoff)
	if err != nil {
		logging.Error().Err(err).Msg("change log prune failed")
		return
	}
	if pruned > 0 {
		metrics.ChangeLogPruned.Add(float64(pruned))
		logging.Info().
			Int64("pruned", pruned).
			Time("cutoff", cutoff).
			Msg("pruned change log entries")
	}

	if count, err := j.db.CountChanges(ctx); err == nil {
		metrics.ChangeLogSize.Set(float64(count))
	}
}
