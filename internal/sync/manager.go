// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

// Package sync serves the mobile delta-sync feed.
//
// Mutations append to a monotonic change log; clients pull pages of
// changes after an opaque cursor and resume where they left off. The
// janitor prunes entries past the retention window, so a cursor can
// fall off the log; those clients get ErrCursorPruned and must resync
// from scratch.
package sync

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"

	"github.com/pelagos-app/pelagos/internal/config"
	"github.com/pelagos-app/pelagos/internal/database"
	"github.com/pelagos-app/pelagos/internal/metrics"
	"github.com/pelagos-app/pelagos/internal/models"
)

// ErrInvalidCursor is returned for cursors that cannot be decoded.
var ErrInvalidCursor = errors.New("invalid sync cursor")

// DefaultMaxBatchSize caps sync pages when no limit is configured.
const DefaultMaxBatchSize = 500

// Manager answers delta-sync pulls against the change log.
type Manager struct {
	db           *database.DB
	maxBatchSize int
}

// NewManager creates a sync manager.
func NewManager(db *database.DB, cfg *config.SyncConfig) *Manager {
	maxBatch := cfg.MaxBatchSize
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatchSize
	}
	return &Manager{db: db, maxBatchSize: maxBatch}
}

// Changes returns the next page of changes after the client's cursor.
// An empty cursor starts a full resync from the beginning of the log.
// Cursors that fall before the retained window return
// database.ErrCursorPruned.
func (m *Manager) Changes(ctx context.Context, cursor string, limit int) (*models.SyncChangesResponse, error) {
	if limit <= 0 || limit > m.maxBatchSize {
		limit = m.maxBatchSize
	}

	fullResync := cursor == ""
	afterSeq := int64(0)
	if !fullResync {
		seq, err := DecodeCursor(cursor)
		if err != nil {
			return nil, err
		}
		afterSeq = seq

		minSeq, err := m.db.MinSeq(ctx)
		if err != nil {
			return nil, err
		}
		// A cursor older than the retained window has gaps the client
		// can never fill. minSeq-1 is the newest fully-covered cursor.
		if minSeq > 0 && afterSeq < minSeq-1 {
			metrics.SyncGoneCursors.Inc()
			return nil, fmt.Errorf("%w: cursor %d predates retained window starting at %d",
				database.ErrCursorPruned, afterSeq, minSeq)
		}
	}

	changes, err := m.db.ListChangesSince(ctx, afterSeq, limit+1)
	if err != nil {
		return nil, err
	}

	hasMore := len(changes) > limit
	if hasMore {
		changes = changes[:limit]
	}

	nextSeq := afterSeq
	if len(changes) > 0 {
		nextSeq = changes[len(changes)-1].Seq
	}

	metrics.RecordSyncPull(len(changes), fullResync)
	return &models.SyncChangesResponse{
		Changes:    changes,
		NextCursor: EncodeCursor(nextSeq),
		HasMore:    hasMore,
		FullResync: fullResync,
	}, nil
}

// EncodeCursor renders a change log position as an opaque client token.
func EncodeCursor(seq int64) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatInt(seq, 10)))
}

// DecodeCursor parses a client cursor back to a change log position.
func DecodeCursor(cursor string) (int64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	seq, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil || seq < 0 {
		return 0, fmt.Errorf("%w: not a sequence number", ErrInvalidCursor)
	}
	return seq, nil
}
