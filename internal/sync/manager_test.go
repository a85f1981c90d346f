// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package sync

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pelagos-app/pelagos/internal/config"
	"github.com/pelagos-app/pelagos/internal/database"
	"github.com/pelagos-app/pelagos/internal/models"
)

func newSyncEnv(t *testing.T) (*database.DB, *Manager) {
	t.Helper()
	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "1GB", Threads: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	m := NewManager(db, &config.SyncConfig{MaxBatchSize: 100})
	return db, m
}

func appendChanges(t *testing.T, db *database.DB, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := db.AppendChange(context.Background(), &models.ChangeLogEntry{
			EntityType: models.EntityBooking,
			EntityID:   fmt.Sprintf("booking-%d", i),
			Op:         models.OpUpdate,
			Payload:    "{}",
		})
		require.NoError(t, err)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	for _, seq := range []int64{0, 1, 42, 1 << 40} {
		decoded, err := DecodeCursor(EncodeCursor(seq))
		require.NoError(t, err)
		assert.Equal(t, seq, decoded)
	}
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	for _, cursor := range []string{"not base64 !!", "bm90YW51bWJlcg", EncodeCursor(-1)} {
		_, err := DecodeCursor(cursor)
		assert.ErrorIs(t, err, ErrInvalidCursor, "cursor %q", cursor)
	}
}

func TestChangesEmptyCursorIsFullResync(t *testing.T) {
	db, m := newSyncEnv(t)
	appendChanges(t, db, 3)

	resp, err := m.Changes(context.Background(), "", 10)
	require.NoError(t, err)
	assert.True(t, resp.FullResync)
	assert.Len(t, resp.Changes, 3)
	assert.False(t, resp.HasMore)

	// The returned cursor resumes past everything served.
	resp2, err := m.Changes(context.Background(), resp.NextCursor, 10)
	require.NoError(t, err)
	assert.Empty(t, resp2.Changes)
	assert.False(t, resp2.FullResync)
}

func TestChangesPagination(t *testing.T) {
	db, m := newSyncEnv(t)
	appendChanges(t, db, 7)

	ctx := context.Background()
	var got []models.ChangeLogEntry
	cursor := ""
	pages := 0
	for {
		resp, err := m.Changes(ctx, cursor, 3)
		require.NoError(t, err)
		got = append(got, resp.Changes...)
		cursor = resp.NextCursor
		pages++
		if !resp.HasMore {
			break
		}
	}

	assert.Equal(t, 3, pages)
	require.Len(t, got, 7)
	for i := 1; i < len(got); i++ {
		assert.Greater(t, got[i].Seq, got[i-1].Seq)
	}
}

func TestChangesPrunedCursorIsGone(t *testing.T) {
	db, m := newSyncEnv(t)
	appendChanges(t, db, 5)

	// Capture a cursor at the start of the log, then prune everything.
	staleCursor := EncodeCursor(1)
	pruned, err := db.PruneChangesBefore(context.Background(), time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 5, pruned)
	appendChanges(t, db, 3)

	_, err = m.Changes(context.Background(), staleCursor, 10)
	assert.ErrorIs(t, err, database.ErrCursorPruned)
}

func TestJanitorPrunesOldEntries(t *testing.T) {
	db, _ := newSyncEnv(t)
	appendChanges(t, db, 4)

	// Retention of zero is normalized to the default; use a direct
	// short-retention janitor instead.
	j := &Janitor{db: db, retention: time.Nanosecond, interval: time.Hour}
	time.Sleep(10 * time.Millisecond)
	j.Prune(context.Background())

	count, err := db.CountChanges(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRegisterDeviceAndAckCursor(t *testing.T) {
	db, m := newSyncEnv(t)
	ctx := context.Background()

	device, err := m.RegisterDevice(ctx, "diver1", &models.RegisterDeviceRequest{
		DeviceID: "ios-abc123", Platform: "ios",
	})
	require.NoError(t, err)
	assert.Equal(t, "diver1", device.Username)
	assert.Zero(t, device.LastSeq)

	require.NoError(t, m.AckCursor(ctx, "ios-abc123", EncodeCursor(17)))

	got, err := db.GetDevice(ctx, "ios-abc123")
	require.NoError(t, err)
	assert.EqualValues(t, 17, got.LastSeq)

	devices, err := m.Devices(ctx, "diver1")
	require.NoError(t, err)
	assert.Len(t, devices, 1)
}
