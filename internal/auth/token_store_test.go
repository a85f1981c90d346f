// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pelagos-app/pelagos/internal/config"
	"github.com/pelagos-app/pelagos/internal/models"
)

func newToken(t *testing.T, username string, ttl time.Duration) *RefreshToken {
	t.Helper()
	token, err := GenerateRefreshToken()
	require.NoError(t, err)
	now := time.Now()
	return &RefreshToken{
		Token:     token,
		Username:  username,
		Role:      models.RoleDiver,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
}

func runTokenStoreSuite(t *testing.T, store RefreshTokenStore) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		tok := newToken(t, "diver1", time.Hour)
		require.NoError(t, store.Create(ctx, tok))

		got, err := store.Get(ctx, tok.Token)
		require.NoError(t, err)
		assert.Equal(t, "diver1", got.Username)
		assert.Equal(t, models.RoleDiver, got.Role)
	})

	t.Run("get unknown", func(t *testing.T) {
		_, err := store.Get(ctx, "no-such-token")
		assert.ErrorIs(t, err, ErrTokenNotFound)
	})

	t.Run("expired token rejected", func(t *testing.T) {
		tok := newToken(t, "diver2", time.Millisecond)
		require.NoError(t, store.Create(ctx, tok))
		time.Sleep(10 * time.Millisecond)

		_, err := store.Get(ctx, tok.Token)
		assert.Error(t, err)
	})

	t.Run("delete", func(t *testing.T) {
		tok := newToken(t, "diver3", time.Hour)
		require.NoError(t, store.Create(ctx, tok))
		require.NoError(t, store.Delete(ctx, tok.Token))

		_, err := store.Get(ctx, tok.Token)
		assert.ErrorIs(t, err, ErrTokenNotFound)
	})

	t.Run("delete by username", func(t *testing.T) {
		a := newToken(t, "revoked", time.Hour)
		b := newToken(t, "revoked", time.Hour)
		other := newToken(t, "kept", time.Hour)
		require.NoError(t, store.Create(ctx, a))
		require.NoError(t, store.Create(ctx, b))
		require.NoError(t, store.Create(ctx, other))

		count, err := store.DeleteByUsername(ctx, "revoked")
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		_, err = store.Get(ctx, other.Token)
		assert.NoError(t, err)
	})
}

func TestMemoryTokenStore(t *testing.T) {
	store := NewMemoryTokenStore()
	defer store.Close()
	runTokenStoreSuite(t, store)
}

func TestBadgerTokenStore(t *testing.T) {
	store, err := NewBadgerTokenStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()
	runTokenStoreSuite(t, store)
}

func TestMemoryTokenStoreCleanup(t *testing.T) {
	store := NewMemoryTokenStore()
	defer store.Close()
	ctx := context.Background()

	expired := newToken(t, "diver1", -time.Minute)
	live := newToken(t, "diver1", time.Hour)
	require.NoError(t, store.Create(ctx, expired))
	require.NoError(t, store.Create(ctx, live))

	count, err := store.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = store.Get(ctx, live.Token)
	assert.NoError(t, err)
}

func TestNewTokenStoreFactory(t *testing.T) {
	store, err := NewTokenStore(&config.SecurityConfig{TokenStore: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryTokenStore{}, store)
	store.Close()

	store, err = NewTokenStore(&config.SecurityConfig{
		TokenStore:     "badger",
		TokenStorePath: t.TempDir(),
	})
	require.NoError(t, err)
	assert.IsType(t, &BadgerTokenStore{}, store)
	store.Close()

	_, err = NewTokenStore(&config.SecurityConfig{TokenStore: "redis"})
	assert.Error(t, err)
}

func TestGenerateRefreshTokenUnique(t *testing.T) {
	a, err := GenerateRefreshToken()
	require.NoError(t, err)
	b, err := GenerateRefreshToken()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.GreaterOrEqual(t, len(a), 40)
}
