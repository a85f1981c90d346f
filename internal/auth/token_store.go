// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Refresh token store errors.
var (
	ErrTokenNotFound = errors.New("refresh token not found")
	ErrTokenExpired  = errors.New("refresh token expired")
)

// RefreshToken is a single-use credential exchanged for a new access
// token. Tokens are opaque random strings; the store is the only record
// of their validity.
type RefreshToken struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// IsExpired reports whether the token's lifetime has elapsed.
func (t *RefreshToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// RefreshTokenStore persists refresh tokens across requests. The memory
// implementation loses sessions on restart; the Badger implementation
// survives them.
type RefreshTokenStore interface {
	Create(ctx context.Context, token *RefreshToken) error
	Get(ctx context.Context, token string) (*RefreshToken, error)
	Delete(ctx context.Context, token string) error
	DeleteByUsername(ctx context.Context, username string) (int, error)
	CleanupExpired(ctx context.Context) (int, error)
	Close() error
}

// GenerateRefreshToken returns a 256-bit random token encoded as
// unpadded base64url.
func GenerateRefreshToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// MemoryTokenStore is an in-memory RefreshTokenStore for development and
// tests.
type MemoryTokenStore struct {
	mu     sync.RWMutex
	tokens map[string]*RefreshToken
}

// NewMemoryTokenStore creates an empty in-memory token store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[string]*RefreshToken)}
}

// Create stores a refresh token.
func (s *MemoryTokenStore) Create(ctx context.Context, token *RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *token
	s.tokens[token.Token] = &cp
	return nil
}

// Get retrieves a refresh token, rejecting expired ones.
func (s *MemoryTokenStore) Get(ctx context.Context, token string) (*RefreshToken, error) {
	s.mu.RLock()
	t, ok := s.tokens[token]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrTokenNotFound
	}
	if t.IsExpired() {
		return nil, ErrTokenExpired
	}
	cp := *t
	return &cp, nil
}

// Delete removes a refresh token. Deleting an absent token is not an
// error.
func (s *MemoryTokenStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
	return nil
}

// DeleteByUsername revokes all of a user's refresh tokens and returns
// how many were removed.
func (s *MemoryTokenStore) DeleteByUsername(ctx context.Context, username string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for key, t := range s.tokens {
		if t.Username == username {
			delete(s.tokens, key)
			count++
		}
	}
	return count, nil
}

// CleanupExpired removes expired tokens and returns the count.
func (s *MemoryTokenStore) CleanupExpired(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for key, t := range s.tokens {
		if t.IsExpired() {
			delete(s.tokens, key)
			count++
		}
	}
	return count, nil
}

// Close is a no-op for the memory store.
func (s *MemoryTokenStore) Close() error {
	return nil
}

// StartCleanupRoutine periodically removes expired tokens until the
// context is cancelled.
func StartCleanupRoutine(ctx context.Context, store RefreshTokenStore, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_, _ = store.CleanupExpired(ctx)
			}
		}
	}()
}
