// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"

	"github.com/pelagos-app/pelagos/internal/logging"
)

// Key prefixes for BadgerDB storage.
const (
	tokenKeyPrefix     = "refresh:"
	tokenUserKeyPrefix = "refresh_user:"
)

// BadgerTokenStore implements RefreshTokenStore on BadgerDB so sessions
// survive server restarts.
type BadgerTokenStore struct {
	db *badger.DB
}

// NewBadgerTokenStore opens a BadgerDB at the given path and wraps it in
// a token store. The caller owns Close.
func NewBadgerTokenStore(path string) (*BadgerTokenStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open token store: %w", err)
	}
	return &BadgerTokenStore{db: db}, nil
}

// Create stores a refresh token with a TTL matching its expiry, plus a
// user index entry for bulk revocation.
func (s *BadgerTokenStore) Create(ctx context.Context, token *RefreshToken) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("marshal refresh token: %w", err)
	}

	ttl := token.ExpiresAt.Sub(token.CreatedAt)
	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(tokenKeyPrefix+token.Token), data).WithTTL(ttl)
		if err := txn.SetEntry(entry); err != nil {
			return fmt.Errorf("set token: %w", err)
		}

		userKey := []byte(tokenUserKeyPrefix + token.Username + ":" + token.Token)
		userEntry := badger.NewEntry(userKey, []byte(token.Token)).WithTTL(ttl)
		if err := txn.SetEntry(userEntry); err != nil {
			return fmt.Errorf("set user mapping: %w", err)
		}
		return nil
	})
}

// Get retrieves a refresh token, rejecting expired ones.
func (s *BadgerTokenStore) Get(ctx context.Context, token string) (*RefreshToken, error) {
	var t RefreshToken

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(tokenKeyPrefix + token))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrTokenNotFound
		}
		if err != nil {
			return fmt.Errorf("get token: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &t)
		})
	})
	if err != nil {
		return nil, err
	}

	if t.IsExpired() {
		return nil, ErrTokenExpired
	}
	return &t, nil
}

// Delete removes a refresh token and its user index entry.
func (s *BadgerTokenStore) Delete(ctx context.Context, token string) error {
	var t RefreshToken
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(tokenKeyPrefix + token))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &t)
		})
	})
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(tokenKeyPrefix + token)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete token: %w", err)
		}
		if t.Username != "" {
			userKey := []byte(tokenUserKeyPrefix + t.Username + ":" + token)
			if err := txn.Delete(userKey); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("delete user mapping: %w", err)
			}
		}
		return nil
	})
}

// DeleteByUsername revokes all of a user's refresh tokens.
func (s *BadgerTokenStore) DeleteByUsername(ctx context.Context, username string) (int, error) {
	var tokens []string

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(tokenUserKeyPrefix + username + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				tokens = append(tokens, string(val))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("list user tokens: %w", err)
	}

	count := 0
	for _, token := range tokens {
		if err := s.Delete(ctx, token); err != nil {
			logging.Warn().Err(err).Msg("Failed to delete refresh token during revocation")
			continue
		}
		count++
	}
	return count, nil
}

// CleanupExpired scans for tokens Badger's TTL has not yet collected and
// removes any that are past expiry.
func (s *BadgerTokenStore) CleanupExpired(ctx context.Context) (int, error) {
	var expired []string

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(tokenKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var t RefreshToken
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &t)
			})
			if err != nil {
				continue
			}
			if t.IsExpired() {
				expired = append(expired, t.Token)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan tokens: %w", err)
	}

	count := 0
	for _, token := range expired {
		if err := s.Delete(ctx, token); err != nil {
			continue
		}
		count++
	}
	return count, nil
}

// Close closes the underlying BadgerDB.
func (s *BadgerTokenStore) Close() error {
	return s.db.Close()
}
