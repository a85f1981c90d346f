// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package auth

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBasicAuthManagerValidation(t *testing.T) {
	_, err := NewBasicAuthManager("", "password123")
	assert.Error(t, err)

	_, err = NewBasicAuthManager("user", "")
	assert.Error(t, err)

	_, err = NewBasicAuthManager("user", "short")
	assert.Error(t, err)

	_, err = NewBasicAuthManager("user", "long-enough-password")
	assert.NoError(t, err)
}

func basicHeader(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

func TestValidateCredentials(t *testing.T) {
	m, err := NewBasicAuthManager("captain", "correct-horse-battery")
	require.NoError(t, err)

	username, err := m.ValidateCredentials(basicHeader("captain", "correct-horse-battery"))
	require.NoError(t, err)
	assert.Equal(t, "captain", username)

	_, err = m.ValidateCredentials(basicHeader("captain", "wrong-password"))
	assert.Error(t, err)

	_, err = m.ValidateCredentials(basicHeader("stranger", "correct-horse-battery"))
	assert.Error(t, err)

	_, err = m.ValidateCredentials("Bearer some-token")
	assert.Error(t, err)

	_, err = m.ValidateCredentials("Basic !!!not-base64!!!")
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("open-water-2026")
	require.NoError(t, err)
	assert.NotEqual(t, "open-water-2026", hash)

	assert.True(t, CheckPassword(hash, "open-water-2026"))
	assert.False(t, CheckPassword(hash, "advanced-2026"))

	_, err = HashPassword("short")
	assert.Error(t, err)
}
