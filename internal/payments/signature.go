// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignatureHeader carries the provider's HMAC-SHA256 signature of the
// raw webhook body, hex encoded.
const SignatureHeader = "X-Pelagos-Signature"

// ComputeSignature returns the hex HMAC-SHA256 of body under secret.
func ComputeSignature(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a provider signature against the raw request
// body using a constant-time comparison.
func VerifySignature(body []byte, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected := ComputeSignature(body, secret)
	return hmac.Equal([]byte(signature), []byte(expected))
}
