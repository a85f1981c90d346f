// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testTripRequest struct {
	Title        string `validate:"required,min=1,max=200"`
	Capacity     int    `validate:"required,min=1,max=200"`
	Currency     string `validate:"required,iso4217"`
	MinCertLevel string `validate:"required,certlevel"`
}

func TestValidateStructPasses(t *testing.T) {
	req := testTripRequest{
		Title:        "Blue Hole morning dive",
		Capacity:     10,
		Currency:     "EUR",
		MinCertLevel: "advanced",
	}
	assert.Nil(t, ValidateStruct(&req))
}

func TestValidateStructRequired(t *testing.T) {
	req := testTripRequest{Currency: "EUR", MinCertLevel: "open_water"}

	verr := ValidateStruct(&req)
	require.NotNil(t, verr)
	assert.GreaterOrEqual(t, len(verr.Errors()), 2)

	apiErr := verr.ToAPIError()
	assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)
	assert.Contains(t, apiErr.Message, "Title is required")
}

func TestValidateCertLevel(t *testing.T) {
	req := testTripRequest{
		Title:        "Wreck dive",
		Capacity:     6,
		Currency:     "USD",
		MinCertLevel: "ninja",
	}

	verr := ValidateStruct(&req)
	require.NotNil(t, verr)
	apiErr := verr.ToAPIError()
	assert.Contains(t, apiErr.Message, "certification level")
}

func TestValidateCurrency(t *testing.T) {
	req := testTripRequest{
		Title:        "Reef dive",
		Capacity:     6,
		Currency:     "EURO",
		MinCertLevel: "open_water",
	}

	verr := ValidateStruct(&req)
	require.NotNil(t, verr)
	apiErr := verr.ToAPIError()
	assert.Contains(t, apiErr.Message, "ISO-4217")
}

func TestValidateRoleTag(t *testing.T) {
	type roleReq struct {
		Role string `validate:"required,role"`
	}
	assert.Nil(t, ValidateStruct(&roleReq{Role: "staff"}))

	verr := ValidateStruct(&roleReq{Role: "viewer"})
	require.NotNil(t, verr)
	assert.Contains(t, verr.Error(), "valid role")
}

func TestSingleErrorDetails(t *testing.T) {
	type limitReq struct {
		Limit int `validate:"min=1,max=100"`
	}

	verr := ValidateStruct(&limitReq{Limit: 500})
	require.NotNil(t, verr)
	require.Len(t, verr.Errors(), 1)

	apiErr := verr.ToAPIError()
	assert.Equal(t, "Limit", apiErr.Details["field"])
	assert.Equal(t, "max", apiErr.Details["tag"])
}
