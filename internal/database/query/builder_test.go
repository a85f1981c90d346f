// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWhereBuilderEmpty(t *testing.T) {
	wb := NewWhereBuilder()
	clause, args := wb.Build()
	assert.Equal(t, "1=1", clause)
	assert.Empty(t, args)
	assert.True(t, wb.IsEmpty())
}

func TestWhereBuilderEquals(t *testing.T) {
	clause, args := NewWhereBuilder().
		AddEquals("center_id", "abc").
		AddEquals("status", "scheduled").
		Build()

	assert.Equal(t, "center_id = ? AND status = ?", clause)
	assert.Equal(t, []interface{}{"abc", "scheduled"}, args)
}

func TestWhereBuilderDateRange(t *testing.T) {
	from := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 6, 30, 23, 59, 59, 0, time.UTC)

	clause, args := NewWhereBuilder().AddDateRange("departs_at", &from, &to).Build()
	assert.Equal(t, "departs_at >= ? AND departs_at <= ?", clause)
	assert.Len(t, args, 2)

	clause, args = NewWhereBuilder().AddDateRange("departs_at", &from, nil).Build()
	assert.Equal(t, "departs_at >= ?", clause)
	assert.Len(t, args, 1)
}

func TestWhereBuilderIn(t *testing.T) {
	clause, args := NewWhereBuilder().
		AddIn("status", []string{"pending", "confirmed"}).
		Build()

	assert.Equal(t, "status IN (?, ?)", clause)
	assert.Equal(t, []interface{}{"pending", "confirmed"}, args)

	clause, _ = NewWhereBuilder().AddIn("status", nil).Build()
	assert.Equal(t, "1=1", clause)
}

func TestWhereBuilderRange(t *testing.T) {
	min, max := "50.00", "300.00"
	clause, args := NewWhereBuilder().AddRange("price", &min, &max).Build()
	assert.Equal(t, "price >= ? AND price <= ?", clause)
	assert.Equal(t, []interface{}{"50.00", "300.00"}, args)
}

func TestWhereBuilderPrefix(t *testing.T) {
	clause, _ := NewWhereBuilder().AddEquals("trip_id", "t1").BuildWithPrefix()
	assert.Equal(t, "WHERE trip_id = ?", clause)
}
