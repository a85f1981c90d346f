// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

// Package query provides SQL query building utilities for the database package.
// It reduces code duplication and provides type-safe query construction.
package query

import (
	"fmt"
	"strings"
	"time"
)

// WhereBuilder constructs SQL WHERE clauses with parameterized arguments.
//
// Example usage:
//
//	wb := query.NewWhereBuilder()
//	wb.AddEquals("center_id", centerID)
//	wb.AddDateRange("departs_at", from, to)
//	wb.AddIn("status", []string{"scheduled"})
//	whereClause, args := wb.Build()
//	// center_id = ? AND departs_at >= ? AND departs_at <= ? AND status IN (?)
type WhereBuilder struct {
	clauses []string
	args    []interface{}
}

// NewWhereBuilder creates a new WhereBuilder instance.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{
		clauses: []string{},
		args:    []interface{}{},
	}
}

// AddClause adds a raw WHERE clause with its arguments.
// Useful for conditions not covered by helper methods.
func (wb *WhereBuilder) AddClause(clause string, args ...interface{}) *WhereBuilder {
	wb.clauses = append(wb.clauses, clause)
	wb.args = append(wb.args, args...)
	return wb
}

// AddEquals adds an equality filter. Skipped when value is nil.
func (wb *WhereBuilder) AddEquals(column string, value interface{}) *WhereBuilder {
	if value == nil {
		return wb
	}
	wb.clauses = append(wb.clauses, fmt.Sprintf("%s = ?", column))
	wb.args = append(wb.args, value)
	return wb
}

// AddDateRange adds start and/or end filters on a timestamp column.
// Nil dates are skipped, allowing open-ended ranges.
func (wb *WhereBuilder) AddDateRange(column string, from, to *time.Time) *WhereBuilder {
	if from != nil {
		wb.clauses = append(wb.clauses, fmt.Sprintf("%s >= ?", column))
		wb.args = append(wb.args, *from)
	}
	if to != nil {
		wb.clauses = append(wb.clauses, fmt.Sprintf("%s <= ?", column))
		wb.args = append(wb.args, *to)
	}
	return wb
}

// AddIn adds an IN filter with proper parameterization.
// Empty slices are skipped.
func (wb *WhereBuilder) AddIn(column string, values []string) *WhereBuilder {
	if len(values) == 0 {
		return wb
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		wb.args = append(wb.args, v)
	}
	wb.clauses = append(wb.clauses, fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", ")))
	return wb
}

// AddRange adds numeric lower and/or upper bounds on a column.
// Nil bounds are skipped. Values are passed as strings so exact decimals
// survive parameterization.
func (wb *WhereBuilder) AddRange(column string, min, max *string) *WhereBuilder {
	if min != nil {
		wb.clauses = append(wb.clauses, fmt.Sprintf("%s >= ?", column))
		wb.args = append(wb.args, *min)
	}
	if max != nil {
		wb.clauses = append(wb.clauses, fmt.Sprintf("%s <= ?", column))
		wb.args = append(wb.args, *max)
	}
	return wb
}

// Build constructs the final WHERE clause and returns it with arguments.
// Clauses are joined with "AND". Returns ("1=1", []) if no clauses were added.
func (wb *WhereBuilder) Build() (string, []interface{}) {
	if len(wb.clauses) == 0 {
		return "1=1", []interface{}{}
	}
	return strings.Join(wb.clauses, " AND "), wb.args
}

// BuildWithPrefix returns the WHERE clause with a "WHERE " prefix.
func (wb *WhereBuilder) BuildWithPrefix() (string, []interface{}) {
	whereClause, args := wb.Build()
	return "WHERE " + whereClause, args
}

// Count returns the number of clauses added to the builder.
func (wb *WhereBuilder) Count() int {
	return len(wb.clauses)
}

// IsEmpty returns true if no clauses have been added.
func (wb *WhereBuilder) IsEmpty() bool {
	return len(wb.clauses) == 0
}
