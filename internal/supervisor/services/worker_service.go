// Pelagos - Dive Trip Marketplace and Booking Platform
// Copyright 2026 Pelagos Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pelagos-app/pelagos

package services

import (
	"context"
)

// Runner matches components that block in a Serve loop until their
// context is canceled: the booking sweeper, the change-log janitor,
// and the notification dispatcher.
type Runner interface {
	Serve(ctx context.Context) error
}

// WorkerService names a Runner so the supervisor can log restarts
// meaningfully.
type WorkerService struct {
	runner Runner
	name   string
}

// NewWorkerService wraps a Runner as a supervised service.
func NewWorkerService(name string, runner Runner) *WorkerService {
	return &WorkerService{
		runner: runner,
		name:   name,
	}
}

// Serve implements suture.Service.
func (s *WorkerService) Serve(ctx context.Context) error {
	return s.runner.Serve(ctx)
}

// String identifies the service in supervisor log messages.
func (s *WorkerService) String() string {
	return s.name
}
