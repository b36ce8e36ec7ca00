// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

package services

import (
	"context"
)

// CommandDispatcher interface matches *device.Dispatcher's Run method.
//
// Satisfied by *device.Dispatcher from internal/device/dispatcher.go.
type CommandDispatcher interface {
	// Run consumes queued actuator commands until the context is
	// canceled.
	Run(ctx context.Context) error
}

// DispatcherService wraps the actuator dispatcher as a supervised
// service.
//
// The dispatcher is the single consumer of the device command queue;
// restarting it never replays a command because dequeue happens before
// dispatch. Commands enqueued while the dispatcher is down wait in the
// queue.
//
// Example usage:
//
//	dispatcher := device.NewDispatcher(cfg.Device, queue)
//	svc := services.NewDispatcherService(dispatcher)
//	tree.AddDeviceService(svc)
type DispatcherService struct {
	dispatcher CommandDispatcher
	name       string
}

// NewDispatcherService creates a new dispatcher service wrapper.
func NewDispatcherService(dispatcher CommandDispatcher) *DispatcherService {
	return &DispatcherService{
		dispatcher: dispatcher,
		name:       "device-dispatcher",
	}
}

// Serve implements suture.Service by delegating to the dispatcher's Run.
// The method returns ctx.Err() on normal shutdown.
func (d *DispatcherService) Serve(ctx context.Context) error {
	return d.dispatcher.Run(ctx)
}

// String implements fmt.Stringer for logging.
// Suture uses this to identify the service in log messages.
func (d *DispatcherService) String() string {
	return d.name
}
