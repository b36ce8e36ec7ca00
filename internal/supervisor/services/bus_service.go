// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

package services

import (
	"context"
)

// EventRouter interface matches *events.Bus's Run method.
//
// Satisfied by *events.Bus from internal/events/bus.go.
type EventRouter interface {
	// Run drives event delivery until the context is canceled.
	Run(ctx context.Context) error
}

// BusService wraps the event bus router as a supervised service.
//
// Events published while the router is between restarts are dropped,
// not queued; the live feed favors freshness over completeness. The
// attendance journal does not depend on the bus.
//
// Example usage:
//
//	bus, _ := events.NewBus(cfg.Events)
//	svc := services.NewBusService(bus)
//	tree.AddPipelineService(svc)
type BusService struct {
	bus  EventRouter
	name string
}

// NewBusService creates a new event bus service wrapper.
func NewBusService(bus EventRouter) *BusService {
	return &BusService{
		bus:  bus,
		name: "event-bus",
	}
}

// Serve implements suture.Service by delegating to the bus's Run.
// The method returns ctx.Err() on normal shutdown.
func (b *BusService) Serve(ctx context.Context) error {
	return b.bus.Run(ctx)
}

// String implements fmt.Stringer for logging.
// Suture uses this to identify the service in log messages.
func (b *BusService) String() string {
	return b.name
}
