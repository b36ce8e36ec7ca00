// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

package services

import (
	"context"
)

// BroadcastHub interface matches *websocket.Hub's Run method.
//
// This interface allows the HubService to work with the hub without
// importing the websocket package, avoiding circular dependencies.
//
// Satisfied by *websocket.Hub from internal/websocket/hub.go.
type BroadcastHub interface {
	// Run processes client registration and broadcasts until the
	// context is canceled, then closes all clients.
	Run(ctx context.Context) error
}

// HubService wraps the WebSocket hub as a supervised service.
//
// The hub's Run method already implements the suture.Service pattern,
// so this wrapper simply delegates to it and provides a name for
// logging. Clients dropped by a hub restart reconnect on their own.
type HubService struct {
	hub  BroadcastHub
	name string
}

// NewHubService creates a new WebSocket hub service wrapper.
//
// Example usage:
//
//	hub := websocket.NewHub()
//	svc := services.NewHubService(hub)
//	tree.AddAPIService(svc)
func NewHubService(hub BroadcastHub) *HubService {
	return &HubService{
		hub:  hub,
		name: "websocket-hub",
	}
}

// Serve implements suture.Service by delegating to the hub's Run.
// The method returns ctx.Err() on normal shutdown.
func (h *HubService) Serve(ctx context.Context) error {
	return h.hub.Run(ctx)
}

// String implements fmt.Stringer for logging.
// Suture uses this to identify the service in log messages.
func (h *HubService) String() string {
	return h.name
}
