// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

package models

// HealthStatus is the payload of GET /api/v1/health.
//
// Status is "healthy" when the journal is reachable, "degraded"
// otherwise. The kiosk keeps running degraded: frames still flow and
// the actuator still fires, but persistence will be retried.
type HealthStatus struct {
	Status            string  `json:"status"`
	Version           string  `json:"version"`
	JournalConnected  bool    `json:"journal_connected"`
	GalleryIdentities int     `json:"gallery_identities"`
	Uptime            float64 `json:"uptime"`
}

// SystemStatus is the payload of GET /api/v1/status: the live counters
// an operator watches to judge whether the kiosk is keeping up.
type SystemStatus struct {
	Uptime           float64 `json:"uptime"`
	FramesAcquired   uint64  `json:"frames_acquired"`
	FramesDropped    uint64  `json:"frames_dropped"`
	DeviceQueueDepth int     `json:"device_queue_depth"`
	WebsocketClients int     `json:"websocket_clients"`
	GallerySize      int     `json:"gallery_size"`
}
