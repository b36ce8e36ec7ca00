// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

package services

import (
	"context"
)

// EventMirror interface matches *events.Mirror's Run method.
//
// Satisfied by *events.Mirror from internal/events/mirror.go in
// binaries built with -tags=nats. Default builds never construct the
// mirror, so nothing registers this service.
type EventMirror interface {
	// Run republishes bus envelopes to NATS until the context is
	// canceled.
	Run(ctx context.Context) error
}

// MirrorService wraps the NATS mirror as a supervised service.
//
// Mirroring is best effort: a mirror restart drops whatever envelopes
// passed through the bus in the meantime, and JetStream deduplication
// absorbs any the restart would replay.
type MirrorService struct {
	mirror EventMirror
	name   string
}

// NewMirrorService creates a new NATS mirror service wrapper.
func NewMirrorService(mirror EventMirror) *MirrorService {
	return &MirrorService{
		mirror: mirror,
		name:   "nats-mirror",
	}
}

// Serve implements suture.Service by delegating to the mirror's Run.
func (m *MirrorService) Serve(ctx context.Context) error {
	return m.mirror.Run(ctx)
}

// String implements fmt.Stringer for logging.
// Suture uses this to identify the service in log messages.
func (m *MirrorService) String() string {
	return m.name
}
