// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

//go:build !nats

package events

import (
	"context"
	"errors"

	"github.com/tomtom215/custos/internal/config"
)

// ErrNATSNotBuilt is returned when mirroring is enabled in configuration
// but the binary was built without the nats tag.
var ErrNATSNotBuilt = errors.New("NATS mirroring not available: build with -tags=nats")

// Mirror is a stub for non-NATS builds.
type Mirror struct{}

// NewMirror returns (nil, nil) when mirroring is disabled and
// ErrNATSNotBuilt when it is requested from a default build.
func NewMirror(cfg config.NATSConfig, _ *Bus) (*Mirror, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	return nil, ErrNATSNotBuilt
}

// Run is a no-op stub.
func (m *Mirror) Run(_ context.Context) error {
	return ErrNATSNotBuilt
}

// Close is a no-op stub.
func (m *Mirror) Close() error {
	return nil
}
