// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

//go:build !nats

package main

import (
	"github.com/tomtom215/custos/internal/config"
	"github.com/tomtom215/custos/internal/events"
	"github.com/tomtom215/custos/internal/logging"
	"github.com/tomtom215/custos/internal/supervisor"
)

// InitNATS is a stub for non-NATS builds. It never constructs a mirror;
// enabling mirroring in configuration only earns a warning, and the kiosk
// runs without it.
func InitNATS(cfg *config.Config, _ *events.Bus, _ *supervisor.Tree) (*events.Mirror, error) {
	if cfg.NATS.Enabled {
		logging.Warn().Msg("NATS_ENABLED=true but NATS support not compiled (build with -tags nats)")
	}
	return nil, nil
}
