// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

//go:build nats

package main

import (
	"github.com/tomtom215/custos/internal/config"
	"github.com/tomtom215/custos/internal/events"
	"github.com/tomtom215/custos/internal/logging"
	"github.com/tomtom215/custos/internal/supervisor"
	"github.com/tomtom215/custos/internal/supervisor/services"
)

// InitNATS connects the event mirror (starting an embedded JetStream
// server when configured) and registers it with the pipeline layer of the
// supervisor tree. Returns (nil, nil) when mirroring is disabled. The
// returned mirror must be closed by the caller after the tree has stopped.
func InitNATS(cfg *config.Config, bus *events.Bus, tree *supervisor.Tree) (*events.Mirror, error) {
	mirror, err := events.NewMirror(cfg.NATS, bus)
	if err != nil {
		return nil, err
	}
	if mirror == nil {
		logging.Info().Msg("NATS mirroring disabled (NATS_ENABLED=false)")
		return nil, nil
	}

	tree.AddPipelineService(services.NewMirrorService(mirror))
	logging.Info().Msg("NATS mirror added to supervisor tree")
	return mirror, nil
}
