// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

package services

import (
	"context"
)

// CameraSource interface matches *vision.Source's Run method.
//
// The interface isolates the camera transport from the supervision
// layer: production wires the MJPEG source, tests wire a synthetic one.
//
// Satisfied by *vision.Source from internal/vision/source.go.
type CameraSource interface {
	// Run streams frames until the context is canceled. Routine stream
	// drops are reconnected inside Run; only a fatal failure returns.
	Run(ctx context.Context) error
}

// CameraService wraps the camera source as a supervised service.
//
// The source already owns reconnection for ordinary stream flap, so a
// return from Run means either shutdown or a failure worth a supervised
// restart with backoff.
//
// Example usage:
//
//	source := vision.NewSource(cfg.Camera, slot)
//	svc := services.NewCameraService(source)
//	tree.AddCaptureService(svc)
type CameraService struct {
	source CameraSource
	name   string
}

// NewCameraService creates a new camera source service wrapper.
func NewCameraService(source CameraSource) *CameraService {
	return &CameraService{
		source: source,
		name:   "camera-source",
	}
}

// Serve implements suture.Service by delegating to the source's Run.
// The method returns ctx.Err() on normal shutdown.
func (c *CameraService) Serve(ctx context.Context) error {
	return c.source.Run(ctx)
}

// String implements fmt.Stringer for logging.
// Suture uses this to identify the service in log messages.
func (c *CameraService) String() string {
	return c.name
}
