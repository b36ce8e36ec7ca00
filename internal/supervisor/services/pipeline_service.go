// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

package services

import (
	"context"
)

// FrameLoop interface matches *pipeline.Pipeline's Run method.
//
// Satisfied by *pipeline.Pipeline from internal/pipeline/pipeline.go.
type FrameLoop interface {
	// Run consumes frames from the capture slot until the context is
	// canceled.
	Run(ctx context.Context) error
}

// PipelineService wraps the detection frame loop as a supervised
// service.
//
// A restart loses only in-flight per-track presence counters; enrolled
// staff restabilize within a few frames. Attendance already recorded in
// the journal is untouched.
//
// Example usage:
//
//	loop := pipeline.New(cfg.Recognizer, slot, client, gallery, agg)
//	svc := services.NewPipelineService(loop)
//	tree.AddPipelineService(svc)
type PipelineService struct {
	loop FrameLoop
	name string
}

// NewPipelineService creates a new frame loop service wrapper.
func NewPipelineService(loop FrameLoop) *PipelineService {
	return &PipelineService{
		loop: loop,
		name: "frame-pipeline",
	}
}

// Serve implements suture.Service by delegating to the loop's Run.
// The method returns ctx.Err() on normal shutdown.
func (p *PipelineService) Serve(ctx context.Context) error {
	return p.loop.Run(ctx)
}

// String implements fmt.Stringer for logging.
// Suture uses this to identify the service in log messages.
func (p *PipelineService) String() string {
	return p.name
}
