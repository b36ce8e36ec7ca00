// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

package pipeline

import (
	"context"
	"time"

	"github.com/tomtom215/custos/internal/config"
	"github.com/tomtom215/custos/internal/logging"
	"github.com/tomtom215/custos/internal/metrics"
	"github.com/tomtom215/custos/internal/recognizer"
	"github.com/tomtom215/custos/internal/vision"
)

// Detector is the sidecar slice the frame loop needs: one JPEG frame in,
// faces and bodies out.
type Detector interface {
	Detect(ctx context.Context, frame []byte) (*recognizer.Detections, error)
}

// Matcher assigns an identity to a face embedding.
type Matcher interface {
	Match(embedding []float32, threshold float64) recognizer.MatchResult
}

// Pipeline is the kiosk's frame loop. Every counter and cadence decision
// lives on the single Run goroutine; nothing here needs a lock.
type Pipeline struct {
	slot     *vision.Slot
	detector Detector
	matcher  Matcher
	agg      *Aggregator

	similarity     float64
	detectEvery    uint64
	recognizeEvery uint64

	frames     uint64
	detections uint64
}

// New wires the frame loop from configuration. Cadence values below 1
// mean every frame.
func New(cfg config.RecognizerConfig, slot *vision.Slot, det Detector, m Matcher, agg *Aggregator) *Pipeline {
	detectEvery := uint64(cfg.DetectEvery)
	if detectEvery < 1 {
		detectEvery = 1
	}
	recognizeEvery := uint64(cfg.RecognizeEvery)
	if recognizeEvery < 1 {
		recognizeEvery = 1
	}

	return &Pipeline{
		slot:           slot,
		detector:       det,
		matcher:        m,
		agg:            agg,
		similarity:     cfg.Similarity,
		detectEvery:    detectEvery,
		recognizeEvery: recognizeEvery,
	}
}

// Run consumes frames until the context ends or the slot closes, then
// returns the cause. The supervisor restarts the loop on anything but a
// clean shutdown.
func (p *Pipeline) Run(ctx context.Context) error {
	logging.Info().
		Str("component", "pipeline").
		Uint64("detect_every", p.detectEvery).
		Uint64("recognize_every", p.recognizeEvery).
		Float64("similarity", p.similarity).
		Msg("Pipeline started")

	for {
		frame, err := p.slot.Next(ctx)
		if err != nil {
			logging.Info().Str("component", "pipeline").Msg("Pipeline stopped")
			return err
		}
		p.step(ctx, frame)
	}
}

// step processes one frame at the configured cadence: detection on every
// detectEvery-th frame, identity assignment on every recognizeEvery-th
// detection frame. A sidecar failure skips the frame and the loop moves
// on to the next one.
func (p *Pipeline) step(ctx context.Context, frame *vision.Frame) {
	n := p.frames
	p.frames++
	if n%p.detectEvery != 0 {
		return
	}

	start := time.Now()
	det, err := p.detector.Detect(ctx, frame.Data)
	if err != nil {
		logging.Warn().Err(err).Uint64("seq", frame.Seq).Msg("Detection failed, frame skipped")
		return
	}

	d := p.detections
	p.detections++
	recognize := d%p.recognizeEvery == 0

	var faces []RecognizedFace
	if recognize {
		faces = p.assign(det.Faces)
	}

	p.agg.Process(ctx, frame, faces, det.Bodies, recognize)

	metrics.FramesProcessed.Inc()
	metrics.FrameProcessingDuration.Observe(time.Since(start).Seconds())
}

// assign matches each detected face against the enrolled gallery.
func (p *Pipeline) assign(faces []recognizer.Face) []RecognizedFace {
	out := make([]RecognizedFace, 0, len(faces))
	for _, f := range faces {
		m := p.matcher.Match(f.Embedding, p.similarity)
		out = append(out, RecognizedFace{Name: m.Name, BBox: f.BBox})
	}
	return out
}
