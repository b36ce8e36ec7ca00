// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

// Package recorder turns a stable sighting into a durable attendance
// record: it crops the face from the frame, builds a thumbnail, uploads it
// to the image host, and writes the journal row. The journal row is the
// hard requirement; the image URL is best-effort unless the uploader runs
// in strict mode.
package recorder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"time"

	"golang.org/x/image/draw"

	"github.com/tomtom215/custos/internal/attendance"
	"github.com/tomtom215/custos/internal/config"
	"github.com/tomtom215/custos/internal/geometry"
	"github.com/tomtom215/custos/internal/logging"
	"github.com/tomtom215/custos/internal/uploader"
)

// JournalWriter is the subset of the attendance journal the recorder
// writes through.
type JournalWriter interface {
	RecordCheckIn(ctx context.Context, name, status, imageURL string, at time.Time) error
	RecordCheckOut(ctx context.Context, name, status, imageURL string, at time.Time) error
}

// ImageHost uploads a thumbnail and returns its hosted URL.
type ImageHost interface {
	Upload(ctx context.Context, filename string, jpeg []byte) (string, error)
	Strict() bool
}

// Recorder implements the attendance engine's persistence collaborator.
type Recorder struct {
	cfg     config.CaptureConfig
	journal JournalWriter
	host    ImageHost

	now func() time.Time
}

// New creates a Recorder writing through journal and host.
func New(cfg config.CaptureConfig, journal JournalWriter, host ImageHost) *Recorder {
	return &Recorder{
		cfg:     cfg,
		journal: journal,
		host:    host,
		now:     time.Now,
	}
}

// RecordCheckIn persists one check-in: thumbnail, upload, journal row.
func (r *Recorder) RecordCheckIn(ctx context.Context, name, status string, frame []byte, face geometry.BBox) error {
	return r.persist(ctx, name, "CHECK-IN", frame, face, func(url string, at time.Time) error {
		return r.journal.RecordCheckIn(ctx, name, status, url, at)
	})
}

// RecordCheckOut persists one check-out.
func (r *Recorder) RecordCheckOut(ctx context.Context, name string, frame []byte, face geometry.BBox) error {
	return r.persist(ctx, name, "CHECK-OUT", frame, face, func(url string, at time.Time) error {
		return r.journal.RecordCheckOut(ctx, name, attendance.StatusCheckOut, url, at)
	})
}

func (r *Recorder) persist(ctx context.Context, name, kind string, frame []byte, face geometry.BBox, write func(url string, at time.Time) error) error {
	at := r.now()

	thumb, err := r.thumbnail(frame, face)
	if err != nil {
		return fmt.Errorf("capture %s for %s: %w", kind, name, err)
	}

	url, err := r.host.Upload(ctx, uploader.Filename(name, kind, at), thumb)
	if err != nil {
		if r.host.Strict() {
			return fmt.Errorf("upload %s for %s: %w", kind, name, err)
		}
		logging.Warn().
			Err(err).
			Str("name", name).
			Msg("Upload failed, journaling without an image")
		url = ""
	}

	if err := write(url, at); err != nil {
		return err
	}

	logging.Info().
		Str("name", name).
		Str("kind", kind).
		Bool("image", url != "").
		Msg("Attendance record persisted")
	return nil
}

// thumbnail crops the padded face region out of the JPEG frame and
// downscales it to the configured width, aspect preserved.
func (r *Recorder) thumbnail(frame []byte, face geometry.BBox) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	bounds := img.Bounds()

	crop := face.Pad(r.cfg.PadX, r.cfg.PadY).Clamp(bounds.Dx(), bounds.Dy()).Rect()
	if crop.Empty() {
		return nil, errors.New("empty face crop")
	}

	w, h := crop.Dx(), crop.Dy()
	if r.cfg.MaxWidth > 0 && w > r.cfg.MaxWidth {
		h = h * r.cfg.MaxWidth / w
		if h < 1 {
			h = 1
		}
		w = r.cfg.MaxWidth
	}

	// Scale reads the crop rectangle straight out of the source frame,
	// so cropping and downscaling are a single pass.
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, crop, draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: r.cfg.JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
