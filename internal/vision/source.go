// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

package vision

import (
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/tomtom215/custos/internal/config"
	"github.com/tomtom215/custos/internal/logging"
	"github.com/tomtom215/custos/internal/metrics"
)

// Source streams MJPEG frames from an IP camera into a Slot.
//
// The camera serves multipart/x-mixed-replace over plain HTTP; each part is
// one JPEG frame. Run keeps the stream open, publishing every frame it reads,
// and reconnects with a fixed backoff when the stream drops. Consumers never
// see the reconnect; they just observe a gap in frames.
type Source struct {
	cfg    config.CameraConfig
	slot   *Slot
	client *http.Client
}

// NewSource creates a camera source that publishes into slot.
func NewSource(cfg config.CameraConfig, slot *Slot) *Source {
	// No overall client timeout: the response body is an endless stream.
	// Dial and header timeouts still bound how long a dead camera can
	// stall a connection attempt.
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: cfg.Timeout,
		}).DialContext,
		ResponseHeaderTimeout: cfg.Timeout,
	}

	return &Source{
		cfg:    cfg,
		slot:   slot,
		client: &http.Client{Transport: transport},
	}
}

// Run connects to the camera and streams frames until ctx is cancelled.
// Stream errors trigger a reconnect after the configured backoff rather
// than terminating the service.
func (s *Source) Run(ctx context.Context) error {
	logger := logging.WithComponent("camera")

	for {
		err := s.stream(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		metrics.CameraReconnects.Inc()
		logger.Warn().
			Err(err).
			Dur("backoff", s.cfg.RetryBackoff).
			Msg("Camera stream lost, reconnecting")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.RetryBackoff):
		}
	}
}

// stream opens the MJPEG stream and publishes frames until it fails.
func (s *Source) stream(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("build camera request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("connect camera: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("camera returned status %d", resp.StatusCode)
	}

	boundary, err := streamBoundary(resp.Header.Get("Content-Type"))
	if err != nil {
		return err
	}

	logging.Info().
		Str("url", s.cfg.URL).
		Str("boundary", boundary).
		Msg("Camera stream connected")

	reader := multipart.NewReader(resp.Body, boundary)
	for {
		part, err := reader.NextPart()
		if err != nil {
			return fmt.Errorf("read stream part: %w", err)
		}

		data, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			return fmt.Errorf("read frame body: %w", err)
		}
		if len(data) == 0 {
			continue
		}

		metrics.FramesReceived.Inc()
		s.slot.Publish(&Frame{
			Data:      data,
			Timestamp: time.Now(),
		})
	}
}

// streamBoundary extracts the multipart boundary from an MJPEG content type.
// Cameras are sloppy here: some quote the boundary, some prefix it with
// "--", some use a bare "boundary=frame" with odd casing.
func streamBoundary(contentType string) (string, error) {
	if contentType == "" {
		return "", fmt.Errorf("camera sent no Content-Type")
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("parse content type %q: %w", contentType, err)
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		return "", fmt.Errorf("camera sent non-multipart content type %q", mediaType)
	}

	boundary := strings.TrimPrefix(params["boundary"], "--")
	if boundary == "" {
		return "", fmt.Errorf("camera content type %q has no boundary", contentType)
	}

	return boundary, nil
}
