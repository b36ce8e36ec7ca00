// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

// Package uploader posts face captures to an imgbb-style image host and
// returns the hosted URL for the journal row. The host call is wrapped in a
// circuit breaker: once the host is known dead the pipeline fails fast
// instead of stalling a frame for the full HTTP timeout on every check-in.
package uploader

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/custos/internal/config"
	"github.com/tomtom215/custos/internal/logging"
	"github.com/tomtom215/custos/internal/metrics"
)

const breakerName = "image-host"

// consecutiveTripThreshold opens the breaker. Upload volume is a handful of
// calls around shift boundaries, far too few for ratio-based tripping.
const consecutiveTripThreshold = 3

// Uploader is the image-host client. The zero value is not usable; call New.
type Uploader struct {
	cfg    config.UploaderConfig
	client *http.Client
	cb     *gobreaker.CircuitBreaker[string]
}

// New creates an Uploader from cfg. With uploads disabled it still returns
// a working Uploader whose Upload reports an empty URL, so callers need no
// enabled branch of their own.
func New(cfg config.UploaderConfig) *Uploader {
	if !cfg.Enabled {
		logging.Info().Msg("Image uploads disabled, journal rows will carry no image URL")
		return &Uploader{cfg: cfg}
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= consecutiveTripThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("from", stateToString(from)).
				Str("to", stateToString(to)).
				Msg("Image host circuit breaker state change")
			metrics.RecordCircuitBreakerTransition(name, stateToString(from), stateToString(to))
		},
	})

	return &Uploader{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		cb:     cb,
	}
}

// Enabled reports whether uploads are configured at all.
func (u *Uploader) Enabled() bool {
	return u.cfg.Enabled
}

// Strict reports whether an upload failure must fail the whole persistence
// attempt. Non-strict deployments journal without an image URL instead.
func (u *Uploader) Strict() bool {
	return u.cfg.Strict
}

// Upload posts the JPEG to the image host and returns the hosted URL.
// Disabled uploads return ("", nil). A rejected call while the breaker is
// open returns an error without touching the network.
func (u *Uploader) Upload(ctx context.Context, filename string, jpeg []byte) (string, error) {
	if !u.cfg.Enabled {
		return "", nil
	}

	start := time.Now()
	hosted, err := u.cb.Execute(func() (string, error) {
		return u.post(ctx, filename, jpeg)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.RecordUploadRejected()
			logging.Warn().Str("filename", filename).Msg("Upload rejected, image host circuit open")
			return "", fmt.Errorf("upload %s: %w", filename, err)
		}
		metrics.RecordUpload(time.Since(start), err)
		logging.Error().Err(err).Str("filename", filename).Msg("Image upload failed")
		return "", fmt.Errorf("upload %s: %w", filename, err)
	}

	metrics.RecordUpload(time.Since(start), nil)
	logging.Debug().
		Str("filename", filename).
		Str("url", hosted).
		Msg("Image uploaded")
	return hosted, nil
}

// hostResponse is the imgbb-style upload response envelope.
type hostResponse struct {
	Success bool `json:"success"`
	Data    struct {
		URL string `json:"url"`
	} `json:"data"`
}

// post performs one form-encoded upload: key, base64 image, and a display
// name, answered with a JSON envelope carrying the hosted URL.
func (u *Uploader) post(ctx context.Context, filename string, jpeg []byte) (string, error) {
	form := url.Values{}
	form.Set("key", u.cfg.APIKey)
	form.Set("image", base64.StdEncoding.EncodeToString(jpeg))
	form.Set("name", filename)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.cfg.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("post image: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image host returned status %d", resp.StatusCode)
	}

	var parsed hostResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if !parsed.Success || parsed.Data.URL == "" {
		return "", errors.New("image host reported failure")
	}
	return parsed.Data.URL, nil
}

// Filename builds the capture filename the journal and host display,
// one per person, direction, and second.
func Filename(name, kind string, at time.Time) string {
	clean := strings.NewReplacer(":", "_", " ", "_").Replace(name)
	return fmt.Sprintf("%s_%s_%s.jpg", clean, kind, at.Format("2006-01-02_15-04-05"))
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
