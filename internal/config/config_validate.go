// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

package config

import (
	"fmt"
	"strings"
	"time"
)

// clockLayout is the wall-time format for attendance window bounds.
const clockLayout = "15:04"

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateCamera(); err != nil {
		return err
	}
	if err := c.validateRecognizer(); err != nil {
		return err
	}
	if err := c.validateCapture(); err != nil {
		return err
	}
	if err := c.validateDevice(); err != nil {
		return err
	}
	if err := c.validateAttendance(); err != nil {
		return err
	}
	if err := c.validateStores(); err != nil {
		return err
	}
	if err := c.validateUploader(); err != nil {
		return err
	}
	if err := c.validateNATS(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateCamera() error {
	if c.Camera.URL == "" {
		return fmt.Errorf("CAMERA_URL is required")
	}
	if err := validateHTTPURL(c.Camera.URL, "CAMERA_URL", true); err != nil {
		return err
	}
	if c.Camera.Timeout <= 0 {
		return fmt.Errorf("CAMERA_TIMEOUT must be positive, got %v", c.Camera.Timeout)
	}
	if c.Camera.RetryBackoff < 0 {
		return fmt.Errorf("CAMERA_RETRY_BACKOFF must not be negative, got %v", c.Camera.RetryBackoff)
	}
	return nil
}

func (c *Config) validateRecognizer() error {
	if c.Recognizer.URL == "" {
		return fmt.Errorf("RECOGNIZER_URL is required")
	}
	if err := validateHTTPURL(c.Recognizer.URL, "RECOGNIZER_URL", false); err != nil {
		return err
	}
	if c.Recognizer.GalleryPath == "" {
		return fmt.Errorf("RECOGNIZER_GALLERY is required")
	}
	if c.Recognizer.Similarity <= 0 || c.Recognizer.Similarity > 1 {
		return fmt.Errorf("RECOGNIZER_SIMILARITY must be in (0,1], got %v", c.Recognizer.Similarity)
	}
	if c.Recognizer.MinDetScore < 0 || c.Recognizer.MinDetScore > 1 {
		return fmt.Errorf("RECOGNIZER_MIN_DET_SCORE must be in [0,1], got %v", c.Recognizer.MinDetScore)
	}
	if c.Recognizer.DetectEvery < 1 {
		return fmt.Errorf("RECOGNIZER_DETECT_EVERY must be at least 1, got %d", c.Recognizer.DetectEvery)
	}
	if c.Recognizer.RecognizeEvery < 1 {
		return fmt.Errorf("RECOGNIZER_RECOGNIZE_EVERY must be at least 1, got %d", c.Recognizer.RecognizeEvery)
	}
	return nil
}

func (c *Config) validateCapture() error {
	if c.Capture.PadX < 0 || c.Capture.PadX > 1 {
		return fmt.Errorf("CAPTURE_PAD_X must be in [0,1], got %v", c.Capture.PadX)
	}
	if c.Capture.PadY < 0 || c.Capture.PadY > 1 {
		return fmt.Errorf("CAPTURE_PAD_Y must be in [0,1], got %v", c.Capture.PadY)
	}
	if c.Capture.MaxWidth < 1 {
		return fmt.Errorf("CAPTURE_MAX_WIDTH must be positive, got %d", c.Capture.MaxWidth)
	}
	if c.Capture.JPEGQuality < 1 || c.Capture.JPEGQuality > 100 {
		return fmt.Errorf("CAPTURE_JPEG_QUALITY must be in [1,100], got %d", c.Capture.JPEGQuality)
	}
	return nil
}

func (c *Config) validateDevice() error {
	if c.Device.Host == "" {
		return fmt.Errorf("DEVICE_HOST is required")
	}
	if c.Device.Port < 1 || c.Device.Port > 65535 {
		return fmt.Errorf("DEVICE_PORT must be in [1,65535], got %d", c.Device.Port)
	}
	if c.Device.Timeout <= 0 {
		return fmt.Errorf("DEVICE_TIMEOUT must be positive, got %v", c.Device.Timeout)
	}
	if c.Device.Poll <= 0 {
		return fmt.Errorf("DEVICE_POLL must be positive, got %v", c.Device.Poll)
	}
	for name, d := range map[string]time.Duration{
		"DEVICE_RELAY_DURATION":    c.Device.RelayDuration,
		"DEVICE_CLOCKIN_DURATION":  c.Device.ClockInDuration,
		"DEVICE_CLOCKOUT_DURATION": c.Device.ClockOutDuration,
		"DEVICE_CHIME_DURATION":    c.Device.ChimeDuration,
		"DEVICE_CUSTOMER_DURATION": c.Device.CustomerDuration,
		"DEVICE_DEFAULT_DURATION":  c.Device.DefaultDuration,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative, got %v", name, d)
		}
	}
	return nil
}

func (c *Config) validateAttendance() error {
	clocks := []struct {
		name  string
		value string
	}{
		{"CHECK_IN_START", c.Attendance.CheckInStart},
		{"LATE_CHECK_IN_END", c.Attendance.LateCheckInEnd},
		{"LATE_THRESHOLD", c.Attendance.LateThreshold},
		{"CHECK_OUT_START", c.Attendance.CheckOutStart},
		{"SATURDAY_CHECK_OUT_START", c.Attendance.SaturdayCheckOutStart},
		{"CHECK_OUT_END", c.Attendance.CheckOutEnd},
	}
	parsed := make(map[string]time.Time, len(clocks))
	for _, clock := range clocks {
		t, err := time.Parse(clockLayout, clock.value)
		if err != nil {
			return fmt.Errorf("%s must be a HH:MM wall time, got %q", clock.name, clock.value)
		}
		parsed[clock.name] = t
	}

	if parsed["LATE_CHECK_IN_END"].Before(parsed["CHECK_IN_START"]) {
		return fmt.Errorf("LATE_CHECK_IN_END %s is before CHECK_IN_START %s",
			c.Attendance.LateCheckInEnd, c.Attendance.CheckInStart)
	}
	if parsed["CHECK_OUT_END"].Before(parsed["CHECK_OUT_START"]) {
		return fmt.Errorf("CHECK_OUT_END %s is before CHECK_OUT_START %s",
			c.Attendance.CheckOutEnd, c.Attendance.CheckOutStart)
	}
	if parsed["CHECK_OUT_END"].Before(parsed["SATURDAY_CHECK_OUT_START"]) {
		return fmt.Errorf("CHECK_OUT_END %s is before SATURDAY_CHECK_OUT_START %s",
			c.Attendance.CheckOutEnd, c.Attendance.SaturdayCheckOutStart)
	}

	if c.Attendance.AdminCooldown < 0 {
		return fmt.Errorf("ADMIN_COOLDOWN must not be negative, got %v", c.Attendance.AdminCooldown)
	}
	if c.Attendance.CaptureCooldown < 0 {
		return fmt.Errorf("CAPTURE_COOLDOWN must not be negative, got %v", c.Attendance.CaptureCooldown)
	}
	if c.Attendance.MissedFrameGrace < 1 {
		return fmt.Errorf("MISSED_FRAME_GRACE must be at least 1, got %d", c.Attendance.MissedFrameGrace)
	}
	if c.Customer.Dwell < 0 {
		return fmt.Errorf("CUSTOMER_DWELL must not be negative, got %v", c.Customer.Dwell)
	}
	return nil
}

func (c *Config) validateStores() error {
	if !c.Store.InMemory && c.Store.Dir == "" {
		return fmt.Errorf("STORE_DIR is required unless STORE_IN_MEMORY=true")
	}
	if c.Journal.Path == "" {
		return fmt.Errorf("JOURNAL_PATH is required")
	}
	return nil
}

func (c *Config) validateUploader() error {
	if !c.Uploader.Enabled {
		return nil
	}
	if c.Uploader.URL == "" {
		return fmt.Errorf("UPLOADER_URL is required when UPLOADER_ENABLED=true")
	}
	if err := validateHTTPURL(c.Uploader.URL, "UPLOADER_URL", true); err != nil {
		return err
	}
	if c.Uploader.APIKey == "" {
		return fmt.Errorf("UPLOADER_API_KEY is required when UPLOADER_ENABLED=true")
	}
	if c.Uploader.Timeout <= 0 {
		return fmt.Errorf("UPLOADER_TIMEOUT must be positive, got %v", c.Uploader.Timeout)
	}
	return nil
}

func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}
	if !c.NATS.EmbeddedServer {
		if c.NATS.URL == "" {
			return fmt.Errorf("NATS_URL is required when NATS_ENABLED=true without an embedded server")
		}
		if err := validateNATSURL(c.NATS.URL); err != nil {
			return fmt.Errorf("NATS_URL is invalid: %w", err)
		}
	}
	if c.NATS.Stream == "" {
		return fmt.Errorf("NATS_STREAM is required when NATS_ENABLED=true")
	}
	if c.NATS.SubjectPrefix == "" {
		return fmt.Errorf("NATS_SUBJECT_PREFIX is required when NATS_ENABLED=true")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be in [1,65535], got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %v", c.Server.Timeout)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if !c.Security.AuthEnabled {
		return nil
	}
	if len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes when AUTH_ENABLED=true")
	}
	if c.Security.PasswordHash == "" {
		return fmt.Errorf("OPERATOR_PASSWORD_HASH is required when AUTH_ENABLED=true")
	}
	if !strings.HasPrefix(c.Security.PasswordHash, "$2") {
		return fmt.Errorf("OPERATOR_PASSWORD_HASH must be a bcrypt hash")
	}
	if c.Security.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %v", c.Security.TokenTTL)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, fatal, got %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
