// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/custos/config.yaml",
	"/etc/custos/config.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with every optional setting populated.
// Defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Camera: CameraConfig{
			URL:          "",
			Timeout:      10 * time.Second,
			RetryBackoff: 3 * time.Second,
		},
		Recognizer: RecognizerConfig{
			URL:            "",
			Timeout:        15 * time.Second,
			GalleryPath:    "/data/custos/gallery.json",
			Similarity:     0.32,
			MinDetScore:    0.5,
			DetectEvery:    2,
			RecognizeEvery: 2,
		},
		Capture: CaptureConfig{
			PadX:        0.20,
			PadY:        0.30,
			MaxWidth:    320,
			JPEGQuality: 85,
		},
		Device: DeviceConfig{
			Host:    "",
			Port:    80,
			Timeout: 5 * time.Second,
			Poll:    500 * time.Millisecond,

			RelayDuration:    500 * time.Millisecond,
			ClockInDuration:  2500 * time.Millisecond,
			ClockOutDuration: 2500 * time.Millisecond,
			ChimeDuration:    2 * time.Second,
			CustomerDuration: 3 * time.Second,
			DefaultDuration:  3 * time.Second,
		},
		Attendance: AttendanceConfig{
			CheckInStart:          "07:00",
			LateCheckInEnd:        "10:00",
			LateThreshold:         "08:05",
			CheckOutStart:         "17:00",
			SaturdayCheckOutStart: "13:00",
			CheckOutEnd:           "20:00",

			AdminCooldown:    60 * time.Second,
			CaptureCooldown:  30 * time.Second,
			MissedFrameGrace: 5,

			CustomAudio: []string{},
		},
		Customer: CustomerConfig{
			Dwell: 5 * time.Second,
		},
		ROI: ROIConfig{
			X: 0,
			Y: 0,
			W: 1280,
			H: 720,
		},
		Store: StoreConfig{
			Dir:      "/data/custos/store",
			InMemory: false,
		},
		Journal: JournalConfig{
			Path: "/data/custos/journal.duckdb",
		},
		Uploader: UploaderConfig{
			Enabled: false,
			URL:     "https://api.imgbb.com/1/upload",
			APIKey:  "",
			Timeout: 15 * time.Second,
			Strict:  true,
		},
		Events: EventsConfig{
			BufferSize: 256,
		},
		NATS: NATSConfig{
			Enabled:        false,
			URL:            "nats://127.0.0.1:4222",
			EmbeddedServer: true,
			StoreDir:       "/data/custos/nats",
			MaxMemory:      1 << 30,
			MaxStore:       4 << 30,
			Stream:         "CUSTOS",
			SubjectPrefix:  "custos",
		},
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8443,
			Timeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			AuthEnabled:     true,
			JWTSecret:       "",
			PasswordHash:    "",
			TokenTTL:        12 * time.Hour,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in values
//  2. Config File: optional YAML file (if present)
//  3. Environment Variables: highest priority
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: optional config file
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables
	// CAMERA_URL -> camera.url, CHECK_IN_START -> attendance.check_in_start
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Post-process slice fields from comma-separated strings
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the first file found, or empty string if none exists.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths lists config paths parsed as comma-separated slices
// when they arrive as strings from environment variables.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"attendance.custom_audio",
}

// processSliceFields converts comma-separated string values to slices for
// known slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from YAML or defaults)
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config paths.
// Unmapped variables are skipped so unrelated environment noise cannot
// pollute the configuration.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Camera
		"camera_url":           "camera.url",
		"camera_timeout":       "camera.timeout",
		"camera_retry_backoff": "camera.retry_backoff",

		// Recognizer
		"recognizer_url":             "recognizer.url",
		"recognizer_timeout":         "recognizer.timeout",
		"recognizer_gallery":         "recognizer.gallery",
		"recognizer_similarity":      "recognizer.similarity",
		"recognizer_min_det_score":   "recognizer.min_det_score",
		"recognizer_detect_every":    "recognizer.detect_every",
		"recognizer_recognize_every": "recognizer.recognize_every",

		// Capture
		"capture_pad_x":        "capture.pad_x",
		"capture_pad_y":        "capture.pad_y",
		"capture_max_width":    "capture.max_width",
		"capture_jpeg_quality": "capture.jpeg_quality",

		// Device actuator
		"device_host":              "device.host",
		"device_port":              "device.port",
		"device_timeout":           "device.timeout",
		"device_poll":              "device.poll",
		"device_relay_duration":    "device.relay_duration",
		"device_clockin_duration":  "device.clockin_duration",
		"device_clockout_duration": "device.clockout_duration",
		"device_chime_duration":    "device.chime_duration",
		"device_customer_duration": "device.customer_duration",
		"device_default_duration":  "device.default_duration",

		// Attendance policy
		"check_in_start":           "attendance.check_in_start",
		"late_check_in_end":        "attendance.late_check_in_end",
		"late_threshold":           "attendance.late_threshold",
		"check_out_start":          "attendance.check_out_start",
		"saturday_check_out_start": "attendance.saturday_check_out_start",
		"check_out_end":            "attendance.check_out_end",
		"admin_cooldown":           "attendance.admin_cooldown",
		"capture_cooldown":         "attendance.capture_cooldown",
		"missed_frame_grace":       "attendance.missed_frame_grace",
		"custom_audio":             "attendance.custom_audio",

		// Customer greeting
		"customer_dwell": "customer.dwell",

		// Default ROI
		"roi_x": "roi.x",
		"roi_y": "roi.y",
		"roi_w": "roi.w",
		"roi_h": "roi.h",

		// Stores
		"store_dir":       "store.dir",
		"store_in_memory": "store.in_memory",
		"journal_path":    "journal.path",

		// Image uploader
		"uploader_enabled": "uploader.enabled",
		"uploader_url":     "uploader.url",
		"uploader_api_key": "uploader.api_key",
		"uploader_timeout": "uploader.timeout",
		"uploader_strict":  "uploader.strict",

		// Event bus
		"events_buffer_size": "events.buffer_size",

		// NATS mirroring
		"nats_enabled":        "nats.enabled",
		"nats_url":            "nats.url",
		"nats_embedded":       "nats.embedded_server",
		"nats_store_dir":      "nats.store_dir",
		"nats_max_memory":     "nats.max_memory",
		"nats_max_store":      "nats.max_store",
		"nats_stream":         "nats.stream",
		"nats_subject_prefix": "nats.subject_prefix",

		// Server
		"http_host":    "server.host",
		"http_port":    "server.port",
		"http_timeout": "server.timeout",

		// Security
		"auth_enabled":           "security.auth_enabled",
		"jwt_secret":             "security.jwt_secret",
		"operator_password_hash": "security.password_hash",
		"token_ttl":              "security.token_ttl",
		"rate_limit_requests":    "security.rate_limit_reqs",
		"rate_limit_window":      "security.rate_limit_window",
		"cors_origins":           "security.cors_origins",

		// Logging
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// Unmapped keys are skipped
	return ""
}

// WatchConfigFile sets up a file watcher for hot-reload capability.
// The caller is responsible for mutex protection when swapping
// configuration during reloads.
func WatchConfigFile(path string, callback func()) error {
	provider := file.Provider(path)

	return provider.Watch(func(event interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
