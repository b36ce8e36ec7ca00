// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

package config

import (
	"fmt"
	"time"
)

// Config holds all kiosk configuration loaded from defaults, an optional
// YAML file, and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in values for every optional setting
//  2. Config File: Optional YAML file (config.yaml) for persistent settings
//  3. Environment Variables: Override any setting
//
// Configuration Categories:
//
//  1. Capture & Recognition:
//     - Camera: MJPEG stream transport
//     - Recognizer: inference sidecar, enrolled gallery, frame cadence
//     - Capture: face-crop padding and thumbnail sizing
//
//  2. Actuation:
//     - Device: ESP actuator host and per-class audio durations
//
//  3. Attendance Policy:
//     - Attendance: check-in/check-out windows, punctuality threshold,
//       cooldowns, custom-audio roster
//     - Customer: dwell wait before the generic greeting
//     - ROI: default watched region
//
//  4. Persistence:
//     - Store: Badger directory (day state, ROI, sessions)
//     - Journal: DuckDB attendance journal path
//     - Uploader: image host for face captures
//
//  5. Surface & Observability:
//     - Server: HTTP listener
//     - Security: operator auth, rate limits, CORS
//     - Logging: level and format
//     - Events: in-process bus sizing
//     - NATS: optional JetStream mirroring (requires -tags nats)
//
// Thread Safety:
// Config is immutable after Load() and safe for concurrent reads.
type Config struct {
	Camera     CameraConfig     `koanf:"camera"`
	Recognizer RecognizerConfig `koanf:"recognizer"`
	Capture    CaptureConfig    `koanf:"capture"`
	Device     DeviceConfig     `koanf:"device"`
	Attendance AttendanceConfig `koanf:"attendance"`
	Customer   CustomerConfig   `koanf:"customer"`
	ROI        ROIConfig        `koanf:"roi"`
	Store      StoreConfig      `koanf:"store"`
	Journal    JournalConfig    `koanf:"journal"`
	Uploader   UploaderConfig   `koanf:"uploader"`
	Events     EventsConfig     `koanf:"events"`
	NATS       NATSConfig       `koanf:"nats"`
	Server     ServerConfig     `koanf:"server"`
	Security   SecurityConfig   `koanf:"security"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// CameraConfig holds the camera stream transport settings.
//
// Environment Variables:
//   - CAMERA_URL: MJPEG stream URL (e.g. http://192.168.1.20:8080/video)
//   - CAMERA_TIMEOUT: initial connect timeout (default: 10s)
//   - CAMERA_RETRY_BACKOFF: wait before the supervisor restarts a dead
//     acquisition loop (default: 3s)
type CameraConfig struct {
	URL          string        `koanf:"url"`
	Timeout      time.Duration `koanf:"timeout"`
	RetryBackoff time.Duration `koanf:"retry_backoff"`
}

// RecognizerConfig holds the inference sidecar and gallery settings.
//
// The sidecar receives a JPEG frame and returns face embeddings plus body
// detections; identity assignment against the enrolled gallery happens
// in-process by cosine similarity.
//
// Environment Variables:
//   - RECOGNIZER_URL: sidecar base URL (e.g. http://127.0.0.1:18081)
//   - RECOGNIZER_TIMEOUT: per-request timeout (default: 15s)
//   - RECOGNIZER_GALLERY: path to the enrolled-gallery JSON file
//   - RECOGNIZER_SIMILARITY: minimum cosine similarity for a match (default: 0.32)
//   - RECOGNIZER_MIN_DET_SCORE: minimum face detection score (default: 0.5)
//   - RECOGNIZER_DETECT_EVERY: run body detection every Nth frame (default: 2)
//   - RECOGNIZER_RECOGNIZE_EVERY: run face recognition every Nth detection
//     frame (default: 2)
type RecognizerConfig struct {
	URL            string        `koanf:"url"`
	Timeout        time.Duration `koanf:"timeout"`
	GalleryPath    string        `koanf:"gallery"`
	Similarity     float64       `koanf:"similarity"`
	MinDetScore    float64       `koanf:"min_det_score"`
	DetectEvery    int           `koanf:"detect_every"`
	RecognizeEvery int           `koanf:"recognize_every"`
}

// CaptureConfig controls how face crops are prepared before upload.
// Padding fractions widen the raw detection box so captures keep context
// around the face; crops are downscaled to MaxWidth before JPEG encoding.
type CaptureConfig struct {
	PadX        float64 `koanf:"pad_x"`
	PadY        float64 `koanf:"pad_y"`
	MaxWidth    int     `koanf:"max_width"`
	JPEGQuality int     `koanf:"jpeg_quality"`
}

// DeviceConfig holds the ESP actuator settings and the estimated playback
// duration per audio class. The estimates, not device acknowledgments, pace
// the sequenced command dispatcher.
//
// Environment Variables:
//   - DEVICE_HOST, DEVICE_PORT: actuator address
//   - DEVICE_TIMEOUT: per-request HTTP timeout (default: 5s)
//   - DEVICE_POLL: dispatcher arrival-wait poll interval (default: 500ms)
type DeviceConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
	Poll    time.Duration `koanf:"poll"`

	RelayDuration    time.Duration `koanf:"relay_duration"`
	ClockInDuration  time.Duration `koanf:"clockin_duration"`
	ClockOutDuration time.Duration `koanf:"clockout_duration"`
	ChimeDuration    time.Duration `koanf:"chime_duration"`
	CustomerDuration time.Duration `koanf:"customer_duration"`
	DefaultDuration  time.Duration `koanf:"default_duration"`
}

// AttendanceConfig holds the attendance policy: clock windows as "HH:MM"
// wall times, the punctuality threshold, cooldowns, and the roster of
// people with personalized clock-in audio on the device.
//
// Environment Variables:
//   - CHECK_IN_START, LATE_CHECK_IN_END: check-in window bounds
//   - LATE_THRESHOLD: arrivals at or after this instant are LATE
//   - CHECK_OUT_START, SATURDAY_CHECK_OUT_START, CHECK_OUT_END: check-out
//     window bounds (Saturdays start earlier)
//   - ADMIN_COOLDOWN: minimum gap between greetings for one person outside
//     attendance windows (default: 60s)
//   - CAPTURE_COOLDOWN: minimum gap between stability captures for one
//     person (default: 30s)
//   - MISSED_FRAME_GRACE: frames a tracked person may go unseen before
//     their stability record is dropped (default: 5)
//   - CUSTOM_AUDIO: comma-separated names with personalized device audio
type AttendanceConfig struct {
	CheckInStart          string `koanf:"check_in_start"`
	LateCheckInEnd        string `koanf:"late_check_in_end"`
	LateThreshold         string `koanf:"late_threshold"`
	CheckOutStart         string `koanf:"check_out_start"`
	SaturdayCheckOutStart string `koanf:"saturday_check_out_start"`
	CheckOutEnd           string `koanf:"check_out_end"`

	AdminCooldown    time.Duration `koanf:"admin_cooldown"`
	CaptureCooldown  time.Duration `koanf:"capture_cooldown"`
	MissedFrameGrace int           `koanf:"missed_frame_grace"`

	CustomAudio []string `koanf:"custom_audio"`
}

// CustomerConfig holds the customer-greeting policy.
//
// Environment Variables:
//   - CUSTOMER_DWELL: how long an unrecognized body must stay in the ROI
//     before the generic greeting plays (default: 5s)
type CustomerConfig struct {
	Dwell time.Duration `koanf:"dwell"`
}

// ROIConfig is the default watched region applied when no ROI has been
// persisted yet. Operators adjust it at runtime through the API.
type ROIConfig struct {
	X int `koanf:"x"`
	Y int `koanf:"y"`
	W int `koanf:"w"`
	H int `koanf:"h"`
}

// StoreConfig holds the embedded Badger store settings.
//
// Environment Variables:
//   - STORE_DIR: Badger directory (default: /data/custos/store)
//   - STORE_IN_MEMORY: run Badger without disk persistence (tests only)
type StoreConfig struct {
	Dir      string `koanf:"dir"`
	InMemory bool   `koanf:"in_memory"`
}

// JournalConfig holds the DuckDB attendance journal settings.
//
// Environment Variables:
//   - JOURNAL_PATH: DuckDB database path (default: /data/custos/journal.duckdb)
type JournalConfig struct {
	Path string `koanf:"path"`
}

// UploaderConfig holds the image-host settings for face captures.
// When disabled, journal rows are written without image URLs. When Strict
// is set, an upload failure fails the whole persistence attempt and the
// person is retried on a later stable frame.
//
// Environment Variables:
//   - UPLOADER_ENABLED, UPLOADER_URL, UPLOADER_API_KEY
//   - UPLOADER_TIMEOUT (default: 15s)
//   - UPLOADER_STRICT (default: true)
type UploaderConfig struct {
	Enabled bool          `koanf:"enabled"`
	URL     string        `koanf:"url"`
	APIKey  string        `koanf:"api_key"`
	Timeout time.Duration `koanf:"timeout"`
	Strict  bool          `koanf:"strict"`
}

// EventsConfig sizes the in-process event bus.
type EventsConfig struct {
	BufferSize int `koanf:"buffer_size"`
}

// NATSConfig holds optional NATS JetStream mirroring settings.
// Requires a binary built with -tags nats; otherwise enabling it only
// produces a startup warning.
type NATSConfig struct {
	Enabled        bool   `koanf:"enabled"`
	URL            string `koanf:"url"`
	EmbeddedServer bool   `koanf:"embedded_server"`
	StoreDir       string `koanf:"store_dir"`
	MaxMemory      int64  `koanf:"max_memory"`
	MaxStore       int64  `koanf:"max_store"`
	Stream         string `koanf:"stream"`
	SubjectPrefix  string `koanf:"subject_prefix"`
}

// ServerConfig holds the HTTP listener settings.
//
// Environment Variables:
//   - HTTP_HOST (default: 0.0.0.0), HTTP_PORT (default: 8443)
//   - HTTP_TIMEOUT: read/write timeout (default: 30s)
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// SecurityConfig holds operator authentication and API protection.
// PasswordHash is a bcrypt hash of the operator password; plaintext
// passwords never appear in configuration.
//
// Environment Variables:
//   - AUTH_ENABLED (default: true)
//   - JWT_SECRET: HMAC secret for operator tokens (min 32 bytes)
//   - OPERATOR_PASSWORD_HASH: bcrypt hash of the operator password
//   - TOKEN_TTL (default: 12h)
//   - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW: general API limit
//   - CORS_ORIGINS: comma-separated allowed origins
type SecurityConfig struct {
	AuthEnabled     bool          `koanf:"auth_enabled"`
	JWTSecret       string        `koanf:"jwt_secret"`
	PasswordHash    string        `koanf:"password_hash"`
	TokenTTL        time.Duration `koanf:"token_ttl"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// LoggingConfig holds log output settings.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json or console (default: json)
//   - LOG_CALLER: include caller file:line (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// BaseURL returns the actuator base URL without a trailing slash.
func (c *DeviceConfig) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.Host, c.Port)
}
