// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus Metrics Integration for Production Observability
// This package provides comprehensive instrumentation for:
// - Frame acquisition and the recognition pipeline
// - Recognizer sidecar latency and match outcomes
// - Device command queue and actuation
// - Attendance decisions and journal persistence
// - Snapshot uploads, event bus, API and WebSocket traffic

var (
	// Frame Pipeline Metrics
	FramesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "frames_received_total",
			Help: "Total number of frames received from the camera stream",
		},
	)

	FramesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "frames_dropped_total",
			Help: "Total number of frames overwritten before the pipeline consumed them",
		},
	)

	FramesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "frames_processed_total",
			Help: "Total number of frames consumed by the recognition pipeline",
		},
	)

	FrameProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "frame_processing_duration_seconds",
			Help:    "Duration of a full pipeline iteration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	CameraReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "camera_reconnects_total",
			Help: "Total number of camera stream reconnect attempts",
		},
	)

	// Recognizer Sidecar Metrics
	RecognizerRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recognizer_request_duration_seconds",
			Help:    "Duration of recognizer sidecar calls in seconds",
			Buckets: prometheus.DefBuckets, // 0.005s, 0.01s, 0.025s, 0.05s, 0.1s, 0.25s, 0.5s, 1s, 2.5s, 5s, 10s
		},
		[]string{"operation"}, // "detect", "embed"
	)

	RecognizerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recognizer_errors_total",
			Help: "Total number of recognizer sidecar call failures",
		},
		[]string{"operation"},
	)

	FacesDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "faces_detected_total",
			Help: "Total number of faces detected across all frames",
		},
	)

	FacesMatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faces_matched_total",
			Help: "Total number of gallery match attempts by outcome",
		},
		[]string{"result"}, // "known", "unknown"
	)

	GalleryIdentities = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gallery_identities",
			Help: "Number of enrolled identities in the face gallery",
		},
	)

	// Presence Metrics
	PresenceConfirmations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "presence_confirmations_total",
			Help: "Total number of identities confirmed present after debounce",
		},
		[]string{"kind"}, // "staff", "customer"
	)

	PresenceTracked = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "presence_tracked_identities",
			Help: "Current number of identities being debounced or in cooldown",
		},
	)

	// Device Command Metrics
	DeviceCommandsEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "device_commands_enqueued_total",
			Help: "Total number of commands accepted into the device queue",
		},
		[]string{"kind"}, // "audio", "relay"
	)

	DeviceCommandsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "device_commands_dispatched_total",
			Help: "Total number of commands sent to the device",
		},
		[]string{"kind"},
	)

	DeviceCommandsCleared = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "device_commands_cleared_total",
			Help: "Total number of queued commands discarded by a priority clear",
		},
	)

	DevicePreemptions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "device_preemptions_total",
			Help: "Total number of pacing waits cut short by a priority clear",
		},
	)

	DeviceQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "device_queue_depth",
			Help: "Current number of commands waiting in the device queue",
		},
	)

	DeviceRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "device_request_duration_seconds",
			Help:    "Duration of HTTP requests to the actuation device in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	DeviceRequestErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "device_request_errors_total",
			Help: "Total number of failed HTTP requests to the actuation device",
		},
	)

	// Attendance Metrics
	AttendanceCheckIns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_check_ins_total",
			Help: "Total number of recorded check-ins by status",
		},
		[]string{"status"}, // "LATE", "ON_TIME"
	)

	AttendanceCheckOuts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "attendance_check_outs_total",
			Help: "Total number of recorded check-outs",
		},
	)

	AttendanceDuplicates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_duplicates_total",
			Help: "Total number of sightings of staff already recorded for the day",
		},
		[]string{"phase"}, // "check_in", "check_out"
	)

	AttendanceOutsideWindow = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "attendance_outside_window_total",
			Help: "Total number of staff sightings outside any attendance window",
		},
	)

	AttendancePersistFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_persist_failures_total",
			Help: "Total number of attendance records that failed to persist",
		},
		[]string{"phase"},
	)

	// Customer Metrics
	CustomerSessions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "customer_sessions_total",
			Help: "Total number of customer dwell sessions started",
		},
	)

	CustomerGreetings = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "customer_greetings_total",
			Help: "Total number of customer greetings played",
		},
	)

	// Journal Metrics (DuckDB)
	JournalQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "journal_query_duration_seconds",
			Help:    "Duration of attendance journal queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // "check_in", "check_out", "today", "init"
	)

	JournalQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "journal_query_errors_total",
			Help: "Total number of attendance journal query errors",
		},
		[]string{"operation", "error_type"},
	)

	// Snapshot Upload Metrics
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapshot_uploads_total",
			Help: "Total number of snapshot upload attempts by result",
		},
		[]string{"result"}, // "success", "failure", "rejected"
	)

	UploadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "snapshot_upload_duration_seconds",
			Help:    "Duration of snapshot uploads in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Event Bus Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Total number of events published to the internal bus",
		},
		[]string{"type"},
	)

	EventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_dropped_total",
			Help: "Total number of events dropped before delivery",
		},
		[]string{"type"},
	)

	// NATS Forwarding Metrics
	NATSMessagesPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nats_messages_published_total",
			Help: "Total number of messages forwarded to NATS",
		},
	)

	NATSPublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nats_publish_errors_total",
			Help: "Total number of failed NATS publishes",
		},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}, // Optimized for API latency
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	AuthLoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_login_attempts_total",
			Help: "Total number of operator login attempts by outcome",
		},
		[]string{"outcome"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordJournalQuery records an attendance journal query metric
func RecordJournalQuery(operation string, duration time.Duration, err error) {
	JournalQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		errorType := err.Error()
		// Truncate long error messages
		if len(errorType) > 50 {
			errorType = errorType[:50]
		}
		JournalQueryErrors.WithLabelValues(operation, errorType).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRecognizerCall records a recognizer sidecar call and its outcome
func RecordRecognizerCall(operation string, duration time.Duration, err error) {
	RecognizerRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		RecognizerErrors.WithLabelValues(operation).Inc()
	}
}

// RecordMatch records a gallery match attempt outcome
func RecordMatch(known bool) {
	if known {
		FacesMatched.WithLabelValues("known").Inc()
	} else {
		FacesMatched.WithLabelValues("unknown").Inc()
	}
}

// RecordDeviceRequest records an HTTP request to the actuation device
func RecordDeviceRequest(duration time.Duration, err error) {
	DeviceRequestDuration.Observe(duration.Seconds())
	if err != nil {
		DeviceRequestErrors.Inc()
	}
}

// RecordCheckIn records a successful check-in with its status label.
// Human-facing statuses carry spaces ("ON TIME"); labels do not.
func RecordCheckIn(status string) {
	AttendanceCheckIns.WithLabelValues(strings.ReplaceAll(status, " ", "_")).Inc()
}

// RecordCheckOut records a successful check-out
func RecordCheckOut() {
	AttendanceCheckOuts.Inc()
}

// RecordUpload records a snapshot upload attempt
func RecordUpload(duration time.Duration, err error) {
	UploadDuration.Observe(duration.Seconds())
	if err != nil {
		UploadsTotal.WithLabelValues("failure").Inc()
	} else {
		UploadsTotal.WithLabelValues("success").Inc()
	}
}

// RecordUploadRejected records an upload short-circuited by the open breaker
func RecordUploadRejected() {
	UploadsTotal.WithLabelValues("rejected").Inc()
}

// RecordEventPublished records an event published to the internal bus
func RecordEventPublished(eventType string) {
	EventsPublished.WithLabelValues(eventType).Inc()
}

// RecordEventDropped records an event dropped before delivery
func RecordEventDropped(eventType string) {
	EventsDropped.WithLabelValues(eventType).Inc()
}

// RecordCircuitBreakerTransition records a breaker state change.
// State encoding matches the gauge help text: 0=closed, 1=half-open, 2=open.
func RecordCircuitBreakerTransition(name, from, to string) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
}

func breakerStateValue(state string) float64 {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}
