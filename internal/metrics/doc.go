// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

/*
Package metrics provides Prometheus metrics collection and export for observability.

This package implements application instrumentation using the Prometheus client
library, exposing metrics for monitoring the recognition pipeline, device
actuation, attendance decisions, and system health.

# Overview

The package provides metrics for:
  - Frame acquisition and pipeline throughput
  - Recognizer sidecar latency and match outcomes
  - Device command queue depth, dispatch, and preemption
  - Attendance check-ins, check-outs, and persistence failures
  - Snapshot upload performance and circuit breaker state
  - Event bus, API, and WebSocket traffic

# Metrics Endpoint

Metrics are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:8443/metrics

# Available Metrics

Frame Pipeline:
  - frames_received_total: Frames read from the camera stream (counter)
  - frames_dropped_total: Frames overwritten before consumption (counter)
  - frames_processed_total: Frames consumed by the pipeline (counter)
  - frame_processing_duration_seconds: Pipeline iteration latency (histogram)
  - camera_reconnects_total: Camera stream reconnect attempts (counter)

Recognizer:
  - recognizer_request_duration_seconds: Sidecar call latency (histogram)
    Labels: operation (detect, embed)
  - recognizer_errors_total: Failed sidecar calls (counter)
    Labels: operation
  - faces_detected_total: Faces detected across all frames (counter)
  - faces_matched_total: Gallery match attempts (counter)
    Labels: result (known, unknown)
  - gallery_identities: Enrolled identities (gauge)

Device:
  - device_commands_enqueued_total / device_commands_dispatched_total (counter)
    Labels: kind (audio, relay)
  - device_commands_cleared_total: Commands discarded by priority clear (counter)
  - device_preemptions_total: Pacing waits cut short (counter)
  - device_queue_depth: Commands waiting for dispatch (gauge)
  - device_request_duration_seconds: Device HTTP latency (histogram)
  - device_request_errors_total: Failed device requests (counter)

Attendance:
  - attendance_check_ins_total: Recorded check-ins (counter)
    Labels: status (LATE, ON_TIME)
  - attendance_check_outs_total: Recorded check-outs (counter)
  - attendance_duplicates_total: Sightings of already-recorded staff (counter)
    Labels: phase (check_in, check_out)
  - attendance_outside_window_total: Sightings outside any window (counter)
  - attendance_persist_failures_total: Records that failed to persist (counter)
    Labels: phase

Journal:
  - journal_query_duration_seconds: DuckDB query latency (histogram)
    Labels: operation (check_in, check_out, today, init)
  - journal_query_errors_total: Failed journal queries (counter)
    Labels: operation, error_type

Uploads and Circuit Breaker:
  - snapshot_uploads_total: Upload attempts (counter)
    Labels: result (success, failure, rejected)
  - snapshot_upload_duration_seconds: Upload latency (histogram)
  - circuit_breaker_state: Current state (gauge)
    Labels: name
    Values: 0=closed, 1=half-open, 2=open
  - circuit_breaker_requests_total / circuit_breaker_state_transitions_total

# Usage

Metrics are package-level variables registered via promauto at init time.
Recording helpers wrap the common patterns:

	metrics.RecordJournalQuery("check_in", elapsed, err)
	metrics.RecordAPIRequest("GET", "/api/v1/status", "200", elapsed)
	metrics.RecordCheckIn("LATE")

# Cardinality

Label values are drawn from small fixed sets (operation names, result
enums). Error-type labels are truncated to 50 characters to bound
cardinality when upstream errors embed addresses or identifiers.
*/
package metrics
