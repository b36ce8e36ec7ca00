// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

package metrics

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestRecordJournalQuery tests journal query metric recording
func TestRecordJournalQuery(t *testing.T) {
	tests := []struct {
		name      string
		operation string
		duration  time.Duration
		err       error
	}{
		{
			name:      "successful check-in upsert",
			operation: "check_in",
			duration:  10 * time.Millisecond,
			err:       nil,
		},
		{
			name:      "successful today query",
			operation: "today",
			duration:  5 * time.Millisecond,
			err:       nil,
		},
		{
			name:      "failed query with short error",
			operation: "check_out",
			duration:  100 * time.Millisecond,
			err:       errors.New("database locked"),
		},
		{
			name:      "failed query with long error - should truncate to 50 chars",
			operation: "init",
			duration:  50 * time.Millisecond,
			err:       errors.New("this is a very long error message that exceeds fifty characters and should be truncated properly"),
		},
		{
			name:      "fast query under 1ms",
			operation: "today",
			duration:  500 * time.Microsecond,
			err:       nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Record the query - should not panic
			RecordJournalQuery(tt.operation, tt.duration, tt.err)
		})
	}
}

// TestRecordJournalQuery_ErrorTruncation verifies error messages are truncated at 50 chars
func TestRecordJournalQuery_ErrorTruncation(t *testing.T) {
	// Error with exactly 50 characters
	err50 := errors.New(strings.Repeat("a", 50))
	RecordJournalQuery("check_in", time.Millisecond, err50)

	// Error with 51 characters - should truncate
	err51 := errors.New(strings.Repeat("b", 51))
	RecordJournalQuery("check_in", time.Millisecond, err51)

	// Error with 100 characters - should truncate
	err100 := errors.New(strings.Repeat("c", 100))
	RecordJournalQuery("check_in", time.Millisecond, err100)

	// Very short error
	errShort := errors.New("err")
	RecordJournalQuery("check_in", time.Millisecond, errShort)
}

// TestRecordAPIRequest tests API request metric recording
func TestRecordAPIRequest(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		endpoint   string
		statusCode string
		duration   time.Duration
	}{
		{
			name:       "successful GET request",
			method:     "GET",
			endpoint:   "/api/v1/status",
			statusCode: "200",
			duration:   25 * time.Millisecond,
		},
		{
			name:       "successful PUT roi",
			method:     "PUT",
			endpoint:   "/api/v1/roi",
			statusCode: "200",
			duration:   15 * time.Millisecond,
		},
		{
			name:       "rejected login",
			method:     "POST",
			endpoint:   "/api/v1/auth/login",
			statusCode: "401",
			duration:   5 * time.Millisecond,
		},
		{
			name:       "not found",
			method:     "GET",
			endpoint:   "/api/v1/missing",
			statusCode: "404",
			duration:   time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			RecordAPIRequest(tt.method, tt.endpoint, tt.statusCode, tt.duration)
		})
	}
}

// TestTrackActiveRequest tests active request gauge tracking
func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)

	TrackActiveRequest(true)
	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests); got != before+2 {
		t.Errorf("expected gauge %v after two increments, got %v", before+2, got)
	}

	TrackActiveRequest(false)
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != before {
		t.Errorf("expected gauge back to %v, got %v", before, got)
	}
}

// TestRecordRecognizerCall tests recognizer sidecar metric recording
func TestRecordRecognizerCall(t *testing.T) {
	tests := []struct {
		name      string
		operation string
		duration  time.Duration
		err       error
	}{
		{"successful detect", "detect", 40 * time.Millisecond, nil},
		{"successful embed", "embed", 60 * time.Millisecond, nil},
		{"failed detect", "detect", 100 * time.Millisecond, errors.New("connection refused")},
		{"timeout", "embed", 5 * time.Second, errors.New("context deadline exceeded")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			RecordRecognizerCall(tt.operation, tt.duration, tt.err)
		})
	}
}

// TestRecordMatch tests match outcome counters
func TestRecordMatch(t *testing.T) {
	knownBefore := testutil.ToFloat64(FacesMatched.WithLabelValues("known"))
	unknownBefore := testutil.ToFloat64(FacesMatched.WithLabelValues("unknown"))

	RecordMatch(true)
	RecordMatch(true)
	RecordMatch(false)

	if got := testutil.ToFloat64(FacesMatched.WithLabelValues("known")); got != knownBefore+2 {
		t.Errorf("expected known counter %v, got %v", knownBefore+2, got)
	}
	if got := testutil.ToFloat64(FacesMatched.WithLabelValues("unknown")); got != unknownBefore+1 {
		t.Errorf("expected unknown counter %v, got %v", unknownBefore+1, got)
	}
}

// TestRecordDeviceRequest tests device HTTP metric recording
func TestRecordDeviceRequest(t *testing.T) {
	errsBefore := testutil.ToFloat64(DeviceRequestErrors)

	RecordDeviceRequest(20*time.Millisecond, nil)
	RecordDeviceRequest(50*time.Millisecond, errors.New("connection refused"))

	if got := testutil.ToFloat64(DeviceRequestErrors); got != errsBefore+1 {
		t.Errorf("expected error counter %v, got %v", errsBefore+1, got)
	}
}

// TestRecordAttendanceOutcomes tests attendance counters
func TestRecordAttendanceOutcomes(t *testing.T) {
	lateBefore := testutil.ToFloat64(AttendanceCheckIns.WithLabelValues("LATE"))
	onTimeBefore := testutil.ToFloat64(AttendanceCheckIns.WithLabelValues("ON_TIME"))
	outsBefore := testutil.ToFloat64(AttendanceCheckOuts)

	RecordCheckIn("LATE")
	RecordCheckIn("ON_TIME")
	RecordCheckIn("ON_TIME")
	RecordCheckOut()

	if got := testutil.ToFloat64(AttendanceCheckIns.WithLabelValues("LATE")); got != lateBefore+1 {
		t.Errorf("expected LATE counter %v, got %v", lateBefore+1, got)
	}
	if got := testutil.ToFloat64(AttendanceCheckIns.WithLabelValues("ON_TIME")); got != onTimeBefore+2 {
		t.Errorf("expected ON_TIME counter %v, got %v", onTimeBefore+2, got)
	}
	if got := testutil.ToFloat64(AttendanceCheckOuts); got != outsBefore+1 {
		t.Errorf("expected check-out counter %v, got %v", outsBefore+1, got)
	}
}

// TestRecordUpload tests snapshot upload metric recording
func TestRecordUpload(t *testing.T) {
	successBefore := testutil.ToFloat64(UploadsTotal.WithLabelValues("success"))
	failureBefore := testutil.ToFloat64(UploadsTotal.WithLabelValues("failure"))
	rejectedBefore := testutil.ToFloat64(UploadsTotal.WithLabelValues("rejected"))

	RecordUpload(time.Second, nil)
	RecordUpload(2*time.Second, errors.New("service unavailable"))
	RecordUploadRejected()

	if got := testutil.ToFloat64(UploadsTotal.WithLabelValues("success")); got != successBefore+1 {
		t.Errorf("expected success counter %v, got %v", successBefore+1, got)
	}
	if got := testutil.ToFloat64(UploadsTotal.WithLabelValues("failure")); got != failureBefore+1 {
		t.Errorf("expected failure counter %v, got %v", failureBefore+1, got)
	}
	if got := testutil.ToFloat64(UploadsTotal.WithLabelValues("rejected")); got != rejectedBefore+1 {
		t.Errorf("expected rejected counter %v, got %v", rejectedBefore+1, got)
	}
}

// TestRecordCircuitBreakerTransition tests breaker state tracking
func TestRecordCircuitBreakerTransition(t *testing.T) {
	tests := []struct {
		name      string
		from      string
		to        string
		wantState float64
	}{
		{"closed to open", "closed", "open", 2},
		{"open to half-open", "open", "half-open", 1},
		{"half-open to closed", "half-open", "closed", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			RecordCircuitBreakerTransition("uploader", tt.from, tt.to)

			got := testutil.ToFloat64(CircuitBreakerState.WithLabelValues("uploader"))
			if got != tt.wantState {
				t.Errorf("expected state gauge %v after transition to %s, got %v",
					tt.wantState, tt.to, got)
			}
		})
	}
}

// TestConcurrentRecording verifies metric helpers are safe under concurrent use
func TestConcurrentRecording(t *testing.T) {
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				FramesReceived.Inc()
				RecordJournalQuery("check_in", time.Millisecond, nil)
				RecordRecognizerCall("detect", time.Millisecond, nil)
				RecordMatch(j%2 == 0)
				TrackActiveRequest(true)
				TrackActiveRequest(false)
			}
		}()
	}

	wg.Wait()
}

// TestMetricGathering tests that metrics can be gathered using testutil
func TestMetricGathering(t *testing.T) {
	// Record some metrics
	RecordJournalQuery("today", time.Millisecond, nil)
	RecordAPIRequest("GET", "/test", "200", time.Millisecond)

	// Verify we can lint the metrics (checks for consistency issues)
	problems, err := testutil.GatherAndLint(prometheus.DefaultGatherer)
	if err != nil {
		t.Logf("Lint errors (may be expected): %v", err)
	}
	for _, p := range problems {
		t.Logf("Metric lint problem: %s", p.Text)
	}
}

// TestMetricDescriptors verifies every metric exposes at least one descriptor
func TestMetricDescriptors(t *testing.T) {
	metrics := []prometheus.Collector{
		FramesReceived,
		FramesDropped,
		FramesProcessed,
		FrameProcessingDuration,
		CameraReconnects,
		RecognizerRequestDuration,
		RecognizerErrors,
		FacesDetected,
		FacesMatched,
		GalleryIdentities,
		PresenceConfirmations,
		PresenceTracked,
		DeviceCommandsEnqueued,
		DeviceCommandsDispatched,
		DeviceCommandsCleared,
		DevicePreemptions,
		DeviceQueueDepth,
		DeviceRequestDuration,
		DeviceRequestErrors,
		AttendanceCheckIns,
		AttendanceCheckOuts,
		AttendanceDuplicates,
		AttendanceOutsideWindow,
		AttendancePersistFailures,
		CustomerSessions,
		CustomerGreetings,
		JournalQueryDuration,
		JournalQueryErrors,
		UploadsTotal,
		UploadDuration,
		CircuitBreakerState,
		CircuitBreakerRequests,
		CircuitBreakerTransitions,
		EventsPublished,
		EventsDropped,
		NATSMessagesPublished,
		NATSPublishErrors,
		APIRequestsTotal,
		APIRequestDuration,
		APIActiveRequests,
		APIRateLimitHits,
		WSConnections,
		WSMessagesSent,
		WSErrors,
		AppInfo,
		AppUptime,
	}

	// Verify each metric can be described
	for _, m := range metrics {
		ch := make(chan *prometheus.Desc, 10)
		m.Describe(ch)
		close(ch)

		// Should have at least one descriptor
		count := 0
		for range ch {
			count++
		}
		if count == 0 {
			t.Errorf("Metric has no descriptors")
		}
	}
}

// Benchmark tests for metrics performance

func BenchmarkRecordJournalQuery(b *testing.B) {
	for i := 0; i < b.N; i++ {
		RecordJournalQuery("check_in", 10*time.Millisecond, nil)
	}
}

func BenchmarkRecordJournalQueryWithError(b *testing.B) {
	err := errors.New("database locked")
	for i := 0; i < b.N; i++ {
		RecordJournalQuery("check_in", 10*time.Millisecond, err)
	}
}

func BenchmarkRecordAPIRequest(b *testing.B) {
	for i := 0; i < b.N; i++ {
		RecordAPIRequest("GET", "/api/v1/status", "200", 25*time.Millisecond)
	}
}

func BenchmarkTrackActiveRequest(b *testing.B) {
	for i := 0; i < b.N; i++ {
		TrackActiveRequest(true)
		TrackActiveRequest(false)
	}
}
