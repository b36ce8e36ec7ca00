// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

package supervisor

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestTreeIntegration exercises the full four-layer tree the way the
// binary assembles it, with a mock service standing in for each loop.
func TestTreeIntegration(t *testing.T) {
	t.Run("full tree with services in all layers", func(t *testing.T) {
		tree, err := NewTree(testSlogLogger(), TreeConfig{
			FailureThreshold: 5,
			FailureBackoff:   50 * time.Millisecond,
			ShutdownTimeout:  500 * time.Millisecond,
		})
		if err != nil {
			t.Fatalf("failed to create tree: %v", err)
		}

		cameraSvc := NewMockService("camera-source")
		dispatcherSvc := NewMockService("device-dispatcher")
		busSvc := NewMockService("event-bus")
		frameSvc := NewMockService("frame-pipeline")
		hubSvc := NewMockService("websocket-hub")
		httpSvc := NewMockService("http-server")

		tree.AddCaptureService(cameraSvc)
		tree.AddDeviceService(dispatcherSvc)
		tree.AddPipelineService(busSvc)
		tree.AddPipelineService(frameSvc)
		tree.AddAPIService(hubSvc)
		tree.AddAPIService(httpSvc)

		ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
		defer cancel()

		errCh := tree.ServeBackground(ctx)

		services := []*MockService{cameraSvc, dispatcherSvc, busSvc, frameSvc, hubSvc, httpSvc}

		// Poll rather than sleep once; CI schedulers stall under load.
		var allStarted bool
		for i := 0; i < 20 && !allStarted; i++ {
			time.Sleep(10 * time.Millisecond)
			allStarted = true
			for _, svc := range services {
				if svc.StartCount() < 1 {
					allStarted = false
				}
			}
		}

		if !allStarted {
			for _, svc := range services {
				if svc.StartCount() < 1 {
					t.Errorf("%s was not started", svc)
				}
			}
		}

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				t.Errorf("unexpected error: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("tree did not shut down")
		}
	})

	t.Run("camera failures do not disturb other layers", func(t *testing.T) {
		tree, _ := NewTree(testSlogLogger(), TreeConfig{
			FailureThreshold: 10,
			FailureBackoff:   10 * time.Millisecond,
			ShutdownTimeout:  500 * time.Millisecond,
		})

		// A camera that loses its stream three times before holding
		flappingCamera := NewMockService("flapping-camera")
		flappingCamera.SetFailCount(3)

		dispatcherSvc := NewMockService("device-dispatcher")
		httpSvc := NewMockService("http-server")

		tree.AddCaptureService(flappingCamera)
		tree.AddDeviceService(dispatcherSvc)
		tree.AddAPIService(httpSvc)

		ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
		defer cancel()

		errCh := tree.ServeBackground(ctx)

		time.Sleep(150 * time.Millisecond)

		if flappingCamera.StartCount() < 3 {
			t.Errorf("camera should have been restarted at least 3 times, got %d", flappingCamera.StartCount())
		}

		// The other layers started exactly once and stayed up
		if dispatcherSvc.StartCount() != 1 {
			t.Errorf("dispatcher should have started exactly once, got %d", dispatcherSvc.StartCount())
		}
		if httpSvc.StartCount() != 1 {
			t.Errorf("http server should have started exactly once, got %d", httpSvc.StartCount())
		}

		select {
		case <-errCh:
		case <-time.After(2 * time.Second):
			t.Error("tree did not shut down")
		}
	})
}

func TestTreeEdgeCases(t *testing.T) {
	t.Run("empty tree starts and stops gracefully", func(t *testing.T) {
		tree, _ := NewTree(testSlogLogger(), TreeConfig{
			ShutdownTimeout: 500 * time.Millisecond,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		errCh := tree.ServeBackground(ctx)

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.DeadlineExceeded) {
				t.Errorf("unexpected error: %v", err)
			}
		case <-time.After(500 * time.Millisecond):
			t.Error("tree did not shut down")
		}
	})

	t.Run("unstopped service report is empty after clean shutdown", func(t *testing.T) {
		tree, _ := NewTree(testSlogLogger(), TreeConfig{
			ShutdownTimeout: 500 * time.Millisecond,
		})
		tree.AddAPIService(NewMockService("well-behaved"))

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		errCh := tree.ServeBackground(ctx)
		<-errCh

		unstopped, err := tree.UnstoppedServiceReport()
		if err != nil {
			t.Fatalf("UnstoppedServiceReport failed: %v", err)
		}
		if len(unstopped) != 0 {
			t.Errorf("expected no unstopped services, got %d", len(unstopped))
		}
	})
}
