// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

// Package main is the entry point for the Custos kiosk binary.
//
// Custos is a self-hosted face-recognition attendance kiosk. It watches an
// MJPEG camera stream, recognizes enrolled staff through an external
// detection and embedding service, decides what each sighting means (a
// greeting, a check-in, a check-out, or nothing), actuates a door relay and
// audio endpoints over HTTP, and records attendance durably before the door
// ever opens.
//
// # Application Architecture
//
// The binary initializes components in the following order:
//
//  1. Configuration: Load settings from environment variables and config files (Koanf v2)
//  2. State store: BadgerDB for day state, zone geometry, and operator sessions
//  3. Journal: embedded DuckDB attendance table, the system of record
//  4. Event bus: Watermill in-process pub/sub feeding the WebSocket hub
//  5. Device dispatcher: paced single-consumer queue for relay and audio endpoints
//  6. Recognizer: detection client and the face gallery
//  7. Attendance engine: schedule policy, day state, sighting stabilizer
//  8. Frame pipeline: camera slot -> detect -> match -> aggregate
//  9. Supervisor tree: suture v4 tree owning every long-running service
//  10. HTTP server: Chi router with the operator API and live WebSocket feed
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest priority wins):
//   - Environment variables (see internal/config for the full mapping)
//   - Config file (config.yaml)
//   - Built-in defaults
//
// # Build Tags
//
// Optional build tags enable additional functionality:
//
//	go build ./cmd/kiosk              # default build
//	go build -tags nats ./cmd/kiosk   # mirror kiosk events into NATS JetStream
//
// # Signal Handling
//
// The kiosk handles graceful shutdown on SIGINT and SIGTERM:
//   - The supervisor tree stops every service
//   - In-flight HTTP requests get 10s to complete
//   - Deferred closes flush the NATS mirror, event bus, journal, and store
//
// # Example Usage
//
// Minimal deployment against a camera, a recognizer, and a device box:
//
//	export CAMERA_URL=http://camera.local/stream.mjpeg
//	export RECOGNIZER_URL=http://127.0.0.1:18081
//	export RECOGNIZER_GALLERY=/var/lib/custos/gallery.json
//	export DEVICE_HOST=192.168.4.20
//	export AUTH_ENABLED=false  # For development
//	./custos
//
// Production with operator auth and image uploads:
//
//	export JWT_SECRET=$(openssl rand -hex 32)
//	export OPERATOR_PASSWORD_HASH='$2a$10$...'
//	export UPLOADER_ENABLED=true
//	export UPLOADER_URL=https://images.example.com/upload
//	export UPLOADER_API_KEY=your-api-key
//	./custos
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/custos/internal/api"
	"github.com/tomtom215/custos/internal/attendance"
	"github.com/tomtom215/custos/internal/auth"
	"github.com/tomtom215/custos/internal/config"
	"github.com/tomtom215/custos/internal/device"
	"github.com/tomtom215/custos/internal/events"
	"github.com/tomtom215/custos/internal/journal"
	"github.com/tomtom215/custos/internal/logging"
	"github.com/tomtom215/custos/internal/pipeline"
	"github.com/tomtom215/custos/internal/recognizer"
	"github.com/tomtom215/custos/internal/recorder"
	"github.com/tomtom215/custos/internal/store"
	"github.com/tomtom215/custos/internal/supervisor"
	"github.com/tomtom215/custos/internal/supervisor/services"
	"github.com/tomtom215/custos/internal/uploader"
	"github.com/tomtom215/custos/internal/vision"
	ws "github.com/tomtom215/custos/internal/websocket"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		// Use default logger for config errors (config not yet available)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize zerolog with configuration
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Msg("Starting Custos with supervisor tree")

	logging.Info().
		Str("camera_url", cfg.Camera.URL).
		Str("recognizer_url", cfg.Recognizer.URL).
		Str("device", cfg.Device.BaseURL()).
		Str("journal_path", cfg.Journal.Path).
		Msg("Configuration loaded")

	// State store holds day state, recognition zone geometry, and
	// operator sessions. Synchronous writes; kiosk hardware loses power.
	st, err := store.Open(cfg.Store)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open state store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing state store")
		}
	}()

	// The journal is the system of record. The engine refuses to open the
	// door until the attendance row has landed here.
	jrnl, err := journal.Open(cfg.Journal)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open attendance journal")
	}
	defer func() {
		if err := jrnl.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing attendance journal")
		}
	}()

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create structured logger for supervisor using our slog adapter
	// This bridges zerolog to slog for sutureslog compatibility
	slogLogger := logging.NewSlogLogger()

	// Create supervisor tree
	tree, err := supervisor.NewTree(slogLogger, supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	// Create WebSocket hub for real-time updates (before the event bus,
	// which broadcasts through it)
	wsHub := ws.NewHub()

	bus, err := events.NewBus(cfg.Events)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create event bus")
	}
	// Must happen before the bus runs; the hub reference is read lock-free.
	bus.AttachBroadcaster(wsHub)
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()

	// Device dispatcher owns the actuator queue. Every dispatch outcome,
	// including relay triggers, lands on the bus for the audit trail and
	// the live feed.
	dispatcher := device.NewDispatcher(cfg.Device)
	dispatcher.OnDispatch = func(cmd device.Command, err error) {
		bus.PublishDeviceCommand(cmd.Endpoint, cmd.Class.String(), cmd.Priority, err)
	}

	recognizerClient := recognizer.NewClient(cfg.Recognizer)

	gallery, err := recognizer.LoadGallery(cfg.Recognizer.GalleryPath)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load face gallery")
	}
	logging.Info().
		Int("identities", gallery.Len()).
		Str("path", cfg.Recognizer.GalleryPath).
		Msg("Face gallery loaded")

	// Image uploader and recorder. The recorder crops the sighting,
	// uploads the thumbnail, and writes the journal row.
	imageHost := uploader.New(cfg.Uploader)
	rec := recorder.New(cfg.Capture, jrnl, imageHost)

	// Attendance policy: schedule windows, per-day state, and the engine
	// that turns stable sightings into check-ins and check-outs.
	sched, err := attendance.NewSchedule(cfg.Attendance)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build attendance schedule")
	}
	days, err := attendance.NewDayStateStore(st, time.Now())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load day state")
	}
	engine := attendance.NewEngine(cfg.Attendance, sched, days, dispatcher, rec)
	engine.OnAttendance = bus.PublishAttendance

	// Frame path: camera source publishes into the latest-frame slot, the
	// pipeline drains it through detection, matching, and aggregation.
	slot := vision.NewSlot()
	source := vision.NewSource(cfg.Camera, slot)

	aggregator, err := pipeline.NewAggregator(cfg.Customer, cfg.ROI, st, engine, dispatcher, bus)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create frame aggregator")
	}
	frameLoop := pipeline.New(cfg.Recognizer, slot, recognizerClient, gallery, aggregator)

	// Operator authentication. Sessions live in the state store; revoking
	// them at startup means tokens never outlive the process that issued
	// them.
	authManager, err := auth.NewManager(cfg.Security, st)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize auth manager")
	}
	if authManager.Enabled() {
		if err := authManager.RevokeAll(); err != nil {
			logging.Fatal().Err(err).Msg("Failed to revoke stale operator sessions")
		}
		logging.Info().Msg("Operator authentication enabled")
	}

	// Per-IP brute force guard in front of the login handler. Five
	// attempts, then one per minute per IP.
	limiter := auth.NewLoginLimiter(5, time.Minute)
	limiter.StartCleanup(10 * time.Minute)
	defer limiter.Stop()

	handler := api.NewHandler(cfg, api.Deps{
		Auth:       authManager,
		Limiter:    limiter,
		Hub:        wsHub,
		Journal:    jrnl,
		Days:       days,
		Aggregator: aggregator,
		Slot:       slot,
		Dispatcher: dispatcher,
		Gallery:    gallery,
	})
	router := api.NewRouter(handler)

	// Initialize NATS event mirroring (optional - requires build with -tags nats)
	mirror, err := InitNATS(cfg, bus, tree)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize NATS mirroring")
	}
	if mirror != nil {
		defer func() {
			if err := mirror.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing NATS mirror")
			}
		}()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.SetupChi(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// === ADD SERVICES TO SUPERVISOR TREE ===

	// Capture layer
	tree.AddCaptureService(services.NewCameraService(source))

	// Device layer
	tree.AddDeviceService(services.NewDispatcherService(dispatcher))

	// Pipeline layer
	tree.AddPipelineService(services.NewBusService(bus))
	tree.AddPipelineService(services.NewPipelineService(frameLoop))
	logging.Info().Msg("Camera, dispatcher, event bus, and frame pipeline added to supervisor tree")

	// API layer
	tree.AddAPIService(services.NewHubService(wsHub))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// === START SUPERVISOR TREE ===

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// Wait for supervisor to finish (either from signal or error)
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Wait for the error channel to close (supervisor finished)
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	// Report any services that failed to stop within timeout
	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Kiosk stopped gracefully")
}
