// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

/*
Package supervisor provides suture-based process supervision for Custos.

The kiosk is a set of always-on loops: a camera stream reader, an actuator
command dispatcher, a detection frame loop, an event bus, a WebSocket hub,
and an HTTP server. Any of them can fail independently (a camera reboots,
the recognition sidecar hangs, a device stops answering) and the rest must
keep working. The supervisor tree owns that guarantee: each loop runs as a
suture.Service, crashes are logged and the service is restarted with
exponential backoff, and shutdown walks the whole tree.

# Tree Structure

	custos (root)
	├── capture-layer    camera source
	├── device-layer     actuator dispatcher
	├── pipeline-layer   event bus, frame loop, NATS mirror (optional)
	└── api-layer        WebSocket hub, HTTP server

Layers group services by what may take them down together. The capture
layer absorbs camera flapping; the device layer absorbs actuator outages;
a frame loop crash restarts inside the pipeline layer without touching
the API.

# Usage

	slogger := logging.NewSlogLogger()
	tree, err := supervisor.NewTree(slogger, supervisor.DefaultTreeConfig())
	if err != nil {
	    logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddCaptureService(services.NewCameraService(source))
	tree.AddDeviceService(services.NewDispatcherService(dispatcher))
	tree.AddPipelineService(services.NewBusService(bus))
	tree.AddPipelineService(services.NewPipelineService(frameLoop))
	tree.AddAPIService(services.NewHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	errCh := tree.ServeBackground(ctx)

# Failure Handling

Restart decisions follow suture v4 semantics. A service that returns an
error is restarted; when FailureThreshold failures accumulate (decaying
at FailureDecay per second) the supervisor waits FailureBackoff before
the next attempt. A service that returns ctx.Err() during shutdown is
not restarted.

# Logging

Suture reports supervisor events through an slog.Logger via sutureslog.
Custos logs with zerolog, so the logger handed to NewTree comes from
logging.NewSlogLogger(), which backs slog with the global zerolog
instance. Supervisor events land in the same stream as everything else.

# Shutdown

Canceling the context passed to Serve or ServeBackground stops every
service, deepest first, waiting up to ShutdownTimeout per service.
UnstoppedServiceReport names any service that ignored its context, which
is worth a warning line before the process exits.
*/
package supervisor
