// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

/*
Package services provides suture.Service wrappers for Custos components.

Each long-running kiosk loop exposes Run(ctx) and is adapted here to the
suture v4 supervision model. The wrappers are thin on purpose: they name
the service for supervisor logging, depend on a small interface rather
than the concrete component, and translate lifecycle shapes that differ
from suture's Serve pattern.

# Available Services

Camera Source (CameraService):
  - Wraps the MJPEG stream reader
  - Reconnects routine stream drops itself; supervised restart covers
    fatal failures

Device Dispatcher (DispatcherService):
  - Wraps the single consumer of the actuator command queue
  - Queued commands survive a restart

Event Bus (BusService):
  - Wraps the in-process event router feeding the WebSocket hub

Frame Pipeline (PipelineService):
  - Wraps the detect/recognize/aggregate frame loop
  - A restart loses only transient presence counters

WebSocket Hub (HubService):
  - Wraps client registration and broadcast fan-out

HTTP Server (HTTPServerService):
  - Wraps *http.Server, converting ListenAndServe to the Serve pattern
    with a bounded graceful shutdown

NATS Mirror (MirrorService):
  - Wraps the JetStream republisher, constructed only in -tags=nats
    builds

# Error Handling

Return values determine supervisor behavior:

	nil         -> Service completed, restarted per suture policy
	error       -> Service crashed, supervisor restarts with backoff
	ctx.Err()   -> Shutdown requested, normal termination

# Service Identification

All services implement fmt.Stringer. Suture uses the string in its
event log:

	INFO  Supervisor capture-layer: Service camera-source failed
	INFO  Supervisor capture-layer: Restarting service camera-source
*/
package services
