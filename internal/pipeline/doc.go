// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

// Package pipeline runs the kiosk's per-frame decision loop.
//
// The loop pulls the latest camera frame, calls the inference sidecar at a
// configured cadence, assigns identities to the detected faces, and feeds
// everything inside the watched region to the attendance engine. Bodies
// without a recognized staff member drive the customer dwell timer instead.
//
// The whole loop is single-threaded: detection, aggregation, engine calls,
// and the synchronous persistence inside the engine all run on one
// goroutine, one frame at a time. The watched region can be swapped from
// the API while the loop runs; the swap and the state reset it triggers
// are mutually exclusive with frame processing.
package pipeline
