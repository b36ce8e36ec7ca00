// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

// Package vision acquires frames from the kiosk camera and hands the most
// recent one to the recognition pipeline.
//
// Frames arrive faster than the pipeline can process them, so the package
// keeps a single-slot mailbox instead of a queue: a new frame overwrites an
// unconsumed one, and the consumer always sees the freshest image. Dropped
// frames are counted, never buffered. Latency beats completeness here; an
// attendance decision made on a stale frame greets a person who already
// walked away.
package vision

import "time"

// Frame is one camera image, JPEG-encoded as received from the stream.
//
// Data is shared by reference between the source, the slot, and the
// pipeline. It must not be modified after Publish.
type Frame struct {
	// Data contains the raw JPEG bytes for the frame.
	Data []byte

	// Timestamp is when the frame was read from the stream, not when it
	// was processed.
	Timestamp time.Time

	// Seq is a monotonically increasing sequence number assigned by the
	// slot at publish time. Gaps indicate dropped frames.
	Seq uint64
}
