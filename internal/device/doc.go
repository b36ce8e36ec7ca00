// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

// Package device drives the ESP actuator that plays audio feedback and
// opens the door relay.
//
// The actuator exposes one HTTP GET endpoint per action. Two command
// classes exist:
//
//   - Relay commands fire immediately on a detached goroutine. They carry
//     no ordering or pacing guarantees relative to anything else.
//   - Audio commands are sequenced: producers enqueue, a single dispatcher
//     loop sends one command at a time and then waits out the command's
//     estimated playback length, so device audio never overlaps.
//
// The device offers no playback acknowledgment and no abort signal. The
// per-class duration estimate is the only pacing signal, and a priority
// command can only shorten the software wait; audio already sent keeps
// playing on the device.
//
// Priority semantics: a priority enqueue supersedes every audio command
// enqueued before it, whether still queued or mid-pacing. Superseded
// queued commands are discarded at dequeue; a superseded pacing wait is
// cut short so the priority command dispatches next.
//
// Typical wiring:
//
//	d := device.NewDispatcher(cfg.Device)
//	go d.Run(ctx)
//
//	d.Send(device.EndpointChime, device.ClassChime, false)
//	d.Send(device.ClockInEndpoint("alice"), device.ClassClockIn, true)
//	d.TriggerRelay(device.RelayEndpoint("alice"))
package device
