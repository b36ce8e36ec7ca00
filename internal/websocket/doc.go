// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

/*
Package websocket fans live kiosk events out to dashboard clients.

The hub receives pre-marshaled event envelopes from the in-process event
bus (see internal/events) and forwards each one verbatim to every
connected client, so a browser sees exactly the envelope format the bus
publishes: frame summaries, check-ins and check-outs, greetings, and
device commands. There is no per-transport re-encoding.

Clients are viewers. Inbound data frames are read only to service
control traffic and detect closure; liveness is tracked with
protocol-level ping/pong. Each client runs two goroutines:

  - readPump: drains the connection and unregisters on close
  - writePump: writes envelopes and periodic pings

Backpressure never propagates upstream. Hub.Broadcast drops the envelope
when the hub queue is full, and a client whose send buffer fills is
disconnected rather than allowed to stall the broadcast loop. Both cases
are counted in websocket_errors_total. A detection stream that pauses
because one phone screen is on a bad network would be worse than a
missed frame summary.

The HTTP upgrade lives in internal/api, which checks the Origin header
against the configured allowlist before handing the connection to
NewClient.
*/
package websocket
