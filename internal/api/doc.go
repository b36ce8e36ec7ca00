// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

// Package api is the operator-facing HTTP surface, built on chi.
//
// Routes:
//   - /api/v1/health (+ /live, /ready): probes
//   - /api/v1/auth/login, /api/v1/auth/logout: operator session
//   - /api/v1/status: live pipeline and queue counters
//   - /api/v1/attendance/today, /api/v1/attendance/{day}: journal views
//   - /api/v1/roi: watched-region read and redraw
//   - /api/v1/ws: dashboard WebSocket upgrade
//   - /metrics: Prometheus scrape endpoint
//
// Every response uses the models.APIResponse envelope. A ROI redraw is
// the one write with side effects beyond storage: it resets the
// attendance day, so the pipeline re-evaluates everyone against the new
// region.
package api
