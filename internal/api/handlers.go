// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/custos/internal/attendance"
	"github.com/tomtom215/custos/internal/auth"
	"github.com/tomtom215/custos/internal/config"
	"github.com/tomtom215/custos/internal/device"
	"github.com/tomtom215/custos/internal/journal"
	"github.com/tomtom215/custos/internal/logging"
	"github.com/tomtom215/custos/internal/pipeline"
	"github.com/tomtom215/custos/internal/recognizer"
	"github.com/tomtom215/custos/internal/vision"
	ws "github.com/tomtom215/custos/internal/websocket"
)

// Handler contains dependencies for API handlers.
//
// Handler methods are split across multiple files:
//   - handlers.go: Handler struct, constructor, WebSocket upgrader (this file)
//   - helpers.go: shared response helpers
//   - handlers_health.go: health and readiness endpoints (3 methods)
//   - handlers_status.go: runtime counters endpoint
//   - handlers_attendance.go: attendance day state and journal endpoints
//   - handlers_roi.go: recognition zone read/redraw endpoints
//   - handlers_auth.go: login/logout endpoints
//   - handlers_ws.go: WebSocket endpoint
type Handler struct {
	config     *config.Config
	auth       *auth.Manager
	limiter    *auth.LoginLimiter
	wsHub      *ws.Hub
	journal    *journal.Journal
	days       *attendance.DayStateStore
	aggregator *pipeline.Aggregator
	slot       *vision.Slot
	dispatcher *device.Dispatcher
	gallery    *recognizer.Gallery
	startTime  time.Time
}

// Deps bundles the runtime components the handlers read from. Every
// field is optional; handlers that need a missing component respond
// 503 rather than panic, so the API can come up while the pipeline is
// still initializing.
type Deps struct {
	Auth       *auth.Manager
	Limiter    *auth.LoginLimiter
	Hub        *ws.Hub
	Journal    *journal.Journal
	Days       *attendance.DayStateStore
	Aggregator *pipeline.Aggregator
	Slot       *vision.Slot
	Dispatcher *device.Dispatcher
	Gallery    *recognizer.Gallery
}

// NewHandler creates a new API handler.
//
// The handler serves the kiosk's operator surface: health probes,
// runtime counters, the attendance journal, recognition zone redraw,
// and the live WebSocket event feed.
//
// Example:
//
//	handler := api.NewHandler(cfg, api.Deps{Journal: j, Days: days, Hub: hub})
//	router := api.NewRouter(handler)
//	http.ListenAndServe(":8443", router.SetupChi())
func NewHandler(cfg *config.Config, deps Deps) *Handler {
	return &Handler{
		config:     cfg,
		auth:       deps.Auth,
		limiter:    deps.Limiter,
		wsHub:      deps.Hub,
		journal:    deps.Journal,
		days:       deps.Days,
		aggregator: deps.Aggregator,
		slot:       deps.Slot,
		dispatcher: deps.Dispatcher,
		gallery:    deps.Gallery,
		startTime:  time.Now(),
	}
}

// getUpgrader creates a WebSocket upgrader with origin checking and a
// handshake timeout for protection against slow client attacks.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin validates WebSocket connection origins.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")

	// Legitimate browser WebSockets always include Origin. Only
	// non-browser clients (curl, scripts) omit it, and allowing empty
	// Origin bypasses CORS entirely.
	if origin == "" {
		logging.Warn().Msg("WebSocket connection rejected: missing Origin header")
		return false
	}

	// If config is nil, allow by default (fail open for tests/development)
	if h.config == nil {
		return true
	}

	for _, allowedOrigin := range h.config.Security.CORSOrigins {
		if allowedOrigin == "*" || allowedOrigin == origin {
			return true
		}
	}

	// Sanitize origin to prevent log injection
	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}
