// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/custos/internal/models"
)

// Status handles runtime counter requests
//
// @Summary Get runtime counters
// @Description Returns frame acquisition counters, device queue depth, WebSocket client count, and gallery size
// @Tags Core
// @Accept json
// @Produce json
// @Success 200 {object} models.APIResponse{data=models.SystemStatus} "Status retrieved successfully"
// @Router /status [get]
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}

	status := models.SystemStatus{
		Uptime: time.Since(h.startTime).Seconds(),
	}
	if h.slot != nil {
		status.FramesAcquired = h.slot.Frames()
		status.FramesDropped = h.slot.Drops()
	}
	if h.dispatcher != nil {
		status.DeviceQueueDepth = h.dispatcher.QueueDepth()
	}
	if h.wsHub != nil {
		status.WebsocketClients = h.wsHub.ClientCount()
	}
	if h.gallery != nil {
		status.GallerySize = h.gallery.Len()
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   status,
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}
