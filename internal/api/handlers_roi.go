// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

package api

import (
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/custos/internal/geometry"
	"github.com/tomtom215/custos/internal/logging"
	"github.com/tomtom215/custos/internal/models"
)

// requireAggregator checks pipeline availability and returns true if available, false if error was sent
func (h *Handler) requireAggregator(w http.ResponseWriter) bool {
	if h.aggregator == nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_ERROR", "Detection pipeline not available", nil)
		return false
	}
	return true
}

// GetROI handles recognition zone read requests
//
// @Summary Get the recognition zone
// @Description Returns the rectangle, in frame pixels, within which detections count
// @Tags ROI
// @Accept json
// @Produce json
// @Success 200 {object} models.APIResponse{data=geometry.ROI} "Zone retrieved successfully"
// @Failure 503 {object} models.APIResponse "Pipeline not available"
// @Router /roi [get]
func (h *Handler) GetROI(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) || !h.requireAggregator(w) {
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   h.aggregator.ROI(),
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}

// UpdateROI handles recognition zone redraw requests.
//
// Redrawing the zone clears accumulated presence state, so staff
// already inside must restabilize before the new zone records them.
//
// @Summary Redraw the recognition zone
// @Description Replaces the recognition zone rectangle and resets accumulated presence state. The new zone persists across restarts.
// @Tags ROI
// @Accept json
// @Produce json
// @Param roi body geometry.ROI true "New zone rectangle in frame pixels"
// @Success 200 {object} models.APIResponse{data=geometry.ROI} "Zone updated successfully"
// @Failure 400 {object} models.APIResponse "Invalid zone rectangle"
// @Failure 503 {object} models.APIResponse "Pipeline not available"
// @Router /roi [put]
func (h *Handler) UpdateROI(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPut) || !h.requireAggregator(w) {
		return
	}

	var roi geometry.ROI
	if err := json.NewDecoder(r.Body).Decode(&roi); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON in request body", err)
		return
	}

	if apiErr := validateRequest(&roi); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	if err := h.aggregator.SetROI(roi, time.Now()); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Zone rectangle must have positive area", err)
		return
	}

	logging.Info().
		Int("x", roi.X).
		Int("y", roi.Y).
		Int("w", roi.W).
		Int("h", roi.H).
		Msg("Recognition zone redrawn")

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   roi,
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}
