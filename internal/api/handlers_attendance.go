// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/custos/internal/models"
)

// requireMethod checks the HTTP method and returns true if it matches, false if error was sent
func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return false
	}
	return true
}

// requireJournal checks journal availability and returns true if available, false if error was sent
func (h *Handler) requireJournal(w http.ResponseWriter) bool {
	if h.journal == nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_ERROR", "Attendance journal not available", nil)
		return false
	}
	return true
}

// AttendanceToday handles requests for the current attendance day
//
// @Summary Get today's attendance
// @Description Returns the in-memory day state (who is checked in and out right now) alongside the journal rows recorded for the current day
// @Tags Attendance
// @Accept json
// @Produce json
// @Success 200 {object} models.APIResponse "Attendance retrieved successfully"
// @Failure 500 {object} models.APIResponse "Journal error"
// @Failure 503 {object} models.APIResponse "Journal not available"
// @Router /attendance/today [get]
func (h *Handler) AttendanceToday(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) || !h.requireJournal(w) {
		return
	}

	now := time.Now()

	rows, err := h.journal.Today(r.Context(), now)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "JOURNAL_ERROR", "Failed to read attendance journal", err)
		return
	}

	data := map[string]interface{}{
		"rows": rows,
	}
	if h.days != nil {
		data["state"] = h.days.Snapshot(now)
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}

// AttendanceDay handles requests for a past attendance day
//
// @Summary Get attendance for a specific day
// @Description Returns the journal rows recorded for the given day
// @Tags Attendance
// @Accept json
// @Produce json
// @Param day path string true "Day in YYYY-MM-DD format"
// @Success 200 {object} models.APIResponse "Attendance retrieved successfully"
// @Failure 400 {object} models.APIResponse "Invalid day format"
// @Failure 500 {object} models.APIResponse "Journal error"
// @Failure 503 {object} models.APIResponse "Journal not available"
// @Router /attendance/{day} [get]
func (h *Handler) AttendanceDay(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) || !h.requireJournal(w) {
		return
	}

	day := chi.URLParam(r, "day")
	if _, err := time.Parse("2006-01-02", day); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Day must be formatted as YYYY-MM-DD", err)
		return
	}

	rows, err := h.journal.RowsForDay(r.Context(), day)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "JOURNAL_ERROR", "Failed to read attendance journal", err)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"day":  day,
			"rows": rows,
		},
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}
