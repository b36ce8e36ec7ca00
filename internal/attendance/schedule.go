// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

// Package attendance implements the kiosk's attendance policy: the
// clock windows, the per-person stability debounce, the persisted
// per-day check-in and check-out sets, and the engine that turns a
// recognized sighting into journal entries and device commands.
package attendance

import (
	"fmt"
	"time"

	"github.com/tomtom215/custos/internal/config"
)

// Punctuality and journal status labels. These are the human-facing
// strings written to the journal and shown on the attendance board.
const (
	StatusOnTime   = "ON TIME"
	StatusLate     = "LATE"
	StatusCheckOut = "CHECK-OUT"
)

const clockLayout = "15:04"

// TimeOfDay is a wall-clock instant within any day, at minute
// resolution, for comparing sighting times against window bounds.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse(clockLayout, s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("parse wall time %q: %w", s, err)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// String returns the "HH:MM" form.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// seconds returns the bound as seconds since midnight.
func (t TimeOfDay) seconds() int {
	return t.Hour*3600 + t.Minute*60
}

// daySeconds returns now's wall clock as seconds since midnight.
// Second resolution keeps boundary behavior exact: a window ending at
// 10:00 includes 10:00:00 and excludes 10:00:01.
func daySeconds(now time.Time) int {
	return now.Hour()*3600 + now.Minute()*60 + now.Second()
}

// Schedule holds the parsed attendance windows. Both windows are
// inclusive at both ends. On Saturdays the check-out window opens
// earlier; the check-in window is the same every day.
type Schedule struct {
	checkInStart   TimeOfDay
	lateCheckInEnd TimeOfDay
	lateThreshold  TimeOfDay

	checkOutStart         TimeOfDay
	saturdayCheckOutStart TimeOfDay
	checkOutEnd           TimeOfDay
}

// NewSchedule parses the configured window bounds. Config validation
// has already vetted the strings; errors here mean the Schedule was
// built from an unvalidated Config.
func NewSchedule(cfg config.AttendanceConfig) (*Schedule, error) {
	s := &Schedule{}
	for _, bound := range []struct {
		value string
		dst   *TimeOfDay
	}{
		{cfg.CheckInStart, &s.checkInStart},
		{cfg.LateCheckInEnd, &s.lateCheckInEnd},
		{cfg.LateThreshold, &s.lateThreshold},
		{cfg.CheckOutStart, &s.checkOutStart},
		{cfg.SaturdayCheckOutStart, &s.saturdayCheckOutStart},
		{cfg.CheckOutEnd, &s.checkOutEnd},
	} {
		t, err := ParseTimeOfDay(bound.value)
		if err != nil {
			return nil, err
		}
		*bound.dst = t
	}
	return s, nil
}

// InCheckInWindow reports whether now falls inside the check-in
// window, late arrivals included.
func (s *Schedule) InCheckInWindow(now time.Time) bool {
	t := daySeconds(now)
	return t >= s.checkInStart.seconds() && t <= s.lateCheckInEnd.seconds()
}

// InCheckOutWindow reports whether now falls inside the check-out
// window for now's weekday.
func (s *Schedule) InCheckOutWindow(now time.Time) bool {
	start := s.checkOutStart
	if now.Weekday() == time.Saturday {
		start = s.saturdayCheckOutStart
	}
	t := daySeconds(now)
	return t >= start.seconds() && t <= s.checkOutEnd.seconds()
}

// Punctuality classifies a check-in time: arrivals at or after the
// late threshold are LATE, earlier ones ON TIME.
func (s *Schedule) Punctuality(now time.Time) string {
	if daySeconds(now) >= s.lateThreshold.seconds() {
		return StatusLate
	}
	return StatusOnTime
}
