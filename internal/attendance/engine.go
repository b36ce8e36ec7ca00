// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

package attendance

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/custos/internal/config"
	"github.com/tomtom215/custos/internal/device"
	"github.com/tomtom215/custos/internal/geometry"
	"github.com/tomtom215/custos/internal/logging"
	"github.com/tomtom215/custos/internal/metrics"
)

// relayGap delays the door relay just long enough for the personalized
// clip to start playing first.
const relayGap = 300 * time.Millisecond

// Actuator is the slice of the device dispatcher the engine uses.
type Actuator interface {
	Send(endpoint string, class device.AudioClass, priority bool)
	TriggerRelay(endpoint string)
}

// Recorder persists one attendance record: snapshot capture, upload,
// and the journal row. A nil error means the record is durably logged;
// only then may the engine mutate the day state or open the door.
type Recorder interface {
	RecordCheckIn(ctx context.Context, name, status string, frame []byte, face geometry.BBox) error
	RecordCheckOut(ctx context.Context, name string, frame []byte, face geometry.BBox) error
}

// Sighting is one recognized staff member inside the detection zone.
type Sighting struct {
	Name  string
	Face  geometry.BBox
	Frame []byte
	At    time.Time
}

// Engine decides what a sighting means: a greeting, a check-in, a
// check-out, or nothing. Per person and day the progression is
// monotonic; nothing ever removes a name from a day's sets.
type Engine struct {
	schedule   *Schedule
	stabilizer *Stabilizer
	days       *DayStateStore
	device     Actuator
	recorder   Recorder

	adminCooldown time.Duration
	customAudio   map[string]struct{}

	// OnAttendance, when set before processing starts, is called after
	// every successful check-in or check-out for event fan-out.
	OnAttendance func(kind, name, status string, at time.Time)

	mu           sync.Mutex
	lastNotified map[string]time.Time
}

// NewEngine wires the attendance policy from configuration.
func NewEngine(cfg config.AttendanceConfig, sched *Schedule, days *DayStateStore, act Actuator, rec Recorder) *Engine {
	custom := make(map[string]struct{}, len(cfg.CustomAudio))
	for _, name := range cfg.CustomAudio {
		custom[name] = struct{}{}
	}
	return &Engine{
		schedule:      sched,
		stabilizer:    NewStabilizer(cfg.CaptureCooldown, cfg.MissedFrameGrace),
		days:          days,
		device:        act,
		recorder:      rec,
		adminCooldown: cfg.AdminCooldown,
		customAudio:   custom,
		lastNotified:  make(map[string]time.Time),
	}
}

// Process runs the attendance decision for one sighting.
//
// Outside both windows the kiosk is a plain door opener: no
// stabilization, no journal, just a rate-limited personalized greeting.
// Inside a window the sighting must first survive the stability
// debounce; then the chime acknowledges the person and the check-in or
// check-out branch runs.
func (e *Engine) Process(ctx context.Context, s Sighting) {
	inCheckIn := e.schedule.InCheckInWindow(s.At)
	inCheckOut := e.schedule.InCheckOutWindow(s.At)

	if !inCheckIn && !inCheckOut {
		e.greetOutsideWindows(s.Name, s.At)
		return
	}

	if !e.stabilizer.Observe(s.Name, s.At) {
		return
	}
	metrics.PresenceConfirmations.WithLabelValues("staff").Inc()
	logging.Debug().Str("name", s.Name).Msg("Presence stabilized")

	e.device.Send(device.EndpointChime, device.ClassChime, false)

	// A misconfigured overlap resolves in favor of check-in.
	if inCheckIn {
		e.checkIn(ctx, s)
		return
	}
	e.checkOut(ctx, s)
}

// greetOutsideWindows grants access outside attendance hours. The
// cooldown stamp is taken before the command goes out, so a person
// lingering at the door hears one greeting, not one per frame.
func (e *Engine) greetOutsideWindows(name string, now time.Time) {
	e.mu.Lock()
	last, seen := e.lastNotified[name]
	if seen && now.Sub(last) < e.adminCooldown {
		e.mu.Unlock()
		return
	}
	e.lastNotified[name] = now
	e.mu.Unlock()

	metrics.AttendanceOutsideWindow.Inc()
	logging.Info().Str("name", name).Msg("Recognized outside attendance windows, access granted")
	e.device.Send(device.GreetingEndpoint(name), device.ClassDefault, true)
}

func (e *Engine) checkIn(ctx context.Context, s Sighting) {
	if e.days.IsCheckedIn(s.Name, s.At) {
		metrics.AttendanceDuplicates.WithLabelValues("check_in").Inc()
		logging.Info().Str("name", s.Name).Msg("Already checked in today, access granted")
		e.device.Send(device.GreetingEndpoint(s.Name), device.ClassDefault, true)
		return
	}

	status := e.schedule.Punctuality(s.At)

	if err := e.recorder.RecordCheckIn(ctx, s.Name, status, s.Frame, s.Face); err != nil {
		metrics.AttendancePersistFailures.WithLabelValues("check_in").Inc()
		logging.Error().Err(err).
			Str("name", s.Name).
			Msg("Check-in record failed, door stays closed")
		return
	}

	if err := e.days.MarkCheckedIn(s.Name, s.At); err != nil {
		logging.Error().Err(err).Str("name", s.Name).Msg("Day state write failed")
	}
	metrics.RecordCheckIn(status)
	logging.Info().
		Str("name", s.Name).
		Str("status", status).
		Msg("Checked in")

	if e.OnAttendance != nil {
		e.OnAttendance("check_in", s.Name, status, s.At)
	}
	e.acknowledge(s.Name, device.ClassClockIn, true)
}

func (e *Engine) checkOut(ctx context.Context, s Sighting) {
	if e.days.IsCheckedOut(s.Name, s.At) {
		metrics.AttendanceDuplicates.WithLabelValues("check_out").Inc()
		logging.Info().Str("name", s.Name).Msg("Already checked out today, access granted")
		e.device.Send(device.GreetingEndpoint(s.Name), device.ClassDefault, true)
		return
	}

	if !e.days.IsCheckedIn(s.Name, s.At) {
		logging.Warn().Str("name", s.Name).Msg("Check-out without a check-in today")
	}

	if err := e.recorder.RecordCheckOut(ctx, s.Name, s.Frame, s.Face); err != nil {
		metrics.AttendancePersistFailures.WithLabelValues("check_out").Inc()
		logging.Error().Err(err).
			Str("name", s.Name).
			Msg("Check-out record failed")
		return
	}

	if err := e.days.MarkCheckedOut(s.Name, s.At); err != nil {
		logging.Error().Err(err).Str("name", s.Name).Msg("Day state write failed")
	}
	metrics.RecordCheckOut()
	logging.Info().Str("name", s.Name).Msg("Checked out")

	if e.OnAttendance != nil {
		e.OnAttendance("check_out", s.Name, StatusCheckOut, s.At)
	}
	e.acknowledge(s.Name, device.ClassClockOut, false)
}

// acknowledge plays the personalized clip if one is configured and,
// for check-ins, opens the door. The relay trails a personalized clip
// by relayGap so the audio is heard before the lock clacks.
func (e *Engine) acknowledge(name string, class device.AudioClass, unlock bool) {
	played := false
	if _, ok := e.customAudio[name]; ok {
		endpoint := device.ClockInEndpoint(name)
		if class == device.ClassClockOut {
			endpoint = device.ClockOutEndpoint(name)
		}
		e.device.Send(endpoint, class, true)
		played = true
	}

	if !unlock {
		return
	}
	relay := device.RelayEndpoint(name)
	if played {
		time.AfterFunc(relayGap, func() { e.device.TriggerRelay(relay) })
		return
	}
	e.device.TriggerRelay(relay)
}

// DecayMissing forwards the per-frame absence sweep to the stabilizer.
func (e *Engine) DecayMissing(seen map[string]struct{}) {
	e.stabilizer.DecayMissing(seen)
}

// Reset clears everything a zone redraw invalidates: the greeting
// cooldowns, the stability records, and today's persisted sets.
func (e *Engine) Reset(now time.Time) error {
	e.mu.Lock()
	e.lastNotified = make(map[string]time.Time)
	e.mu.Unlock()

	e.stabilizer.Reset()
	logging.Info().Msg("Attendance state reset")
	return e.days.Reset(now)
}
