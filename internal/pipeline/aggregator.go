// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/custos/internal/attendance"
	"github.com/tomtom215/custos/internal/config"
	"github.com/tomtom215/custos/internal/device"
	"github.com/tomtom215/custos/internal/events"
	"github.com/tomtom215/custos/internal/geometry"
	"github.com/tomtom215/custos/internal/logging"
	"github.com/tomtom215/custos/internal/metrics"
	"github.com/tomtom215/custos/internal/recognizer"
	"github.com/tomtom215/custos/internal/store"
	"github.com/tomtom215/custos/internal/vision"
)

// roiKey is the Badger key the watched region persists under.
const roiKey = "roi:rect"

// Notifier is the slice of the device dispatcher the aggregator uses for
// the customer greeting.
type Notifier interface {
	Send(endpoint string, class device.AudioClass, priority bool)
}

// RecognizedFace is one detected face with its assigned identity. The
// identity is an enrolled name, or the Unknown sentinel when nothing in
// the gallery cleared the similarity threshold.
type RecognizedFace struct {
	Name string
	BBox geometry.BBox
}

// dwellSession tracks one stretch of body presence with no recognized
// staff member in the zone.
type dwellSession struct {
	active   bool
	start    time.Time
	notified bool
}

// Aggregator turns one frame's detections into attendance activity.
//
// A detection counts only if its anchor point, the top-center of its
// bounding box, lies inside the watched region. Recognized staff go to the
// attendance engine; unaccompanied bodies accumulate dwell time toward the
// one-shot customer greeting. A single mutex covers frame processing, the
// dwell session, and region swaps.
type Aggregator struct {
	engine *attendance.Engine
	device Notifier
	st     *store.Store
	bus    *events.Bus

	dwell time.Duration

	mu      sync.Mutex
	roi     geometry.ROI
	session dwellSession
}

// NewAggregator loads the persisted watched region, falling back to the
// configured default on first boot. The bus is optional; a nil bus skips
// event publishing.
func NewAggregator(cfg config.CustomerConfig, def config.ROIConfig, st *store.Store, engine *attendance.Engine, dev Notifier, bus *events.Bus) (*Aggregator, error) {
	roi := geometry.ROI{X: def.X, Y: def.Y, W: def.W, H: def.H}

	var stored geometry.ROI
	err := st.GetJSON(roiKey, &stored)
	switch {
	case err == nil:
		roi = stored
	case errors.Is(err, store.ErrNotFound):
		// First boot, the configured default applies.
	default:
		return nil, fmt.Errorf("load roi: %w", err)
	}

	logging.Info().
		Int("x", roi.X).Int("y", roi.Y).Int("w", roi.W).Int("h", roi.H).
		Msg("Watched region loaded")

	return &Aggregator{
		engine: engine,
		device: dev,
		st:     st,
		bus:    bus,
		dwell:  cfg.Dwell,
		roi:    roi,
	}, nil
}

// Process runs one frame's worth of aggregation: staff sightings to the
// engine, bodies to the dwell timer, absence decay, and the frame summary
// event. The recognized flag reports whether identity assignment ran on
// this frame; decay only advances on such frames, because only they could
// have re-observed a tracked name.
func (a *Aggregator) Process(ctx context.Context, frame *vision.Frame, faces []RecognizedFace, bodies []recognizer.Body, recognized bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	seen := make(map[string]struct{})
	staff := make([]string, 0, len(faces))
	for _, f := range faces {
		if f.Name == recognizer.Unknown || f.Name == recognizer.Customer {
			continue
		}
		if !a.roi.Contains(f.BBox.Anchor()) {
			continue
		}
		if _, dup := seen[f.Name]; dup {
			continue
		}
		seen[f.Name] = struct{}{}
		staff = append(staff, f.Name)

		a.engine.Process(ctx, attendance.Sighting{
			Name:  f.Name,
			Face:  f.BBox,
			Frame: frame.Data,
			At:    frame.Timestamp,
		})
	}

	bodiesInZone := 0
	for _, b := range bodies {
		if a.roi.Contains(b.BBox.Anchor()) {
			bodiesInZone++
		}
	}

	a.updateDwellLocked(len(seen) > 0, bodiesInZone > 0, frame.Timestamp)

	if recognized {
		a.engine.DecayMissing(seen)
	}

	if a.bus != nil {
		a.bus.PublishFrameSummary(events.FrameSummary{
			Seq:    frame.Seq,
			Staff:  staff,
			Bodies: bodiesInZone,
		})
	}
}

// updateDwellLocked advances the customer dwell state machine. A staff
// sighting vouches for everyone in the zone and clears the session; only
// unaccompanied bodies accumulate dwell time. The greeting plays at most
// once per session.
func (a *Aggregator) updateDwellLocked(staffSeen, bodyPresent bool, now time.Time) {
	switch {
	case staffSeen:
		a.session = dwellSession{}
	case bodyPresent:
		if !a.session.active {
			a.session = dwellSession{active: true, start: now}
			metrics.CustomerSessions.Inc()
			logging.Debug().Msg("Customer dwell started")
			return
		}
		if a.session.notified || now.Sub(a.session.start) < a.dwell {
			return
		}
		a.session.notified = true
		metrics.CustomerGreetings.Inc()
		metrics.PresenceConfirmations.WithLabelValues("customer").Inc()
		logging.Info().
			Dur("dwell", now.Sub(a.session.start)).
			Msg("Customer confirmed, playing greeting")
		a.device.Send(device.EndpointCustomer, device.ClassCustomer, false)
		if a.bus != nil {
			a.bus.PublishAttendance("customer", recognizer.Customer, "", now)
		}
	default:
		a.session = dwellSession{}
	}
}

// ROI returns the currently watched region.
func (a *Aggregator) ROI() geometry.ROI {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.roi
}

// SetROI swaps the watched region, persists it, and resets all state the
// old region accumulated: greeting cooldowns, stability records, today's
// checked-in/out sets, and the dwell session. The swap and the reset
// happen under the frame-processing lock, as one unit.
func (a *Aggregator) SetROI(roi geometry.ROI, now time.Time) error {
	if roi.Empty() {
		return fmt.Errorf("roi %+v has no area", roi)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.st.SetJSON(roiKey, roi); err != nil {
		return fmt.Errorf("persist roi: %w", err)
	}
	a.roi = roi
	a.session = dwellSession{}
	if err := a.engine.Reset(now); err != nil {
		return fmt.Errorf("reset attendance state: %w", err)
	}

	logging.Info().
		Int("x", roi.X).Int("y", roi.Y).Int("w", roi.W).Int("h", roi.H).
		Msg("Watched region updated, attendance state reset")
	return nil
}
