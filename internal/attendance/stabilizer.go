// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

package attendance

import (
	"sync"
	"time"

	"github.com/tomtom215/custos/internal/logging"
	"github.com/tomtom215/custos/internal/metrics"
)

// requiredStableFrames is how many consecutive sightings confirm a
// person is actually standing at the kiosk rather than walking past.
const requiredStableFrames = 3

// record tracks one person's stability state. frameCount stays in
// [0, requiredStableFrames): it resets to zero the moment it would
// reach the trip point.
type record struct {
	frameCount  int
	lastCapture time.Time
	missed      int
}

// Stabilizer debounces recognitions. A person becomes "ready" after
// requiredStableFrames sightings, at most once per capture cooldown.
// Sightings missing for more than the grace count drop the record, so
// a brief occlusion does not restart the count but a departure does.
type Stabilizer struct {
	mu       sync.Mutex
	cooldown time.Duration
	grace    int
	tracked  map[string]*record
}

// NewStabilizer returns a stabilizer with the given capture cooldown
// and missed-frame grace.
func NewStabilizer(cooldown time.Duration, grace int) *Stabilizer {
	return &Stabilizer{
		cooldown: cooldown,
		grace:    grace,
		tracked:  make(map[string]*record),
	}
}

// Observe registers a sighting of name at now and reports whether the
// person just became ready for capture. The first sighting only
// creates the record. While the capture cooldown from the previous
// ready is running, sightings change no state at all.
func (s *Stabilizer) Observe(name string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.tracked[name]
	if !ok {
		s.tracked[name] = &record{frameCount: 1}
		metrics.PresenceTracked.Set(float64(len(s.tracked)))
		return false
	}

	if !rec.lastCapture.IsZero() && now.Sub(rec.lastCapture) < s.cooldown {
		return false
	}

	rec.frameCount++
	rec.missed = 0
	if rec.frameCount >= requiredStableFrames {
		rec.frameCount = 0
		rec.lastCapture = now
		return true
	}
	return false
}

// Decay registers that name was not seen in the current frame. Past
// the grace count the record is deleted and the next sighting starts
// over.
func (s *Stabilizer) Decay(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decayLocked(name)
}

func (s *Stabilizer) decayLocked(name string) {
	rec, ok := s.tracked[name]
	if !ok {
		return
	}
	rec.missed++
	if rec.missed > s.grace {
		delete(s.tracked, name)
		metrics.PresenceTracked.Set(float64(len(s.tracked)))
		logging.Debug().
			Str("name", name).
			Msg("Stability record dropped after missed frames")
	}
}

// DecayMissing applies Decay to every tracked name absent from seen.
// Call once per processed frame with the names recognized in it.
func (s *Stabilizer) DecayMissing(seen map[string]struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name := range s.tracked {
		if _, ok := seen[name]; !ok {
			s.decayLocked(name)
		}
	}
}

// Reset drops every record.
func (s *Stabilizer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracked = make(map[string]*record)
	metrics.PresenceTracked.Set(0)
}

// Tracked returns the number of people currently tracked.
func (s *Stabilizer) Tracked() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tracked)
}
