// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

package attendance

import (
	"testing"
	"time"
)

func TestStabilizerReadyAfterThreeSightings(t *testing.T) {
	s := NewStabilizer(30*time.Second, 5)
	now := mondayAt(8, 0, 0)

	if s.Observe("alice", now) {
		t.Error("first sighting reported ready")
	}
	if s.Observe("alice", now.Add(time.Second)) {
		t.Error("second sighting reported ready")
	}
	if !s.Observe("alice", now.Add(2*time.Second)) {
		t.Error("third sighting not ready")
	}
}

func TestStabilizerTracksPerName(t *testing.T) {
	s := NewStabilizer(30*time.Second, 5)
	now := mondayAt(8, 0, 0)

	s.Observe("alice", now)
	s.Observe("bob", now)
	s.Observe("alice", now)

	if got := s.Tracked(); got != 2 {
		t.Errorf("Tracked() = %d, want 2", got)
	}
	// Bob has two sightings to go, Alice one.
	if s.Observe("bob", now) {
		t.Error("bob ready after two sightings")
	}
	if !s.Observe("alice", now) {
		t.Error("alice not ready after three sightings")
	}
}

func TestStabilizerCooldownFreezesState(t *testing.T) {
	s := NewStabilizer(30*time.Second, 5)
	start := mondayAt(8, 0, 0)

	s.Observe("alice", start)
	s.Observe("alice", start)
	if !s.Observe("alice", start) {
		t.Fatal("not ready after three sightings")
	}

	// Sightings inside the cooldown change nothing.
	for i := 1; i <= 4; i++ {
		if s.Observe("alice", start.Add(time.Duration(i)*time.Second)) {
			t.Fatalf("sighting %d inside cooldown reported ready", i)
		}
	}

	// After the cooldown the count restarts from zero: ready again only
	// on the third fresh sighting. If the in-cooldown sightings had
	// counted, readiness would come sooner.
	later := start.Add(31 * time.Second)
	if s.Observe("alice", later) {
		t.Error("first post-cooldown sighting reported ready")
	}
	if s.Observe("alice", later.Add(time.Second)) {
		t.Error("second post-cooldown sighting reported ready")
	}
	if !s.Observe("alice", later.Add(2*time.Second)) {
		t.Error("third post-cooldown sighting not ready")
	}
}

func TestStabilizerReadyEveryThirdSightingWithoutCooldown(t *testing.T) {
	s := NewStabilizer(0, 5)
	now := mondayAt(8, 0, 0)

	for i := 1; i <= 12; i++ {
		ready := s.Observe("alice", now.Add(time.Duration(i)*time.Second))
		want := i%3 == 0
		if ready != want {
			t.Errorf("sighting %d ready = %v, want %v", i, ready, want)
		}
	}
}

func TestStabilizerDecayDropsAfterGrace(t *testing.T) {
	s := NewStabilizer(30*time.Second, 5)
	s.Observe("alice", mondayAt(8, 0, 0))

	for i := 0; i < 5; i++ {
		s.Decay("alice")
	}
	if got := s.Tracked(); got != 1 {
		t.Fatalf("Tracked() = %d after grace-many misses, want 1", got)
	}

	s.Decay("alice")
	if got := s.Tracked(); got != 0 {
		t.Errorf("Tracked() = %d past grace, want 0", got)
	}
}

func TestStabilizerSightingClearsMisses(t *testing.T) {
	s := NewStabilizer(0, 5)
	now := mondayAt(8, 0, 0)

	s.Observe("alice", now)
	for i := 0; i < 4; i++ {
		s.Decay("alice")
	}
	s.Observe("alice", now.Add(time.Second))

	// The sighting zeroed the miss count, so five more misses stay
	// within grace.
	for i := 0; i < 5; i++ {
		s.Decay("alice")
	}
	if got := s.Tracked(); got != 1 {
		t.Errorf("Tracked() = %d, want 1 after miss count was cleared", got)
	}
}

func TestStabilizerDecayUnknownName(t *testing.T) {
	s := NewStabilizer(0, 5)
	s.Decay("ghost")
	if got := s.Tracked(); got != 0 {
		t.Errorf("Tracked() = %d, want 0", got)
	}
}

func TestStabilizerDecayMissing(t *testing.T) {
	s := NewStabilizer(0, 2)
	now := mondayAt(8, 0, 0)

	s.Observe("alice", now)
	s.Observe("bob", now)

	seen := map[string]struct{}{"alice": {}}
	for i := 0; i < 3; i++ {
		s.DecayMissing(seen)
	}

	if got := s.Tracked(); got != 1 {
		t.Fatalf("Tracked() = %d, want only alice remaining", got)
	}
	// Alice's record was untouched by the sweeps: one sighting down,
	// two to go.
	if s.Observe("alice", now.Add(time.Second)) {
		t.Error("alice ready after two sightings")
	}
	if !s.Observe("alice", now.Add(2*time.Second)) {
		t.Error("alice not ready on third sighting, sweep touched her record")
	}
}

func TestStabilizerReset(t *testing.T) {
	s := NewStabilizer(0, 5)
	now := mondayAt(8, 0, 0)

	s.Observe("alice", now)
	s.Observe("bob", now)
	s.Reset()

	if got := s.Tracked(); got != 0 {
		t.Fatalf("Tracked() = %d after Reset, want 0", got)
	}
	// Cooldown stamps are gone too; the count starts over.
	if s.Observe("alice", now) {
		t.Error("first sighting after Reset reported ready")
	}
}
