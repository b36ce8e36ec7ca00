// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

package events

import (
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	at := time.Date(2026, time.August, 24, 8, 0, 0, 0, time.UTC)
	msg, err := NewMessage(TypeCheckIn, at, AttendanceEvent{Kind: "check_in", Name: "Alice", Status: "ON TIME"})
	if err != nil {
		t.Fatalf("new message: %v", err)
	}

	env, err := ParseEnvelope(msg.Payload)
	if err != nil {
		t.Fatalf("parse envelope: %v", err)
	}
	if env.SchemaVersion != SchemaVersion {
		t.Errorf("schema version = %d", env.SchemaVersion)
	}
	if env.Type != TypeCheckIn {
		t.Errorf("type = %q", env.Type)
	}
	if !env.At.Equal(at) {
		t.Errorf("at = %v, want %v", env.At, at)
	}
	if env.EventID != msg.UUID {
		t.Errorf("event ID %q differs from message UUID %q", env.EventID, msg.UUID)
	}
	if got := msg.Metadata.Get("type"); got != TypeCheckIn {
		t.Errorf("metadata type = %q", got)
	}

	var ev AttendanceEvent
	if err := json.Unmarshal(env.Payload, &ev); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if ev.Name != "Alice" || ev.Status != "ON TIME" {
		t.Errorf("payload = %+v", ev)
	}
}

func TestParseEnvelopeRejectsNewerSchema(t *testing.T) {
	data := []byte(`{"schema_version":99,"event_id":"x","type":"attendance.check_in","at":"2026-08-24T08:00:00Z"}`)
	if _, err := ParseEnvelope(data); err == nil {
		t.Fatal("expected error for newer schema version")
	} else if !strings.Contains(err.Error(), "99") {
		t.Errorf("error = %v", err)
	}
}

func TestParseEnvelopeMissingFields(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"no event id", `{"schema_version":1,"type":"detection.frame","at":"2026-08-24T08:00:00Z"}`},
		{"no type", `{"schema_version":1,"event_id":"x","at":"2026-08-24T08:00:00Z"}`},
		{"garbage", `{{{`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseEnvelope([]byte(tc.data)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestParseEnvelopeDefaultsLegacyVersion(t *testing.T) {
	data := []byte(`{"event_id":"x","type":"detection.frame","at":"2026-08-24T08:00:00Z"}`)
	env, err := ParseEnvelope(data)
	if err != nil {
		t.Fatalf("parse envelope: %v", err)
	}
	if env.SchemaVersion != 1 {
		t.Errorf("schema version = %d, want 1", env.SchemaVersion)
	}
}
