// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

// Package events carries the kiosk's runtime happenings over an in-process
// pub/sub bus: per-frame presence summaries, attendance decisions, and an
// audit trail of device commands. Messages are versioned JSON envelopes, so
// WebSocket clients and the optional NATS mirror share one wire format.
package events

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// SchemaVersion is the current envelope schema version. Increment on
// breaking changes to Envelope or any payload type.
const SchemaVersion = 1

// Bus topics. Each stream has its own subscribers; the WebSocket fan-out
// listens to all three.
const (
	TopicDetections = "detections"
	TopicAttendance = "attendance"
	TopicDevice     = "device"
)

// Event types carried in Envelope.Type.
const (
	TypeFrameSummary  = "detection.frame"
	TypeCheckIn       = "attendance.check_in"
	TypeCheckOut      = "attendance.check_out"
	TypeGreeting      = "attendance.greeting"
	TypeCustomer      = "customer.greeting"
	TypeDeviceCommand = "device.command"
)

// Envelope is the wire wrapper around every event payload.
type Envelope struct {
	SchemaVersion int             `json:"schema_version"`
	EventID       string          `json:"event_id"`
	Type          string          `json:"type"`
	At            time.Time       `json:"at"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// FrameSummary is the presence snapshot for one processed frame.
type FrameSummary struct {
	Seq    uint64   `json:"seq"`
	Staff  []string `json:"staff,omitempty"`
	Bodies int      `json:"bodies"`
}

// AttendanceEvent is one attendance decision: a check-in, a check-out, or
// a greeting that granted access without journaling.
type AttendanceEvent struct {
	Kind   string `json:"kind"`
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
}

// DeviceCommandEvent is one dispatched actuator command, for the audit
// trail. Error carries the send failure text when the device call failed.
type DeviceCommandEvent struct {
	Endpoint string `json:"endpoint"`
	Class    string `json:"class"`
	Priority bool   `json:"priority"`
	Error    string `json:"error,omitempty"`
}

// NewMessage wraps payload in a versioned envelope and returns it as a bus
// message. The message UUID doubles as the envelope's event ID.
func NewMessage(eventType string, at time.Time, payload any) (*message.Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}

	env := Envelope{
		SchemaVersion: SchemaVersion,
		EventID:       uuid.New().String(),
		Type:          eventType,
		At:            at.UTC(),
		Payload:       raw,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", eventType, err)
	}

	msg := message.NewMessage(env.EventID, data)
	msg.Metadata.Set("type", eventType)
	return msg, nil
}

// ParseEnvelope decodes and validates an envelope from the wire.
func ParseEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.SchemaVersion == 0 {
		env.SchemaVersion = 1
	}
	if env.SchemaVersion > SchemaVersion {
		return Envelope{}, fmt.Errorf("envelope schema version %d newer than supported %d", env.SchemaVersion, SchemaVersion)
	}
	if env.EventID == "" {
		return Envelope{}, fmt.Errorf("envelope missing event_id")
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("envelope missing type")
	}
	return env, nil
}
