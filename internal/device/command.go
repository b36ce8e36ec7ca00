// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

package device

import (
	"strings"
	"time"

	"github.com/tomtom215/custos/internal/config"
)

// AudioClass tags a command with the kind of clip the endpoint plays.
// The class, assigned at enqueue time, selects the estimated playback
// duration used to pace the dispatcher. Endpoint names are opaque to the
// queue; they are never parsed to guess a duration.
type AudioClass uint8

const (
	// ClassDefault covers personalized greetings and any clip without a
	// more specific class.
	ClassDefault AudioClass = iota

	// ClassChime is the generic attendance acknowledgment clip.
	ClassChime

	// ClassClockIn is a personalized check-in clip.
	ClassClockIn

	// ClassClockOut is a personalized check-out clip.
	ClassClockOut

	// ClassCustomer is the customer greeting clip.
	ClassCustomer

	// ClassRelay marks relay actuation. Relay commands never enter the
	// sequenced queue.
	ClassRelay
)

// String returns the class name for logs and metrics.
func (c AudioClass) String() string {
	switch c {
	case ClassChime:
		return "chime"
	case ClassClockIn:
		return "clockin"
	case ClassClockOut:
		return "clockout"
	case ClassCustomer:
		return "customer"
	case ClassRelay:
		return "relay"
	default:
		return "default"
	}
}

// EstimatedDuration returns the configured playback estimate for the
// class. The estimate, not a device acknowledgment, paces the dispatcher.
func (c AudioClass) EstimatedDuration(cfg config.DeviceConfig) time.Duration {
	switch c {
	case ClassRelay:
		return cfg.RelayDuration
	case ClassChime:
		return cfg.ChimeDuration
	case ClassClockIn:
		return cfg.ClockInDuration
	case ClassClockOut:
		return cfg.ClockOutDuration
	case ClassCustomer:
		return cfg.CustomerDuration
	default:
		return cfg.DefaultDuration
	}
}

// Command is one outbound actuator request. Commands are immutable after
// enqueue; the queue owns them from enqueue until dispatch.
type Command struct {
	// Endpoint is the actuator path, without a leading slash.
	Endpoint string

	// Class selects the pacing duration and the dispatch route.
	Class AudioClass

	// Priority records whether this command cleared the queue on enqueue.
	Priority bool

	// Duration is the pacing estimate resolved from Class at enqueue time.
	Duration time.Duration

	// preempt is closed when a later priority enqueue supersedes this
	// command. Checked at dequeue and during the pacing wait.
	preempt <-chan struct{}
}

// Actuator endpoints with fixed names.
const (
	// EndpointChime acknowledges a stabilized detection during
	// attendance windows.
	EndpointChime = "attendance"

	// EndpointCustomer greets a confirmed customer.
	EndpointCustomer = "customer"
)

// GreetingEndpoint returns the personalized greeting endpoint for a
// staff member: the bare lowercased name.
func GreetingEndpoint(name string) string {
	return strings.ToLower(name)
}

// ClockInEndpoint returns the personalized check-in audio endpoint.
func ClockInEndpoint(name string) string {
	return strings.ToLower(name) + "_clockin"
}

// ClockOutEndpoint returns the personalized check-out audio endpoint.
func ClockOutEndpoint(name string) string {
	return strings.ToLower(name) + "_clockout"
}

// RelayEndpoint returns the relay-only endpoint for a staff member. The
// actuator maps it to the door relay without replaying the greeting.
func RelayEndpoint(name string) string {
	return strings.ToLower(name) + "_relay"
}
