// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

package device

import (
	"testing"
	"time"

	"github.com/tomtom215/custos/internal/config"
)

func TestAudioClassString(t *testing.T) {
	tests := []struct {
		class AudioClass
		want  string
	}{
		{ClassDefault, "default"},
		{ClassChime, "chime"},
		{ClassClockIn, "clockin"},
		{ClassClockOut, "clockout"},
		{ClassCustomer, "customer"},
		{ClassRelay, "relay"},
		{AudioClass(99), "default"},
	}

	for _, tt := range tests {
		if got := tt.class.String(); got != tt.want {
			t.Errorf("AudioClass(%d).String() = %q, want %q", tt.class, got, tt.want)
		}
	}
}

func TestEstimatedDuration(t *testing.T) {
	cfg := config.DeviceConfig{
		RelayDuration:    500 * time.Millisecond,
		ClockInDuration:  2500 * time.Millisecond,
		ClockOutDuration: 2500 * time.Millisecond,
		ChimeDuration:    2 * time.Second,
		CustomerDuration: 3 * time.Second,
		DefaultDuration:  3 * time.Second,
	}

	tests := []struct {
		class AudioClass
		want  time.Duration
	}{
		{ClassRelay, 500 * time.Millisecond},
		{ClassClockIn, 2500 * time.Millisecond},
		{ClassClockOut, 2500 * time.Millisecond},
		{ClassChime, 2 * time.Second},
		{ClassCustomer, 3 * time.Second},
		{ClassDefault, 3 * time.Second},
	}

	for _, tt := range tests {
		if got := tt.class.EstimatedDuration(cfg); got != tt.want {
			t.Errorf("%s.EstimatedDuration() = %v, want %v", tt.class, got, tt.want)
		}
	}
}

func TestEndpointNames(t *testing.T) {
	tests := []struct {
		name string
		fn   func(string) string
		in   string
		want string
	}{
		{"greeting", GreetingEndpoint, "Alice", "alice"},
		{"greeting lowercase", GreetingEndpoint, "bob", "bob"},
		{"clockin", ClockInEndpoint, "Alice", "alice_clockin"},
		{"clockout", ClockOutEndpoint, "ALICE", "alice_clockout"},
		{"relay", RelayEndpoint, "Alice", "alice_relay"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFixedEndpoints(t *testing.T) {
	if EndpointChime != "attendance" {
		t.Errorf("EndpointChime = %q, want %q", EndpointChime, "attendance")
	}
	if EndpointCustomer != "customer" {
		t.Errorf("EndpointCustomer = %q, want %q", EndpointCustomer, "customer")
	}
}
