// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

package attendance

import (
	"testing"
	"time"

	"github.com/tomtom215/custos/internal/config"
)

func testAttendanceConfig() config.AttendanceConfig {
	return config.AttendanceConfig{
		CheckInStart:          "07:00",
		LateCheckInEnd:        "10:00",
		LateThreshold:         "08:05",
		CheckOutStart:         "17:00",
		SaturdayCheckOutStart: "13:00",
		CheckOutEnd:           "20:00",
		AdminCooldown:         time.Minute,
		CaptureCooldown:       30 * time.Second,
		MissedFrameGrace:      5,
		CustomAudio:           []string{"Alice"},
	}
}

// 2026-08-24 is a Monday, 2026-08-22 a Saturday.
func mondayAt(h, m, s int) time.Time {
	return time.Date(2026, time.August, 24, h, m, s, 0, time.UTC)
}

func saturdayAt(h, m, s int) time.Time {
	return time.Date(2026, time.August, 22, h, m, s, 0, time.UTC)
}

func newTestSchedule(t *testing.T) *Schedule {
	t.Helper()
	s, err := NewSchedule(testAttendanceConfig())
	if err != nil {
		t.Fatalf("NewSchedule() error = %v", err)
	}
	return s
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{"07:00", TimeOfDay{7, 0}, false},
		{"23:59", TimeOfDay{23, 59}, false},
		{"00:00", TimeOfDay{0, 0}, false},
		{"7am", TimeOfDay{}, true},
		{"25:00", TimeOfDay{}, true},
		{"", TimeOfDay{}, true},
	}

	for _, tt := range tests {
		got, err := ParseTimeOfDay(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTimeOfDay(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseTimeOfDay(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTimeOfDayString(t *testing.T) {
	if got := (TimeOfDay{8, 5}).String(); got != "08:05" {
		t.Errorf("String() = %q, want %q", got, "08:05")
	}
}

func TestNewScheduleRejectsBadBound(t *testing.T) {
	cfg := testAttendanceConfig()
	cfg.LateThreshold = "quarter past eight"
	if _, err := NewSchedule(cfg); err == nil {
		t.Fatal("NewSchedule() error = nil for unparseable bound")
	}
}

func TestCheckInWindow(t *testing.T) {
	s := newTestSchedule(t)

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"before open", mondayAt(6, 59, 59), false},
		{"opening second", mondayAt(7, 0, 0), true},
		{"mid window", mondayAt(8, 30, 0), true},
		{"closing second", mondayAt(10, 0, 0), true},
		{"one past close", mondayAt(10, 0, 1), false},
		{"afternoon", mondayAt(15, 0, 0), false},
		{"saturday same window", saturdayAt(7, 30, 0), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.InCheckInWindow(tt.at); got != tt.want {
				t.Errorf("InCheckInWindow(%v) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}

func TestCheckOutWindow(t *testing.T) {
	s := newTestSchedule(t)

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"weekday before open", mondayAt(16, 59, 59), false},
		{"weekday opening second", mondayAt(17, 0, 0), true},
		{"weekday closing second", mondayAt(20, 0, 0), true},
		{"weekday one past close", mondayAt(20, 0, 1), false},
		{"weekday at saturday start", mondayAt(13, 0, 0), false},
		{"saturday early open", saturdayAt(13, 0, 0), true},
		{"saturday before early open", saturdayAt(12, 59, 59), false},
		{"saturday afternoon", saturdayAt(15, 0, 0), true},
		{"saturday close", saturdayAt(20, 0, 0), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.InCheckOutWindow(tt.at); got != tt.want {
				t.Errorf("InCheckOutWindow(%v) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}

func TestPunctuality(t *testing.T) {
	s := newTestSchedule(t)

	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{"window open", mondayAt(7, 0, 0), StatusOnTime},
		{"last on-time second", mondayAt(8, 4, 59), StatusOnTime},
		{"threshold is late", mondayAt(8, 5, 0), StatusLate},
		{"after threshold", mondayAt(9, 30, 0), StatusLate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Punctuality(tt.at); got != tt.want {
				t.Errorf("Punctuality(%v) = %q, want %q", tt.at, got, tt.want)
			}
		})
	}
}
