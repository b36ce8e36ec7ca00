// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestSlogLoggerLevels(t *testing.T) {
	var buf bytes.Buffer

	logger := NewSlogLoggerWith(zerolog.New(&buf))

	tests := []struct {
		name    string
		logFunc func()
		level   string
	}{
		{"Debug", func() { logger.Debug("debug msg") }, `"level":"debug"`},
		{"Info", func() { logger.Info("info msg") }, `"level":"info"`},
		{"Warn", func() { logger.Warn("warn msg") }, `"level":"warn"`},
		{"Error", func() { logger.Error("error msg") }, `"level":"error"`},
	}

	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	for _, tt := range tests {
		buf.Reset()
		tt.logFunc()
		if !strings.Contains(buf.String(), tt.level) {
			t.Errorf("%s: expected %s in output: %s", tt.name, tt.level, buf.String())
		}
	}
}

func TestSlogLoggerAttrs(t *testing.T) {
	var buf bytes.Buffer

	logger := NewSlogLoggerWith(zerolog.New(&buf))
	logger.Info("command dispatched",
		slog.String("endpoint", "attendance"),
		slog.Int("queued", 2),
		slog.Bool("priority", true),
	)

	output := buf.String()
	for _, want := range []string{`"endpoint":"attendance"`, `"queued":2`, `"priority":true`} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s in output: %s", want, output)
		}
	}
}

func TestSlogLoggerWithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer

	base := NewSlogLoggerWith(zerolog.New(&buf))
	logger := base.With(slog.String("service", "dispatcher")).WithGroup("device")
	logger.Info("sent", slog.String("endpoint", "relay"))

	output := buf.String()
	if !strings.Contains(output, `"service":"dispatcher"`) {
		t.Errorf("expected pre-set attr in output: %s", output)
	}
	if !strings.Contains(output, `"device.endpoint":"relay"`) {
		t.Errorf("expected group-prefixed key in output: %s", output)
	}
}

func TestSlogToZerologLevel(t *testing.T) {
	tests := []struct {
		in   slog.Level
		want zerolog.Level
	}{
		{slog.LevelDebug, zerolog.DebugLevel},
		{slog.LevelInfo, zerolog.InfoLevel},
		{slog.LevelWarn, zerolog.WarnLevel},
		{slog.LevelError, zerolog.ErrorLevel},
		{slog.LevelError + 4, zerolog.ErrorLevel},
	}

	for _, tt := range tests {
		if got := slogToZerologLevel(tt.in); got != tt.want {
			t.Errorf("slogToZerologLevel(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
