// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

package events

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"

	"github.com/tomtom215/custos/internal/logging"
)

// busLogger adapts the process logger to watermill's LoggerAdapter so the
// router and pub/sub log through the same zerolog pipeline as everything
// else. Watermill's info-level chatter maps to debug; it narrates routine
// handler lifecycle, not kiosk activity.
type busLogger struct {
	fields watermill.LogFields
}

func newBusLogger() watermill.LoggerAdapter {
	return busLogger{}
}

func (l busLogger) Error(msg string, err error, fields watermill.LogFields) {
	l.emit(logging.Error().Err(err), fields, msg)
}

func (l busLogger) Info(msg string, fields watermill.LogFields) {
	l.emit(logging.Debug(), fields, msg)
}

func (l busLogger) Debug(msg string, fields watermill.LogFields) {
	l.emit(logging.Debug(), fields, msg)
}

func (l busLogger) Trace(msg string, fields watermill.LogFields) {
	l.emit(logging.Trace(), fields, msg)
}

func (l busLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	merged := make(watermill.LogFields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return busLogger{fields: merged}
}

func (l busLogger) emit(ev *zerolog.Event, fields watermill.LogFields, msg string) {
	for k, v := range l.fields {
		ev = ev.Interface(k, v)
	}
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}
