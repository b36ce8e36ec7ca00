// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

// Package models defines the wire types shared by the HTTP API: the
// response envelope every endpoint uses and the request/response
// payloads for the operator-facing routes. Domain types (journal rows,
// day state, the watched region) marshal themselves; this package only
// holds shapes that exist for the API's sake.
package models
