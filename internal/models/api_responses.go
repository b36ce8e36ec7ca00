// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

package models

import (
	"time"
)

// APIResponse is the standardized wrapper every HTTP endpoint returns.
//
// Status field values:
//   - "success": request completed, see Data
//   - "error": request failed, see Error
//   - "ready" / "not_ready": readiness probe results
//
// Example error response:
//
//	{
//	  "status": "error",
//	  "error": {
//	    "code": "VALIDATION_ERROR",
//	    "message": "W must be greater than 0",
//	    "details": {"field": "W"}
//	  },
//	  "metadata": {"timestamp": "2026-08-25T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries per-response metadata. Timestamp is the server time
// the response was generated.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
}

// APIError is the structured error payload.
//
// Common codes: VALIDATION_ERROR, INVALID_REQUEST, INVALID_CREDENTIALS,
// AUTH_DISABLED, RATE_LIMIT_EXCEEDED, METHOD_NOT_ALLOWED, NOT_FOUND,
// INTERNAL_ERROR.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// LoginRequest is the operator login payload. The kiosk has a single
// operator identity, so the password is the whole credential.
type LoginRequest struct {
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued bearer token. The same token is also
// set as an HTTP-only cookie for browser clients.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
