// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/custos/internal/auth"
	"github.com/tomtom215/custos/internal/logging"
	"github.com/tomtom215/custos/internal/metrics"
	"github.com/tomtom215/custos/internal/models"
)

// Login handles operator authentication requests
//
// @Summary Authenticate operator
// @Description Authenticates the kiosk operator with a password, returns a token in an HTTP-only cookie
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body models.LoginRequest true "Login credentials"
// @Success 200 {object} models.APIResponse{data=models.LoginResponse} "Authentication successful"
// @Failure 400 {object} models.APIResponse "Invalid request body"
// @Failure 401 {object} models.APIResponse "Invalid password"
// @Failure 403 {object} models.APIResponse "Authentication disabled"
// @Failure 429 {object} models.APIResponse "Too many login attempts"
// @Failure 500 {object} models.APIResponse "Internal server error"
// @Router /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	// The per-IP limiter counts attempts before credentials are read,
	// so invalid JSON burns an attempt too.
	if h.limiter != nil {
		ip := auth.ClientIP(r)
		if !h.limiter.Allow(ip) {
			metrics.APIRateLimitHits.WithLabelValues("/api/v1/auth/login").Inc()
			logging.Warn().Str("ip", sanitizeLogValue(ip)).Msg("Login rate limit exceeded")
			respondError(w, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "Too many login attempts", nil)
			return
		}
	}

	req, err := h.parseAndValidateLoginRequest(w, r)
	if err != nil {
		return
	}

	h.authenticateAndSendToken(w, r, req)
}

// parseAndValidateLoginRequest parses and validates login request body
func (h *Handler) parseAndValidateLoginRequest(w http.ResponseWriter, r *http.Request) (*models.LoginRequest, error) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", err)
		return nil, err
	}

	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return nil, fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
	}

	return &req, nil
}

// authenticateAndSendToken verifies the password and issues a session token
func (h *Handler) authenticateAndSendToken(w http.ResponseWriter, r *http.Request, req *models.LoginRequest) {
	if h.auth == nil {
		respondError(w, http.StatusInternalServerError, "AUTH_NOT_CONFIGURED", "Auth manager not initialized", nil)
		return
	}

	token, expiresAt, err := h.auth.Login(req.Password)
	switch {
	case errors.Is(err, auth.ErrAuthDisabled):
		respondError(w, http.StatusForbidden, "AUTH_DISABLED", "Authentication is disabled", nil)
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		logging.Warn().Str("ip", sanitizeLogValue(auth.ClientIP(r))).Msg("Login rejected: invalid password")
		respondError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid password", nil)
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, "TOKEN_GENERATION_FAILED", "Failed to generate authentication token", err)
		return
	}

	h.setAuthCookie(w, r, token, expiresAt)
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: models.LoginResponse{
			Token:     token,
			ExpiresAt: expiresAt,
		},
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}

// setAuthCookie sets the authentication cookie
func (h *Handler) setAuthCookie(w http.ResponseWriter, r *http.Request, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
}

// Logout handles session revocation requests
//
// @Summary Revoke the current session
// @Description Revokes the session behind the presented token and clears the auth cookie. The token stops validating immediately.
// @Tags Auth
// @Accept json
// @Produce json
// @Success 200 {object} models.APIResponse "Session revoked"
// @Failure 400 {object} models.APIResponse "No token presented"
// @Failure 401 {object} models.APIResponse "Invalid token"
// @Failure 500 {object} models.APIResponse "Internal server error"
// @Router /auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	if h.auth == nil {
		respondError(w, http.StatusInternalServerError, "AUTH_NOT_CONFIGURED", "Auth manager not initialized", nil)
		return
	}

	token := requestToken(r)
	if token == "" {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "No authentication token provided", nil)
		return
	}

	if err := h.auth.Logout(token); err != nil {
		respondError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Token could not be validated", err)
		return
	}

	h.clearAuthCookie(w, r)
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"logged_out": true,
		},
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}

// clearAuthCookie expires the authentication cookie
func (h *Handler) clearAuthCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
}

// requestToken extracts the bearer token from the Authorization header,
// falling back to the auth cookie set at login.
func requestToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return token
		}
	}
	if cookie, err := r.Cookie("token"); err == nil {
		return cookie.Value
	}
	return ""
}
