// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

package auth

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/tomtom215/custos/internal/logging"
)

type contextKey string

// ClaimsContextKey carries the validated operator claims.
const ClaimsContextKey contextKey = "claims"

// ClaimsFromContext returns the claims placed by Authenticate, or nil
// when the request was not authenticated (auth disabled).
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(ClaimsContextKey).(*Claims)
	return claims
}

// Authenticate enforces a valid bearer token on every request it wraps.
// With auth disabled it passes requests through untouched.
func (m *Manager) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.cfg.AuthEnabled {
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractToken(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		claims, err := m.Validate(token)
		if err != nil {
			if !errors.Is(err, ErrTokenRevoked) {
				logging.Debug().Err(err).Msg("Token validation failed")
			}
			http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractToken pulls the JWT from the Authorization header or, for
// browser clients, the token cookie.
func extractToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		cookie, err := r.Cookie("token")
		if err != nil {
			return "", errors.New("unauthorized: missing token")
		}
		return cookie.Value, nil
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errors.New("unauthorized: invalid authorization header")
	}
	return parts[1], nil
}

// ClientIP returns the peer address without the port. The kiosk sits on
// a LAN with no reverse proxy in front, so forwarding headers are not
// consulted.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
