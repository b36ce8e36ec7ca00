// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

// Package auth protects the operator API with JWT bearer tokens.
//
// The kiosk has a single operator identity: login presents the shared
// password, which is checked against a bcrypt hash from configuration
// (plaintext never touches disk). Each issued token carries a session
// ID that is also written to the Badger store with a TTL, so a token is
// only as alive as its session entry. Logout deletes the entry, and
// RevokeAll wipes the whole prefix at startup, which means a kiosk
// reboot invalidates every token that was in the field.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/custos/internal/config"
	"github.com/tomtom215/custos/internal/logging"
	"github.com/tomtom215/custos/internal/metrics"
	"github.com/tomtom215/custos/internal/store"
)

const sessionKeyPrefix = "session:"

// minSecretLen is the minimum HMAC secret length accepted.
const minSecretLen = 32

var (
	// ErrInvalidCredentials is returned when the password does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrTokenRevoked is returned for a structurally valid token whose
	// session no longer exists.
	ErrTokenRevoked = errors.New("token revoked")

	// ErrAuthDisabled is returned by Login when authentication is off.
	ErrAuthDisabled = errors.New("authentication disabled")
)

// Claims are the operator token claims. The session ID travels in the
// registered ID (jti) claim.
type Claims struct {
	jwt.RegisteredClaims
}

// Session is the revocation record behind an issued token.
type Session struct {
	ID        string    `json:"id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Manager issues and validates operator tokens.
type Manager struct {
	cfg    config.SecurityConfig
	secret []byte
	store  *store.Store
	now    func() time.Time
}

// NewManager builds a Manager from the security configuration. With
// auth disabled it returns a manager whose middleware passes everything
// through; with auth enabled the JWT secret and password hash must be
// present.
func NewManager(cfg config.SecurityConfig, st *store.Store) (*Manager, error) {
	m := &Manager{cfg: cfg, store: st, now: time.Now}
	if !cfg.AuthEnabled {
		logging.Warn().Msg("Operator authentication disabled")
		return m, nil
	}

	if len(cfg.JWTSecret) < minSecretLen {
		return nil, fmt.Errorf("jwt secret must be at least %d bytes", minSecretLen)
	}
	if cfg.PasswordHash == "" {
		return nil, errors.New("operator password hash not configured")
	}
	m.secret = []byte(cfg.JWTSecret)
	return m, nil
}

// Enabled reports whether authentication is enforced.
func (m *Manager) Enabled() bool {
	return m.cfg.AuthEnabled
}

// Login checks the operator password against the configured bcrypt
// hash and issues a signed token with a live session entry.
func (m *Manager) Login(password string) (token string, expiresAt time.Time, err error) {
	if !m.cfg.AuthEnabled {
		return "", time.Time{}, ErrAuthDisabled
	}

	if err := bcrypt.CompareHashAndPassword([]byte(m.cfg.PasswordHash), []byte(password)); err != nil {
		metrics.AuthLoginAttempts.WithLabelValues("rejected").Inc()
		return "", time.Time{}, ErrInvalidCredentials
	}

	now := m.now()
	expiresAt = now.Add(m.cfg.TokenTTL)
	session := Session{
		ID:        uuid.New().String(),
		IssuedAt:  now,
		ExpiresAt: expiresAt,
	}

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Subject:   "operator",
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	if err := m.store.SetJSONTTL(sessionKeyPrefix+session.ID, session, m.cfg.TokenTTL); err != nil {
		return "", time.Time{}, fmt.Errorf("persist session: %w", err)
	}

	metrics.AuthLoginAttempts.WithLabelValues("accepted").Inc()
	logging.Info().Str("session_id", session.ID).Time("expires_at", expiresAt).Msg("Operator logged in")
	return signed, expiresAt, nil
}

// Validate parses a token, verifies the HMAC signature and time claims,
// and then checks the session is still alive. A token that survived
// signature checks but lost its session entry was revoked or issued
// before the last restart.
func (m *Manager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.ID == "" {
		return nil, errors.New("token has no session id")
	}

	var session Session
	if err := m.store.GetJSON(sessionKeyPrefix+claims.ID, &session); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTokenRevoked
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	return claims, nil
}

// Logout revokes the session behind a token. Revoking an already
// revoked token is not an error.
func (m *Manager) Logout(tokenString string) error {
	claims, err := m.Validate(tokenString)
	if err != nil {
		if errors.Is(err, ErrTokenRevoked) {
			return nil
		}
		return err
	}

	if err := m.store.Delete(sessionKeyPrefix + claims.ID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	logging.Info().Str("session_id", claims.ID).Msg("Operator logged out")
	return nil
}

// RevokeAll deletes every session. Called at startup so tokens never
// outlive the process that issued them.
func (m *Manager) RevokeAll() error {
	if err := m.store.DeletePrefix(sessionKeyPrefix); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	return nil
}
