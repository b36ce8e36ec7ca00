// Custos - Face Recognition Attendance Kiosk
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custos

package auth

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LoginLimiter rate limits login attempts per client IP. The general
// API limit lives in the router middleware; this one is tighter and
// only guards the password check.
type LoginLimiter struct {
	limiters  map[string]*limiterEntry
	mu        sync.Mutex
	rate      rate.Limit
	burst     int
	stopClean chan struct{}
	closeOnce sync.Once
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// NewLoginLimiter allows burst attempts immediately and then one
// attempt per window.
func NewLoginLimiter(burst int, window time.Duration) *LoginLimiter {
	if burst < 1 {
		burst = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &LoginLimiter{
		limiters:  make(map[string]*limiterEntry),
		rate:      rate.Every(window),
		burst:     burst,
		stopClean: make(chan struct{}),
	}
}

// Allow reports whether another attempt from this IP may proceed.
func (l *LoginLimiter) Allow(ip string) bool {
	l.mu.Lock()
	entry, ok := l.limiters[ip]
	if !ok {
		entry = &limiterEntry{
			limiter:    rate.NewLimiter(l.rate, l.burst),
			lastAccess: time.Now(),
		}
		l.limiters[ip] = entry
	} else {
		entry.lastAccess = time.Now()
	}
	limiter := entry.limiter
	l.mu.Unlock()

	return limiter.Allow()
}

// StartCleanup prunes idle per-IP limiters until Stop is called.
func (l *LoginLimiter) StartCleanup(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				l.cleanup()
			case <-l.stopClean:
				return
			}
		}
	}()
}

func (l *LoginLimiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	threshold := time.Now().Add(-time.Hour)
	for ip, entry := range l.limiters {
		if entry.lastAccess.Before(threshold) {
			delete(l.limiters, ip)
		}
	}
}

// Stop ends the cleanup goroutine. Safe to call more than once.
func (l *LoginLimiter) Stop() {
	l.closeOnce.Do(func() { close(l.stopClean) })
}
