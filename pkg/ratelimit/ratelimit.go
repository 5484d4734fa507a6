// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-passkey-rp.
//
// go-passkey-rp is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package ratelimit provides a per-client token bucket rate limiter for
// the relying-party HTTP API. WebAuthn ceremony starts mint pending
// requests with server-side state, so an unauthenticated client hammering
// /register or /authenticate can inflate the request store; the limiter
// caps how fast any single client can do that.
package ratelimit

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config holds rate limiter settings.
type Config struct {
	// Enabled controls whether rate limiting is active.
	Enabled bool

	// RequestsPerMinute is the sustained per-client rate.
	RequestsPerMinute int

	// Burst allows short bursts above the sustained rate.
	// Defaults to RequestsPerMinute.
	Burst int

	// CleanupInterval controls how often idle clients are dropped.
	// Defaults to 10 minutes.
	CleanupInterval time.Duration

	// MaxIdle is how long a client can be idle before its bucket is
	// dropped. Defaults to 15 minutes.
	MaxIdle time.Duration
}

// Limiter tracks a token bucket per client address.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	lastSeen map[string]time.Time
	rate     rate.Limit
	burst    int
	enabled  bool

	maxIdle time.Duration
	stop    chan struct{}
}

// New creates a rate limiter from the given config and starts its idle
// client reaper. Call Stop when done.
func New(cfg Config) *Limiter {
	burst := cfg.Burst
	if burst <= 0 {
		burst = cfg.RequestsPerMinute
	}
	cleanupInterval := cfg.CleanupInterval
	if cleanupInterval <= 0 {
		cleanupInterval = 10 * time.Minute
	}
	maxIdle := cfg.MaxIdle
	if maxIdle <= 0 {
		maxIdle = 15 * time.Minute
	}

	l := &Limiter{
		limiters: make(map[string]*rate.Limiter),
		lastSeen: make(map[string]time.Time),
		rate:     rate.Limit(float64(cfg.RequestsPerMinute) / 60.0),
		burst:    burst,
		enabled:  cfg.Enabled && cfg.RequestsPerMinute > 0,
		maxIdle:  maxIdle,
		stop:     make(chan struct{}),
	}

	if l.enabled {
		go l.cleanupLoop(cleanupInterval)
	}
	return l
}

// Allow reports whether the client identified by key may proceed.
func (l *Limiter) Allow(key string) bool {
	if !l.enabled {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.rate, l.burst)
		l.limiters[key] = lim
	}
	l.lastSeen[key] = time.Now()
	return lim.Allow()
}

// Enabled reports whether the limiter is active.
func (l *Limiter) Enabled() bool {
	return l.enabled
}

// Stop terminates the idle client reaper.
func (l *Limiter) Stop() {
	select {
	case <-l.stop:
	default:
		close(l.stop)
	}
}

// Middleware wraps an HTTP handler with per-client rate limiting.
// Clients are keyed by remote IP; the chi RealIP middleware should run
// first so proxied deployments key on the original client.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(clientKey(r)) {
			w.Header().Set("Retry-After", "60")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Wait blocks until the client may proceed or the context is done.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	if !l.enabled {
		return nil
	}

	l.mu.Lock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.rate, l.burst)
		l.limiters[key] = lim
	}
	l.lastSeen[key] = time.Now()
	l.mu.Unlock()

	return lim.Wait(ctx)
}

func (l *Limiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.reapIdle()
		}
	}
}

func (l *Limiter) reapIdle() {
	cutoff := time.Now().Add(-l.maxIdle)

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, seen := range l.lastSeen {
		if seen.Before(cutoff) {
			delete(l.lastSeen, key)
			delete(l.limiters, key)
		}
	}
}

// clientKey extracts the client IP from the request, falling back to the
// whole RemoteAddr when it has no port.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
