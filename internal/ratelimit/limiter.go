// Package ratelimit provides per-client token bucket rate limiting.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// maxTrackedClients limits the number of client keys tracked at once so a
	// flood of spoofed Forwarded identifiers cannot exhaust memory.
	maxTrackedClients = 10000

	// idleTimeout is how long a client may stay quiet before its bucket is dropped.
	idleTimeout = 3 * time.Minute

	cleanupInterval = time.Minute
)

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter provides per-client rate limiting. A client is identified by the
// key returned from clientip.Resolver.GetClientKey: an IP address or an
// obfuscated node identifier.
type Limiter struct {
	clients  map[string]*client
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	now      func() time.Time
	cleanup  *time.Ticker
	stopOnce sync.Once
	stopChan chan struct{}
}

// NewLimiter creates a new rate limiter.
//
// Parameters:
//   - requestsPerSecond: sustained requests per second per client
//   - burst: maximum burst size per client
//
// Returns a new Limiter instance with its cleanup goroutine running.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	l := &Limiter{
		clients:  make(map[string]*client),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		now:      time.Now,
		cleanup:  time.NewTicker(cleanupInterval),
		stopChan: make(chan struct{}),
	}
	go l.cleanupRoutine()
	return l
}

// Allow reports whether a request from key may proceed.
//
// New keys are rejected once maxTrackedClients are tracked.
func (l *Limiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	c, exists := l.clients[key]
	if !exists {
		if len(l.clients) >= maxTrackedClients {
			l.mu.Unlock()
			return false
		}
		c = &client{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.clients[key] = c
	}
	c.lastSeen = now
	l.mu.Unlock()

	return c.limiter.AllowN(now, 1)
}

func (l *Limiter) cleanupRoutine() {
	for {
		select {
		case <-l.cleanup.C:
			l.cleanupIdle()
		case <-l.stopChan:
			return
		}
	}
}

// cleanupIdle drops clients not seen for idleTimeout.
func (l *Limiter) cleanupIdle() {
	cutoff := l.now().Add(-idleTimeout)

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, c := range l.clients {
		if c.lastSeen.Before(cutoff) {
			delete(l.clients, key)
		}
	}
}

// Stop stops the cleanup goroutine. Safe to call multiple times.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() {
		l.cleanup.Stop()
		close(l.stopChan)
	})
}

// Tracked returns the number of clients currently tracked.
func (l *Limiter) Tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}
