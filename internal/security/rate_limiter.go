package security

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter applies a per-client request budget to keep one caller from
// monopolizing the anonymisation endpoint.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	limit   rate.Limit
	burst   int
	maxIdle time.Duration
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter allowing requestsPerMin sustained requests
// per client, with a burst of the same size.
func NewRateLimiter(requestsPerMin int) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*clientLimiter),
		limit:   rate.Limit(float64(requestsPerMin) / 60.0),
		burst:   requestsPerMin,
		maxIdle: time.Hour,
	}
}

// Allow reports whether a request from the given client IP is within budget.
func (r *RateLimiter) Allow(clientIP string) bool {
	r.mu.Lock()
	c, ok := r.clients[clientIP]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.clients[clientIP] = c
	}
	c.lastSeen = time.Now()
	r.mu.Unlock()

	return c.limiter.Allow()
}

// CleanupIdleClients removes limiters that have not been seen recently so
// the client map does not grow without bound.
func (r *RateLimiter) CleanupIdleClients() {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-r.maxIdle)
	for ip, c := range r.clients {
		if c.lastSeen.Before(cutoff) {
			delete(r.clients, ip)
		}
	}
}

// StartCleanupRoutine starts a background routine that periodically removes
// idle client limiters.
func (r *RateLimiter) StartCleanupRoutine() {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			r.CleanupIdleClients()
		}
	}()
}
