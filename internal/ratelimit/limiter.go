// Package ratelimit paces requests the suite tooling sends to a site, one
// token bucket per host.
package ratelimit

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// Config defines the pacing for each host.
type Config struct {
	RPS   float64 // requests per second; <= 0 disables pacing
	Burst int     // requests allowed back to back
}

// DefaultConfig keeps URL sweeps gentle on shared development sites.
var DefaultConfig = Config{
	RPS:   2,
	Burst: 1,
}

// Limiter hands out per-host rate limiters.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	config   Config
}

// New creates a Limiter. A burst below one is raised to one.
func New(config Config) *Limiter {
	if config.Burst < 1 {
		config.Burst = 1
	}
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		config:   config,
	}
}

// Wait blocks until a request to host is allowed or ctx is done.
func (l *Limiter) Wait(ctx context.Context, host string) error {
	if err := l.get(host).Wait(ctx); err != nil {
		return fmt.Errorf("wait for %s: %w", host, err)
	}
	return nil
}

// Allow reports whether a request to host may be sent now, consuming a token
// when it may.
func (l *Limiter) Allow(host string) bool {
	return l.get(host).Allow()
}

func (l *Limiter) get(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limiter, ok := l.limiters[host]; ok {
		return limiter
	}
	limit := rate.Inf
	if l.config.RPS > 0 {
		limit = rate.Limit(l.config.RPS)
	}
	limiter := rate.NewLimiter(limit, l.config.Burst)
	l.limiters[host] = limiter
	return limiter
}
