// Package ratelimit throttles HTTP clients per IP with golang.org/x/time/rate.
package ratelimit

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"mailsink/pkg/errors"
	"mailsink/pkg/metrics"
)

type Config struct {
	RPS             float64
	Burst           int
	CleanupInterval time.Duration
	MaxAge          time.Duration
}

func DefaultConfig() Config {
	return Config{
		RPS:             50,
		Burst:           100,
		CleanupInterval: time.Minute,
		MaxAge:          5 * time.Minute,
	}
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter tracks one token bucket per client IP.
type Limiter struct {
	cfg     Config
	mu      sync.Mutex
	clients map[string]*client
}

func New(cfg Config) *Limiter {
	return &Limiter{cfg: cfg, clients: make(map[string]*client)}
}

// Allow reports whether ip may make a request now.
func (l *Limiter) Allow(ip string) bool {
	l.mu.Lock()
	c, ok := l.clients[ip]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rate.Limit(l.cfg.RPS), l.cfg.Burst)}
		l.clients[ip] = c
	}
	c.lastSeen = time.Now()
	l.mu.Unlock()

	return c.limiter.Allow()
}

// Run evicts idle clients until ctx is done.
func (l *Limiter) Run(ctx context.Context) {
	if l.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.cleanup(now)
		}
	}
}

func (l *Limiter) cleanup(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, c := range l.clients {
		if now.Sub(c.lastSeen) > l.cfg.MaxAge {
			delete(l.clients, ip)
		}
	}
}

func (l *Limiter) Middleware() gin.HandlerFunc {
	limit := strconv.Itoa(int(l.cfg.RPS))

	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = c.RemoteIP()
		}

		c.Header("X-RateLimit-Limit", limit)
		if !l.Allow(ip) {
			metrics.RateLimitRequestsTotal.WithLabelValues("limited").Inc()
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(errors.ErrRateLimited.Status, errors.ToErrorResponse(errors.ErrRateLimited))
			return
		}

		metrics.RateLimitRequestsTotal.WithLabelValues("allowed").Inc()
		c.Next()
	}
}
