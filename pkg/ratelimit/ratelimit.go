package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/telekom/smtp-relay/pkg/metrics"
)

// Config holds rate limiter configuration
type Config struct {
	// Window is the counting window; counters reset when it elapses
	Window time.Duration
	// MaxRequests is the number of requests allowed per key per window
	MaxRequests int
	// CleanupInterval is how often to clean up expired entries
	CleanupInterval time.Duration
}

// DefaultConfig returns the send-endpoint policy: 20 requests per
// 15-minute window per client IP.
func DefaultConfig() Config {
	return Config{
		Window:          15 * time.Minute,
		MaxRequests:     20,
		CleanupInterval: time.Minute,
	}
}

// Store counts requests per key within a window. Implementations must
// serialize the read-modify-write per key so concurrent requests from the
// same client are never undercounted.
type Store interface {
	// Increment records one request for key and returns the total within
	// the current window, starting a fresh window if the previous one
	// has expired.
	Increment(key string, now time.Time) int
}

// entry holds the window counter and window start for one key
type entry struct {
	count       int
	windowStart time.Time
}

// MemoryStore is an in-process Store with automatic cleanup. Counters are
// per-process; deployments needing cross-instance limits can provide a
// shared Store instead.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*entry
	window  time.Duration
	done    chan struct{}
}

// NewMemoryStore creates a MemoryStore and starts its cleanup goroutine.
func NewMemoryStore(window, cleanupInterval time.Duration) *MemoryStore {
	if window <= 0 {
		window = 15 * time.Minute
	}
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}

	s := &MemoryStore{
		entries: make(map[string]*entry),
		window:  window,
		done:    make(chan struct{}),
	}

	go s.cleanup(cleanupInterval)

	return s
}

// Increment implements Store.
func (s *MemoryStore) Increment(key string, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.entries[key]
	if !exists || now.Sub(e.windowStart) >= s.window {
		e = &entry{windowStart: now}
		s.entries[key] = e
	}
	e.count++

	return e.count
}

// Stop stops the cleanup goroutine
func (s *MemoryStore) Stop() {
	close(s.done)
}

// Len returns the current number of tracked keys (for testing/metrics)
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// cleanup periodically removes entries whose window has expired
func (s *MemoryStore) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.cleanupExpiredEntries()
		}
	}
}

func (s *MemoryStore) cleanupExpiredEntries() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, e := range s.entries {
		if now.Sub(e.windowStart) >= s.window {
			delete(s.entries, key)
		}
	}
}

// Limiter applies a fixed-window request limit per client key.
type Limiter struct {
	store  Store
	config Config
}

// New creates a Limiter backed by a fresh MemoryStore.
func New(cfg Config) *Limiter {
	return NewWithStore(cfg, NewMemoryStore(cfg.Window, cfg.CleanupInterval))
}

// NewWithStore creates a Limiter on an injected Store. Used by tests and
// by deployments with a shared counter backend.
func NewWithStore(cfg Config, store Store) *Limiter {
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = DefaultConfig().MaxRequests
	}
	return &Limiter{store: store, config: cfg}
}

// Allow checks if a request for the given key should be allowed
func (l *Limiter) Allow(key string) bool {
	return l.store.Increment(key, time.Now()) <= l.config.MaxRequests
}

// Middleware returns a Gin middleware that applies per-IP rate limiting
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !l.Allow(ip) {
			metrics.RateLimited.Inc()
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// Config returns a copy of the current configuration (for testing)
func (l *Limiter) Config() Config {
	return l.config
}
