package server

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/giygas/pulse-api/handlers"
	"github.com/juju/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
)

// RealIPMiddleware extracts the real IP from X-Forwarded-For header
func RealIPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			// Take the first IP from the comma-separated list
			if idx := strings.Index(xff, ","); idx != -1 {
				xff = xff[:idx]
			}
			r.RemoteAddr = strings.TrimSpace(xff)
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimiter manages per-client rate limiting
type RateLimiter struct {
	clients     map[string]*ratelimit.Bucket
	mu          sync.RWMutex
	rate        float64
	capacity    int64
	bucketGauge prometheus.Gauge
	stop        chan struct{}
	stopOnce    sync.Once
}

// NewRateLimiter creates a new rate limiter and starts its cleanup loop.
// bucketGauge may be nil when metrics are not wired (tests).
func NewRateLimiter(rate float64, capacity int64, bucketGauge prometheus.Gauge) *RateLimiter {
	rl := &RateLimiter{
		clients:     make(map[string]*ratelimit.Bucket),
		rate:        rate,
		capacity:    capacity,
		bucketGauge: bucketGauge,
		stop:        make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

func (rl *RateLimiter) getBucket(clientIP string) *ratelimit.Bucket {
	rl.mu.RLock()
	bucket, exists := rl.clients[clientIP]
	rl.mu.RUnlock()

	if !exists {
		rl.mu.Lock()
		if bucket, exists = rl.clients[clientIP]; !exists {
			bucket = ratelimit.NewBucketWithRate(rl.rate, rl.capacity)
			rl.clients[clientIP] = bucket
			rl.updateGauge(len(rl.clients))
		}
		rl.mu.Unlock()
	}

	return bucket
}

func (rl *RateLimiter) updateGauge(buckets int) {
	if rl.bucketGauge != nil {
		rl.bucketGauge.Set(float64(buckets))
	}
}

// cleanupLoop removes idle clients periodically so the map does not grow forever
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(30 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.mu.Lock()
			// A full bucket means the client has been idle long enough
			for ip, bucket := range rl.clients {
				if bucket.Available() == bucket.Capacity() {
					delete(rl.clients, ip)
				}
			}
			rl.updateGauge(len(rl.clients))
			rl.mu.Unlock()
		}
	}
}

// Stop terminates the cleanup loop
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stop)
	})
}

// getTokenCost returns the per-request token cost for a path. Probe and
// scrape routes stay cheap so an orchestrator polling every few seconds
// never starves itself out.
func getTokenCost(path string) int64 {
	switch path {
	case "/":
		return 1
	case "/health":
		return 1
	case "/metrics":
		return 2
	}

	// Unmatched routes cost more; they are either mistakes or abuse
	return 5
}

// Handler is the rate limiting middleware
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := r.RemoteAddr

		bucket := rl.getBucket(clientIP)
		tokenCost := getTokenCost(r.URL.Path)

		w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(rl.capacity, 10))
		w.Header().Set("X-RateLimit-Rate", strconv.FormatFloat(rl.rate, 'f', -1, 64))

		if bucket.TakeAvailable(tokenCost) < tokenCost {
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("Retry-After", "60")
			handlers.RespondWithError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}

		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(bucket.Available(), 10))

		next.ServeHTTP(w, r)
	})
}
