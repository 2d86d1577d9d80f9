package middleware

import (
	"net/http"
	"sync"
	"time"

	"listino/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Sliding-window per-IP rate limiting. Each RateLimiter call returns an
// independent limiter with its own window map, so the global API limiter and
// the stricter login limiter do not share counters.

type rateEntry struct {
	count     int
	windowEnd time.Time
	mu        sync.Mutex
}

type rateLimiter struct {
	entries map[string]*rateEntry
	mu      sync.Mutex
	limit   int
	window  time.Duration
}

const purgeInterval = 5 * time.Minute

// RateLimiter returns a sliding-window per-IP limiter middleware.
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	rl := &rateLimiter{
		entries: make(map[string]*rateEntry),
		limit:   limit,
		window:  window,
	}
	go rl.purgeLoop()

	return func(c *gin.Context) {
		ip := c.ClientIP()

		rl.mu.Lock()
		entry, exists := rl.entries[ip]
		if !exists {
			entry = &rateEntry{}
			rl.entries[ip] = entry
		}
		rl.mu.Unlock()

		entry.mu.Lock()
		defer entry.mu.Unlock()

		now := time.Now()
		if now.After(entry.windowEnd) {
			entry.count = 0
			entry.windowEnd = now.Add(rl.window)
		}

		entry.count++
		if entry.count > rl.limit {
			c.Header("Retry-After", entry.windowEnd.Format(time.RFC1123))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("Troppe richieste. Riprova tra un momento."))
			return
		}
		c.Next()
	}
}

// purgeLoop removes expired entries so IPs that never return do not leak.
func (rl *rateLimiter) purgeLoop() {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		purged := 0

		rl.mu.Lock()
		for ip, entry := range rl.entries {
			entry.mu.Lock()
			if now.After(entry.windowEnd) {
				delete(rl.entries, ip)
				purged++
			}
			entry.mu.Unlock()
		}
		remaining := len(rl.entries)
		rl.mu.Unlock()

		if purged > 0 {
			log.Debug().
				Int("purged", purged).
				Int("remaining", remaining).
				Msg("rate limiter entries purged")
		}
	}
}
