/*
Package limiter provides rate limiting keyed by client IP address.

It uses the token bucket limiter from golang.org/x/time/rate per IP and a background
goroutine that forgets idle IPs.
*/
package limiter

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"livechat/internal/pkg/errs"
	"livechat/internal/pkg/logx"
	"livechat/internal/pkg/resp"

	"golang.org/x/time/rate"
)

const cleanupInterval = 3 * time.Minute

// IPRateLimiter implements a concurrency-safe rate limiter keyed by client IP address.
type IPRateLimiter struct {
	mu     sync.RWMutex
	limits map[string]*rate.Limiter

	// r is the refill rate and b the bucket size of every per-IP limiter.
	r rate.Limit
	b int
}

// NewIPRateLimiter creates a limiter with rate r and burst b. The cleanup goroutine stops
// when ctx is cancelled.
func NewIPRateLimiter(ctx context.Context, r rate.Limit, b int) *IPRateLimiter {
	i := &IPRateLimiter{
		limits: make(map[string]*rate.Limiter),
		r:      r,
		b:      b,
	}

	go i.cleanUpVisitors(ctx)

	return i
}

// GetLimiter returns the limiter for ip, creating it on first use (double-checked locking).
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.RLock()
	limiter, exists := i.limits[ip]
	i.mu.RUnlock()

	if !exists {
		i.mu.Lock()
		limiter, exists = i.limits[ip]
		if !exists {
			limiter = rate.NewLimiter(i.r, i.b)
			i.limits[ip] = limiter
		}
		i.mu.Unlock()
	}

	return limiter
}

// Allow reports whether a request from the client behind r may proceed.
func (i *IPRateLimiter) Allow(r *http.Request) bool {
	return i.GetLimiter(ClientIP(r)).Allow()
}

// cleanUpVisitors drops limiters whose bucket is full again, i.e. IPs that went quiet.
func (i *IPRateLimiter) cleanUpVisitors(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			i.mu.Lock()
			removed := 0
			for ip, limiter := range i.limits {
				if limiter.TokensAt(time.Now()) >= float64(limiter.Burst()) {
					delete(i.limits, ip)
					removed++
				}
			}
			remaining := len(i.limits)
			i.mu.Unlock()

			logx.Debug("Rate limiter cleanup finished", "removed", removed, "remaining", remaining)
		}
	}
}

// Middleware responds 429 with ErrRateLimitExceeded once the client's bucket is empty.
func (i *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !i.Allow(r) {
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ClientIP extracts the host part of r.RemoteAddr (already rewritten by middleware.RealIP).
func ClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}

	if ip == "" {
		ip = "unknown_ip"
	}
	return ip
}
