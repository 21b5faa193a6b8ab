/*
Package limiter throttles WebSocket handshakes per client IP address.

Each IP gets a token bucket (rate.Limiter); a background goroutine evicts
buckets that have refilled completely so idle visitors do not accumulate.
*/
package limiter

import (
	"net"
	"net/http"
	"sync"
	"time"

	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/logx"
	"relaychat/internal/pkg/resp"

	"golang.org/x/time/rate"
)

// cleanupInterval is how often idle limiters are evicted.
const cleanupInterval = 3 * time.Minute

// IPRateLimiter keeps one token bucket per client IP address.
type IPRateLimiter struct {
	// mu protects limits.
	mu sync.RWMutex

	// limits maps a client IP to its bucket.
	limits map[string]*rate.Limiter

	// r is the refill rate in events per second.
	r rate.Limit

	// b is the bucket size.
	b int

	stop     chan struct{}
	stopOnce sync.Once
}

// NewIPRateLimiter creates a limiter with rate r and burst b and starts its cleanup goroutine.
func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	i := &IPRateLimiter{
		limits: make(map[string]*rate.Limiter),
		r:      r,
		b:      b,
		stop:   make(chan struct{}),
	}

	go i.cleanUpVisitors(cleanupInterval)

	return i
}

// GetLimiter returns the bucket for ip, creating it on first use.
// Creation uses double-checked locking so concurrent first requests share one bucket.
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

// Allow consumes one token for the request's client IP.
func (i *IPRateLimiter) Allow(r *http.Request) bool {
	return i.GetLimiter(ClientIP(r)).Allow()
}

// Stop terminates the cleanup goroutine. It is safe to call more than once.
func (i *IPRateLimiter) Stop() {
	i.stopOnce.Do(func() { close(i.stop) })
}

// cleanUpVisitors evicts buckets that are full, i.e. unused for a whole refill period.
func (i *IPRateLimiter) cleanUpVisitors(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-i.stop:
			return
		case <-ticker.C:
			removed, remaining := i.evictIdle(time.Now())
			logx.Debug("Rate limiter cleanup finished", "removed", removed, "remaining", remaining)
		}
	}
}

func (i *IPRateLimiter) evictIdle(now time.Time) (removed, remaining int) {
	i.mu.Lock()
	defer i.mu.Unlock()

	for ip, limiter := range i.limits {
		if limiter.TokensAt(now) >= float64(limiter.Burst()) {
			delete(i.limits, ip)
			removed++
		}
	}

	return removed, len(i.limits)
}

// Middleware rejects requests over the limit with 429 Too Many Requests.
func (i *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !i.Allow(r) {
			logx.Warn("Request rejected: rate limit exceeded.", "ip", ClientIP(r))
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ClientIP returns the host part of r.RemoteAddr, or "unknown_ip".
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
