package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig holds the token-bucket parameters of the rate limiter.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate (tokens added per second).
	RequestsPerSecond float64
	// Burst is the maximum number of requests allowed in a burst.
	Burst int
}

const (
	limiterPruneInterval = 5 * time.Minute
	limiterMaxIdle       = 10 * time.Minute
)

// clientLimiter pairs a token bucket with its last use. lastSeen is touched on
// every request and read concurrently by the pruner, so it is stored as atomic
// unix nanoseconds.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// limiterRegistry tracks one token bucket per client IP.
type limiterRegistry struct {
	cfg     RateLimitConfig
	clients sync.Map // map[string]*clientLimiter
}

func (reg *limiterRegistry) limiterFor(ip string) *rate.Limiter {
	now := time.Now().UnixNano()
	if v, ok := reg.clients.Load(ip); ok {
		cl := v.(*clientLimiter)
		cl.lastSeen.Store(now)
		return cl.limiter
	}

	cl := &clientLimiter{limiter: rate.NewLimiter(rate.Limit(reg.cfg.RequestsPerSecond), reg.cfg.Burst)}
	cl.lastSeen.Store(now)
	if v, loaded := reg.clients.LoadOrStore(ip, cl); loaded {
		cl = v.(*clientLimiter)
		cl.lastSeen.Store(now)
	}
	return cl.limiter
}

// pruneIdle drops clients not seen within maxIdle.
func (reg *limiterRegistry) pruneIdle(maxIdle time.Duration) {
	cutoff := time.Now().Add(-maxIdle).UnixNano()
	reg.clients.Range(func(key, value any) bool {
		if value.(*clientLimiter).lastSeen.Load() < cutoff {
			reg.clients.Delete(key)
		}
		return true
	})
}

// RateLimiter enforces a per-client token-bucket rate limit, keyed by remote
// IP. Exceeding the limit yields 429 Too Many Requests. Idle client entries
// are pruned in the background.
func RateLimiter(cfg RateLimitConfig) func(http.Handler) http.Handler {
	reg := &limiterRegistry{cfg: cfg}

	go func() {
		for {
			time.Sleep(limiterPruneInterval)
			reg.pruneIdle(limiterMaxIdle)
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			if !reg.limiterFor(ip).Allow() {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
