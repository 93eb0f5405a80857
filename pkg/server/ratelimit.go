package server

import (
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/config"
)

// tokenBucket refills continuously at rate tokens per second up to capacity.
type tokenBucket struct {
	capacity   float64
	tokens     float64
	rate       float64
	lastRefill time.Time
	lastUsed   time.Time
}

func (tb *tokenBucket) refill(now time.Time) {
	elapsed := now.Sub(tb.lastRefill).Seconds()
	if elapsed > 0 {
		tb.tokens = math.Min(tb.capacity, tb.tokens+elapsed*tb.rate)
		tb.lastRefill = now
	}
}

// take removes one token, or reports how long until one is available.
func (tb *tokenBucket) take(now time.Time) (bool, time.Duration) {
	tb.refill(now)
	tb.lastUsed = now
	if tb.tokens >= 1 {
		tb.tokens--
		return true, 0
	}
	wait := (1 - tb.tokens) / tb.rate
	return false, time.Duration(wait * float64(time.Second))
}

// rateLimiter keeps one token bucket per client. Clients are identified by
// API key name when authenticated, otherwise by remote IP.
type rateLimiter struct {
	rate    float64
	burst   float64
	idleTTL time.Duration
	now     func() time.Time

	mu        sync.Mutex
	buckets   map[string]*tokenBucket
	lastSweep time.Time
}

func newRateLimiter(rate float64, burst int) *rateLimiter {
	idle := time.Duration(float64(burst)/rate*float64(time.Second)) * 2
	if idle < time.Minute {
		idle = time.Minute
	}
	return &rateLimiter{
		rate:    rate,
		burst:   float64(burst),
		idleTTL: idle,
		now:     time.Now,
		buckets: make(map[string]*tokenBucket),
	}
}

func (rl *rateLimiter) allow(client string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweepLocked(now)

	b, ok := rl.buckets[client]
	if !ok {
		b = &tokenBucket{capacity: rl.burst, tokens: rl.burst, rate: rl.rate, lastRefill: now}
		rl.buckets[client] = b
	}
	return b.take(now)
}

// sweepLocked drops buckets idle long enough to have refilled completely.
func (rl *rateLimiter) sweepLocked(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.idleTTL {
		return
	}
	for k, b := range rl.buckets {
		if now.Sub(b.lastUsed) >= rl.idleTTL {
			delete(rl.buckets, k)
		}
	}
	rl.lastSweep = now
}

func (rl *rateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// concurrencyLimiter is a counting semaphore that rejects instead of
// blocking when full.
type concurrencyLimiter struct {
	limit   int64
	current atomic.Int64
}

func (cl *concurrencyLimiter) acquire() bool {
	if cl.current.Add(1) > cl.limit {
		cl.current.Add(-1)
		return false
	}
	return true
}

func (cl *concurrencyLimiter) release() {
	cl.current.Add(-1)
}

// RateLimitMiddleware enforces the per-client request rate. Requests over
// the limit get 429 with a Retry-After header. A zero rate disables it.
func RateLimitMiddleware(cfg config.RateLimitConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	if cfg.RequestsPerSecond <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	rl := newRateLimiter(cfg.RequestsPerSecond, cfg.Burst)
	return rl.middleware(logger)
}

func (rl *rateLimiter) middleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientIdentity(r)
			ok, wait := rl.allow(client)
			if !ok {
				logger.Warn("rate limit exceeded", "client", client, "path", r.URL.Path)
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				writeError(w, r, http.StatusTooManyRequests, codeRateLimited,
					fmt.Sprintf("rate limit of %g requests per second exceeded", rl.rate))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ConcurrencyMiddleware caps the number of requests in flight through the
// wrapped handler. A limit of zero disables it.
func ConcurrencyMiddleware(limit int, logger *slog.Logger) func(http.Handler) http.Handler {
	if limit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	cl := &concurrencyLimiter{limit: int64(limit)}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cl.acquire() {
				logger.Warn("concurrency limit reached", "limit", limit, "path", r.URL.Path)
				w.Header().Set("Retry-After", "1")
				writeError(w, r, http.StatusTooManyRequests, codeRateLimited,
					fmt.Sprintf("too many concurrent requests (limit %d)", limit))
				return
			}
			defer cl.release()
			next.ServeHTTP(w, r)
		})
	}
}

func clientIdentity(r *http.Request) string {
	if name, ok := ClientFromContext(r.Context()); ok {
		return "key:" + name
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
