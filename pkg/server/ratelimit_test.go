package server

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/symposion/roll20-shaped-scripts-sub000/pkg/config"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestRateLimiter_Allow(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	rl := newRateLimiter(2, 3)
	rl.now = clock.now

	for i := 0; i < 3; i++ {
		if ok, _ := rl.allow("ip:1.2.3.4"); !ok {
			t.Fatalf("request %d rejected within burst", i+1)
		}
	}

	ok, wait := rl.allow("ip:1.2.3.4")
	if ok {
		t.Fatal("request beyond burst allowed")
	}
	if wait != 500*time.Millisecond {
		t.Errorf("wait = %v, want 500ms", wait)
	}

	if ok, _ := rl.allow("ip:5.6.7.8"); !ok {
		t.Error("other client shares the bucket")
	}

	clock.advance(500 * time.Millisecond)
	if ok, _ := rl.allow("ip:1.2.3.4"); !ok {
		t.Error("request after refill rejected")
	}
}

func TestRateLimiter_SweepsIdleBuckets(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	rl := newRateLimiter(10, 5)
	rl.now = clock.now

	rl.allow("ip:a")
	rl.allow("ip:b")
	if got := rl.size(); got != 2 {
		t.Fatalf("size = %d, want 2", got)
	}

	clock.advance(2 * time.Minute)
	rl.allow("ip:c")
	if got := rl.size(); got != 1 {
		t.Errorf("size after sweep = %d, want 1", got)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.Server.RateLimit = config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2}
	})

	get := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/schema", nil)
		req.RemoteAddr = "10.0.0.1:4242"
		return env.do(req)
	}

	for i := 0; i < 2; i++ {
		if w := get(); w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i+1, w.Code)
		}
	}

	w := get()
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
	if resp := decodeError(t, w); resp.Error.Code != codeRateLimited {
		t.Errorf("code = %q, want %q", resp.Error.Code, codeRateLimited)
	}

	// Probes are not rate limited.
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "10.0.0.1:4242"
	if w := env.do(req); w.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", w.Code)
	}
}

func TestRateLimitMiddleware_PerKey(t *testing.T) {
	env := newTestEnv(t, withAuth, func(cfg *config.Config) {
		cfg.Server.Auth.Keys = append(cfg.Server.Auth.Keys, config.APIKeyConfig{Key: "sk-other", Name: "other"})
		cfg.Server.RateLimit = config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1}
	})

	get := func(key string) int {
		req := httptest.NewRequest(http.MethodGet, "/v1/schema", nil)
		req.Header.Set("Authorization", "Bearer "+key)
		return env.do(req).Code
	}

	if code := get("sk-active"); code != http.StatusOK {
		t.Fatalf("first request status = %d", code)
	}
	if code := get("sk-active"); code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", code)
	}
	if code := get("sk-other"); code != http.StatusOK {
		t.Errorf("other key status = %d, want 200", code)
	}
}

func TestConcurrencyMiddleware(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 2)
	blocking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entered <- struct{}{}
		<-release
	})
	handler := ConcurrencyMiddleware(1, discardLogger())(blocking)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/parse", nil))
	}()
	<-entered

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/parse", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", w.Code)
	}

	close(release)
	wg.Wait()

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/parse", nil))
	if w.Code != http.StatusOK {
		t.Errorf("status after release = %d, want 200", w.Code)
	}
}

func TestConcurrencyMiddleware_Disabled(t *testing.T) {
	calls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ })
	handler := ConcurrencyMiddleware(0, discardLogger())(next)

	for i := 0; i < 3; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/parse", nil))
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}
