package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestLimiter(t *testing.T, config *Config) (*Limiter, *fakeClock) {
	t.Helper()
	limiter := NewLimiter(config)
	clock := newFakeClock()
	limiter.now = clock.Now
	t.Cleanup(limiter.Stop)
	return limiter, clock
}

func TestTokenBucket_Take(t *testing.T) {
	now := time.Now()
	bucket := newTokenBucket(10, 1.0, now) // 10 tokens, 1 token per second

	for i := 0; i < 10; i++ {
		allowed, remaining, _ := bucket.take(now)
		require.True(t, allowed, "request %d", i+1)
		assert.Equal(t, 9-i, remaining)
	}

	allowed, remaining, resetTime := bucket.take(now)
	assert.False(t, allowed)
	assert.Equal(t, 0, remaining)
	assert.Equal(t, now.Add(10*time.Second), resetTime)
	assert.Equal(t, time.Second, bucket.retryAfter())
}

func TestTokenBucket_Refill(t *testing.T) {
	now := time.Now()
	bucket := newTokenBucket(10, 1.0, now)
	for i := 0; i < 10; i++ {
		bucket.take(now)
	}

	later := now.Add(1100 * time.Millisecond)
	allowed, _, _ := bucket.take(later)
	assert.True(t, allowed, "one token refilled")
	allowed, _, _ = bucket.take(later)
	assert.False(t, allowed)

	// Refill never exceeds capacity
	_, remaining, resetTime := bucket.take(later.Add(time.Hour))
	assert.Equal(t, 9, remaining)
	assert.True(t, resetTime.After(later.Add(time.Hour)))
}

func TestLimiter_Allow(t *testing.T) {
	limiter, _ := newTestLimiter(t, &Config{
		Enabled:       true,
		DefaultLimit:  10,
		DefaultWindow: time.Minute,
	})

	for i := 0; i < 10; i++ {
		allowed, info := limiter.Allow("127.0.0.1", "/plans", "GET")
		require.True(t, allowed, "request %d", i+1)
		assert.Equal(t, 10, info.Limit)
		assert.Equal(t, 9-i, info.Remaining)
	}

	allowed, info := limiter.Allow("127.0.0.1", "/plans", "GET")
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.Positive(t, info.RetryAfter)

	// Other clients have their own buckets
	allowed, _ = limiter.Allow("127.0.0.2", "/plans", "GET")
	assert.True(t, allowed)
}

func TestLimiter_Refill(t *testing.T) {
	limiter, clock := newTestLimiter(t, &Config{
		Enabled:       true,
		DefaultLimit:  60,
		DefaultWindow: time.Minute,
		EndpointConfigs: []EndpointConfig{
			{Path: "/plans", Method: "POST", Limit: 60, Window: time.Minute, Burst: 1},
		},
	})

	allowed, _ := limiter.Allow("c", "/plans", "POST")
	require.True(t, allowed)
	allowed, info := limiter.Allow("c", "/plans", "POST")
	require.False(t, allowed)
	assert.Equal(t, time.Second, info.RetryAfter)

	clock.Advance(time.Second)
	allowed, _ = limiter.Allow("c", "/plans", "POST")
	assert.True(t, allowed)
}

func TestLimiter_WhitelistBlacklist(t *testing.T) {
	limiter, _ := newTestLimiter(t, &Config{
		Enabled:       true,
		DefaultLimit:  1,
		DefaultWindow: time.Minute,
		Whitelist:     map[string]bool{"127.0.0.1": true},
		Blacklist:     map[string]bool{"192.168.1.1": true},
	})

	for i := 0; i < 100; i++ {
		allowed, info := limiter.Allow("127.0.0.1", "/plans", "GET")
		require.True(t, allowed)
		assert.Zero(t, info.Limit)
	}

	allowed, _ := limiter.Allow("192.168.1.1", "/plans", "GET")
	assert.False(t, allowed)
}

func TestLimiter_Disabled(t *testing.T) {
	limiter, _ := newTestLimiter(t, &Config{Enabled: false})

	for i := 0; i < 100; i++ {
		allowed, info := limiter.Allow("127.0.0.1", "/plans", "POST")
		require.True(t, allowed)
		assert.Zero(t, info.Limit)
	}
	assert.Zero(t, limiter.Len())
}

func TestLimiter_EndpointSpecific(t *testing.T) {
	limiter, _ := newTestLimiter(t, &Config{
		Enabled:       true,
		DefaultLimit:  1000,
		DefaultWindow: time.Minute,
		EndpointConfigs: []EndpointConfig{
			{Path: "/plans", Method: "POST", Limit: 5, Window: time.Hour, Burst: 5},
			{Path: "/plans/", Method: "DELETE", Limit: 2, Window: time.Hour},
		},
	})

	for i := 0; i < 5; i++ {
		allowed, info := limiter.Allow("c", "/plans", "POST")
		require.True(t, allowed)
		assert.Equal(t, 5, info.Limit)
	}
	allowed, _ := limiter.Allow("c", "/plans", "POST")
	assert.False(t, allowed)

	// Prefix patterns share one bucket across ids
	allowed, _ = limiter.Allow("c", "/plans/a", "DELETE")
	assert.True(t, allowed)
	allowed, _ = limiter.Allow("c", "/plans/b", "DELETE")
	assert.True(t, allowed)
	allowed, _ = limiter.Allow("c", "/plans/c", "DELETE")
	assert.False(t, allowed)

	allowed, info := limiter.Allow("c", "/plans", "GET")
	assert.True(t, allowed)
	assert.Equal(t, 1000, info.Limit)
}

func TestLimiter_Unlimited(t *testing.T) {
	limiter, _ := newTestLimiter(t, &Config{
		Enabled:       true,
		DefaultLimit:  1,
		DefaultWindow: time.Minute,
	})

	for i := 0; i < 10; i++ {
		allowed, _ := limiter.Allow("c", "/health", "GET")
		require.True(t, allowed)
		allowed, _ = limiter.Allow("c", "/metrics", "GET")
		require.True(t, allowed)
	}
	assert.Zero(t, limiter.Len())
}

func TestLimiter_Concurrent(t *testing.T) {
	limiter, _ := newTestLimiter(t, &Config{
		Enabled:       true,
		DefaultLimit:  100,
		DefaultWindow: time.Minute,
	})

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowedCount := 0

	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if allowed, _ := limiter.Allow("127.0.0.1", "/plans", "GET"); allowed {
				mu.Lock()
				allowedCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, allowedCount)
}

func TestLimiter_Sweep(t *testing.T) {
	limiter, clock := newTestLimiter(t, &Config{
		Enabled:       true,
		DefaultLimit:  10,
		DefaultWindow: time.Minute,
		IdleTTL:       time.Minute,
	})

	for i := 0; i < 10; i++ {
		limiter.Allow(fmt.Sprintf("127.0.0.%d", i+1), "/plans", "GET")
	}
	require.Equal(t, 10, limiter.Len())

	clock.Advance(30 * time.Second)
	for i := 0; i < 5; i++ {
		limiter.Allow(fmt.Sprintf("127.0.0.%d", i+1), "/plans", "GET")
	}

	clock.Advance(45 * time.Second)
	limiter.sweep()
	assert.Equal(t, 5, limiter.Len())
}

func TestLimiter_StopIdempotent(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Minute, CleanupInterval: 10 * time.Millisecond})
	limiter.Stop()
	limiter.Stop()
}

func TestNewLimiter_NilConfig(t *testing.T) {
	limiter, _ := newTestLimiter(t, nil)

	allowed, info := limiter.Allow("127.0.0.1", "/plans", "GET")
	assert.True(t, allowed)
	assert.Equal(t, 1000, info.Limit)
}

func TestLoadConfig(t *testing.T) {
	env := map[string]string{
		EnvDefaultLimit:  "50",
		EnvDefaultWindow: "30s",
		EnvWhitelist:     "10.0.0.1, 10.0.0.2,",
		EnvBlacklist:     "",
	}
	cfg := LoadConfig(func(k string) string { return env[k] })

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 50, cfg.DefaultLimit)
	assert.Equal(t, 30*time.Second, cfg.DefaultWindow)
	assert.Equal(t, 5*time.Minute, cfg.CleanupInterval)
	assert.Equal(t, map[string]bool{"10.0.0.1": true, "10.0.0.2": true}, cfg.Whitelist)
	assert.Empty(t, cfg.Blacklist)
	assert.NotEmpty(t, cfg.EndpointConfigs)

	disabled := LoadConfig(func(k string) string {
		if k == EnvEnabled {
			return "false"
		}
		return ""
	})
	assert.False(t, disabled.Enabled)

	// Unparseable values fall back to defaults
	bad := LoadConfig(func(k string) string { return "nope" })
	assert.True(t, bad.Enabled)
	assert.Equal(t, 1000, bad.DefaultLimit)
}

func TestMatchEndpoint(t *testing.T) {
	configs := []EndpointConfig{
		{Path: "/plans", Method: "POST", Limit: 1},
		{Path: "/plans/", Method: "GET", Limit: 2},
		{Path: "/plans/x/", Method: "GET", Limit: 3},
	}

	tests := []struct {
		name      string
		path      string
		method    string
		wantLimit int
		wantNil   bool
	}{
		{name: "exact", path: "/plans", method: "POST", wantLimit: 1},
		{name: "prefix", path: "/plans/abc", method: "GET", wantLimit: 2},
		{name: "longest prefix", path: "/plans/x/files", method: "GET", wantLimit: 3},
		{name: "method mismatch", path: "/plans", method: "GET", wantNil: true},
		{name: "health unlimited", path: "/health", method: "GET", wantLimit: 0},
		{name: "metrics unlimited", path: "/metrics", method: "GET", wantLimit: 0},
		{name: "no match", path: "/other", method: "GET", wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchEndpoint(tt.path, tt.method, configs)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantLimit, got.Limit)
		})
	}
}
