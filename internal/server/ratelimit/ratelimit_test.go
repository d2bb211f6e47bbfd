package ratelimit

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock drives a Limiter deterministically.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(cfg *Config) (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := NewLimiter(cfg)
	l.now = clock.Now
	return l, clock
}

func testConfig() *Config {
	return &Config{
		Enabled:       true,
		DefaultLimit:  10,
		DefaultWindow: 10 * time.Second,
		Whitelist:     map[string]bool{"10.0.0.1": true},
		Blacklist:     map[string]bool{"10.0.0.2": true},
		EndpointConfigs: []EndpointConfig{
			{Path: "/sessions", Method: "POST", Limit: 2, Window: time.Hour, Burst: 2},
			{Path: "/sessions/*/analysis", Method: "POST", Limit: 1, Window: time.Hour, Burst: 1},
		},
	}
}

func TestLimiter_AllowAndRefill(t *testing.T) {
	l, clock := newTestLimiter(testConfig())
	defer l.Stop()

	for i := 0; i < 10; i++ {
		ok, info := l.Allow("c1", "/sessions/x", "GET")
		require.True(t, ok, "request %d", i+1)
		assert.Equal(t, 10, info.Limit)
		assert.Equal(t, 9-i, info.Remaining)
	}

	ok, info := l.Allow("c1", "/sessions/x", "GET")
	assert.False(t, ok)
	assert.Equal(t, time.Second, info.RetryAfter)

	clock.Advance(time.Second)
	ok, _ = l.Allow("c1", "/sessions/x", "GET")
	assert.True(t, ok, "one token refilled")
}

func TestLimiter_ResetTime(t *testing.T) {
	l, clock := newTestLimiter(testConfig())
	defer l.Stop()

	for i := 0; i < 5; i++ {
		l.Allow("c1", "/x", "GET")
	}
	_, info := l.Allow("c1", "/x", "GET")
	assert.Equal(t, clock.Now().Add(6*time.Second), info.ResetTime)
}

func TestLimiter_WhitelistAndBlacklist(t *testing.T) {
	l, _ := newTestLimiter(testConfig())
	defer l.Stop()

	for i := 0; i < 50; i++ {
		ok, _ := l.Allow("10.0.0.1", "/sessions", "POST")
		require.True(t, ok)
	}
	ok, _ := l.Allow("10.0.0.2", "/health", "GET")
	assert.False(t, ok)
}

func TestLimiter_Disabled(t *testing.T) {
	l, _ := newTestLimiter(&Config{Enabled: false})
	defer l.Stop()

	for i := 0; i < 100; i++ {
		ok, info := l.Allow("c1", "/sessions", "POST")
		require.True(t, ok)
		assert.Zero(t, info.Limit)
	}
}

func TestLimiter_EndpointSpecific(t *testing.T) {
	l, _ := newTestLimiter(testConfig())
	defer l.Stop()

	ok, _ := l.Allow("c1", "/sessions", "POST")
	assert.True(t, ok)
	ok, _ = l.Allow("c1", "/sessions", "POST")
	assert.True(t, ok)
	ok, info := l.Allow("c1", "/sessions", "POST")
	assert.False(t, ok)
	assert.Equal(t, 2, info.Limit)

	ok, _ = l.Allow("c2", "/sessions", "POST")
	assert.True(t, ok, "buckets are per client")

	ok, _ = l.Allow("c1", "/sessions/a/analysis", "POST")
	assert.True(t, ok)
	ok, _ = l.Allow("c1", "/sessions/b/analysis", "POST")
	assert.False(t, ok, "glob rule shares one bucket across sessions")
}

func TestLimiter_HealthUnlimited(t *testing.T) {
	l, _ := newTestLimiter(testConfig())
	defer l.Stop()

	for i := 0; i < 100; i++ {
		ok, _ := l.Allow("c1", "/health", "GET")
		require.True(t, ok)
	}
	assert.Zero(t, l.Len())
}

func TestLimiter_Concurrent(t *testing.T) {
	l, _ := newTestLimiter(testConfig())
	defer l.Stop()

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow("c1", "/x", "GET"); ok {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(10), allowed.Load())
}

func TestLimiter_CleanupDropsIdleBuckets(t *testing.T) {
	l, clock := newTestLimiter(testConfig())
	defer l.Stop()

	l.Allow("c1", "/x", "GET")
	clock.Advance(30 * time.Minute)
	l.Allow("c2", "/x", "GET")
	require.Equal(t, 2, l.Len())

	clock.Advance(45 * time.Minute)
	l.cleanupBuckets()
	assert.Equal(t, 1, l.Len())
}

func TestNewLimiter_NilConfig(t *testing.T) {
	l := NewLimiter(nil)
	defer l.Stop()

	ok, info := l.Allow("c1", "/anything", "GET")
	assert.True(t, ok)
	assert.Equal(t, 1000, info.Limit)
	l.Stop()
}

func TestMatchEndpoint(t *testing.T) {
	configs := DefaultEndpointConfigs()

	tests := []struct {
		path, method string
		want         string
	}{
		{"/sessions", "POST", "/sessions"},
		{"/sessions/abc/analysis", "POST", "/sessions/*/analysis"},
		{"/sessions/abc/agents/HR_ANSWER_GENERATION/retry", "POST", "/sessions/*/agents/*/retry"},
		{"/sessions/abc/chat", "POST", "/sessions/*/chat"},
		{"/sessions/abc/chat/messages", "POST", "/sessions/*/chat/messages"},
		{"/sessions/abc", "GET", ""},
		{"/sessions/abc/analysis", "GET", ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			got := MatchEndpoint(tt.path, tt.method, configs)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Path)
		})
	}

	health := MatchEndpoint("/health", "GET", configs)
	require.NotNil(t, health)
	assert.Zero(t, health.Limit)
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "true")
	t.Setenv("RATE_LIMIT_DEFAULT_LIMIT", "50")
	t.Setenv("RATE_LIMIT_DEFAULT_WINDOW", "30s")
	t.Setenv("RATE_LIMIT_WHITELIST", "1.1.1.1, 2.2.2.2")

	cfg := LoadConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 50, cfg.DefaultLimit)
	assert.Equal(t, 30*time.Second, cfg.DefaultWindow)
	assert.True(t, cfg.Whitelist["2.2.2.2"])
	assert.NotEmpty(t, cfg.EndpointConfigs)

	t.Setenv("RATE_LIMIT_ENABLED", "false")
	assert.False(t, LoadConfig().Enabled)
}
