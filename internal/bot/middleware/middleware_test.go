package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRateLimiterSlidingWindow(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Close()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	require.True(t, rl.Allow(1))
	require.True(t, rl.Allow(1))
	require.False(t, rl.Allow(1))

	// другой пользователь считается отдельно
	require.True(t, rl.Allow(2))

	now = now.Add(61 * time.Second)
	require.True(t, rl.Allow(1))
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(0, time.Minute)
	defer rl.Close()

	for i := 0; i < 100; i++ {
		require.True(t, rl.Allow(42))
	}
}

func TestRateLimiterSweep(t *testing.T) {
	rl := NewRateLimiter(5, time.Minute)
	defer rl.Close()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow(1)
	now = now.Add(30 * time.Second)
	rl.Allow(2)

	now = now.Add(45 * time.Second)
	rl.sweep()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	require.NotContains(t, rl.requests, int64(1))
	require.Len(t, rl.requests[2], 1)
}

func TestRateLimiterCloseTwice(t *testing.T) {
	rl := NewRateLimiter(1, time.Second)
	rl.Close()
	require.NotPanics(t, rl.Close)
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "abc", Truncate("abc", 5))
	require.Equal(t, "прив...", Truncate("привет", 4))
}

func TestRecoverFromPanic(t *testing.T) {
	require.NotPanics(t, func() {
		defer RecoverFromPanic(7)
		panic("boom")
	})
}
