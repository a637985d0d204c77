package ratelimiter_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nabbar/wdproxy/ratelimiter"
)

func TestRateLimiter_BurstThenSteady(t *testing.T) {
	rl, err := ratelimiter.New(5, 0)
	require.NoError(t, err)

	time.Sleep(1100 * time.Millisecond)

	for i := 0; i < 5; i++ {
		require.NoError(t, rl.TryAcquireToken())
	}
	require.Error(t, rl.TryAcquireToken())

	time.Sleep(1100 * time.Millisecond)
	for i := 0; i < 5; i++ {
		require.NoError(t, rl.TryAcquireToken())
	}
}

func TestRateLimiter_SustainedRate(t *testing.T) {
	rl, err := ratelimiter.New(2, 0)
	require.NoError(t, err)

	time.Sleep(1100 * time.Millisecond)

	deadline := time.Now().Add(3 * time.Second)
	successes := 0
	for time.Now().Before(deadline) {
		if rl.TryAcquireToken() == nil {
			successes++
		}
		time.Sleep(100 * time.Millisecond)
	}

	require.GreaterOrEqual(t, successes, 4)
	require.LessOrEqual(t, successes, 8)
}

func TestRateLimiter_EmptyAtConstruction(t *testing.T) {
	rl, err := ratelimiter.New(5, 5)
	require.NoError(t, err)
	require.Equal(t, uint32(0), rl.TokensAvailable())
}

func TestRateLimiter_ZeroDisablesWindow(t *testing.T) {
	rl, err := ratelimiter.New(0, 0)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		require.NoError(t, rl.TryAcquireToken())
	}
}

func TestRateLimiter_PerSecondTakesPrecedence(t *testing.T) {
	// Both buckets still empty right after construction: both windows are
	// exhausted simultaneously, and per-second must be named.
	rl, err := ratelimiter.New(5, 5)
	require.NoError(t, err)

	err = rl.TryAcquireToken()
	require.Error(t, err)
	exceeded, ok := err.(*ratelimiter.ExceededError)
	require.True(t, ok)
	require.Equal(t, ratelimiter.WindowSecond, exceeded.Window)
}
