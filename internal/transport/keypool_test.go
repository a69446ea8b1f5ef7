package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestKeyPool_RoundRobinsAcrossKeys(t *testing.T) {
	pool := NewKeyPool("venue-b", []string{"k1", "k2"}, 100, 10)

	first, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	second, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	require.NotEqual(t, first, second)
}

func TestKeyPool_CooldownSkipsKey(t *testing.T) {
	pool := NewKeyPool("venue-b", []string{"k1", "k2"}, 100, 10)
	pool.Cooldown("k1", time.Minute)

	for i := 0; i < 4; i++ {
		got, err := pool.Acquire(context.Background())
		require.NoError(t, err)
		require.Equal(t, "k2", got)
	}
}

func TestKeyPool_ExhaustedReturnsRateLimitError(t *testing.T) {
	pool := NewKeyPool("venue-b", []string{"k1"}, 100, 10)
	pool.Cooldown("k1", time.Minute)

	_, err := pool.Acquire(context.Background())
	require.Error(t, err)
	var rlErr *RateLimitError
	require.ErrorAs(t, err, &rlErr)
}

func TestKeyPool_EmptyPoolReturnsRateLimitError(t *testing.T) {
	pool := NewKeyPool("venue-b", nil, 100, 10)
	_, err := pool.Acquire(context.Background())
	require.Error(t, err)
}
