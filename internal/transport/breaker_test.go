package transport

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// memCache is a synchronous, in-process cache.Cache fake — deterministic
// unlike ristretto's async Set, which is what these tests need.
type memCache struct {
	mu   sync.Mutex
	data map[string]interface{}
}

func newMemCache() *memCache { return &memCache{data: make(map[string]interface{})} }

func (c *memCache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok
}

func (c *memCache) Set(key string, value interface{}, _ time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return true
}

func (c *memCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

func (c *memCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]interface{})
}

func (c *memCache) Close() {}

func TestBreakerRegistry_CachesOnSuccess(t *testing.T) {
	cache := newMemCache()
	reg := NewBreakerRegistry(BreakerConfig{}, cache)

	result, err := reg.Do(context.Background(), "venue-b", "get-book", func() ([]byte, error) {
		return []byte("ok"), nil
	})
	require.NoError(t, err)
	require.Equal(t, []byte("ok"), result)

	cached, ok := cache.Get("transport:venue-b|get-book")
	require.True(t, ok)
	require.Equal(t, []byte("ok"), cached)
}

func TestBreakerRegistry_FallsBackToCacheWhenOpen(t *testing.T) {
	cache := newMemCache()
	reg := NewBreakerRegistry(BreakerConfig{FailureThreshold: 1, CooldownWindow: time.Hour}, cache)

	_, err := reg.Do(context.Background(), "venue-b", "get-book", func() ([]byte, error) {
		return []byte("first"), nil
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = reg.Do(context.Background(), "venue-b", "get-book", func() ([]byte, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	result, err := reg.Do(context.Background(), "venue-b", "get-book", func() ([]byte, error) {
		t.Fatal("fn should not be called while breaker is open")
		return nil, nil
	})
	require.NoError(t, err)
	require.Equal(t, []byte("first"), result)
}

func TestBreakerRegistry_RejectsWithNoCacheWhenOpen(t *testing.T) {
	reg := NewBreakerRegistry(BreakerConfig{FailureThreshold: 1, CooldownWindow: time.Hour}, nil)

	boom := errors.New("boom")
	_, err := reg.Do(context.Background(), "venue-a", "get-markets", func() ([]byte, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	_, err = reg.Do(context.Background(), "venue-a", "get-markets", func() ([]byte, error) {
		t.Fatal("fn should not be called while breaker is open")
		return nil, nil
	})
	require.Error(t, err)
}
