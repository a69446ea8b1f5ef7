package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mselser95/polymarket-arb/pkg/cache"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// BreakerConfig tunes the per-endpoint circuit breaker (spec §4.1: "after N
// consecutive failures... cooldown window").
type BreakerConfig struct {
	// FailureThreshold trips the breaker after this many consecutive failures.
	FailureThreshold uint32
	// CooldownWindow is how long the breaker stays open before probing again.
	CooldownWindow time.Duration
	// CacheTTL is how long a successful response is kept as a fallback value.
	CacheTTL time.Duration
	Logger   *zap.Logger
}

// BreakerRegistry holds one gobreaker.CircuitBreaker per (venue, endpoint)
// key, lazily created on first use, with a shared cache used to serve stale
// values while a breaker is open rather than failing the caller outright.
type BreakerRegistry struct {
	cfg   BreakerConfig
	cache cache.Cache

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[[]byte]
}

// NewBreakerRegistry constructs a BreakerRegistry backed by c for fallback
// values. c may be nil, in which case an open breaker always rejects.
func NewBreakerRegistry(cfg BreakerConfig, c cache.Cache) *BreakerRegistry {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.CooldownWindow == 0 {
		cfg.CooldownWindow = 60 * time.Second
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = cfg.CooldownWindow
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &BreakerRegistry{
		cfg:      cfg,
		cache:    c,
		breakers: make(map[string]*gobreaker.CircuitBreaker[[]byte]),
	}
}

func key(venue, endpoint string) string {
	return venue + "|" + endpoint
}

func (r *BreakerRegistry) breakerFor(venue, endpoint string) *gobreaker.CircuitBreaker[[]byte] {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(venue, endpoint)
	if b, ok := r.breakers[k]; ok {
		return b
	}

	settings := gobreaker.Settings{
		Name:        k,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     r.cfg.CooldownWindow,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= r.cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			r.cfg.Logger.Warn("breaker-state-change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			BreakerStateTransitionsTotal.WithLabelValues(venue, endpoint, to.String()).Inc()
		},
	}

	b := gobreaker.NewCircuitBreaker[[]byte](settings)
	r.breakers[k] = b
	return b
}

// DoNoCache executes fn through the (venue, endpoint) breaker like Do, but
// never reads or writes the fallback cache. Use this for mutating requests
// (order placement, cancellation) where replaying a stale cached response
// while the breaker is open would be unsafe rather than merely stale.
func (r *BreakerRegistry) DoNoCache(_ context.Context, venue, endpoint string, fn func() ([]byte, error)) ([]byte, error) {
	b := r.breakerFor(venue, endpoint)

	result, err := b.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			BreakerRejectionsTotal.WithLabelValues(venue, endpoint).Inc()
		}
		return nil, err
	}
	return result, nil
}

// Do executes fn through the (venue, endpoint) breaker. On success the
// result is cached for fallback use; if the breaker is open, a cached value
// is served instead of calling fn; with no cached value the breaker's
// rejection error propagates.
func (r *BreakerRegistry) Do(_ context.Context, venue, endpoint string, fn func() ([]byte, error)) ([]byte, error) {
	b := r.breakerFor(venue, endpoint)
	cacheKey := fmt.Sprintf("transport:%s", key(venue, endpoint))

	result, err := b.Execute(fn)
	if err == nil {
		if r.cache != nil {
			r.cache.Set(cacheKey, result, r.cfg.CacheTTL)
		}
		return result, nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		if r.cache != nil {
			if cached, ok := r.cache.Get(cacheKey); ok {
				if body, ok := cached.([]byte); ok {
					BreakerFallbacksTotal.WithLabelValues(venue, endpoint).Inc()
					return body, nil
				}
			}
		}
		BreakerRejectionsTotal.WithLabelValues(venue, endpoint).Inc()
	}

	return nil, err
}
