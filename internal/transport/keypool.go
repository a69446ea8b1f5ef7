package transport

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// apiKey is a single pooled credential with its own rate limiter and an
// explicit cooldown-until timestamp set when the venue responds 429.
type apiKey struct {
	value         string
	limiter       *rate.Limiter
	cooldownUntil time.Time
}

// KeyPool rotates through a pool of API keys for a single venue, each
// independently rate-limited and cooled down on 429 (spec §5 "Rate
// limits"). Round-robins across keys that are neither rate-limited nor in
// cooldown; returns RateLimitError when none are available.
type KeyPool struct {
	venue string

	mu   sync.Mutex
	keys []*apiKey
	next int
}

// NewKeyPool constructs a KeyPool for venue over the given key values, each
// allowed ratePerSecond requests per second with the given burst.
func NewKeyPool(venue string, values []string, ratePerSecond float64, burst int) *KeyPool {
	keys := make([]*apiKey, 0, len(values))
	for _, v := range values {
		keys = append(keys, &apiKey{
			value:   v,
			limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
		})
	}
	return &KeyPool{venue: venue, keys: keys}
}

// Acquire returns the next available key value, or a *RateLimitError if
// every key is either cooling down or momentarily rate-limited.
func (p *KeyPool) Acquire(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.keys) == 0 {
		return "", &RateLimitError{Venue: p.venue}
	}

	now := time.Now()
	for i := 0; i < len(p.keys); i++ {
		idx := (p.next + i) % len(p.keys)
		k := p.keys[idx]
		if k.cooldownUntil.After(now) {
			continue
		}
		if !k.limiter.AllowN(now, 1) {
			continue
		}
		p.next = (idx + 1) % len(p.keys)
		return k.value, nil
	}

	KeyPoolExhaustedTotal.WithLabelValues(p.venue).Inc()
	return "", &RateLimitError{Venue: p.venue}
}

// Cooldown marks key as unavailable until d from now, called after the
// venue responds 429 for that key.
func (p *KeyPool) Cooldown(key string, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, k := range p.keys {
		if k.value == key {
			k.cooldownUntil = time.Now().Add(d)
			KeyCooldownsTotal.WithLabelValues(p.venue).Inc()
			return
		}
	}
}
