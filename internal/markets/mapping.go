package markets

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mselser95/polymarket-arb/pkg/types"
	"go.uber.org/zap"
)

// MappingSource supplies the current full set of cross-venue MarketMappings.
// Concrete sources range from an operator-maintained static list to a future
// auto-matching job that pairs Venue-A markets and Venue-B conditions by
// event title/slug; the registry is agnostic to how the set is produced.
type MappingSource interface {
	FetchMappings(ctx context.Context) ([]*types.MarketMapping, error)
}

// MappingRegistry holds the live set of MarketMappings, indexed for O(1)
// lookup from either a Venue-A/Venue-B token id or a Venue-A market id. It
// satisfies both arbitrage.MappingProvider and execution.MappingLookup so a
// single instance can be shared across C2 and C3.
//
// A poll loop refreshes state from an upstream source into an in-memory index, guarded by a RWMutex for
// concurrent readers.
type MappingRegistry struct {
	source       MappingSource
	pollInterval time.Duration
	logger       *zap.Logger

	mu        sync.RWMutex
	byAsset   map[string]*types.MarketMapping
	byMarketA map[string]*types.MarketMapping
}

// MappingRegistryConfig configures a MappingRegistry.
type MappingRegistryConfig struct {
	Source       MappingSource
	PollInterval time.Duration
	Logger       *zap.Logger
}

// NewMappingRegistry constructs a MappingRegistry. PollInterval defaults to
// 5 minutes; mappings change far less often than order books or metadata.
func NewMappingRegistry(cfg MappingRegistryConfig) *MappingRegistry {
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 5 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &MappingRegistry{
		source:       cfg.Source,
		pollInterval: cfg.PollInterval,
		logger:       cfg.Logger,
		byAsset:      make(map[string]*types.MarketMapping),
		byMarketA:    make(map[string]*types.MarketMapping),
	}
}

// Run polls the mapping source on PollInterval until ctx is cancelled. An
// initial refresh happens synchronously before Run returns control to the
// caller's select loop, so the registry is populated before C2/C3 come up.
func (r *MappingRegistry) Run(ctx context.Context) error {
	if err := r.refresh(ctx); err != nil {
		r.logger.Error("mapping-initial-refresh-failed", zap.Error(err))
	}

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.refresh(ctx); err != nil {
				r.logger.Warn("mapping-refresh-failed", zap.Error(err))
			}
		}
	}
}

func (r *MappingRegistry) refresh(ctx context.Context) error {
	start := time.Now()
	defer func() { MappingRefreshDuration.Observe(time.Since(start).Seconds()) }()

	mappings, err := r.source.FetchMappings(ctx)
	if err != nil {
		MappingRefreshErrorsTotal.Inc()
		return fmt.Errorf("fetch mappings: %w", err)
	}

	r.Load(mappings)
	return nil
}

// Load replaces the registry's contents with mappings. Exported so tests and
// static sources can seed the registry directly without a MappingSource.
func (r *MappingRegistry) Load(mappings []*types.MarketMapping) {
	byAsset := make(map[string]*types.MarketMapping, len(mappings)*4)
	byMarketA := make(map[string]*types.MarketMapping, len(mappings))

	for _, m := range mappings {
		if m == nil {
			continue
		}
		for _, token := range []string{m.YesTokenA, m.NoTokenA, m.YesTokenB, m.NoTokenB} {
			if token != "" {
				byAsset[token] = m
			}
		}
		if m.MarketIDA != "" {
			byMarketA[m.MarketIDA] = m
		}
	}

	r.mu.Lock()
	r.byAsset = byAsset
	r.byMarketA = byMarketA
	r.mu.Unlock()

	MappingCount.Set(float64(len(mappings)))
	r.logger.Info("mapping-registry-loaded", zap.Int("count", len(mappings)))
}

// MappingForAsset resolves the MarketMapping owning assetID, satisfying
// arbitrage.MappingProvider.
func (r *MappingRegistry) MappingForAsset(assetID string) (*types.MarketMapping, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byAsset[assetID]
	return m, ok
}

// ListMappings returns all known mappings, satisfying
// arbitrage.MappingProvider's full-scan path.
func (r *MappingRegistry) ListMappings() []*types.MarketMapping {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*types.MarketMapping, 0, len(r.byMarketA))
	seen := make(map[*types.MarketMapping]bool, len(r.byMarketA))
	for _, m := range r.byMarketA {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

// MappingForMarket resolves the MarketMapping for a Venue-A market id,
// satisfying execution.MappingLookup.
func (r *MappingRegistry) MappingForMarket(marketIDA string) (*types.MarketMapping, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byMarketA[marketIDA]
	return m, ok
}
