package discovery

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/internal/markets"
	"github.com/mselser95/polymarket-arb/pkg/types"
)

// EnrichingMappingSource wraps an operator-curated markets.MappingSource and
// fills in the Venue-B metadata fields EventTitle and TickSize when a
// curated file/static list leaves them zero, by looking each mapping's
// ConditionIDB up against the Gamma API. FeeRateBps is not filled in; it
// keeps whatever value the curated mapping carries. A mapping whose condition
// can no longer be found (closed, delisted) is dropped from the returned set
// rather than failing the whole poll, so one stale entry in an operator's
// mapping file doesn't take every other pair down with it.
type EnrichingMappingSource struct {
	base   markets.MappingSource
	client *Client
	logger *zap.Logger
}

// NewEnrichingMappingSource constructs an EnrichingMappingSource over base,
// using client to resolve Venue-B market metadata.
func NewEnrichingMappingSource(base markets.MappingSource, client *Client, logger *zap.Logger) *EnrichingMappingSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrichingMappingSource{base: base, client: client, logger: logger}
}

// FetchMappings implements markets.MappingSource.
func (s *EnrichingMappingSource) FetchMappings(ctx context.Context) ([]*types.MarketMapping, error) {
	curated, err := s.base.FetchMappings(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch curated mappings: %w", err)
	}

	enriched := make([]*types.MarketMapping, 0, len(curated))
	for _, mapping := range curated {
		market, err := s.client.FetchMarketByConditionID(ctx, mapping.ConditionIDB)
		if err != nil {
			MappingEnrichErrorsTotal.Inc()
			s.logger.Warn("mapping-enrich-failed",
				zap.String("condition-id-b", mapping.ConditionIDB),
				zap.Error(err))
			continue
		}

		m := *mapping
		if m.EventTitle == "" {
			m.EventTitle = market.Question
		}
		if m.TickSize == 0 {
			m.TickSize = market.TickSize
		}
		MappingsEnrichedTotal.Inc()
		enriched = append(enriched, &m)
	}

	return enriched, nil
}
