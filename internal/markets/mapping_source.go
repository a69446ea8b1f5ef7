package markets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mselser95/polymarket-arb/pkg/types"
)

// FileMappingSource reads the operator-maintained list of cross-venue
// MarketMappings from a JSON file on disk. There is no automated matching of
// Venue-A markets to Venue-B conditions in this system; an operator (or an
// out-of-band tool) curates the pairing and this source reloads it on every
// poll so edits take effect without a restart.
type FileMappingSource struct {
	path string
}

// NewFileMappingSource constructs a FileMappingSource reading from path.
func NewFileMappingSource(path string) *FileMappingSource {
	return &FileMappingSource{path: path}
}

// FetchMappings implements MappingSource.
func (s *FileMappingSource) FetchMappings(_ context.Context) ([]*types.MarketMapping, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read mapping file %s: %w", s.path, err)
	}

	var mappings []*types.MarketMapping
	if err := json.Unmarshal(data, &mappings); err != nil {
		return nil, fmt.Errorf("parse mapping file %s: %w", s.path, err)
	}

	return mappings, nil
}

// StaticMappingSource serves a fixed, in-process list of mappings. Useful for
// tests and for wiring a single hardcoded pair without a file on disk.
type StaticMappingSource struct {
	mappings []*types.MarketMapping
}

// NewStaticMappingSource constructs a StaticMappingSource over mappings.
func NewStaticMappingSource(mappings []*types.MarketMapping) *StaticMappingSource {
	return &StaticMappingSource{mappings: mappings}
}

// FetchMappings implements MappingSource.
func (s *StaticMappingSource) FetchMappings(_ context.Context) ([]*types.MarketMapping, error) {
	return s.mappings, nil
}
