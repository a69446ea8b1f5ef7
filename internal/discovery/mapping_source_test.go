package discovery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/pkg/types"
)

type fakeMappingSource struct {
	mappings []*types.MarketMapping
}

func (f *fakeMappingSource) FetchMappings(_ context.Context) ([]*types.MarketMapping, error) {
	return f.mappings, nil
}

func gammaStub(t *testing.T, markets []types.Market) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(markets)
	}))
}

func TestEnrichingMappingSource_FillsMissingMetadata(t *testing.T) {
	server := gammaStub(t, []types.Market{
		{ID: "condition-b-1", Slug: "will-it-rain", Question: "Will it rain tomorrow?", TickSize: 0.01},
	})
	defer server.Close()

	logger, _ := zap.NewDevelopment()
	client := NewClient(server.URL, logger, nil)
	base := &fakeMappingSource{mappings: []*types.MarketMapping{
		{MarketIDA: "market-a-1", ConditionIDB: "condition-b-1", YesTokenA: "yes-a", NoTokenA: "no-a"},
	}}

	src := NewEnrichingMappingSource(base, client, logger)

	out, err := src.FetchMappings(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 mapping, got %d", len(out))
	}
	if out[0].EventTitle != "Will it rain tomorrow?" {
		t.Errorf("event title = %q, want %q", out[0].EventTitle, "Will it rain tomorrow?")
	}
	if out[0].TickSize != 0.01 {
		t.Errorf("tick size = %v, want 0.01", out[0].TickSize)
	}
	if out[0].MarketIDA != "market-a-1" {
		t.Errorf("market id a = %q, want preserved from curated mapping", out[0].MarketIDA)
	}
}

func TestEnrichingMappingSource_PreservesCuratedMetadata(t *testing.T) {
	server := gammaStub(t, []types.Market{
		{ID: "condition-b-1", Slug: "will-it-rain", Question: "Will it rain tomorrow?", TickSize: 0.01},
	})
	defer server.Close()

	logger, _ := zap.NewDevelopment()
	client := NewClient(server.URL, logger, nil)
	base := &fakeMappingSource{mappings: []*types.MarketMapping{
		{MarketIDA: "market-a-1", ConditionIDB: "condition-b-1", EventTitle: "operator title", TickSize: 0.05},
	}}

	src := NewEnrichingMappingSource(base, client, logger)

	out, err := src.FetchMappings(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0].EventTitle != "operator title" {
		t.Errorf("expected curated EventTitle to win, got %q", out[0].EventTitle)
	}
	if out[0].TickSize != 0.05 {
		t.Errorf("expected curated TickSize to win, got %v", out[0].TickSize)
	}
}

func TestEnrichingMappingSource_DropsUnresolvableMapping(t *testing.T) {
	server := gammaStub(t, []types.Market{
		{ID: "condition-b-other", Slug: "unrelated", Question: "Unrelated?"},
	})
	defer server.Close()

	logger, _ := zap.NewDevelopment()
	client := NewClient(server.URL, logger, nil)
	base := &fakeMappingSource{mappings: []*types.MarketMapping{
		{MarketIDA: "market-a-1", ConditionIDB: "condition-b-missing"},
		{MarketIDA: "market-a-2", ConditionIDB: "condition-b-other"},
	}}

	src := NewEnrichingMappingSource(base, client, logger)

	out, err := src.FetchMappings(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected unresolvable mapping to be dropped, got %d results", len(out))
	}
	if out[0].MarketIDA != "market-a-2" {
		t.Errorf("market id a = %q, want market-a-2", out[0].MarketIDA)
	}
}
