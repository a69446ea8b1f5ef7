package execution

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mselser95/polymarket-arb/pkg/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeVenueClient immediately fills every order it places.
type fakeVenueClient struct {
	mu     sync.Mutex
	orders map[string]*types.OpenOrder
	fillPct float64 // fraction of OriginalSize filled when polled.
}

func newFakeVenueClient(fillPct float64) *fakeVenueClient {
	return &fakeVenueClient{orders: make(map[string]*types.OpenOrder), fillPct: fillPct}
}

func (f *fakeVenueClient) PlaceOrder(ctx context.Context, env *types.SignedOrderEnvelope) (*types.OpenOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := env.TokenID + "-" + string(env.Side) + "-" + time.Now().String()
	order := &types.OpenOrder{
		Venue:   env.Venue,
		OrderID: id,
		Side:    env.Side,
		Price:   env.Price,
		Status:  types.OrderLive,
	}
	f.orders[id] = order
	return order, nil
}

func (f *fakeVenueClient) CancelOrder(ctx context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o, ok := f.orders[orderID]; ok {
		o.Status = types.OrderCancelled
	}
	return nil
}

func (f *fakeVenueClient) GetOrderStatus(ctx context.Context, orderID string) (*types.OpenOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return nil, context.DeadlineExceeded
	}
	cp := *o
	cp.FilledSize = 10 * f.fillPct
	cp.Status = types.OrderFilled
	return &cp, nil
}

type fakeBookSource struct {
	books map[string]*types.NormalizedOrderBook
}

func (f *fakeBookSource) GetBook(venue types.Venue, assetID string) (*types.NormalizedOrderBook, bool, bool) {
	b, ok := f.books[string(venue)+":"+assetID]
	return b, false, ok
}

type fakeMappingLookup struct {
	mapping *types.MarketMapping
}

func (f *fakeMappingLookup) MappingForMarket(marketIDA string) (*types.MarketMapping, bool) {
	return f.mapping, true
}

func testSigner(t *testing.T, venue types.Venue) *Signer {
	t.Helper()
	s, err := NewSigner(&SignerConfig{
		Venue:         venue,
		ChainID:       137,
		PrivateKeyHex: "0x59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690",
		SignatureType: 0,
		Logger:        zap.NewNop(),
	})
	require.NoError(t, err)
	return s
}

func TestTaskExecutor_RunBuy_HedgesAfterFill(t *testing.T) {
	mapping := &types.MarketMapping{
		MarketIDA: "m1", YesTokenA: "yes-a", NoTokenB: "no-b", TickSize: 0.01,
	}
	books := &fakeBookSource{books: map[string]*types.NormalizedOrderBook{
		"venue-b:no-b": {Asks: []types.PriceSize{{Price: 0.50, Size: 100}}},
	}}

	venueAClient := newFakeVenueClient(1.0)
	venueBClient := newFakeVenueClient(1.0)

	exec := New(&Config{
		VenueAClient: venueAClient,
		VenueBClient: venueBClient,
		SignerA:      testSigner(t, types.VenueA),
		SignerB:      testSigner(t, types.VenueB),
		Books:        books,
		Mappings:     &fakeMappingLookup{mapping: mapping},
		Logger:       zap.NewNop(),
		PollInitial:  time.Millisecond,
		PollMax:      5 * time.Millisecond,
		PollMult:     1.2,
	})

	task := &types.Task{
		ID: "t1", Kind: types.TaskBuy, Strategy: types.StrategyTaker,
		MarketIDA: "m1", ArbSide: types.OutcomeYes, Quantity: 10,
		Params: types.TaskParams{
			PredictAskPrice:  0.45,
			PolymarketMaxAsk: 0.55,
			MaxTotalCost:     1.0,
		},
		OrderTimeout:    time.Second,
		MaxHedgeRetries: 2,
	}

	var events []types.TaskEvent
	var mu sync.Mutex
	emit := func(e types.TaskEvent) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := exec.Execute(ctx, task, emit)
	require.NoError(t, err)
	require.Equal(t, types.TaskCompleted, task.Status)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, events)
	require.Equal(t, types.EventTaskComplete, events[len(events)-1].Kind)
}

func TestTaskExecutor_ValidationErrorFailsTask(t *testing.T) {
	exec := New(&Config{
		VenueAClient: newFakeVenueClient(1.0),
		VenueBClient: newFakeVenueClient(1.0),
		SignerA:      testSigner(t, types.VenueA),
		SignerB:      testSigner(t, types.VenueB),
		Books:        &fakeBookSource{books: map[string]*types.NormalizedOrderBook{}},
		Mappings:     &fakeMappingLookup{mapping: &types.MarketMapping{MarketIDA: "m2"}},
		Logger:       zap.NewNop(),
	})

	task := &types.Task{ID: "t2", Kind: types.TaskBuy, Strategy: types.StrategyTaker, MarketIDA: "m2", Quantity: 1}

	var gotFailed bool
	emit := func(e types.TaskEvent) {
		if e.Kind == types.EventTaskFailed {
			gotFailed = true
		}
	}

	err := exec.Execute(context.Background(), task, emit)
	require.Error(t, err)
	require.Equal(t, types.TaskFailed, task.Status)
	require.True(t, gotFailed)
}
