package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mselser95/polymarket-arb/internal/arbitrage"
	"github.com/mselser95/polymarket-arb/internal/markets"
	"github.com/mselser95/polymarket-arb/internal/orderbook"
	"github.com/mselser95/polymarket-arb/internal/venueA"
	"github.com/mselser95/polymarket-arb/pkg/config"
	"github.com/mselser95/polymarket-arb/pkg/types"
	"github.com/mselser95/polymarket-arb/pkg/websocket"
)

//nolint:gochecknoglobals // Cobra boilerplate
var executeArbCmd = &cobra.Command{
	Use:   "execute-arb <market-id-a>",
	Short: "Connect both venues for one curated mapping and print a live arb read",
	Long: `Loads a single curated mapping (matched by its Venue-A market id), opens a
Venue-A market WS connection and a Venue-B orderbook WS connection for its
tokens, waits for both books to populate, then evaluates the maker/taker BUY
arbitrage costs. Useful for sanity-checking a mapping without running the
full bot.

Example:
  polymarket-arb execute-arb 0x1234...`,
	Args: cobra.ExactArgs(1),
	RunE: runExecuteArb,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(executeArbCmd)
	executeArbCmd.Flags().Float64P("max-position", "m", 0, "Max position size in shares (0 = unbounded)")
	executeArbCmd.Flags().Duration("wait", 30*time.Second, "How long to wait for both books to populate")
}

func runExecuteArb(cmd *cobra.Command, args []string) error {
	marketIDA := args[0]

	maxPosition, _ := cmd.Flags().GetFloat64("max-position")
	wait, _ := cmd.Flags().GetDuration("wait")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	mapping, err := findMapping(ctx, cfg, marketIDA)
	if err != nil {
		return err
	}

	fmt.Printf("=== Cross-Venue Arbitrage Read (Paper Mode) ===\n\n")
	fmt.Printf("Event: %s\n", mapping.EventTitle)
	fmt.Printf("Venue-A market: %s\n", mapping.MarketIDA)
	fmt.Printf("Venue-B condition: %s\n\n", mapping.ConditionIDB)

	rawChan := make(chan *orderbook.RawUpdate, 1000)
	obManager := orderbook.New(&orderbook.Config{Logger: logger, MessageChannel: rawChan, StaleAfter: wait})
	if startErr := obManager.Start(ctx); startErr != nil {
		return fmt.Errorf("start orderbook manager: %w", startErr)
	}
	defer obManager.Close()

	venueAOut := make(chan orderbook.RawUpdate, 1000)
	go forwardRawUpdates(ctx, venueAOut, rawChan)

	marketClient := venueA.NewMarketClient(venueA.MarketClientConfig{
		URL:                   cfg.VenueAWSURL,
		DialTimeout:           cfg.WSDialTimeout,
		ReconnectInitialDelay: cfg.WSReconnectInitialDelay,
		ReconnectMaxDelay:     cfg.WSReconnectMaxDelay,
		ReconnectBackoffMult:  cfg.WSReconnectBackoffMult,
		Logger:                logger,
	}, venueAOut)
	if startErr := marketClient.Start(); startErr != nil {
		return fmt.Errorf("start venue-a market client: %w", startErr)
	}
	defer marketClient.Close()
	if subErr := marketClient.Subscribe([]string{mapping.MarketIDA}); subErr != nil {
		return fmt.Errorf("subscribe venue-a: %w", subErr)
	}

	venueBManager := websocket.New(websocket.Config{
		URL:                   cfg.PolymarketWSURL,
		DialTimeout:           cfg.WSDialTimeout,
		PongTimeout:           cfg.WSPongTimeout,
		PingInterval:          cfg.WSPingInterval,
		ReconnectInitialDelay: cfg.WSReconnectInitialDelay,
		ReconnectMaxDelay:     cfg.WSReconnectMaxDelay,
		ReconnectBackoffMult:  cfg.WSReconnectBackoffMult,
		MessageBufferSize:     cfg.WSMessageBufferSize,
		Logger:                logger,
	})
	if startErr := venueBManager.Start(); startErr != nil {
		return fmt.Errorf("start venue-b websocket: %w", startErr)
	}
	defer venueBManager.Close()

	noTokenB := mapping.NoTokenB
	if subErr := venueBManager.Subscribe(ctx, []string{noTokenB}); subErr != nil {
		return fmt.Errorf("subscribe venue-b: %w", subErr)
	}
	go adaptVenueBMessages(ctx, mapping, venueBManager.MessageChan(), rawChan)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	fmt.Println("Waiting for both books to populate...")
	timeout := time.After(wait)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-sigChan:
			fmt.Println("\nShutdown requested")
			return nil
		case <-timeout:
			return fmt.Errorf("timeout waiting for orderbook data")
		case <-ticker.C:
			yesBookA, staleA, okA := obManager.GetBook(types.VenueA, mapping.YesTokenA)
			noBookB, staleB, okB := obManager.GetBook(types.VenueB, noTokenB)
			if !okA || !okB || staleA || staleB {
				continue
			}
			yesBid, yesBidSize, hasYesBid := yesBookA.BestBid()
			yesAsk, yesAskSize, hasYesAsk := yesBookA.BestAsk()
			noAsk, noAskSize, hasNoAsk := noBookB.BestAsk()
			if !hasYesBid || !hasYesAsk || !hasNoAsk {
				continue
			}

			costs := arbitrage.EvaluateBuy(arbitrage.BuyLegInputs{
				VenueAYesBid:      yesBid,
				VenueAYesBidDepth: yesBidSize,
				VenueAYesAsk:      yesAsk,
				VenueAYesAskDepth: yesAskSize,
				VenueBNoAsk:       noAsk,
				VenueBNoAskDepth:  noAskSize,
				FeeRateBps:        mapping.FeeRateBps,
				MaxPosition:       maxPosition,
			})

			printArbRead(costs)
			return nil
		}
	}
}

func findMapping(ctx context.Context, cfg *config.Config, marketIDA string) (*types.MarketMapping, error) {
	if cfg.MappingSourceType == "static" {
		return nil, fmt.Errorf("no mapping file configured for static source; set MAPPING_FILE_PATH and MAPPING_SOURCE_TYPE=file")
	}
	source := markets.NewFileMappingSource(cfg.MappingFilePath)

	all, err := source.FetchMappings(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch mappings: %w", err)
	}
	for _, m := range all {
		if m.MarketIDA == marketIDA {
			return m, nil
		}
	}
	return nil, fmt.Errorf("no curated mapping found for market id %q in %s", marketIDA, cfg.MappingFilePath)
}

func forwardRawUpdates(ctx context.Context, in <-chan orderbook.RawUpdate, out chan<- *orderbook.RawUpdate) {
	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-in:
			if !ok {
				return
			}
			cp := upd
			select {
			case out <- &cp:
			case <-ctx.Done():
				return
			}
		}
	}
}

// adaptVenueBMessages translates Venue-B's push-WS orderbook frames into the
// shared RawUpdate shape the cache understands.
func adaptVenueBMessages(ctx context.Context, mapping *types.MarketMapping, in <-chan *types.OrderbookMessage, out chan<- *orderbook.RawUpdate) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			if msg.EventType != "book" && msg.EventType != "price_change" {
				continue
			}
			outcome := types.OutcomeUnknown
			switch msg.AssetID {
			case mapping.YesTokenB:
				outcome = types.OutcomeYes
			case mapping.NoTokenB:
				outcome = types.OutcomeNo
			}
			upd := &orderbook.RawUpdate{
				Venue:             types.VenueB,
				MarketID:          mapping.ConditionIDB,
				AssetID:           msg.AssetID,
				Outcome:           outcome,
				UpdateTimestampMs: msg.Timestamp,
				Asks:              priceLevelsToSize(msg.Asks),
				Bids:              priceLevelsToSize(msg.Bids),
				Incremental:       msg.EventType == "price_change",
			}
			select {
			case out <- upd:
			case <-ctx.Done():
				return
			}
		}
	}
}

func priceLevelsToSize(levels []types.PriceLevel) []types.PriceSize {
	if levels == nil {
		return nil
	}
	out := make([]types.PriceSize, 0, len(levels))
	for _, lvl := range levels {
		price, err := strconv.ParseFloat(lvl.Price, 64)
		if err != nil {
			continue
		}
		size, err := strconv.ParseFloat(lvl.Size, 64)
		if err != nil {
			continue
		}
		out = append(out, types.PriceSize{Price: price, Size: size})
	}
	return out
}

func printArbRead(costs arbitrage.BuyCosts) {
	fmt.Println("\n=== Arbitrage Read ===")
	fmt.Printf("Maker cost: %.4f  arb=%v  maxQty=%.2f  profit=%.4f\n",
		costs.MakerCost, costs.MakerHasArb, costs.MakerMaxQty, costs.MakerProfit)
	fmt.Printf("Taker cost: %.4f  arb=%v  maxQty=%.2f  profit=%.4f  fee=%.4f\n",
		costs.TakerCost, costs.TakerHasArb, costs.TakerMaxQty, costs.TakerProfit, costs.TakerFeePaid)

	if !costs.MakerHasArb && !costs.TakerHasArb {
		fmt.Println("\nNo arbitrage opportunity at current prices.")
		return
	}
	fmt.Println("\nArbitrage opportunity detected.")
}
