package cmd

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/internal/execution"
	"github.com/mselser95/polymarket-arb/internal/markets"
	"github.com/mselser95/polymarket-arb/pkg/config"
	"github.com/mselser95/polymarket-arb/pkg/types"
	"github.com/mselser95/polymarket-arb/pkg/wallet"
)

//nolint:gochecknoglobals // Cobra boilerplate
var closePositionsCmd = &cobra.Command{
	Use:   "close-positions",
	Short: "Close all open Venue-B positions by selling at market prices",
	Long: `Fetches all open Venue-B positions and places marketable sell orders to close them.

This command will:
1. Fetch all your open positions from Venue-B's Data API
2. Get the current best bid price for each position's token
3. Show a summary and ask for confirmation
4. Place SELL orders at the best bid (immediate-or-cancel)
5. Report results with execution details

Example:
  close-positions              # Close all positions with confirmation
  close-positions --yes        # Skip confirmation (use with caution!)
`,
	RunE: runClosePositions,
}

//nolint:gochecknoglobals // Cobra boilerplate
var skipConfirmation bool

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(closePositionsCmd)
	closePositionsCmd.Flags().BoolVar(&skipConfirmation, "yes", false, "Skip confirmation prompt")
}

// PositionToClose holds position data with market info for closing.
type PositionToClose struct {
	Position wallet.Position
	BidPrice float64
	TickSize float64
	MinSize  float64
}

// CloseResult holds the result of closing a single position.
type CloseResult struct {
	Position    wallet.Position
	Success     bool
	OrderID     string
	USDReceived float64
	Error       error
}

func runClosePositions(cmd *cobra.Command, args []string) (err error) {
	envErr := godotenv.Load()
	if envErr != nil {
		fmt.Printf("Warning: .env file not found\n")
	}

	address, privateKey, err := parseWalletCredentials()
	if err != nil {
		return fmt.Errorf("parse credentials: %w", err)
	}

	logger, err := createCloseLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	fmt.Printf("\n=== Close All Positions ===\n\n")

	fmt.Printf("Fetching open positions...\n")
	positionsToClose, err := fetchPositionsToClose(ctx, address, logger)
	if err != nil {
		return fmt.Errorf("fetch positions: %w", err)
	}

	if len(positionsToClose) == 0 {
		fmt.Printf("No open positions to close.\n")
		return nil
	}

	if !skipConfirmation {
		confirmed, err := showConfirmationPrompt(positionsToClose)
		if err != nil {
			return fmt.Errorf("confirmation prompt: %w", err)
		}
		if !confirmed {
			fmt.Printf("\nOperation cancelled by user.\n")
			return nil
		}
	}

	fmt.Printf("\n=== Submitting Orders ===\n\n")
	results, err := submitCloseOrders(ctx, positionsToClose, address, privateKey, logger)
	if err != nil {
		return fmt.Errorf("submit orders: %w", err)
	}

	reportResults(results)

	return nil
}

// parseWalletCredentials loads and parses wallet credentials from environment.
func parseWalletCredentials() (address common.Address, privateKey *ecdsa.PrivateKey, err error) {
	privateKeyHex := os.Getenv("POLYMARKET_PRIVATE_KEY")
	if privateKeyHex == "" {
		return common.Address{}, nil, errors.New("POLYMARKET_PRIVATE_KEY not set in .env")
	}

	privateKey, err = crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("parse private key: %w", err)
	}

	publicKey := privateKey.Public()
	publicKeyECDSA, ok := publicKey.(*ecdsa.PublicKey)
	if !ok {
		return common.Address{}, nil, errors.New("error casting public key to ECDSA")
	}

	address = crypto.PubkeyToAddress(*publicKeyECDSA)
	return address, privateKey, nil
}

// createCloseLogger creates a logger for the close command.
func createCloseLogger() (logger *zap.Logger, err error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)

	logger, err = cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	return logger, nil
}

// fetchPositionsToClose fetches positions and enriches each with its current
// best bid so the operator can see expected proceeds before confirming.
func fetchPositionsToClose(
	ctx context.Context,
	address common.Address,
	logger *zap.Logger,
) (positionsToClose []PositionToClose, err error) {
	walletClient, err := wallet.NewClient("https://polygon-rpc.com", logger)
	if err != nil {
		return nil, fmt.Errorf("create wallet client: %w", err)
	}

	positions, err := walletClient.GetPositions(ctx, address.Hex())
	if err != nil {
		return nil, fmt.Errorf("get positions: %w", err)
	}

	if len(positions) == 0 {
		return nil, nil
	}

	metadataClient := markets.NewMetadataClient()

	positionsToClose = make([]PositionToClose, 0, len(positions))
	for _, pos := range positions {
		ptc, err := enrichPosition(ctx, pos, metadataClient)
		if err != nil {
			fmt.Printf("Warning: Skipping %s (%s): %v\n", pos.MarketSlug, pos.Outcome, err)
			continue
		}
		positionsToClose = append(positionsToClose, ptc)
	}

	return positionsToClose, nil
}

// enrichPosition fetches the current best bid and order constraints for a
// position's token.
func enrichPosition(
	ctx context.Context,
	pos wallet.Position,
	metadataClient *markets.MetadataClient,
) (ptc PositionToClose, err error) {
	if pos.Asset == "" {
		return PositionToClose{}, errors.New("position has no token id")
	}

	bidPrice, err := metadataClient.FetchBestBid(ctx, pos.Asset)
	if err != nil {
		return PositionToClose{}, fmt.Errorf("fetch best bid: %w", err)
	}
	if bidPrice <= 0 {
		return PositionToClose{}, fmt.Errorf("no bids available (price: %.4f)", bidPrice)
	}

	tickSize, minSize, err := metadataClient.FetchTokenMetadata(ctx, pos.Asset)
	if err != nil {
		tickSize, minSize = 0.01, 5.0
	}

	return PositionToClose{
		Position: pos,
		BidPrice: bidPrice,
		TickSize: tickSize,
		MinSize:  minSize,
	}, nil
}

// showConfirmationPrompt displays positions and asks for confirmation.
func showConfirmationPrompt(positions []PositionToClose) (confirmed bool, err error) {
	fmt.Printf("Positions to close:\n\n")

	totalProceeds := 0.0
	for i, ptc := range positions {
		proceeds := ptc.Position.Size * ptc.BidPrice
		totalProceeds += proceeds

		fmt.Printf("[%d] %s (%s)\n", i+1, ptc.Position.MarketSlug, ptc.Position.Outcome)
		fmt.Printf("    %.2f tokens @ $%.4f = $%.2f\n",
			ptc.Position.Size, ptc.BidPrice, proceeds)
	}

	fmt.Printf("\nTotal positions: %d\n", len(positions))
	fmt.Printf("Total estimated proceeds: $%.2f USDC\n", totalProceeds)
	fmt.Printf("\nThis will place marketable sell orders. Proceed? [y/N]: ")

	var response string
	_, err = fmt.Scanln(&response)
	if err != nil && err.Error() != "unexpected newline" {
		return false, fmt.Errorf("read input: %w", err)
	}

	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes", nil
}

// submitCloseOrders builds a Venue-B signer and REST client and submits one
// IOC sell order per position.
func submitCloseOrders(
	ctx context.Context,
	positions []PositionToClose,
	address common.Address,
	privateKey *ecdsa.PrivateKey,
	logger *zap.Logger,
) (results []CloseResult, err error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if cfg.VenueBAPIKey == "" || cfg.VenueBAPISecret == "" || cfg.VenueBAPIPassphrase == "" {
		return nil, errors.New("Venue-B API key, secret, and passphrase must be configured")
	}

	signer, err := execution.NewSigner(&execution.SignerConfig{
		Venue:         types.VenueB,
		ChainID:       cfg.VenueBChainID,
		PrivateKeyHex: fmt.Sprintf("%x", crypto.FromECDSA(privateKey)),
		Address:       address.Hex(),
		SignatureType: cfg.VenueBSignatureType,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create signer: %w", err)
	}

	client := execution.NewVenueBClient(&execution.VenueBClientConfig{
		BaseURL:    cfg.VenueBRESTURL,
		APIKey:     cfg.VenueBAPIKey,
		Secret:     cfg.VenueBAPISecret,
		Passphrase: cfg.VenueBAPIPassphrase,
		Address:    address.Hex(),
		Logger:     logger,
	})

	results = make([]CloseResult, 0, len(positions))

	for i, ptc := range positions {
		fmt.Printf("[%d/%d] Closing %s (%s)...\n",
			i+1, len(positions), ptc.Position.MarketSlug, ptc.Position.Outcome)

		result := submitSingleCloseOrder(ctx, signer, client, ptc)
		results = append(results, result)

		if result.Success {
			fmt.Printf("  Order placed: %s\n", result.OrderID)
		} else {
			fmt.Printf("  Failed: %v\n", result.Error)
		}
	}

	return results, nil
}

// submitSingleCloseOrder signs and submits a single IOC sell order at the
// observed best bid.
func submitSingleCloseOrder(
	ctx context.Context,
	signer *execution.Signer,
	client *execution.VenueBClient,
	ptc PositionToClose,
) (result CloseResult) {
	env, err := signer.Sign(execution.OrderSpec{
		TokenID:     ptc.Position.Asset,
		Side:        types.SideSell,
		Price:       ptc.BidPrice,
		Shares:      ptc.Position.Size,
		TickSize:    ptc.TickSize,
		TimeInForce: types.TIFIOC,
	})
	if err != nil {
		return CloseResult{Position: ptc.Position, Success: false, Error: fmt.Errorf("sign order: %w", err)}
	}

	order, err := client.PlaceOrder(ctx, env)
	if err != nil {
		return CloseResult{Position: ptc.Position, Success: false, Error: err}
	}

	return CloseResult{
		Position:    ptc.Position,
		Success:     true,
		OrderID:     order.OrderID,
		USDReceived: ptc.Position.Size * ptc.BidPrice,
	}
}

// reportResults displays execution summary.
func reportResults(results []CloseResult) {
	fmt.Printf("\n=== Execution Summary ===\n\n")

	successCount := 0
	totalUSD := 0.0

	fmt.Printf("Successfully closed:\n")
	for _, r := range results {
		if r.Success {
			successCount++
			totalUSD += r.USDReceived
			fmt.Printf("%s (%s) - %.2f tokens sold ~ $%.2f received\n",
				r.Position.MarketSlug, r.Position.Outcome, r.Position.Size, r.USDReceived)
		}
	}

	if successCount < len(results) {
		fmt.Printf("\nFailed:\n")
		for _, r := range results {
			if !r.Success {
				fmt.Printf("%s (%s) - Error: %v\n",
					r.Position.MarketSlug, r.Position.Outcome, r.Error)
			}
		}
	}

	fmt.Printf("\nSummary:\n")
	fmt.Printf("- Closed: %d/%d positions\n", successCount, len(results))
	fmt.Printf("- Total USDC received (estimated): $%.2f\n", totalUSD)

	if successCount < len(results) {
		fmt.Printf("- Errors: %d\n", len(results)-successCount)
	}
}
