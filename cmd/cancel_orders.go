package cmd

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var cancelOrdersCmd = &cobra.Command{
	Use:   "cancel-orders",
	Short: "Cancel all open Venue-B orders",
	Long: `Cancel all open orders atomically using Venue-B's /cancel-all endpoint.

Use --dry-run to preview orders without canceling.

Examples:
  # Preview orders without canceling
  go run . cancel-orders --dry-run

  # Cancel all orders immediately
  go run . cancel-orders`,
	Args: cobra.NoArgs,
	RunE: runCancelOrders,
}

//nolint:gochecknoglobals // Cobra boilerplate
var dryRunFlag bool

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(cancelOrdersCmd)
	cancelOrdersCmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Preview orders without canceling")
}

func runCancelOrders(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: .env file not found\n")
	}

	creds, err := loadVenueBDebugCreds()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	orders, err := fetchOpenOrders(ctx, creds)
	if err != nil {
		return fmt.Errorf("fetch open orders: %w", err)
	}

	if len(orders) == 0 {
		fmt.Println("No open orders found.")
		return nil
	}

	displayCancelOrdersTable(orders)
	displayCancelOrdersSummary(orders)

	if dryRunFlag {
		fmt.Println("\n[DRY RUN] No orders were canceled.")
		return nil
	}

	fmt.Println("\nCanceling all orders...")
	result, err := cancelAllOrders(ctx, creds)
	if err != nil {
		return fmt.Errorf("cancel orders: %w", err)
	}

	displayCancelResults(result)
	return nil
}

type debugOrder struct {
	OrderID      string `json:"id"`
	Market       string `json:"market"`
	Side         string `json:"side"`
	Outcome      string `json:"outcome"`
	Price        string `json:"price"`
	OriginalSize string `json:"original_size"`
}

type cancelAllResult struct {
	Canceled    []string          `json:"canceled"`
	NotCanceled map[string]string `json:"not_canceled"`
}

// fetchOpenOrders and cancelAllOrders hit Venue-B's authenticated REST API
// directly, the same HMAC scheme place_orders.go uses for order submission,
// rather than routing through execution.VenueBClient (which has no bulk
// list/cancel-all calls — those exist only as operator debug tooling).
func fetchOpenOrders(ctx context.Context, creds *venueBDebugCreds) ([]debugOrder, error) {
	var orders []debugOrder
	if err := venueBDebugRequest(ctx, creds, http.MethodGet, "/data/orders", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func cancelAllOrders(ctx context.Context, creds *venueBDebugCreds) (*cancelAllResult, error) {
	var result cancelAllResult
	if err := venueBDebugRequest(ctx, creds, http.MethodDelete, "/cancel-all", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

type venueBDebugCreds struct {
	apiKey     string
	secret     string
	passphrase string
	address    string
}

func loadVenueBDebugCreds() (*venueBDebugCreds, error) {
	creds := &venueBDebugCreds{
		apiKey:     getEnv("POLYMARKET_API_KEY", "POLY_API_KEY"),
		secret:     getEnv("POLYMARKET_SECRET", "POLY_SECRET"),
		passphrase: getEnv("POLYMARKET_PASSPHRASE", "POLY_PASSPHRASE"),
		address:    getEnv("POLYMARKET_ADDRESS"),
	}
	if creds.apiKey == "" {
		return nil, fmt.Errorf("missing POLYMARKET_API_KEY")
	}
	if creds.secret == "" {
		return nil, fmt.Errorf("missing POLYMARKET_SECRET")
	}
	if creds.passphrase == "" {
		return nil, fmt.Errorf("missing POLYMARKET_PASSPHRASE")
	}
	return creds, nil
}

func venueBDebugRequest(ctx context.Context, creds *venueBDebugCreds, method, path string, body []byte, out any) error {
	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	payload := timestamp + method + path + string(body)

	secretBytes, err := base64.URLEncoding.DecodeString(creds.secret)
	if err != nil {
		return fmt.Errorf("decode secret: %w", err)
	}
	h := hmac.New(sha256.New, secretBytes)
	h.Write([]byte(payload))
	signature := base64.URLEncoding.EncodeToString(h.Sum(nil))

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, "https://clob.polymarket.com"+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("POLY_API_KEY", creds.apiKey)
	req.Header.Set("POLY_SIGNATURE", signature)
	req.Header.Set("POLY_TIMESTAMP", timestamp)
	req.Header.Set("POLY_PASSPHRASE", creds.passphrase)
	req.Header.Set("POLY_ADDRESS", creds.address)

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(respBody, out)
}

func displayCancelOrdersTable(orders []debugOrder) {
	fmt.Println("\n========================================")
	fmt.Println("Open Orders")
	fmt.Println("========================================")
	fmt.Printf("%-12s %-30s %-10s %-8s %-10s\n",
		"Order ID", "Market", "Side", "Price", "Size")
	fmt.Println("----------------------------------------")

	for _, order := range orders {
		shortID := order.OrderID
		if len(shortID) > 8 {
			shortID = shortID[:8] + "..."
		}

		market := order.Market
		if len(market) > 30 {
			market = market[:27] + "..."
		}

		side := order.Side
		if order.Outcome != "" && order.Outcome != "null" {
			side = order.Outcome
		}

		fmt.Printf("%-12s %-30s %-10s $%-7s %-10s\n",
			shortID, market, side, order.Price, order.OriginalSize)
	}
}

func displayCancelOrdersSummary(orders []debugOrder) {
	totalValue := calculateDebugOrdersValue(orders)
	fmt.Printf("\nTotal: %d orders, $%.2f locked\n", len(orders), totalValue)
}

func calculateDebugOrdersValue(orders []debugOrder) (total float64) {
	for _, order := range orders {
		price, err := strconv.ParseFloat(order.Price, 64)
		if err != nil {
			continue
		}
		size, err := strconv.ParseFloat(order.OriginalSize, 64)
		if err != nil {
			continue
		}
		total += price * size
	}
	return total
}

func displayCancelResults(result *cancelAllResult) {
	fmt.Println("\n========================================")
	fmt.Println("Cancellation Results")
	fmt.Println("========================================")

	fmt.Printf("Canceled: %d orders\n", len(result.Canceled))

	if len(result.NotCanceled) > 0 {
		fmt.Printf("Not canceled: %d orders\n", len(result.NotCanceled))
		fmt.Println("\nFailed cancellations:")
		for orderID, reason := range result.NotCanceled {
			shortID := orderID
			if len(shortID) > 12 {
				shortID = shortID[:12] + "..."
			}
			fmt.Printf("  - %s: %s\n", shortID, reason)
		}
	}
}
