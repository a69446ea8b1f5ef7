package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// DashboardAuthToken gates the /api/tasks and /api/close-opportunities
	// routes with a bearer-token check. Empty disables those routes rather
	// than exposing them unauthenticated.
	DashboardAuthToken string

	// Polymarket API
	PolymarketWSURL      string
	PolymarketGammaURL   string
	PolymarketAPIKey     string
	PolymarketSecret     string
	PolymarketPassphrase string

	// Market Discovery
	DiscoveryPollInterval time.Duration
	DiscoveryMarketLimit  int
	MaxMarketDuration     time.Duration // Only subscribe to markets expiring within this duration

	// Market Cleanup
	CleanupInterval time.Duration // How often cleanup command checks for stale markets

	// WebSocket
	WSPoolSize              int // Number of WebSocket connections (default: 20)
	WSDialTimeout           time.Duration
	WSPongTimeout           time.Duration
	WSPingInterval          time.Duration
	WSReconnectInitialDelay time.Duration
	WSReconnectMaxDelay     time.Duration
	WSReconnectBackoffMult  float64
	WSMessageBufferSize     int

	// Arbitrage Detection
	ArbThreshold         float64
	ArbMinTradeSize      float64
	ArbMaxTradeSize      float64
	ArbDetectionInterval time.Duration
	ArbMakerFee          float64
	ArbTakerFee          float64

	// Execution
	ExecutionMode            string
	ExecutionMaxPositionSize float64

	// Circuit Breaker
	CircuitBreakerEnabled         bool
	CircuitBreakerCheckInterval   time.Duration
	CircuitBreakerTradeMultiplier float64
	CircuitBreakerMinAbsolute     float64
	CircuitBreakerHysteresisRatio float64

	// Storage
	StorageMode  string // "postgres" or "console"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string

	// TaskIndexEnabled mirrors completed task summaries into the Postgres
	// side index (internal/scheduler.PostgresIndex) in addition to the
	// durable JSONL task log. Reuses the Postgres* fields above.
	TaskIndexEnabled bool

	// Venue-A (EVM-settled, signed-message auth, JWT + REST + push WS).
	VenueARESTURL       string
	VenueAWSURL         string
	VenueAChainID       int64
	VenueAPrivateKey    string
	VenueAAddress       string
	VenueAProxyAddress  string
	VenueASignatureType int

	// Venue-A on-chain settlement watcher (C3's second latency channel).
	// Empty VenueAOnchainRPCURLs disables the watcher; the executor then
	// falls back to REST-poll only for that venue.
	VenueAOnchainRPCURLs     []string
	VenueAExchangeContracts  []string

	// Venue-B: REST base URL and HMAC credentials mirror the pre-existing
	// Polymarket* fields above (set to the same values in LoadFromEnv) under
	// venue-neutral names, plus the signing fields the single-venue teacher
	// config never needed.
	VenueBRESTURL       string
	VenueBAPIKey        string
	VenueBAPISecret     string
	VenueBAPIPassphrase string
	VenueBChainID       int64
	VenueBPrivateKey    string
	VenueBAddress       string
	VenueBProxyAddress  string
	VenueBSignatureType int

	// Cross-venue market mapping source.
	MappingSourceType   string // "file" or "static"
	MappingFilePath     string
	MappingPollInterval time.Duration
	MappingEnrichEnabled bool

	// Task scheduler / C3 execution defaults.
	TaskOrderTimeout    time.Duration
	TaskMaxHedgeRetries int
	TaskLogDir          string

	// Reconciliation (C4).
	ReconcilePollInterval time.Duration
	ReconcileCacheTTL     time.Duration
	VenueAGraphQLURL      string // positions subgraph.
	VenueBDataAPIURL      string // positions read model.
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort:           getEnvOrDefault("HTTP_PORT", "8080"),
		DashboardAuthToken: os.Getenv("DASHBOARD_AUTH_TOKEN"),

		// Polymarket API defaults
		PolymarketWSURL:      getEnvOrDefault("POLYMARKET_WS_URL", "wss://ws-subscriptions-clob.polymarket.com/ws/market"),
		PolymarketGammaURL:   getEnvOrDefault("POLYMARKET_GAMMA_API_URL", "https://gamma-api.polymarket.com"),
		PolymarketAPIKey:     os.Getenv("POLYMARKET_API_KEY"),
		PolymarketSecret:     os.Getenv("POLYMARKET_SECRET"),
		PolymarketPassphrase: os.Getenv("POLYMARKET_PASSPHRASE"),

		// Market Discovery defaults
		DiscoveryPollInterval: getDurationOrDefault("DISCOVERY_POLL_INTERVAL", 30*time.Second),
		DiscoveryMarketLimit:  getIntOrDefault("DISCOVERY_MARKET_LIMIT", 1000),
		MaxMarketDuration:     getDurationOrDefault("ARB_MAX_MARKET_DURATION", 0), // 0 = unlimited

		// Market Cleanup defaults
		CleanupInterval: getDurationOrDefault("CLEANUP_CHECK_INTERVAL", 5*time.Minute),

		// WebSocket defaults
		WSPoolSize:              getIntOrDefault("WS_POOL_SIZE", 20),
		WSDialTimeout:           getDurationOrDefault("WS_DIAL_TIMEOUT", 10*time.Second),
		WSPongTimeout:           getDurationOrDefault("WS_PONG_TIMEOUT", 15*time.Second),
		WSPingInterval:          getDurationOrDefault("WS_PING_INTERVAL", 10*time.Second),
		WSReconnectInitialDelay: getDurationOrDefault("WS_RECONNECT_INITIAL_DELAY", 1*time.Second),
		WSReconnectMaxDelay:     getDurationOrDefault("WS_RECONNECT_MAX_DELAY", 30*time.Second),
		WSReconnectBackoffMult:  getFloat64OrDefault("WS_RECONNECT_BACKOFF_MULTIPLIER", 2.0),
		WSMessageBufferSize:     getIntOrDefault("WS_MESSAGE_BUFFER_SIZE", 10000),

		// Arbitrage defaults
		ArbThreshold:         getFloat64OrDefault("ARB_THRESHOLD", 0.995),
		ArbMinTradeSize:      getFloat64OrDefault("ARB_MIN_TRADE_SIZE", 1.0),
		ArbMaxTradeSize:      getFloat64OrDefault("ARB_MAX_TRADE_SIZE", 2.0),
		ArbDetectionInterval: getDurationOrDefault("ARB_DETECTION_INTERVAL", 100*time.Millisecond),
		ArbMakerFee:          getFloat64OrDefault("ARB_MAKER_FEE", 0.0000), // 0% maker fee on Polymarket
		ArbTakerFee:          getFloat64OrDefault("ARB_TAKER_FEE", 0.0100), // 1% taker fee

		// Execution defaults
		ExecutionMode:            getEnvOrDefault("EXECUTION_MODE", "paper"),
		ExecutionMaxPositionSize: getFloat64OrDefault("EXECUTION_MAX_POSITION_SIZE", 1000.0),

		// Circuit Breaker defaults
		CircuitBreakerEnabled:         getBoolOrDefault("CIRCUIT_BREAKER_ENABLED", true),
		CircuitBreakerCheckInterval:   getDurationOrDefault("CIRCUIT_BREAKER_CHECK_INTERVAL", 300*time.Second),
		CircuitBreakerTradeMultiplier: getFloat64OrDefault("CIRCUIT_BREAKER_TRADE_MULTIPLIER", 3.0),
		CircuitBreakerMinAbsolute:     getFloat64OrDefault("CIRCUIT_BREAKER_MIN_ABSOLUTE", 5.0),
		CircuitBreakerHysteresisRatio: getFloat64OrDefault("CIRCUIT_BREAKER_HYSTERESIS_RATIO", 1.5),

		// Storage defaults
		StorageMode:  getEnvOrDefault("STORAGE_MODE", "console"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "polymarket"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "polymarket123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "polymarket_arb"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),

		TaskIndexEnabled: getBoolOrDefault("TASK_INDEX_ENABLED", false),

		// Venue-A defaults.
		VenueARESTURL:       getEnvOrDefault("VENUE_A_REST_URL", "https://exchange.venue-a.example/api"),
		VenueAWSURL:         getEnvOrDefault("VENUE_A_WS_URL", "wss://exchange.venue-a.example/ws/market"),
		VenueAChainID:       int64(getIntOrDefault("VENUE_A_CHAIN_ID", 137)),
		VenueAPrivateKey:    os.Getenv("VENUE_A_PRIVATE_KEY"),
		VenueAAddress:       os.Getenv("VENUE_A_ADDRESS"),
		VenueAProxyAddress:  os.Getenv("VENUE_A_PROXY_ADDRESS"),
		VenueASignatureType: getIntOrDefault("VENUE_A_SIGNATURE_TYPE", 0),

		VenueAOnchainRPCURLs:    getStringSliceOrDefault("BSC_WSS_URLS", nil),
		VenueAExchangeContracts: getStringSliceOrDefault("VENUE_A_EXCHANGE_CONTRACTS", nil),

		// Venue-B: reuse the pre-existing Polymarket* env vars under
		// venue-neutral names.
		VenueBRESTURL:       getEnvOrDefault("POLYMARKET_CLOB_URL", "https://clob.polymarket.com"),
		VenueBAPIKey:        os.Getenv("POLYMARKET_API_KEY"),
		VenueBAPISecret:     os.Getenv("POLYMARKET_SECRET"),
		VenueBAPIPassphrase: os.Getenv("POLYMARKET_PASSPHRASE"),
		VenueBChainID:       int64(getIntOrDefault("VENUE_B_CHAIN_ID", 137)),
		VenueBPrivateKey:    os.Getenv("POLYMARKET_PRIVATE_KEY"),
		VenueBAddress:       os.Getenv("VENUE_B_ADDRESS"),
		VenueBProxyAddress:  os.Getenv("VENUE_B_PROXY_ADDRESS"),
		VenueBSignatureType: getIntOrDefault("VENUE_B_SIGNATURE_TYPE", 0),

		// Mapping source defaults.
		MappingSourceType:    getEnvOrDefault("MAPPING_SOURCE_TYPE", "file"),
		MappingFilePath:      getEnvOrDefault("MAPPING_FILE_PATH", "data/mappings.json"),
		MappingPollInterval:  getDurationOrDefault("MAPPING_POLL_INTERVAL", 60*time.Second),
		MappingEnrichEnabled: getBoolOrDefault("MAPPING_ENRICH_ENABLED", true),

		// Task scheduler defaults.
		TaskOrderTimeout:    getDurationOrDefault("TASK_ORDER_TIMEOUT", 30*time.Second),
		TaskMaxHedgeRetries: getIntOrDefault("TASK_MAX_HEDGE_RETRIES", 3),
		TaskLogDir:          getEnvOrDefault("TASK_LOG_DIR", "data/logs/tasks"),

		// Reconciliation defaults.
		ReconcilePollInterval: getDurationOrDefault("RECONCILE_INTERVAL", 30*time.Second),
		ReconcileCacheTTL:     getDurationOrDefault("RECONCILE_CACHE_TTL", 5*time.Second),
		VenueAGraphQLURL:      getEnvOrDefault("VENUE_A_GRAPHQL_URL", "https://subgraph.venue-a.example/graphql"),
		VenueBDataAPIURL:      getEnvOrDefault("VENUE_B_DATA_API_URL", "https://data-api.polymarket.com"),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() (err error) {
	if c.HTTPPort == "" {
		return errors.New("HTTP_PORT cannot be empty")
	}

	if c.PolymarketWSURL == "" {
		return errors.New("POLYMARKET_WS_URL cannot be empty")
	}

	if c.PolymarketGammaURL == "" {
		return errors.New("POLYMARKET_GAMMA_API_URL cannot be empty")
	}

	if c.ArbThreshold <= 0 || c.ArbThreshold >= 1.0 {
		return fmt.Errorf("ARB_THRESHOLD must be between 0 and 1.0, got %f", c.ArbThreshold)
	}

	if c.ExecutionMode != "paper" && c.ExecutionMode != "live" && c.ExecutionMode != "dry-run" {
		return fmt.Errorf("EXECUTION_MODE must be 'paper', 'live', or 'dry-run', got %q", c.ExecutionMode)
	}

	// Validate trade size configuration
	if c.ArbMinTradeSize <= 0 {
		return fmt.Errorf("ARB_MIN_TRADE_SIZE must be positive, got %f", c.ArbMinTradeSize)
	}

	if c.ArbMaxTradeSize <= 0 {
		return fmt.Errorf("ARB_MAX_TRADE_SIZE must be positive, got %f", c.ArbMaxTradeSize)
	}

	if c.ArbMaxTradeSize < c.ArbMinTradeSize {
		return fmt.Errorf("ARB_MAX_TRADE_SIZE (%f) must be >= ARB_MIN_TRADE_SIZE (%f)",
			c.ArbMaxTradeSize, c.ArbMinTradeSize)
	}

	// Validate market filtering configuration
	if c.MaxMarketDuration < 0 {
		return fmt.Errorf("ARB_MAX_MARKET_DURATION must be non-negative (0 = unlimited), got %s", c.MaxMarketDuration)
	}

	if c.DiscoveryMarketLimit < 0 {
		return fmt.Errorf("DISCOVERY_MARKET_LIMIT must be non-negative (0 = unlimited), got %d", c.DiscoveryMarketLimit)
	}

	// Validate WebSocket pool configuration
	if c.WSPoolSize < 1 {
		return fmt.Errorf("WS_POOL_SIZE must be at least 1, got %d", c.WSPoolSize)
	}

	if c.WSPoolSize > 20 {
		return fmt.Errorf("WS_POOL_SIZE must not exceed 20, got %d", c.WSPoolSize)
	}

	// Validate cleanup configuration
	if c.CleanupInterval <= 0 {
		return fmt.Errorf("CLEANUP_CHECK_INTERVAL must be positive, got %s", c.CleanupInterval)
	}

	if c.MappingSourceType != "file" && c.MappingSourceType != "static" {
		return fmt.Errorf("MAPPING_SOURCE_TYPE must be 'file' or 'static', got %q", c.MappingSourceType)
	}

	if c.TaskOrderTimeout <= 0 {
		return fmt.Errorf("TASK_ORDER_TIMEOUT must be positive, got %s", c.TaskOrderTimeout)
	}

	if c.TaskMaxHedgeRetries < 0 {
		return fmt.Errorf("TASK_MAX_HEDGE_RETRIES must be non-negative, got %d", c.TaskMaxHedgeRetries)
	}

	return nil
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolVal, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolVal
}
