package execution

import (
	"crypto/ecdsa"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/polymarket/go-order-utils/pkg/builder"
	"github.com/polymarket/go-order-utils/pkg/model"
	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/pkg/types"
)

// OrderSpec is a venue-agnostic, pre-signing description of an order. Signer
// translates it into the venue's EIP-712 typed-data object and signs it.
type OrderSpec struct {
	TokenID       string
	Side          types.Side
	Price         float64
	Shares        float64 // size in outcome tokens.
	TickSize      float64
	FeeRateBps    float64
	TimeInForce   types.TimeInForce
	NegRisk       bool
	Expiration    int64 // unix seconds; 0 means GTC (no expiry).
	SignatureType int
}

// Signer builds and EIP-712-signs orders for one venue. Both venues use the
// same CTF-style order schema (§4.3); only the chain id and exchange
// contract selection differ.
type Signer struct {
	venue         types.Venue
	chainID       *big.Int
	privateKey    *ecdsa.PrivateKey
	address       string // EOA (signer) address.
	proxyAddress  string // maker/funder address, if trading through a smart wallet.
	signatureType model.SignatureType
	ctfBuilder    builder.ExchangeOrderBuilder
	negRiskBuilder builder.ExchangeOrderBuilder
	logger        *zap.Logger
}

// SignerConfig holds construction parameters for a venue Signer.
type SignerConfig struct {
	Venue         types.Venue
	ChainID       int64
	PrivateKeyHex string
	Address       string
	ProxyAddress  string
	SignatureType int
	Logger        *zap.Logger
}

// NewSigner constructs a Signer from a raw private key, deriving the EOA
// address when not explicitly provided.
func NewSigner(cfg *SignerConfig) (*Signer, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	address := cfg.Address
	if address == "" {
		publicKeyECDSA, ok := privateKey.Public().(*ecdsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("derive public key: unexpected key type")
		}
		address = crypto.PubkeyToAddress(*publicKeyECDSA).Hex()
	}

	chainID := big.NewInt(cfg.ChainID)

	return &Signer{
		venue:          cfg.Venue,
		chainID:        chainID,
		privateKey:     privateKey,
		address:        address,
		proxyAddress:   cfg.ProxyAddress,
		signatureType:  model.SignatureType(cfg.SignatureType),
		ctfBuilder:     builder.NewExchangeOrderBuilderImpl(chainID, nil),
		negRiskBuilder: builder.NewExchangeOrderBuilderImpl(chainID, nil),
		logger:         cfg.Logger,
	}, nil
}

// MakerAddress returns the funding/maker address (proxy wallet if set).
func (s *Signer) MakerAddress() string {
	if s.proxyAddress != "" {
		return s.proxyAddress
	}
	return s.address
}

// SignerAddress returns the EOA that signs, which is always the raw wallet.
func (s *Signer) SignerAddress() string { return s.address }

// Sign builds the venue's typed-data order object and EIP-712-signs it,
// returning a venue-agnostic envelope ready for REST submission.
func (s *Signer) Sign(spec OrderSpec) (*types.SignedOrderEnvelope, error) {
	sizePrecision, amountPrecision := getRoundingConfig(spec.TickSize)
	shares := roundAmount(spec.Shares, sizePrecision)
	notionalUSD := roundAmount(shares*spec.Price, amountPrecision)

	decimals := amountDecimalsForVenue(s.venue)

	var makerAmount, takerAmount string
	var side model.Side
	switch spec.Side {
	case types.SideBuy:
		side = model.BUY
		makerAmount = usdToRawAmount(notionalUSD, decimals)
		takerAmount = usdToRawAmount(shares, decimals)
	case types.SideSell:
		side = model.SELL
		makerAmount = usdToRawAmount(shares, decimals)
		takerAmount = usdToRawAmount(notionalUSD, decimals)
	default:
		return nil, fmt.Errorf("unknown order side %q", spec.Side)
	}

	expiration := "0"
	if spec.Expiration > 0 {
		expiration = fmt.Sprintf("%d", spec.Expiration)
	}

	orderData := &model.OrderData{
		Maker:         s.MakerAddress(),
		Taker:         "0x0000000000000000000000000000000000000000",
		TokenId:       spec.TokenID,
		MakerAmount:   makerAmount,
		TakerAmount:   takerAmount,
		Side:          side,
		FeeRateBps:    fmt.Sprintf("%d", int64(spec.FeeRateBps)),
		Nonce:         "0",
		Signer:        s.SignerAddress(),
		Expiration:    expiration,
		SignatureType: s.signatureType,
	}

	b := s.ctfBuilder
	if spec.NegRisk {
		b = s.negRiskBuilder
	}

	signed, err := b.BuildSignedOrder(s.privateKey, orderData, model.CTFExchange)
	if err != nil {
		return nil, fmt.Errorf("build signed order (%s): %w", s.venue, err)
	}

	s.logger.Debug("order-signed",
		zap.String("venue", string(s.venue)),
		zap.String("token-id", spec.TokenID),
		zap.String("side", string(spec.Side)),
		zap.Float64("shares", shares),
		zap.Bool("neg-risk", spec.NegRisk))

	return &types.SignedOrderEnvelope{
		Venue:         s.venue,
		OrderHash:     orderHash(signed),
		TokenID:       spec.TokenID,
		Side:          spec.Side,
		Price:         spec.Price,
		MakerAmount:   signed.MakerAmount.String(),
		TakerAmount:   signed.TakerAmount.String(),
		Expiration:    spec.Expiration,
		Nonce:         signed.Nonce.String(),
		FeeRateBps:    signed.FeeRateBps.String(),
		SignatureType: int(signed.SignatureType.Int64()),
		Signature:     "0x" + common.Bytes2Hex(signed.Signature),
		TimeInForce:   spec.TimeInForce,
		NegRisk:       spec.NegRisk,
	}, nil
}

// orderHash derives a stable identifier for an signed order, used to match
// the on-chain OrderFilled event watcher (Venue-A, spec §4.3 channel 2).
func orderHash(order *model.SignedOrder) string {
	return "0x" + common.Bytes2Hex(crypto.Keccak256(
		[]byte(order.Maker.Hex()),
		[]byte(order.TokenId.String()),
		[]byte(order.Salt.String()),
	))
}

const (
	venueBAmountDecimals = 6
	venueAAmountDecimals = 18
)

// amountDecimalsForVenue returns the integer-unit scale each venue's
// exchange contract expects: Venue-B uses USDC's 6 decimals, Venue-A's
// collateral uses 18 (§4.3).
func amountDecimalsForVenue(venue types.Venue) int {
	if venue == types.VenueA {
		return venueAAmountDecimals
	}
	return venueBAmountDecimals
}

// usdToRawAmount converts a USD-denominated amount into the venue's integer
// unit scale. big.Float avoids float64 overflow at 18 decimals, where
// int64(usd*1e18) would overflow for any order above a few dollars.
func usdToRawAmount(usd float64, decimals int) string {
	scaled := new(big.Float).Mul(big.NewFloat(usd), new(big.Float).SetFloat64(math.Pow10(decimals)))
	scaled.Add(scaled, big.NewFloat(0.5))
	raw, _ := scaled.Int(nil)
	return raw.String()
}

// getRoundingConfig returns (sizePrecision, amountPrecision) for a tickSize,
// mirroring the upstream Python client's ROUNDING_CONFIG table.
func getRoundingConfig(tickSize float64) (sizePrecision, amountPrecision int) {
	switch tickSize {
	case 0.1:
		return 2, 3
	case 0.01:
		return 2, 4
	case 0.001:
		return 2, 5
	case 0.0001:
		return 2, 6
	default:
		return 2, 4
	}
}

func roundAmount(value float64, decimals int) float64 {
	mult := math.Pow(10, float64(decimals))
	return math.Round(value*mult) / mult
}
