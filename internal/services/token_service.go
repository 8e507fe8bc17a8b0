package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/homekrypto/hkt-api/internal/models"
	"github.com/homekrypto/hkt-api/pkg/logger"
)

// Market parameters applied to swap quotes. The ETH reference rate is a
// fixed placeholder until a price oracle is integrated.
const (
	defaultTokenPrice = 0.0001
	ethReferencePrice = 2000.0
	quoteSlippage     = 0.005
	quoteFee          = 0.003
	quoteValidity     = 30 * time.Second
)

type TokenRepository interface {
	LatestStats(ctx context.Context) (*models.HktStats, error)
	CreatePurchase(ctx context.Context, p *models.TokenPurchase) (*models.TokenPurchase, error)
	ListPurchasesByUser(ctx context.Context, userID string) ([]*models.TokenPurchase, error)
	SumTokensForUser(ctx context.Context, userID string) (float64, error)
}

type tokenUserRepository interface {
	SetWalletAddressIfEmpty(ctx context.Context, id, address string) error
}

// TokenService serves HKT market data, swap quotes and purchase records.
type TokenService struct {
	tokens      TokenRepository
	users       tokenUserRepository
	auditLogger *logger.AuditLogger
	logger      *slog.Logger
}

func NewTokenService(tokens TokenRepository, users tokenUserRepository, auditLogger *logger.AuditLogger, log *slog.Logger) *TokenService {
	return &TokenService{
		tokens:      tokens,
		users:       users,
		auditLogger: auditLogger,
		logger:      log,
	}
}

type QuoteInput struct {
	FromToken string
	ToToken   string
	Amount    float64
}

// Quote is a swap estimate valid for a short window.
type Quote struct {
	FromToken    string
	ToToken      string
	FromAmount   float64
	ToAmount     float64
	Rate         float64
	SlippagePct  float64
	FeePct       float64
	Route        []string
	EstimatedGas string
	ValidUntil   time.Time
}

type PurchaseInput struct {
	Amount          float64
	Currency        string
	WalletAddress   string
	TransactionHash string
	PricePerToken   float64
}

// Balance is a user's aggregate HKT position with purchase history.
type Balance struct {
	Tokens        float64
	USDValue      float64
	PricePerToken float64
	Transactions  []*models.TokenPurchase
}

// Price returns the newest market snapshot, or launch defaults when no
// snapshot exists yet.
func (s *TokenService) Price(ctx context.Context) (*models.HktStats, error) {
	stats, err := s.tokens.LatestStats(ctx)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return &models.HktStats{
				CurrentPrice:   "0.0001",
				PriceChange24h: "0",
				TotalSupply:    "1000000000",
				MarketCap:      "100000",
				Volume24h:      "10000",
				UpdatedAt:      time.Now(),
			}, nil
		}
		return nil, fmt.Errorf("loading token stats: %w", err)
	}
	return stats, nil
}

// currentPrice resolves the live HKT/USD rate for quote math, degrading to
// the launch price when stats are unavailable.
func (s *TokenService) currentPrice(ctx context.Context) float64 {
	stats, err := s.tokens.LatestStats(ctx)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to load token stats for quote", "error", err)
		}
		return defaultTokenPrice
	}
	price, err := strconv.ParseFloat(stats.CurrentPrice, 64)
	if err != nil || price <= 0 {
		return defaultTokenPrice
	}
	return price
}

// Quote estimates a swap between HKT and USD or ETH. Slippage and the
// platform fee are deducted from the output amount.
func (s *TokenService) Quote(ctx context.Context, input QuoteInput) (*Quote, error) {
	if input.Amount <= 0 {
		return nil, models.ErrBadRequest
	}

	hktPrice := s.currentPrice(ctx)

	var toAmount, rate float64
	switch {
	case input.ToToken == models.CurrencyHKT && input.FromToken == models.CurrencyUSD:
		toAmount = input.Amount / hktPrice
		rate = hktPrice
	case input.ToToken == models.CurrencyHKT && input.FromToken == models.CurrencyETH:
		toAmount = input.Amount * ethReferencePrice / hktPrice
		rate = hktPrice / ethReferencePrice
	case input.FromToken == models.CurrencyHKT && input.ToToken == models.CurrencyUSD:
		toAmount = input.Amount * hktPrice
		rate = hktPrice
	case input.FromToken == models.CurrencyHKT && input.ToToken == models.CurrencyETH:
		toAmount = input.Amount * hktPrice / ethReferencePrice
		rate = hktPrice / ethReferencePrice
	default:
		return nil, models.ErrBadRequest
	}

	return &Quote{
		FromToken:    input.FromToken,
		ToToken:      input.ToToken,
		FromAmount:   input.Amount,
		ToAmount:     toAmount * (1 - quoteSlippage - quoteFee),
		Rate:         rate,
		SlippagePct:  quoteSlippage * 100,
		FeePct:       quoteFee * 100,
		Route:        []string{input.FromToken, input.ToToken},
		EstimatedGas: "0.002",
		ValidUntil:   time.Now().Add(quoteValidity),
	}, nil
}

// Purchase records a completed token acquisition and links the wallet to
// the account if it has none. On-chain settlement happens upstream; a
// missing transaction hash gets a generated placeholder reference.
func (s *TokenService) Purchase(ctx context.Context, userID string, input PurchaseInput) (*models.TokenPurchase, error) {
	if input.Amount < 0.01 || input.PricePerToken <= 0 || input.WalletAddress == "" {
		return nil, models.ErrBadRequest
	}
	switch input.Currency {
	case models.CurrencyUSD, models.CurrencyETH, models.CurrencyUSDT:
	default:
		return nil, models.ErrBadRequest
	}

	txHash := input.TransactionHash
	if txHash == "" {
		generated, err := generateTxReference()
		if err != nil {
			return nil, fmt.Errorf("generating transaction reference: %w", err)
		}
		txHash = generated
	}

	tokensReceived := input.Amount / input.PricePerToken
	purchase, err := s.tokens.CreatePurchase(ctx, &models.TokenPurchase{
		UserID:          userID,
		Amount:          formatDecimal(input.Amount),
		Currency:        input.Currency,
		PricePerToken:   formatDecimal(input.PricePerToken),
		TokensReceived:  formatDecimal(tokensReceived),
		WalletAddress:   input.WalletAddress,
		TransactionHash: txHash,
		Status:          models.PurchaseStatusCompleted,
	})
	if err != nil {
		return nil, err
	}

	if err := s.users.SetWalletAddressIfEmpty(ctx, userID, input.WalletAddress); err != nil {
		s.logger.Error("failed to link purchase wallet", "user_id", userID, "error", err)
	}

	s.auditLogger.LogAccountAction("token_purchase", userID, "", map[string]string{
		"purchase_id": purchase.ID,
		"currency":    purchase.Currency,
	})
	return purchase, nil
}

// Balance aggregates a user's completed purchases at the current price.
func (s *TokenService) Balance(ctx context.Context, userID string) (*Balance, error) {
	tokens, err := s.tokens.SumTokensForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("summing token balance: %w", err)
	}
	purchases, err := s.tokens.ListPurchasesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	price := s.currentPrice(ctx)
	return &Balance{
		Tokens:        tokens,
		USDValue:      tokens * price,
		PricePerToken: price,
		Transactions:  purchases,
	}, nil
}

// Transactions returns the user's purchase history newest-first.
func (s *TokenService) Transactions(ctx context.Context, userID string) ([]*models.TokenPurchase, error) {
	return s.tokens.ListPurchasesByUser(ctx, userID)
}

func generateTxReference() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(buf), nil
}

func formatDecimal(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
