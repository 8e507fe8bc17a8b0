package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/homekrypto/hkt-api/internal/auth"
	"github.com/homekrypto/hkt-api/internal/models"
	"github.com/homekrypto/hkt-api/internal/services"
	pkghttp "github.com/homekrypto/hkt-api/pkg/http"
)

// TokenServiceInterface defines HKT market and purchase operations
type TokenServiceInterface interface {
	Price(ctx context.Context) (*models.HktStats, error)
	Quote(ctx context.Context, input services.QuoteInput) (*services.Quote, error)
	Purchase(ctx context.Context, userID string, input services.PurchaseInput) (*models.TokenPurchase, error)
	Balance(ctx context.Context, userID string) (*services.Balance, error)
	Transactions(ctx context.Context, userID string) ([]*models.TokenPurchase, error)
}

// TokenHandler serves the public HKT market surface and the authenticated
// purchase endpoints.
type TokenHandler struct {
	tokens TokenServiceInterface
}

func NewTokenHandler(tokens TokenServiceInterface) *TokenHandler {
	return &TokenHandler{tokens: tokens}
}

type QuoteRequest struct {
	FromToken string  `json:"from_token" validate:"required,oneof=USD ETH HKT"`
	ToToken   string  `json:"to_token" validate:"required,oneof=USD ETH HKT"`
	Amount    float64 `json:"amount" validate:"required,gt=0"`
}

type PurchaseRequest struct {
	Amount          float64 `json:"amount" validate:"required,gt=0"`
	Currency        string  `json:"currency" validate:"required,oneof=USD ETH USDT"`
	WalletAddress   string  `json:"wallet_address" validate:"required,max=100"`
	TransactionHash string  `json:"transaction_hash" validate:"omitempty,max=100"`
	PricePerToken   float64 `json:"price_per_token" validate:"required,gt=0"`
}

// PurchaseResponse is the public representation of a recorded purchase.
type PurchaseResponse struct {
	ID              string    `json:"id"`
	Amount          string    `json:"amount"`
	Currency        string    `json:"currency"`
	PricePerToken   string    `json:"price_per_token"`
	TokensReceived  string    `json:"tokens_received"`
	WalletAddress   string    `json:"wallet_address"`
	TransactionHash string    `json:"transaction_hash"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

func toPurchaseResponse(p *models.TokenPurchase) *PurchaseResponse {
	return &PurchaseResponse{
		ID:              p.ID,
		Amount:          p.Amount,
		Currency:        p.Currency,
		PricePerToken:   p.PricePerToken,
		TokensReceived:  p.TokensReceived,
		WalletAddress:   p.WalletAddress,
		TransactionHash: p.TransactionHash,
		Status:          p.Status,
		CreatedAt:       p.CreatedAt,
	}
}

func toPurchaseResponses(purchases []*models.TokenPurchase) []*PurchaseResponse {
	out := make([]*PurchaseResponse, 0, len(purchases))
	for _, p := range purchases {
		out = append(out, toPurchaseResponse(p))
	}
	return out
}

// Price handles GET /hkt/price
func (h *TokenHandler) Price(w http.ResponseWriter, r *http.Request) {
	stats, err := h.tokens.Price(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to load token price")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"current_price":    stats.CurrentPrice,
		"price_change_24h": stats.PriceChange24h,
		"total_supply":     stats.TotalSupply,
		"market_cap":       stats.MarketCap,
		"volume_24h":       stats.Volume24h,
		"updated_at":       stats.UpdatedAt,
	})
}

// Quote handles POST /hkt/quote
func (h *TokenHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	quote, err := h.tokens.Quote(r.Context(), services.QuoteInput{
		FromToken: req.FromToken,
		ToToken:   req.ToToken,
		Amount:    req.Amount,
	})
	if err != nil {
		if errors.Is(err, models.ErrBadRequest) {
			pkghttp.WriteBadRequest(w, "Unsupported swap pair")
			return
		}
		pkghttp.WriteInternalError(w, "Failed to calculate quote")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"from_token":    quote.FromToken,
		"to_token":      quote.ToToken,
		"from_amount":   formatAmount(quote.FromAmount),
		"to_amount":     formatAmount(quote.ToAmount),
		"rate":          formatAmount(quote.Rate),
		"slippage_pct":  formatAmount(quote.SlippagePct),
		"fee_pct":       formatAmount(quote.FeePct),
		"route":         quote.Route,
		"estimated_gas": quote.EstimatedGas,
		"valid_until":   quote.ValidUntil,
	})
}

// Purchase handles POST /hkt/purchase
func (h *TokenHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	purchase, err := h.tokens.Purchase(r.Context(), user.ID, services.PurchaseInput{
		Amount:          req.Amount,
		Currency:        req.Currency,
		WalletAddress:   req.WalletAddress,
		TransactionHash: req.TransactionHash,
		PricePerToken:   req.PricePerToken,
	})
	if err != nil {
		if errors.Is(err, models.ErrBadRequest) {
			pkghttp.WriteBadRequest(w, "Invalid purchase data")
			return
		}
		pkghttp.WriteInternalError(w, "Failed to record purchase")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"purchase":        toPurchaseResponse(purchase),
		"tokens_received": purchase.TokensReceived,
	})
}

// Balance handles GET /hkt/balance
func (h *TokenHandler) Balance(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	balance, err := h.tokens.Balance(r.Context(), user.ID)
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to load balance")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"balance":         formatAmount(balance.Tokens),
		"usd_value":       formatAmount(balance.USDValue),
		"price_per_token": formatAmount(balance.PricePerToken),
		"transactions":    toPurchaseResponses(balance.Transactions),
	})
}

// Transactions handles GET /hkt/transactions
func (h *TokenHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	purchases, err := h.tokens.Transactions(r.Context(), user.ID)
	if err != nil {
		pkghttp.WriteInternalError(w, "Failed to load transactions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": toPurchaseResponses(purchases),
	})
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
