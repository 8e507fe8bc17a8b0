package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/homekrypto/hkt-api/internal/database"
	"github.com/homekrypto/hkt-api/internal/models"
)

const purchaseColumns = `id, user_id, amount::text, currency, price_per_token::text, tokens_received::text,
		wallet_address, transaction_hash, status, created_at`

// TokenRepository handles HKT market stats and purchase records
type TokenRepository struct {
	pool *pgxpool.Pool
}

// NewTokenRepository creates a new TokenRepository
func NewTokenRepository(db *database.DB) *TokenRepository {
	return &TokenRepository{pool: db.Pool}
}

func scanPurchaseRow(scanner rowScanner) (*models.TokenPurchase, error) {
	var p models.TokenPurchase
	err := scanner.Scan(
		&p.ID, &p.UserID, &p.Amount, &p.Currency, &p.PricePerToken,
		&p.TokensReceived, &p.WalletAddress, &p.TransactionHash, &p.Status, &p.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &p, nil
}

// LatestStats returns the newest market snapshot. ErrNotFound when no
// snapshot has been recorded yet.
func (r *TokenRepository) LatestStats(ctx context.Context) (*models.HktStats, error) {
	query := `
		SELECT id, current_price::text, price_change_24h::text, total_supply::text,
			market_cap::text, volume_24h::text, updated_at
		FROM hkt_stats
		ORDER BY updated_at DESC
		LIMIT 1`

	var s models.HktStats
	err := r.pool.QueryRow(ctx, query).Scan(
		&s.ID, &s.CurrentPrice, &s.PriceChange24h, &s.TotalSupply,
		&s.MarketCap, &s.Volume24h, &s.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &s, nil
}

func (r *TokenRepository) CreatePurchase(ctx context.Context, p *models.TokenPurchase) (*models.TokenPurchase, error) {
	p.ID = uuid.New().String()
	p.CreatedAt = time.Now()

	query := `
		INSERT INTO token_purchases (id, user_id, amount, currency, price_per_token,
			tokens_received, wallet_address, transaction_hash, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + purchaseColumns

	return scanPurchaseRow(r.pool.QueryRow(ctx, query,
		p.ID, p.UserID, p.Amount, p.Currency, p.PricePerToken,
		p.TokensReceived, p.WalletAddress, p.TransactionHash, p.Status, p.CreatedAt,
	))
}

// ListPurchasesByUser returns a user's purchases newest-first.
func (r *TokenRepository) ListPurchasesByUser(ctx context.Context, userID string) ([]*models.TokenPurchase, error) {
	query := `SELECT ` + purchaseColumns + ` FROM token_purchases WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query token purchases: %w", err)
	}
	defer rows.Close()

	purchases := make([]*models.TokenPurchase, 0)
	for rows.Next() {
		p, err := scanPurchaseRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan token purchase: %w", err)
		}
		purchases = append(purchases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating token purchase rows: %w", err)
	}
	return purchases, nil
}

// SumTokensForUser totals completed purchases for the balance view.
func (r *TokenRepository) SumTokensForUser(ctx context.Context, userID string) (float64, error) {
	query := `
		SELECT COALESCE(SUM(tokens_received), 0)::float8
		FROM token_purchases
		WHERE user_id = $1 AND status = $2`

	var total float64
	if err := r.pool.QueryRow(ctx, query, userID, models.PurchaseStatusCompleted).Scan(&total); err != nil {
		return 0, database.MapPostgresError(err)
	}
	return total, nil
}
