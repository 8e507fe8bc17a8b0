package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/homekrypto/hkt-api/internal/database"
	"github.com/homekrypto/hkt-api/internal/models"
)

const propertyColumns = `id, name, location, description, price_per_night::text, total_shares, share_price::text,
		images, amenities, max_guests, bedrooms, bathrooms, is_active, agent_id, created_at, updated_at`

// PropertyRepository handles property listing data access
type PropertyRepository struct {
	pool *pgxpool.Pool
}

// NewPropertyRepository creates a new PropertyRepository
func NewPropertyRepository(db *database.DB) *PropertyRepository {
	return &PropertyRepository{pool: db.Pool}
}

func scanPropertyRow(scanner rowScanner) (*models.Property, error) {
	var p models.Property
	err := scanner.Scan(
		&p.ID, &p.Name, &p.Location, &p.Description, &p.PricePerNight,
		&p.TotalShares, &p.SharePrice, &p.Images, &p.Amenities,
		&p.MaxGuests, &p.Bedrooms, &p.Bathrooms, &p.IsActive, &p.AgentID,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &p, nil
}

func scanPropertyRows(rows pgx.Rows) ([]*models.Property, error) {
	defer rows.Close()

	properties := make([]*models.Property, 0)

	for rows.Next() {
		p, err := scanPropertyRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		properties = append(properties, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating property rows: %w", err)
	}

	return properties, nil
}

// Create inserts a new listing. Property IDs are operator-assigned strings.
func (r *PropertyRepository) Create(ctx context.Context, p *models.Property) (*models.Property, error) {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	query := `
		INSERT INTO properties (id, name, location, description, price_per_night, total_shares,
			share_price, images, amenities, max_guests, bedrooms, bathrooms, is_active, agent_id,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING ` + propertyColumns

	return scanPropertyRow(r.pool.QueryRow(ctx, query,
		p.ID, p.Name, p.Location, p.Description, p.PricePerNight, p.TotalShares,
		p.SharePrice, p.Images, p.Amenities, p.MaxGuests, p.Bedrooms, p.Bathrooms,
		p.IsActive, p.AgentID, p.CreatedAt, p.UpdatedAt,
	))
}

func (r *PropertyRepository) GetByID(ctx context.Context, id string) (*models.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE id = $1`
	return scanPropertyRow(r.pool.QueryRow(ctx, query, id))
}

// ListActive returns active listings newest-first (public catalog).
func (r *PropertyRepository) ListActive(ctx context.Context) ([]*models.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE is_active = TRUE ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query properties: %w", err)
	}

	return scanPropertyRows(rows)
}

// ListAll returns every listing including inactive ones (admin view).
func (r *PropertyRepository) ListAll(ctx context.Context) ([]*models.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query properties: %w", err)
	}

	return scanPropertyRows(rows)
}

func (r *PropertyRepository) Update(ctx context.Context, id string, p *models.Property) (*models.Property, error) {
	p.UpdatedAt = time.Now()

	query := `
		UPDATE properties
		SET name = $1, location = $2, description = $3, price_per_night = $4, total_shares = $5,
			share_price = $6, images = $7, amenities = $8, max_guests = $9, bedrooms = $10,
			bathrooms = $11, is_active = $12, agent_id = $13, updated_at = $14
		WHERE id = $15
		RETURNING ` + propertyColumns

	return scanPropertyRow(r.pool.QueryRow(ctx, query,
		p.Name, p.Location, p.Description, p.PricePerNight, p.TotalShares,
		p.SharePrice, p.Images, p.Amenities, p.MaxGuests, p.Bedrooms, p.Bathrooms,
		p.IsActive, p.AgentID, p.UpdatedAt, id,
	))
}

func (r *PropertyRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM properties WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
