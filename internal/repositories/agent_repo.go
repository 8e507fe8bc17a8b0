package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/homekrypto/hkt-api/internal/database"
	"github.com/homekrypto/hkt-api/internal/models"
)

const agentColumns = `id, first_name, last_name, email, phone, company, city, state, country,
		website, linkedin, license_number, license_state, bio, specializations,
		years_experience, languages_spoken, photo_url, referral_link, status, is_approved,
		approved_by, approved_at, rejection_reason, is_active, created_at, updated_at`

// AgentRepository handles agent profile data access
type AgentRepository struct {
	pool *pgxpool.Pool
}

// NewAgentRepository creates a new AgentRepository
func NewAgentRepository(db *database.DB) *AgentRepository {
	return &AgentRepository{pool: db.Pool}
}

func scanAgentRow(scanner rowScanner) (*models.Agent, error) {
	var a models.Agent
	err := scanner.Scan(
		&a.ID, &a.FirstName, &a.LastName, &a.Email, &a.Phone, &a.Company,
		&a.City, &a.State, &a.Country, &a.Website, &a.LinkedIn,
		&a.LicenseNumber, &a.LicenseState, &a.Bio, &a.Specializations,
		&a.YearsExperience, &a.LanguagesSpoken, &a.PhotoURL, &a.ReferralLink,
		&a.Status, &a.IsApproved, &a.ApprovedBy, &a.ApprovedAt,
		&a.RejectionReason, &a.IsActive, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &a, nil
}

func scanAgentRows(rows pgx.Rows) ([]*models.Agent, error) {
	defer rows.Close()

	agents := make([]*models.Agent, 0)

	for rows.Next() {
		agent, err := scanAgentRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan agent: %w", err)
		}
		agents = append(agents, agent)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating agent rows: %w", err)
	}

	return agents, nil
}

// Create inserts a new agent application in pending state.
func (r *AgentRepository) Create(ctx context.Context, agent *models.Agent) (*models.Agent, error) {
	if agent.ID == "" {
		agent.ID = uuid.New().String()
	}
	now := time.Now()
	agent.CreatedAt = now
	agent.UpdatedAt = now

	if agent.Status == "" {
		agent.Status = models.AgentStatusPending
	}

	query := `
		INSERT INTO agents (id, first_name, last_name, email, phone, company, city, state, country,
			website, linkedin, license_number, license_state, bio, specializations,
			years_experience, languages_spoken, photo_url, referral_link, status, is_approved,
			is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24)
		RETURNING ` + agentColumns

	return scanAgentRow(r.pool.QueryRow(ctx, query,
		agent.ID, agent.FirstName, agent.LastName, agent.Email, agent.Phone, agent.Company,
		agent.City, agent.State, agent.Country, agent.Website, agent.LinkedIn,
		agent.LicenseNumber, agent.LicenseState, agent.Bio, agent.Specializations,
		agent.YearsExperience, agent.LanguagesSpoken, agent.PhotoURL, agent.ReferralLink,
		agent.Status, agent.IsApproved, agent.IsActive, agent.CreatedAt, agent.UpdatedAt,
	))
}

func (r *AgentRepository) GetByID(ctx context.Context, id string) (*models.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE id = $1`
	return scanAgentRow(r.pool.QueryRow(ctx, query, id))
}

// List returns all agents oldest-first (admin review queue order).
func (r *AgentRepository) List(ctx context.Context) ([]*models.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query agents: %w", err)
	}

	return scanAgentRows(rows)
}

// ListApprovedActive returns the public directory set.
func (r *AgentRepository) ListApprovedActive(ctx context.Context) ([]*models.Agent, error) {
	query := `
		SELECT ` + agentColumns + `
		FROM agents
		WHERE status = 'approved' AND is_active = TRUE
		ORDER BY first_name ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query approved agents: %w", err)
	}

	return scanAgentRows(rows)
}

// Search matches approved, active agents on name, city or company,
// optionally narrowed to a country.
func (r *AgentRepository) Search(ctx context.Context, q, country string) ([]*models.Agent, error) {
	query := `
		SELECT ` + agentColumns + `
		FROM agents
		WHERE status = 'approved' AND is_active = TRUE
			AND (first_name ILIKE $1 OR last_name ILIKE $1 OR city ILIKE $1 OR company ILIKE $1)
			AND ($2 = '' OR country = $2)
		ORDER BY first_name ASC
	`

	rows, err := r.pool.Query(ctx, query, "%"+q+"%", country)
	if err != nil {
		return nil, fmt.Errorf("failed to search agents: %w", err)
	}

	return scanAgentRows(rows)
}

// ListCountries returns the distinct countries of approved, active agents.
func (r *AgentRepository) ListCountries(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT country FROM agents
		WHERE status = 'approved' AND is_active = TRUE AND country <> ''
		ORDER BY country ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query agent countries: %w", err)
	}
	defer rows.Close()

	countries := make([]string, 0)
	for rows.Next() {
		var country string
		if err := rows.Scan(&country); err != nil {
			return nil, fmt.Errorf("failed to scan country: %w", err)
		}
		countries = append(countries, country)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating country rows: %w", err)
	}

	return countries, nil
}

// Approve applies the pending -> approved transition with its metadata.
func (r *AgentRepository) Approve(ctx context.Context, id, adminID string) (*models.Agent, error) {
	query := `
		UPDATE agents
		SET status = 'approved', is_approved = TRUE, approved_by = $1, approved_at = NOW(),
			rejection_reason = NULL, updated_at = NOW()
		WHERE id = $2
		RETURNING ` + agentColumns

	return scanAgentRow(r.pool.QueryRow(ctx, query, adminID, id))
}

// Deny applies the pending -> denied transition, retaining the record.
func (r *AgentRepository) Deny(ctx context.Context, id, reason string) (*models.Agent, error) {
	query := `
		UPDATE agents
		SET status = 'denied', is_approved = FALSE, rejection_reason = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING ` + agentColumns

	return scanAgentRow(r.pool.QueryRow(ctx, query, reason, id))
}

// SetActive soft-(de)activates an agent without deleting it.
func (r *AgentRepository) SetActive(ctx context.Context, id string, active bool) error {
	query := `UPDATE agents SET is_active = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.pool.Exec(ctx, query, active, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Delete hard-deletes an agent; the page row goes with it via cascade.
func (r *AgentRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM agents WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Stats aggregates application counts for the admin dashboard.
func (r *AgentRepository) Stats(ctx context.Context) (*models.AgentStats, error) {
	query := `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'approved'),
			COUNT(*) FILTER (WHERE status = 'denied')
		FROM agents
	`

	var stats models.AgentStats
	err := r.pool.QueryRow(ctx, query).Scan(&stats.Total, &stats.Pending, &stats.Approved, &stats.Denied)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &stats, nil
}
