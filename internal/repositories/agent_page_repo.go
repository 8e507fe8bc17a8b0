package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/homekrypto/hkt-api/internal/database"
	"github.com/homekrypto/hkt-api/internal/models"
)

// AgentPageRepository handles generated agent profile page records
type AgentPageRepository struct {
	pool *pgxpool.Pool
}

// NewAgentPageRepository creates a new AgentPageRepository
func NewAgentPageRepository(db *database.DB) *AgentPageRepository {
	return &AgentPageRepository{pool: db.Pool}
}

// Create inserts a page record for a newly approved agent.
func (r *AgentPageRepository) Create(ctx context.Context, agentID, slug string) (*models.AgentPage, error) {
	query := `
		INSERT INTO agent_pages (id, agent_id, slug, is_active)
		VALUES ($1, $2, $3, TRUE)
		RETURNING id, agent_id, slug, is_active, created_at
	`

	var page models.AgentPage
	err := r.pool.QueryRow(ctx, query, uuid.New().String(), agentID, slug).Scan(
		&page.ID, &page.AgentID, &page.Slug, &page.IsActive, &page.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &page, nil
}

// GetBySlug returns an active page by slug.
func (r *AgentPageRepository) GetBySlug(ctx context.Context, slug string) (*models.AgentPage, error) {
	query := `
		SELECT id, agent_id, slug, is_active, created_at
		FROM agent_pages
		WHERE slug = $1 AND is_active = TRUE
	`

	var page models.AgentPage
	err := r.pool.QueryRow(ctx, query, slug).Scan(
		&page.ID, &page.AgentID, &page.Slug, &page.IsActive, &page.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &page, nil
}

// SlugExists reports whether a slug is taken, active or not. Used by the
// approval flow to pick a collision-free suffix.
func (r *AgentPageRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM agent_pages WHERE slug = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, slug).Scan(&exists); err != nil {
		return false, database.MapPostgresError(err)
	}
	return exists, nil
}

// SetActiveForAgent toggles the page alongside agent soft-deactivation.
func (r *AgentPageRepository) SetActiveForAgent(ctx context.Context, agentID string, active bool) error {
	query := `UPDATE agent_pages SET is_active = $1 WHERE agent_id = $2`

	_, err := r.pool.Exec(ctx, query, active, agentID)
	return database.MapPostgresError(err)
}

// GetByAgentID returns the page owned by an agent, if any.
func (r *AgentPageRepository) GetByAgentID(ctx context.Context, agentID string) (*models.AgentPage, error) {
	query := `
		SELECT id, agent_id, slug, is_active, created_at
		FROM agent_pages
		WHERE agent_id = $1
	`

	var page models.AgentPage
	err := r.pool.QueryRow(ctx, query, agentID).Scan(
		&page.ID, &page.AgentID, &page.Slug, &page.IsActive, &page.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &page, nil
}
