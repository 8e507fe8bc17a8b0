package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/homekrypto/hkt-api/internal/models"
	"github.com/homekrypto/hkt-api/pkg/logger"
)

type adminUserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	Delete(ctx context.Context, id string) error
	ListWithApprovedAgentCounts(ctx context.Context) ([]*models.User, map[string]int64, error)
}

// AdminService covers admin-only user management.
type AdminService struct {
	users       adminUserRepository
	email       EmailService
	mailer      MailQueue
	auditLogger *logger.AuditLogger
	logger      *slog.Logger
}

func NewAdminService(users adminUserRepository, email EmailService, mailer MailQueue, auditLogger *logger.AuditLogger, log *slog.Logger) *AdminService {
	return &AdminService{
		users:       users,
		email:       email,
		mailer:      mailer,
		auditLogger: auditLogger,
		logger:      log,
	}
}

// UserListing pairs a user with how many agents they have referred to
// approval.
type UserListing struct {
	User               *models.User
	ApprovedAgentCount int64
}

// ListUsers returns all users newest-first for the admin console.
func (s *AdminService) ListUsers(ctx context.Context) ([]*UserListing, error) {
	users, counts, err := s.users.ListWithApprovedAgentCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	listings := make([]*UserListing, 0, len(users))
	for _, u := range users {
		listings = append(listings, &UserListing{
			User:               u,
			ApprovedAgentCount: counts[u.ID],
		})
	}
	return listings, nil
}

// DeleteUser removes an account and all dependent rows. Admin accounts
// cannot be deleted through this path.
func (s *AdminService) DeleteUser(ctx context.Context, targetID, adminID string) error {
	user, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return err
	}
	if user.Role == models.RoleAdmin {
		return models.ErrForbidden
	}

	if err := s.users.Delete(ctx, targetID); err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}

	toEmail, firstName := user.Email, user.FirstName
	s.mailer.Enqueue("account_deleted", func(ctx context.Context) error {
		return s.email.SendAccountDeletedEmail(ctx, toEmail, firstName)
	})

	s.auditLogger.LogAccountAction("user_deleted", adminID, "", map[string]string{
		"target_user_id": targetID,
	})
	return nil
}
