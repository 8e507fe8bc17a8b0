package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/homekrypto/hkt-api/internal/models"
	"github.com/homekrypto/hkt-api/pkg/logger"
)

// ContactService relays newsletter signups and contact form submissions to
// the support inbox. Nothing is persisted; delivery goes through the mailer
// so a slow SES call never blocks the request.
type ContactService struct {
	email  EmailService
	mailer MailQueue
	logger *slog.Logger
}

func NewContactService(email EmailService, mailer MailQueue, log *slog.Logger) *ContactService {
	return &ContactService{
		email:  email,
		mailer: mailer,
		logger: log,
	}
}

// Subscribe notifies support of a new newsletter signup and sends the
// subscriber a welcome message.
func (s *ContactService) Subscribe(ctx context.Context, email string) error {
	subscriber := normalizeEmail(email)

	s.mailer.Enqueue("newsletter_signup_notice", func(ctx context.Context) error {
		return s.email.SendNewsletterSignupNotice(ctx, subscriber)
	})
	s.mailer.Enqueue("newsletter_welcome", func(ctx context.Context) error {
		return s.email.SendNewsletterWelcomeEmail(ctx, subscriber)
	})

	s.logger.Info("newsletter subscription", "email", logger.SanitizedEmail(subscriber))
	return nil
}

// SubmitMessage relays one contact form submission to support.
func (s *ContactService) SubmitMessage(ctx context.Context, msg *models.ContactMessage) error {
	if msg.Category == "" {
		msg.Category = "General"
	}
	msg.Email = normalizeEmail(msg.Email)
	msg.Subject = strings.TrimSpace(msg.Subject)

	relayed := *msg
	s.mailer.Enqueue("contact_message", func(ctx context.Context) error {
		return s.email.SendContactFormEmail(ctx, &relayed)
	})

	s.logger.Info("contact message received", "category", relayed.Category)
	return nil
}
