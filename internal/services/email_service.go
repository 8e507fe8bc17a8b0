package services

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/homekrypto/hkt-api/internal/config"
	"github.com/homekrypto/hkt-api/internal/models"
	"github.com/homekrypto/hkt-api/pkg/logger"
)

// EmailService sends transactional email. Implementations must be safe for
// concurrent use since sends are dispatched from the background mailer.
type EmailService interface {
	SendVerificationEmail(ctx context.Context, toEmail, firstName, verifyURL string) error
	SendPasswordResetEmail(ctx context.Context, toEmail, firstName, resetURL string) error
	SendPasswordChangedEmail(ctx context.Context, toEmail, firstName, ipAddress, userAgent string, changedAt time.Time, sessionsRevoked bool) error
	SendAgentApplicationEmail(ctx context.Context, agent *models.Agent) error
	SendAgentApprovalEmail(ctx context.Context, agent *models.Agent, pageURL string) error
	SendAgentDenialEmail(ctx context.Context, agent *models.Agent, reason string) error
	SendAgentRemovalEmail(ctx context.Context, agent *models.Agent) error
	SendAccountDeletedEmail(ctx context.Context, toEmail, firstName string) error
	SendNewsletterWelcomeEmail(ctx context.Context, toEmail string) error
	SendNewsletterSignupNotice(ctx context.Context, subscriberEmail string) error
	SendContactFormEmail(ctx context.Context, msg *models.ContactMessage) error
}

type AWSSESEmailService struct {
	client  *ses.Client
	from    string
	support string
	logger  *slog.Logger
}

func NewAWSSESEmailService(ctx context.Context, cfg *config.EmailConfig, logger *slog.Logger) (*AWSSESEmailService, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &AWSSESEmailService{
		client:  ses.NewFromConfig(awsCfg),
		from:    cfg.FromAddress,
		support: cfg.SupportAddress,
		logger:  logger,
	}, nil
}

func (s *AWSSESEmailService) send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	input := &ses.SendEmailInput{
		Source: aws.String(s.from),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data:    aws.String(htmlBody),
					Charset: aws.String("UTF-8"),
				},
				Text: &types.Content{
					Data:    aws.String(textBody),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("sending email via SES: %w", err)
	}

	s.logger.Info("email sent", "subject", subject, "to", logger.SanitizedEmail(to))
	return nil
}

func (s *AWSSESEmailService) SendVerificationEmail(ctx context.Context, toEmail, firstName, verifyURL string) error {
	subject := "Verify your email address"
	htmlBody := fmt.Sprintf(`
		<h2>Welcome to Home Krypto, %s</h2>
		<p>Please confirm your email address to activate your account.</p>
		<p><a href="%s">Verify Email Address</a></p>
		<p>This link expires in 24 hours. If you did not create an account, you can ignore this message.</p>
	`, firstName, verifyURL)
	textBody := fmt.Sprintf(
		"Welcome to Home Krypto, %s\n\nPlease confirm your email address by visiting:\n%s\n\nThis link expires in 24 hours. If you did not create an account, you can ignore this message.\n",
		firstName, verifyURL)

	return s.send(ctx, toEmail, subject, htmlBody, textBody)
}

func (s *AWSSESEmailService) SendPasswordResetEmail(ctx context.Context, toEmail, firstName, resetURL string) error {
	subject := "Reset your password"
	htmlBody := fmt.Sprintf(`
		<h2>Password Reset Request</h2>
		<p>Hi %s,</p>
		<p>We received a request to reset your password. Click the link below to choose a new one.</p>
		<p><a href="%s">Reset Password</a></p>
		<p>This link expires in 1 hour. If you did not request a reset, no action is needed.</p>
	`, firstName, resetURL)
	textBody := fmt.Sprintf(
		"Hi %s,\n\nWe received a request to reset your password. Visit the link below to choose a new one:\n%s\n\nThis link expires in 1 hour. If you did not request a reset, no action is needed.\n",
		firstName, resetURL)

	return s.send(ctx, toEmail, subject, htmlBody, textBody)
}

func (s *AWSSESEmailService) SendPasswordChangedEmail(ctx context.Context, toEmail, firstName, ipAddress, userAgent string, changedAt time.Time, sessionsRevoked bool) error {
	subject := "Your password was changed"
	when := changedAt.UTC().Format(time.RFC1123)

	// The reset-by-email path revokes every session; an authenticated
	// change keeps them. The notification must match what happened.
	sessionNote := "Other active sessions remain signed in. If this was not you, reset your password immediately and contact support."
	if sessionsRevoked {
		sessionNote = "All active sessions have been signed out. If this was not you, reset your password immediately and contact support."
	}

	htmlBody := fmt.Sprintf(`
		<h2>Password Changed</h2>
		<p>Hi %s,</p>
		<p>Your password was changed on %s.</p>
		<p>Request origin: %s (%s)</p>
		<p>%s</p>
	`, firstName, when, ipAddress, userAgent, sessionNote)
	textBody := fmt.Sprintf(
		"Hi %s,\n\nYour password was changed on %s.\nRequest origin: %s (%s)\n\n%s\n",
		firstName, when, ipAddress, userAgent, sessionNote)

	return s.send(ctx, toEmail, subject, htmlBody, textBody)
}

func (s *AWSSESEmailService) SendNewsletterWelcomeEmail(ctx context.Context, toEmail string) error {
	subject := "Welcome to the Home Krypto newsletter"
	htmlBody := `
		<h2>Welcome aboard</h2>
		<p>Thank you for subscribing to the Home Krypto newsletter. You will receive updates on new properties, token news and platform features.</p>
		<p>You received this email because you subscribed on homekrypto.com.</p>
	`
	textBody := "Thank you for subscribing to the Home Krypto newsletter. You will receive updates on new properties, token news and platform features.\n\nYou received this email because you subscribed on homekrypto.com.\n"

	return s.send(ctx, toEmail, subject, htmlBody, textBody)
}

func (s *AWSSESEmailService) SendNewsletterSignupNotice(ctx context.Context, subscriberEmail string) error {
	subject := "New newsletter subscription"
	htmlBody := fmt.Sprintf(`
		<h2>New Newsletter Subscription</h2>
		<p>%s subscribed via the newsletter form on homekrypto.com.</p>
	`, subscriberEmail)
	textBody := fmt.Sprintf("New newsletter subscription: %s subscribed via the newsletter form on homekrypto.com.\n", subscriberEmail)

	return s.send(ctx, s.support, subject, htmlBody, textBody)
}

func (s *AWSSESEmailService) SendContactFormEmail(ctx context.Context, msg *models.ContactMessage) error {
	subject := fmt.Sprintf("Contact Form: %s [%s]", msg.Subject, msg.Category)
	htmlBody := fmt.Sprintf(`
		<h2>New Contact Form Submission</h2>
		<p><strong>Name:</strong> %s</p>
		<p><strong>Email:</strong> %s</p>
		<p><strong>Category:</strong> %s</p>
		<p><strong>Subject:</strong> %s</p>
		<p><strong>Message:</strong></p>
		<p>%s</p>
	`, html.EscapeString(msg.Name), html.EscapeString(msg.Email), html.EscapeString(msg.Category),
		html.EscapeString(msg.Subject), strings.ReplaceAll(html.EscapeString(msg.Message), "\n", "<br>"))
	textBody := fmt.Sprintf(
		"New contact form submission\n\nName: %s\nEmail: %s\nCategory: %s\nSubject: %s\n\nMessage:\n%s\n",
		msg.Name, msg.Email, msg.Category, msg.Subject, msg.Message)

	return s.send(ctx, s.support, subject, htmlBody, textBody)
}

func (s *AWSSESEmailService) SendAgentApplicationEmail(ctx context.Context, agent *models.Agent) error {
	subject := "We received your agent application"
	htmlBody := fmt.Sprintf(`
		<h2>Application Received</h2>
		<p>Hi %s,</p>
		<p>Thank you for applying to become a Home Krypto partner agent. Our team reviews every application and you will hear back from us once a decision is made.</p>
	`, agent.FirstName)
	textBody := fmt.Sprintf(
		"Hi %s,\n\nThank you for applying to become a Home Krypto partner agent. Our team reviews every application and you will hear back from us once a decision is made.\n",
		agent.FirstName)

	return s.send(ctx, agent.Email, subject, htmlBody, textBody)
}

func (s *AWSSESEmailService) SendAgentApprovalEmail(ctx context.Context, agent *models.Agent, pageURL string) error {
	subject := "Your agent application was approved"
	htmlBody := fmt.Sprintf(`
		<h2>Congratulations, %s</h2>
		<p>Your agent application has been approved. Your public agent page is now live:</p>
		<p><a href="%s">%s</a></p>
		<p>Share your referral link with clients to start earning:</p>
		<p><a href="%s">%s</a></p>
	`, agent.FirstName, pageURL, pageURL, agent.ReferralLink, agent.ReferralLink)
	textBody := fmt.Sprintf(
		"Congratulations, %s\n\nYour agent application has been approved. Your public agent page is now live:\n%s\n\nShare your referral link with clients to start earning:\n%s\n",
		agent.FirstName, pageURL, agent.ReferralLink)

	return s.send(ctx, agent.Email, subject, htmlBody, textBody)
}

func (s *AWSSESEmailService) SendAgentDenialEmail(ctx context.Context, agent *models.Agent, reason string) error {
	subject := "Update on your agent application"
	htmlBody := fmt.Sprintf(`
		<h2>Application Update</h2>
		<p>Hi %s,</p>
		<p>After review, we are unable to approve your agent application at this time.</p>
		<p>Reason: %s</p>
		<p>You are welcome to apply again in the future.</p>
	`, agent.FirstName, reason)
	textBody := fmt.Sprintf(
		"Hi %s,\n\nAfter review, we are unable to approve your agent application at this time.\nReason: %s\n\nYou are welcome to apply again in the future.\n",
		agent.FirstName, reason)

	return s.send(ctx, agent.Email, subject, htmlBody, textBody)
}

func (s *AWSSESEmailService) SendAgentRemovalEmail(ctx context.Context, agent *models.Agent) error {
	subject := "Your agent profile was removed"
	htmlBody := fmt.Sprintf(`
		<h2>Profile Removed</h2>
		<p>Hi %s,</p>
		<p>Your agent profile and public page have been removed from Home Krypto. If you believe this was a mistake, please contact support.</p>
	`, agent.FirstName)
	textBody := fmt.Sprintf(
		"Hi %s,\n\nYour agent profile and public page have been removed from Home Krypto. If you believe this was a mistake, please contact support.\n",
		agent.FirstName)

	return s.send(ctx, agent.Email, subject, htmlBody, textBody)
}

func (s *AWSSESEmailService) SendAccountDeletedEmail(ctx context.Context, toEmail, firstName string) error {
	subject := "Your account was deleted"
	htmlBody := fmt.Sprintf(`
		<h2>Account Deleted</h2>
		<p>Hi %s,</p>
		<p>Your Home Krypto account and associated data have been deleted. If you believe this was a mistake, please contact support.</p>
	`, firstName)
	textBody := fmt.Sprintf(
		"Hi %s,\n\nYour Home Krypto account and associated data have been deleted. If you believe this was a mistake, please contact support.\n",
		firstName)

	return s.send(ctx, toEmail, subject, htmlBody, textBody)
}
