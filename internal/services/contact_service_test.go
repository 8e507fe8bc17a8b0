package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homekrypto/hkt-api/internal/models"
)

func TestContactService_Subscribe_SendsNoticeAndWelcome(t *testing.T) {
	email := &MockEmailService{}
	mailer := &MockMailQueue{}
	svc := NewContactService(email, mailer, testLogger())

	err := svc.Subscribe(context.Background(), "  Subscriber@Example.COM ")

	require.NoError(t, err)
	assert.Equal(t, []string{"newsletter_signup_notice", "newsletter_welcome"}, mailer.Enqueued())
	assert.Equal(t, []string{"newsletter_signup_notice", "newsletter_welcome"}, email.Sent())
}

func TestContactService_SubmitMessage_RelaysToSupport(t *testing.T) {
	email := &MockEmailService{}
	mailer := &MockMailQueue{}
	svc := NewContactService(email, mailer, testLogger())

	msg := &models.ContactMessage{
		Name:    "Jane Doe",
		Email:   "Jane@Example.com",
		Subject: "  Question about listings ",
		Message: "How do I tokenize my property?",
	}
	err := svc.SubmitMessage(context.Background(), msg)

	require.NoError(t, err)
	assert.Equal(t, []string{"contact_message"}, mailer.Enqueued())
	assert.Equal(t, []string{"contact_message"}, email.Sent())
	assert.Equal(t, "jane@example.com", msg.Email)
	assert.Equal(t, "Question about listings", msg.Subject)
}

func TestContactService_SubmitMessage_DefaultsCategory(t *testing.T) {
	email := &MockEmailService{}
	svc := NewContactService(email, &MockMailQueue{}, testLogger())

	msg := &models.ContactMessage{
		Name:    "Jane Doe",
		Email:   "jane@example.com",
		Subject: "Hello",
		Message: "A message",
	}
	require.NoError(t, svc.SubmitMessage(context.Background(), msg))

	assert.Equal(t, "General", msg.Category)
}
