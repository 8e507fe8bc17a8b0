package logger

import (
	"context"
	"log/slog"
)

// AuditEvent represents a security audit event
type AuditEvent struct {
	EventType     string
	UserID        string
	IPAddress     string
	UserAgent     string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// AuditLogger writes structured audit records for the auth and admin flows.
// Records go through the normal slog pipeline so they share the JSON shape
// and destination of application logs.
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{logger: logger}
}

// LogAuthAttempt records a login, logout or verification attempt. Failures
// log at warn so they stand out when scanning for abuse.
func (al *AuditLogger) LogAuthAttempt(event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "auth"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
	}
	attrs = appendNonEmpty(attrs,
		"user_id", event.UserID,
		"ip_address", event.IPAddress,
		"user_agent", event.UserAgent,
		"failure_reason", event.FailureReason,
	)
	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	al.write(event.Success, attrs)
}

// LogPasswordChange records password change and reset outcomes
func (al *AuditLogger) LogPasswordChange(userID, ipAddress string, success bool) {
	attrs := []slog.Attr{
		slog.String("audit_type", "password"),
		slog.String("event_type", "password_change"),
		slog.Bool("success", success),
		slog.String("user_id", userID),
	}
	attrs = appendNonEmpty(attrs, "ip_address", ipAddress)

	al.write(success, attrs)
}

// LogAccountAction records account and agent lifecycle actions taken by a
// user or an admin. userID is the actor, not necessarily the subject.
func (al *AuditLogger) LogAccountAction(eventType, userID, ipAddress string, metadata map[string]string) {
	attrs := []slog.Attr{
		slog.String("audit_type", "account"),
		slog.String("event_type", eventType),
		slog.String("user_id", userID),
	}
	attrs = appendNonEmpty(attrs, "ip_address", ipAddress)
	for key, val := range metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	al.write(true, attrs)
}

func (al *AuditLogger) write(success bool, attrs []slog.Attr) {
	level := slog.LevelInfo
	if !success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(context.Background(), level, "audit", attrs...)
}

func appendNonEmpty(attrs []slog.Attr, pairs ...string) []slog.Attr {
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] != "" {
			attrs = append(attrs, slog.String(pairs[i], pairs[i+1]))
		}
	}
	return attrs
}
