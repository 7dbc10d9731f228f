package logger

import (
	"context"
	"log/slog"
	"time"
)

// Audit event types.
const (
	EventLoginSuccess         = "login_success"
	EventLoginFailed          = "login_failed"
	EventUserRegistered       = "user_registered"
	EventOAuthUserCreated     = "oauth_user_created"
	EventOAuthUserReactivated = "oauth_user_reactivated"
	EventOAuthLogin           = "oauth_login"
	EventRoleChanged          = "role_changed"
	EventUserDeleted          = "user_deleted"
)

// AuditEvent is a security-relevant account event.
type AuditEvent struct {
	EventType     string
	UserID        string
	IPAddress     string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

type clientIPKey struct{}

// WithClientIP returns a copy of ctx carrying the caller's address.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

// ClientIPFromContext returns the address stored by WithClientIP, or "".
func ClientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

// AuditLogger writes audit events through a structured logger.
type AuditLogger struct {
	logger *slog.Logger
}

func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{logger: logger}
}

// Log records the event at info level on success and warn level on failure.
// An empty IPAddress is filled from ctx.
func (al *AuditLogger) Log(ctx context.Context, event AuditEvent) {
	if event.IPAddress == "" {
		event.IPAddress = ClientIPFromContext(ctx)
	}
	attrs := []slog.Attr{
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	if event.UserID != "" {
		attrs = append(attrs, slog.String("user_id", event.UserID))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}
	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(ctx, level, "audit", attrs...)
}
