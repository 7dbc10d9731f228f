package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BradenHooton/warden/internal/models"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// Notifier tells users about changes made to their account. Delivery is best
// effort; callers log a failure and carry on.
type Notifier interface {
	AccountReactivated(ctx context.Context, user *models.User) error
	RoleChanged(ctx context.Context, user *models.User) error
}

// LogNotifier writes notifications to the log instead of delivering them.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) AccountReactivated(ctx context.Context, user *models.User) error {
	n.logger.InfoContext(ctx, "notification: account reactivated",
		slog.Int64("user_id", user.ID),
		slog.String("email", pkglogger.SanitizedEmail(user.Email)))
	return nil
}

func (n *LogNotifier) RoleChanged(ctx context.Context, user *models.User) error {
	n.logger.InfoContext(ctx, "notification: role changed",
		slog.Int64("user_id", user.ID),
		slog.String("role", user.Role),
		slog.String("email", pkglogger.SanitizedEmail(user.Email)))
	return nil
}

// sesAPI is the subset of the SES client used here.
type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESNotifier delivers notifications by email through AWS SES.
type SESNotifier struct {
	client      sesAPI
	fromAddress string
	logger      *slog.Logger
}

func NewSESNotifier(ctx context.Context, region, fromAddress string, logger *slog.Logger) (*SESNotifier, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &SESNotifier{
		client:      ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		logger:      logger,
	}, nil
}

func (n *SESNotifier) AccountReactivated(ctx context.Context, user *models.User) error {
	body := fmt.Sprintf(`Hello %s,

Your account was reactivated after you signed in with Google.

If this wasn't you, contact an administrator.
`, user.Username)
	return n.send(ctx, user, "Your account has been reactivated", body)
}

func (n *SESNotifier) RoleChanged(ctx context.Context, user *models.User) error {
	body := fmt.Sprintf(`Hello %s,

An administrator changed your role to %s. The change applies the next time you sign in.
`, user.Username, user.Role)
	return n.send(ctx, user, "Your account role has changed", body)
}

func (n *SESNotifier) send(ctx context.Context, user *models.User, subject, textBody string) error {
	if user.Email == "" {
		return nil
	}

	input := &ses.SendEmailInput{
		Source: aws.String(n.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{user.Email},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(textBody)},
			},
		},
	}

	result, err := n.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	n.logger.InfoContext(ctx, "notification email sent",
		slog.Int64("user_id", user.ID),
		slog.String("email", pkglogger.SanitizedEmail(user.Email)),
		slog.String("message_id", aws.ToString(result.MessageId)))
	return nil
}

// notify runs fn and logs a failure without returning it.
func notify(ctx context.Context, logger *slog.Logger, kind string, user *models.User, fn func(context.Context, *models.User) error) {
	if err := fn(ctx, user); err != nil {
		logger.WarnContext(ctx, "notification failed",
			slog.String("kind", kind),
			slog.Int64("user_id", user.ID),
			slog.Any("error", err))
	}
}
