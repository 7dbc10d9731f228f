package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/BradenHooton/warden/internal/models"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
	"github.com/google/uuid"
)

// OAuthService links identities vouched for by an external provider to local
// users, matching on verified email.
type OAuthService struct {
	store       UserStore
	tokens      TokenIssuer
	notifier    Notifier
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewOAuthService(store UserStore, tokens TokenIssuer, notifier Notifier, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *OAuthService {
	return &OAuthService{
		store:       store,
		tokens:      tokens,
		notifier:    notifier,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// SignIn resolves identity to a local user and issues a session token.
//
// An unknown email creates a user with no password; the role is Admin when no
// user row exists yet. A soft-deleted user is reactivated under the same id.
// The count and the insert are separate statements, so two concurrent first
// sign-ins can both become Admin.
func (s *OAuthService) SignIn(ctx context.Context, identity *models.ExternalIdentity) (*LoginResponse, error) {
	if identity == nil {
		return nil, models.ErrMissingEmail
	}
	email := normalizeEmail(identity.Email)
	if email == "" {
		return nil, models.ErrMissingEmail
	}

	user, err := s.store.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, models.ErrNotFound):
		user, err = s.createUser(ctx, identity, email)
		if err != nil {
			return nil, err
		}
	case err != nil:
		s.logger.Error("failed to look up user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	case user.IsDeleted:
		user, err = s.reactivate(ctx, user)
		if err != nil {
			return nil, err
		}
	}

	issued, err := s.tokens.IssueToken(user)
	if err != nil {
		s.logger.Error("failed to issue token", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.Log(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventOAuthLogin,
		UserID:    userIDString(user.ID),
		Success:   true,
		Metadata:  map[string]string{"method": identity.Provider, "jti": issued.ID},
	})

	return newLoginResponse(issued, user, s.tokens.ValidityWindow()), nil
}

func (s *OAuthService) createUser(ctx context.Context, identity *models.ExternalIdentity, email string) (*models.User, error) {
	count, err := s.store.Count(ctx)
	if err != nil {
		s.logger.Error("failed to count users", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	var created *models.User
	for _, username := range usernameCandidates(identity.Name, email) {
		created, err = s.store.Insert(ctx, &models.User{
			Username: username,
			Password: "",
			Email:    email,
			Role:     models.BootstrapRole(count),
		})
		if !errors.Is(err, models.ErrUsernameTaken) {
			break
		}
	}
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			s.logger.Info("oauth sign-in conflicts with existing user",
				slog.String("email", pkglogger.SanitizedEmail(email)), slog.Any("error", err))
			return nil, err
		}
		s.logger.Error("failed to create oauth user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.Log(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventOAuthUserCreated,
		UserID:    userIDString(created.ID),
		Success:   true,
		Metadata: map[string]string{
			"provider": identity.Provider,
			"role":     created.Role,
			"email":    pkglogger.SanitizedEmail(email),
		},
	})
	return created, nil
}

func (s *OAuthService) reactivate(ctx context.Context, user *models.User) (*models.User, error) {
	user.IsDeleted = false
	updated, err := s.store.Update(ctx, user)
	if err != nil {
		s.logger.Error("failed to reactivate user", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.Log(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventOAuthUserReactivated,
		UserID:    userIDString(updated.ID),
		Success:   true,
	})
	notify(ctx, s.logger, "account_reactivated", updated, s.notifier.AccountReactivated)
	return updated, nil
}

// maxStoredUsername is the width of the users.username column.
const maxStoredUsername = 50

// usernameCandidates lists the usernames tried, in order, for a new external
// account: the display name, the email local part, then the local part with
// a random suffix.
func usernameCandidates(displayName, email string) []string {
	displayName = truncate(displayName, maxStoredUsername)
	local := truncate(models.UsernameFromEmail(email), maxStoredUsername-9)
	suffixed := local + "-" + uuid.NewString()[:8]

	candidates := make([]string, 0, 3)
	if displayName != "" {
		candidates = append(candidates, displayName)
	}
	if local != displayName {
		candidates = append(candidates, local)
	}
	return append(candidates, suffixed)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
