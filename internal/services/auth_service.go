package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/models"
	pkgauth "github.com/BradenHooton/warden/pkg/auth"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
)

// AuthService handles local registration, password sign-in and role changes.
type AuthService struct {
	store       UserStore
	hasher      *pkgauth.PasswordHasher
	tokens      TokenIssuer
	notifier    Notifier
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewAuthService(store UserStore, hasher *pkgauth.PasswordHasher, tokens TokenIssuer, notifier Notifier, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *AuthService {
	return &AuthService{
		store:       store,
		hasher:      hasher,
		tokens:      tokens,
		notifier:    notifier,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// RegisterInput is a local sign-up request.
type RegisterInput struct {
	Username string
	Password string
	Email    string
}

// RegisterResult reports the role the new account was given.
type RegisterResult struct {
	UserID  int64  `json:"user_id"`
	Message string `json:"message"`
	Role    string `json:"role"`
}

// Authenticate signs a user in with username and password.
//
// Unknown users, empty input and wrong passwords all fail with
// models.ErrInvalidCredentials. A soft-deleted user fails with
// models.ErrAccountDeleted and an account created through an external provider
// fails with models.ErrPasswordLoginDisabled. The username must match the
// stored value exactly.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*LoginResponse, error) {
	if username == "" || password == "" {
		s.auditFailure(ctx, "", username, "missing_credentials")
		return nil, models.ErrInvalidCredentials
	}

	user, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.hasher.VerifyDummy(password)
			s.auditFailure(ctx, "", username, "unknown_user")
			return nil, models.ErrInvalidCredentials
		}
		s.logger.Error("failed to look up user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	userID := userIDString(user.ID)
	if user.IsDeleted {
		s.auditFailure(ctx, userID, username, "account_deleted")
		return nil, models.ErrAccountDeleted
	}
	if !user.PasswordLoginEnabled() {
		s.auditFailure(ctx, userID, username, "external_account")
		return nil, models.ErrPasswordLoginDisabled
	}
	if !s.hasher.Verify(password, user.Password) {
		s.auditFailure(ctx, userID, username, "invalid_password")
		return nil, models.ErrInvalidCredentials
	}

	issued, err := s.tokens.IssueToken(user)
	if err != nil {
		s.logger.Error("failed to issue token", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user logged in", slog.String("user_id", userID))
	s.auditLogger.Log(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventLoginSuccess,
		UserID:    userID,
		Success:   true,
		Metadata:  map[string]string{"method": "password", "jti": issued.ID},
	})

	return newLoginResponse(issued, user, s.tokens.ValidityWindow()), nil
}

// Register creates a local account. The first account ever stored becomes an
// Admin; every later one is a User.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*RegisterResult, error) {
	username := strings.TrimSpace(input.Username)
	email := normalizeEmail(input.Email)

	if username == "" || input.Password == "" {
		return nil, models.ErrMissingCredentials
	}
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", models.ErrBadRequest)
	}

	if err := checkAvailable(ctx, s.store, s.logger, username, email, 0); err != nil {
		return nil, err
	}

	count, err := s.store.Count(ctx)
	if err != nil {
		s.logger.Error("failed to count users", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	role := models.BootstrapRole(count)

	hash, err := hashPassword(s.hasher, s.logger, input.Password)
	if err != nil {
		return nil, err
	}

	created, err := s.store.Insert(ctx, &models.User{
		Username: username,
		Password: hash,
		Email:    email,
		Role:     role,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, err
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	userID := userIDString(created.ID)
	s.logger.Info("user registered", slog.String("user_id", userID), slog.String("role", created.Role))
	s.auditLogger.Log(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventUserRegistered,
		UserID:    userID,
		Success:   true,
		Metadata:  map[string]string{"role": created.Role},
	})

	return &RegisterResult{
		UserID:  created.ID,
		Message: fmt.Sprintf("User registered successfully with role: %s", created.Role),
		Role:    created.Role,
	}, nil
}

// UpdateUserRole sets the role of userID. Only admins may call it.
func (s *AuthService) UpdateUserRole(ctx context.Context, actx *models.AuthenticatedContext, userID int64, role string) (*models.User, error) {
	if !auth.RequiresRole(actx, models.RoleAdmin) {
		return nil, models.ErrForbidden
	}
	if !models.IsValidRole(role) {
		return nil, models.ErrInvalidRole
	}

	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if user.IsDeleted {
		return nil, models.ErrNotFound
	}

	previous := user.Role
	user.Role = role
	updated, err := s.store.Update(ctx, user)
	if err != nil {
		s.logger.Error("failed to update role", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.Log(ctx, pkglogger.AuditEvent{
		EventType: pkglogger.EventRoleChanged,
		UserID:    userIDString(updated.ID),
		Success:   true,
		Metadata: map[string]string{
			"actor_id":      userIDString(actx.UserID),
			"previous_role": previous,
			"role":          updated.Role,
		},
	})
	if previous != updated.Role {
		notify(ctx, s.logger, "role_changed", updated, s.notifier.RoleChanged)
	}

	return updated, nil
}

func (s *AuthService) auditFailure(ctx context.Context, userID, username, reason string) {
	s.logger.Info("login failed", slog.String("reason", reason))
	meta := map[string]string{"method": "password"}
	if username != "" {
		meta["username"] = username
	}
	s.auditLogger.Log(ctx, pkglogger.AuditEvent{
		EventType:     pkglogger.EventLoginFailed,
		UserID:        userID,
		Success:       false,
		FailureReason: reason,
		Metadata:      meta,
	})
}

// checkAvailable fails with ErrUsernameTaken or ErrEmailTaken when another
// stored row, soft-deleted ones included, already holds the value. The row
// owned by selfID is ignored and empty values are not checked.
func checkAvailable(ctx context.Context, store UserStore, logger *slog.Logger, username, email string, selfID int64) error {
	if username != "" {
		existing, err := store.FindByUsername(ctx, username)
		switch {
		case err == nil && existing.ID != selfID:
			return models.ErrUsernameTaken
		case err != nil && !errors.Is(err, models.ErrNotFound):
			logger.Error("failed to check username", slog.Any("error", err))
			return models.ErrInternalServer
		}
	}
	if email != "" {
		existing, err := store.FindByEmail(ctx, email)
		switch {
		case err == nil && existing.ID != selfID:
			return models.ErrEmailTaken
		case err != nil && !errors.Is(err, models.ErrNotFound):
			logger.Error("failed to check email", slog.Any("error", err))
			return models.ErrInternalServer
		}
	}
	return nil
}
